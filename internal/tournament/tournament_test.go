package tournament

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/nstogner/agentrt/internal/agentcore"
	"github.com/nstogner/agentrt/internal/domain"
	"github.com/nstogner/agentrt/internal/logger"
	"github.com/nstogner/agentrt/internal/model"
	"github.com/nstogner/agentrt/internal/promptqueue"
	"github.com/nstogner/agentrt/internal/statusbus"
	"github.com/nstogner/agentrt/internal/tools"
	"github.com/nstogner/agentrt/internal/tools/builtin"
	"github.com/nstogner/agentrt/internal/workspace"
)

func TestValidateStagesRejectsIncreasing(t *testing.T) {
	if err := ValidateStages([]int{2, 3}); !errors.Is(err, domain.ErrStagesNotMonotone) {
		t.Errorf("ValidateStages([2,3]) = %v, want ErrStagesNotMonotone", err)
	}
	if err := ValidateStages([]int{4, 3, 2}); err != nil {
		t.Errorf("ValidateStages([4,3,2]) = %v, want nil", err)
	}
	if err := ValidateStages([]int{3, 3, 1}); err != nil {
		t.Errorf("ValidateStages([3,3,1]) = %v, want nil (equal counts allowed)", err)
	}
}

// completingClient scripts a worker to reveal one file and then complete.
type completingClient struct{}

func (completingClient) Chat(ctx context.Context, req model.Request) (*model.Response, error) {
	hasReveal := false
	for _, m := range req.Messages {
		if m.ToolResult != nil && m.ToolResult.ToolCallID == "reveal-1" {
			hasReveal = true
		}
	}
	if !hasReveal {
		return &model.Response{
			Message: domain.Message{ToolCalls: []domain.ToolCall{
				{ID: "reveal-1", Name: domain.ToolReveal, Args: map[string]any{"filename": "out.txt", "description": "result"}},
			}},
			FinishReason: domain.FinishToolCalls,
		}, nil
	}
	return &model.Response{
		Message: domain.Message{ToolCalls: []domain.ToolCall{
			{ID: "complete-1", Name: domain.ToolCompleteTask, Args: map[string]any{"reason": "finished", "summary": "done"}},
		}},
		FinishReason: domain.FinishCompleteTask,
	}, nil
}

func (completingClient) EstimateTokens(text string) int { return len(text) / 4 }

func newFactory(t *testing.T, client model.Client) WorkerFactory {
	return func(root string) (*agentcore.AgentCore, *tools.Registry, *workspace.FS, error) {
		fs, err := workspace.New(root)
		if err != nil {
			return nil, nil, nil, err
		}
		if err := fs.Write("out.txt", []byte("seeded result")); err != nil {
			return nil, nil, nil, err
		}
		reg := tools.NewRegistry()
		if err := builtin.RegisterWorkspaceTools(reg, fs); err != nil {
			return nil, nil, nil, err
		}
		if err := builtin.RegisterCompleteTask(reg); err != nil {
			return nil, nil, nil, err
		}
		core := agentcore.New(agentcore.Config{MaxTurns: 5, MaxContextTokens: 50000, CompactionThreshold: 0.9},
			client, reg, fs, promptqueue.New(), statusbus.New(), logger.New(0, nil))
		return core, reg, fs, nil
	}
}

func TestRunStageMergesRevealsAcrossWorkers(t *testing.T) {
	root := t.TempDir()
	engine := New(filepath.Join(root, "tournaments"), newFactory(t, completingClient{}), logger.New(0, nil), 2)

	result, err := engine.Run(context.Background(), "synthesize something", []int{2}, 0)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if result.Status != domain.TournamentComplete {
		t.Fatalf("Status = %v, want complete", result.Status)
	}
	if len(result.Artifacts) == 0 {
		t.Fatalf("Artifacts = %v, want at least one revealed file", result.Artifacts)
	}
}

func TestRunRejectsIncreasingStages(t *testing.T) {
	engine := New(t.TempDir(), newFactory(t, completingClient{}), logger.New(0, nil), 1)
	if _, err := engine.Run(context.Background(), "x", []int{2, 3}, 0); !errors.Is(err, domain.ErrStagesNotMonotone) {
		t.Errorf("Run with increasing stages = %v, want ErrStagesNotMonotone", err)
	}
}

func TestStageSurvivesSingleWorkerFailure(t *testing.T) {
	root := t.TempDir()
	good := newFactory(t, completingClient{})
	calls := 0
	partialFactory := func(workspaceRoot string) (*agentcore.AgentCore, *tools.Registry, *workspace.FS, error) {
		calls++
		if calls == 1 {
			return nil, nil, nil, errors.New("boom")
		}
		return good(workspaceRoot)
	}
	engine := New(filepath.Join(root, "tournaments"), partialFactory, logger.New(0, nil), 1)

	result, err := engine.Run(context.Background(), "topic", []int{2}, 0)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if result.Status != domain.TournamentComplete {
		t.Fatalf("Status = %v, want complete despite one worker failing", result.Status)
	}
	if len(result.Artifacts) == 0 {
		t.Fatalf("Artifacts empty, want the surviving worker's reveal")
	}
	failed := 0
	for _, s := range result.StageRecords {
		for _, w := range s.Workers {
			if w.Failed {
				failed++
			}
		}
	}
	if failed != 1 {
		t.Errorf("recorded %d failed workers, want exactly 1", failed)
	}
}

func TestRevealShadowCopiesWrittenPerWorker(t *testing.T) {
	root := t.TempDir()
	tournRoot := filepath.Join(root, "tournaments")
	engine := New(tournRoot, newFactory(t, completingClient{}), logger.New(0, nil), 1)

	result, err := engine.Run(context.Background(), "topic", []int{1}, 0)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	shadow := filepath.Join(tournRoot, result.ID, "stage_0_worker_0", "revealed", "out.txt")
	data, err := os.ReadFile(shadow)
	if err != nil {
		t.Fatalf("reading shadow copy: %v", err)
	}
	if string(data) != "seeded result" {
		t.Errorf("shadow copy = %q, want the revealed file content", data)
	}
}

func TestStageFailsWhenAllWorkersLoseArtifacts(t *testing.T) {
	root := t.TempDir()
	failingFactory := func(workspaceRoot string) (*agentcore.AgentCore, *tools.Registry, *workspace.FS, error) {
		return nil, nil, nil, errors.New("boom")
	}
	engine := New(filepath.Join(root, "tournaments"), failingFactory, logger.New(0, nil), 1)

	_, err := engine.Run(context.Background(), "topic", []int{2}, 0)
	if err == nil {
		t.Fatalf("Run() = nil, want error when every worker fails to start")
	}
}
