// Package tournament implements a staged pipeline of parallel worker
// agents that narrows toward a synthesized artifact set. Workers in a
// stage run concurrently and exchange critiques across debate rounds;
// stages run strictly sequentially, each receiving the merged revealed
// artifacts of its predecessor.
package tournament

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/nstogner/agentrt/internal/agentcore"
	"github.com/nstogner/agentrt/internal/domain"
	"github.com/nstogner/agentrt/internal/logger"
	"github.com/nstogner/agentrt/internal/reveal"
	"github.com/nstogner/agentrt/internal/tools"
	"github.com/nstogner/agentrt/internal/tools/builtin"
	"github.com/nstogner/agentrt/internal/workspace"
)

// WorkerFactory builds one isolated AgentCore for a tournament worker,
// rooted at workspaceRoot, with tools registered by the caller. It lets
// Engine stay independent of how a concrete deployment wires its
// ModelClient, sandbox, and tool set.
type WorkerFactory func(workspaceRoot string) (*agentcore.AgentCore, *tools.Registry, *workspace.FS, error)

// Engine is the TournamentEngine.
type Engine struct {
	rootDir    string
	newWorker  WorkerFactory
	log        *logger.Logger
	maxParallel int
}

// New creates an Engine that builds worker workspaces under rootDir.
// maxParallel bounds concurrent workers within a single stage (<=0 means
// unbounded).
func New(rootDir string, newWorker WorkerFactory, log *logger.Logger, maxParallel int) *Engine {
	return &Engine{rootDir: rootDir, newWorker: newWorker, log: log, maxParallel: maxParallel}
}

// ValidateStages rejects stage sequences that widen: the worker count
// per stage must be non-increasing.
func ValidateStages(stages []int) error {
	for i := 1; i < len(stages); i++ {
		if stages[i] > stages[i-1] {
			return fmt.Errorf("stages %v: %w", stages, domain.ErrStagesNotMonotone)
		}
	}
	return nil
}

// Run executes a full tournament: topic, the number of parallel workers
// per stage (non-increasing), and the number of debate rounds run after
// each stage's workers finish. It returns the completed Tournament
// record, including the final stage's merged reveals as Artifacts.
func (e *Engine) Run(ctx context.Context, topic string, stages []int, debateRounds int) (*domain.Tournament, error) {
	if err := ValidateStages(stages); err != nil {
		return nil, err
	}

	t := &domain.Tournament{
		ID:           "tournament_" + uuid.NewString(),
		Topic:        topic,
		Stages:       stages,
		DebateRounds: debateRounds,
		Status:       domain.TournamentRunning,
	}
	e.log.Tournament(ctx, fmt.Sprintf("tournament %s starting: stages=%v", t.ID, stages))

	var incoming []domain.RevealedFile

	for stageIdx, workerCount := range stages {
		t.StageIndex = stageIdx
		stage, files, err := e.runStage(ctx, t.ID, stageIdx, workerCount, topic, incoming, debateRounds)
		t.StageRecords = append(t.StageRecords, stage)
		if err != nil {
			t.Status = domain.TournamentFailed
			e.log.Tournament(ctx, fmt.Sprintf("tournament %s failed at stage %d: %v", t.ID, stageIdx, err))
			return t, err
		}
		if stage.Failed {
			t.Status = domain.TournamentFailed
			e.log.Tournament(ctx, fmt.Sprintf("tournament %s: stage %d lost all artifacts", t.ID, stageIdx))
			return t, fmt.Errorf("stage %d: all workers lost their artifacts", stageIdx)
		}
		incoming = files
	}

	t.Artifacts = incoming
	t.Status = domain.TournamentComplete
	e.log.Tournament(ctx, fmt.Sprintf("tournament %s complete: %d artifacts", t.ID, len(t.Artifacts)))
	return t, nil
}

// runStage spawns workerCount isolated workers, lets each run until it
// stops (complete_task, its MaxTurns cap, an error, or cancellation of
// ctx; there is no per-worker timeout), runs debateRounds critique
// rounds over their revealed files, and merges the surviving reveals.
func (e *Engine) runStage(ctx context.Context, tournamentID string, stageIdx, workerCount int, topic string, inputFiles []domain.RevealedFile, debateRounds int) (*domain.Stage, []domain.RevealedFile, error) {
	stage := &domain.Stage{Index: stageIdx, StartedAt: time.Now()}

	workers := make([]*domain.Worker, workerCount)
	sets := make([]*reveal.Set, workerCount)
	cores := make([]*agentcore.AgentCore, workerCount)

	sem := make(chan struct{}, maxOrUnbounded(e.maxParallel, workerCount))
	var wg sync.WaitGroup
	var mu sync.Mutex

	for i := 0; i < workerCount; i++ {
		i := i
		workerID := fmt.Sprintf("%s_stage%d_worker%d", tournamentID, stageIdx, i)
		workspaceRoot := filepath.Join(e.rootDir, tournamentID, fmt.Sprintf("stage_%d_worker_%d", stageIdx, i), "workspace")

		wg.Add(1)
		go func() {
			defer wg.Done()
			sem <- struct{}{}
			defer func() { <-sem }()

			core, registry, fs, err := e.newWorker(workspaceRoot)
			if err != nil {
				mu.Lock()
				workers[i] = &domain.Worker{ID: workerID, TournamentID: tournamentID, Stage: stageIdx, WorkspacePath: workspaceRoot, Failed: true, FailureCause: err.Error()}
				mu.Unlock()
				return
			}

			set := reveal.NewSet()
			if regErr := builtin.RegisterReveal(registry, fs, set, workerID); regErr != nil {
				mu.Lock()
				workers[i] = &domain.Worker{ID: workerID, TournamentID: tournamentID, Stage: stageIdx, WorkspacePath: workspaceRoot, Failed: true, FailureCause: regErr.Error()}
				mu.Unlock()
				return
			}
			seedInputFiles(fs, inputFiles)

			goal := buildWorkerGoal(topic, stageIdx, inputFiles)
			if startErr := core.Start(ctx, goal); startErr != nil {
				mu.Lock()
				workers[i] = &domain.Worker{ID: workerID, TournamentID: tournamentID, Stage: stageIdx, WorkspacePath: workspaceRoot, Failed: true, FailureCause: startErr.Error()}
				mu.Unlock()
				return
			}

			waitForTerminal(ctx, core)

			w := &domain.Worker{
				ID:            workerID,
				TournamentID:  tournamentID,
				Stage:         stageIdx,
				WorkspacePath: workspaceRoot,
				State:         core.State(),
				Revealed:      set.List(),
				Completion:    core.Completion(),
			}
			if core.State() == domain.StateError {
				w.Failed = true
				if cause := core.ErrCause(); cause != nil {
					w.FailureCause = cause.Error()
				}
			}

			mu.Lock()
			workers[i] = w
			sets[i] = set
			cores[i] = core
			mu.Unlock()
		}()
	}
	wg.Wait()
	stage.Workers = workers

	e.runDebate(ctx, stage, workers, cores, sets, debateRounds)

	var revealLists [][]domain.RevealedFile
	allFailed := true
	for _, w := range workers {
		if w == nil {
			continue
		}
		if !w.Failed {
			allFailed = false
		}
		revealLists = append(revealLists, w.Revealed)
	}
	merged, collisions := reveal.Merge(revealLists...)
	stage.CollisionNotes = collisions
	stage.EndedAt = time.Now()
	stage.Failed = allFailed && len(merged) == 0

	e.writeRevealShadows(ctx, tournamentID, stageIdx, workers)

	return stage, merged, nil
}

// writeRevealShadows copies each worker's revealed files into a sibling
// revealed/ directory next to its workspace, so the published artifact
// set survives for audit even if the worker later mutates or deletes
// the originals.
func (e *Engine) writeRevealShadows(ctx context.Context, tournamentID string, stageIdx int, workers []*domain.Worker) {
	for i, w := range workers {
		if w == nil || len(w.Revealed) == 0 {
			continue
		}
		shadowDir := filepath.Join(e.rootDir, tournamentID, fmt.Sprintf("stage_%d_worker_%d", stageIdx, i), "revealed")
		for _, f := range w.Revealed {
			dest := filepath.Join(shadowDir, filepath.Clean("/"+f.Filename))
			if err := os.MkdirAll(filepath.Dir(dest), 0o755); err != nil {
				e.log.Tournament(ctx, fmt.Sprintf("shadow copy for %s failed: %v", w.ID, err))
				continue
			}
			if err := os.WriteFile(dest, []byte(f.Content), 0o644); err != nil {
				e.log.Tournament(ctx, fmt.Sprintf("shadow copy of %s for %s failed: %v", f.Filename, w.ID, err))
			}
		}
	}
}

// runDebate runs debateRounds critique-and-response rounds. Each
// round, every surviving worker's stopped AgentCore is resumed via
// Continue with a prompt showing the current revealed set of its peers,
// minus its own. The worker may call reveal again to revise its own
// artifact before calling complete_task to close the round; its Worker
// record and reveal.Set are updated from the result. Cross-round
// context is preserved rather than reset.
func (e *Engine) runDebate(ctx context.Context, stage *domain.Stage, workers []*domain.Worker, cores []*agentcore.AgentCore, sets []*reveal.Set, rounds int) {
	sem := make(chan struct{}, maxOrUnbounded(e.maxParallel, len(workers)))

	for round := 1; round <= rounds; round++ {
		var wg sync.WaitGroup
		var mu sync.Mutex

		for i, w := range workers {
			if w == nil || w.Failed || cores[i] == nil {
				continue
			}
			i, w := i, w

			wg.Add(1)
			go func() {
				defer wg.Done()
				sem <- struct{}{}
				defer func() { <-sem }()

				core := cores[i]
				prompt := buildCritiquePrompt(w.ID, workers, round)
				if err := core.Continue(ctx, prompt); err != nil {
					e.log.Tournament(ctx, fmt.Sprintf("debate round %d: worker %s could not resume: %v", round, w.ID, err))
					return
				}
				waitForTerminal(ctx, core)

				mu.Lock()
				defer mu.Unlock()
				w.Revealed = sets[i].List()
				w.Completion = core.Completion()
				if core.State() == domain.StateError {
					w.Failed = true
					if cause := core.ErrCause(); cause != nil {
						w.FailureCause = cause.Error()
					}
				}
				stage.DebateTranscript = append(stage.DebateTranscript, domain.DebateEntry{
					Round:    round,
					WorkerID: w.ID,
					Text:     prompt,
				})
			}()
		}
		wg.Wait()
	}
}

// buildCritiquePrompt describes every peer's current reveals (excluding
// the recipient's own) so a debate round can ask a worker to critique and
// respond before re-closing its sub-task.
func buildCritiquePrompt(selfID string, workers []*domain.Worker, round int) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Debate round %d: here is what your peers have revealed so far.\n", round)
	any := false
	for _, w := range workers {
		if w == nil || w.ID == selfID || len(w.Revealed) == 0 {
			continue
		}
		any = true
		fmt.Fprintf(&b, "\nWorker %s revealed %d file(s):\n", w.ID, len(w.Revealed))
		for _, f := range w.Revealed {
			fmt.Fprintf(&b, "  - %s: %s\n", f.Filename, f.Description)
		}
	}
	if !any {
		b.WriteString("\nNo peers have revealed anything yet.\n")
	}
	b.WriteString("\nCritique their approach relative to yours, and respond by revising your own reveal if warranted. Call complete_task again when you are done with this round.")
	return b.String()
}

func seedInputFiles(fs *workspace.FS, files []domain.RevealedFile) {
	for _, f := range files {
		_ = fs.Write(filepath.Join("inputs", f.Filename), []byte(f.Content))
	}
}

func buildWorkerGoal(topic string, stageIdx int, inputFiles []domain.RevealedFile) string {
	if stageIdx == 0 {
		return topic
	}
	return fmt.Sprintf("%s\n\nBuild on the %d file(s) revealed by the previous stage, found under inputs/.", topic, len(inputFiles))
}

func waitForTerminal(ctx context.Context, core *agentcore.AgentCore) {
	ticker := time.NewTicker(50 * time.Millisecond)
	defer ticker.Stop()
	for {
		switch core.State() {
		case domain.StateStopped, domain.StateError, domain.StateIdle:
			return
		}
		select {
		case <-ctx.Done():
			core.Stop()
			return
		case <-ticker.C:
		}
	}
}

func maxOrUnbounded(configured, fallback int) int {
	if configured <= 0 {
		return fallback
	}
	return configured
}
