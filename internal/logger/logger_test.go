package logger

import (
	"context"
	"errors"
	"testing"

	"github.com/nstogner/agentrt/internal/domain"
)

type fakeSink struct {
	entries []domain.EnhancedLogEntry
	err     error
}

func (f *fakeSink) Append(ctx context.Context, entry domain.EnhancedLogEntry) error {
	if f.err != nil {
		return f.err
	}
	f.entries = append(f.entries, entry)
	return nil
}

func TestLogAssignsIncreasingIDs(t *testing.T) {
	l := New(0, nil)
	ctx := context.Background()
	a := l.Lifecycle(ctx, "first")
	b := l.Lifecycle(ctx, "second")
	if b.ID <= a.ID {
		t.Errorf("IDs not increasing: %d then %d", a.ID, b.ID)
	}
}

func TestRingBufferTrimsToCapacity(t *testing.T) {
	l := New(3, nil)
	ctx := context.Background()
	for i := 0; i < 10; i++ {
		l.Lifecycle(ctx, "entry")
	}
	recent := l.Tail(0)
	if len(recent) != 3 {
		t.Fatalf("Tail(0) returned %d entries, want 3 (capacity)", len(recent))
	}
	if recent[len(recent)-1].ID != 10 {
		t.Errorf("last retained entry ID = %d, want 10", recent[len(recent)-1].ID)
	}
}

func TestTailFiltersByCategory(t *testing.T) {
	l := New(0, nil)
	ctx := context.Background()
	l.LLM(ctx, "model call")
	l.Tool(ctx, "write_file", "writes a file", map[string]any{"path": "x"})
	l.Error(ctx, "oops")

	toolsOnly := l.Tail(0, domain.LogTool)
	if len(toolsOnly) != 1 || toolsOnly[0].ToolName != "write_file" {
		t.Errorf("Tail(0, tool) = %+v, want one write_file entry", toolsOnly)
	}

	both := l.Tail(0, domain.LogLLM, domain.LogError)
	if len(both) != 2 {
		t.Errorf("Tail(0, llm, error) = %d entries, want 2", len(both))
	}
}

func TestToolDescriptionStrippedFromArgs(t *testing.T) {
	l := New(0, nil)
	entry := l.Tool(context.Background(), "write_file", "", map[string]any{
		"path":             "x.txt",
		"tool_description": "writing the greeting file",
	})
	if _, ok := entry.ToolArgs["tool_description"]; ok {
		t.Errorf("tool_description still present in ToolArgs: %+v", entry.ToolArgs)
	}
	if entry.Description != "writing the greeting file" {
		t.Errorf("Description = %q, want the stripped tool_description", entry.Description)
	}
	if entry.ToolArgs["path"] != "x.txt" {
		t.Errorf("remaining args lost: %+v", entry.ToolArgs)
	}
}

func TestSinkFailureDoesNotBlockLogging(t *testing.T) {
	sink := &fakeSink{err: errors.New("disk full")}
	l := New(0, sink)
	ctx := context.Background()
	entry := l.Lifecycle(ctx, "should still be recorded")
	if entry.ID == 0 {
		t.Errorf("Log returned zero-value entry despite sink failure")
	}
	if len(l.Tail(0)) != 1 {
		t.Errorf("in-memory entry missing despite sink failure")
	}
}

func TestSinkReceivesEveryEntry(t *testing.T) {
	sink := &fakeSink{}
	l := New(0, sink)
	ctx := context.Background()
	l.Lifecycle(ctx, "one")
	l.Context(ctx, "two")
	if len(sink.entries) != 2 {
		t.Fatalf("sink received %d entries, want 2", len(sink.entries))
	}
}
