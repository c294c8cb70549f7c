package sqlite

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/nstogner/agentrt/internal/domain"
)

func TestAppendAndRecentRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "log.db")
	store, err := New(path)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer store.Close()

	ctx := context.Background()
	entries := []domain.EnhancedLogEntry{
		{Category: domain.LogLifecycle, Message: "started"},
		{Category: domain.LogTool, Message: "tool invoked: write_file", ToolName: "write_file", ToolArgs: map[string]any{"path": "a.txt"}},
		{Category: domain.LogError, Message: "boom"},
	}
	for _, e := range entries {
		if err := store.Append(ctx, e); err != nil {
			t.Fatalf("Append: %v", err)
		}
	}

	got, err := store.Recent(ctx, 10)
	if err != nil {
		t.Fatalf("Recent: %v", err)
	}
	if len(got) != 3 {
		t.Fatalf("Recent returned %d entries, want 3", len(got))
	}
	if got[0].Message != "started" || got[2].Message != "boom" {
		t.Errorf("Recent order = %+v, want oldest-first", got)
	}
	if got[1].ToolName != "write_file" || got[1].ToolArgs["path"] != "a.txt" {
		t.Errorf("tool args not round-tripped: %+v", got[1])
	}
}

func TestRecentRespectsLimit(t *testing.T) {
	path := filepath.Join(t.TempDir(), "log.db")
	store, err := New(path)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer store.Close()

	ctx := context.Background()
	for i := 0; i < 5; i++ {
		if err := store.Append(ctx, domain.EnhancedLogEntry{Category: domain.LogContext, Message: "entry"}); err != nil {
			t.Fatalf("Append: %v", err)
		}
	}
	got, err := store.Recent(ctx, 2)
	if err != nil {
		t.Fatalf("Recent: %v", err)
	}
	if len(got) != 2 {
		t.Errorf("Recent(2) returned %d entries, want 2", len(got))
	}
}
