package tools

import (
	"context"
	"errors"
	"testing"

	"github.com/nstogner/agentrt/internal/domain"
)

func echoTool(name string, protected bool) Tool {
	return Tool{
		Schema: Schema{
			Name:   name,
			Params: []Param{{Name: "text", Type: TypeString, Required: true}},
		},
		Protected: protected,
		Handler: func(ctx context.Context, args map[string]any) (string, error) {
			return args["text"].(string), nil
		},
	}
}

func TestInvokeValidatesRequiredFields(t *testing.T) {
	r := NewRegistry()
	if err := r.Register(echoTool("echo", false)); err != nil {
		t.Fatalf("Register: %v", err)
	}
	if _, err := r.Invoke(context.Background(), "echo", map[string]any{}); !errors.Is(err, domain.ErrSchemaViolation) {
		t.Errorf("Invoke without required field: got %v, want ErrSchemaViolation", err)
	}
}

func TestInvokeRejectsUnknownTool(t *testing.T) {
	r := NewRegistry()
	if _, err := r.Invoke(context.Background(), "nope", nil); !errors.Is(err, domain.ErrUnknownTool) {
		t.Errorf("Invoke unknown tool: got %v, want ErrUnknownTool", err)
	}
}

func TestProtectedToolCannotBeOverwrittenOrRemoved(t *testing.T) {
	r := NewRegistry()
	if err := r.Register(echoTool("complete_task", true)); err != nil {
		t.Fatalf("Register: %v", err)
	}
	if err := r.Register(echoTool("complete_task", true)); !errors.Is(err, domain.ErrProtectedToolMutation) {
		t.Errorf("re-register protected tool: got %v, want ErrProtectedToolMutation", err)
	}
	if err := r.Unregister("complete_task"); !errors.Is(err, domain.ErrProtectedToolMutation) {
		t.Errorf("Unregister protected tool: got %v, want ErrProtectedToolMutation", err)
	}
}

func TestSnapshotIsIndependentOfLaterMutation(t *testing.T) {
	r := NewRegistry()
	if err := r.Register(echoTool("echo", false)); err != nil {
		t.Fatalf("Register: %v", err)
	}
	snap := r.Snapshot()
	if err := r.Unregister("echo"); err != nil {
		t.Fatalf("Unregister: %v", err)
	}
	if _, ok := snap.Get("echo"); !ok {
		t.Errorf("Snapshot lost its tool after later registry mutation")
	}
}

func TestInvokeRejectsWrongType(t *testing.T) {
	r := NewRegistry()
	if err := r.Register(echoTool("echo", false)); err != nil {
		t.Fatalf("Register: %v", err)
	}
	if _, err := r.Invoke(context.Background(), "echo", map[string]any{"text": 42}); !errors.Is(err, domain.ErrSchemaViolation) {
		t.Errorf("Invoke with wrong type: got %v, want ErrSchemaViolation", err)
	}
}
