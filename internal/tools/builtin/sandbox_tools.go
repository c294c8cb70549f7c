package builtin

import (
	"context"
	"fmt"

	"github.com/nstogner/agentrt/internal/domain"
	"github.com/nstogner/agentrt/internal/sandbox"
	"github.com/nstogner/agentrt/internal/tools"
)

// RegisterExecuteCode registers the run_code tool, dispatching to
// mgr's sandbox for the given agentID.
func RegisterExecuteCode(reg *tools.Registry, mgr sandbox.Manager, agentID string) error {
	t := tools.Tool{
		Schema: tools.Schema{
			Name:        "run_code",
			Description: "Execute a shell command in a sandboxed container and return its stdout/stderr.",
			Params:      []tools.Param{{Name: "code", Type: tools.TypeString, Required: true}},
		},
		Category: domain.CategoryCore,
		Handler: func(ctx context.Context, args map[string]any) (string, error) {
			code, _ := args["code"].(string)
			result, err := mgr.Exec(ctx, agentID, code)
			if err != nil {
				return "", fmt.Errorf("run_code: %w", err)
			}
			if result.ExitCode != 0 {
				return fmt.Sprintf("stdout:\n%s\nstderr:\n%s", result.Stdout, result.Stderr),
					fmt.Errorf("run_code: exit %d: %w", result.ExitCode, domain.ErrCodeExecNonZero)
			}
			return fmt.Sprintf("stdout:\n%s\nstderr:\n%s", result.Stdout, result.Stderr), nil
		},
	}
	return reg.Register(t)
}
