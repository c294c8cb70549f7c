package builtin

import (
	"context"
	"fmt"

	"github.com/nstogner/agentrt/internal/contextmgr"
	"github.com/nstogner/agentrt/internal/domain"
	"github.com/nstogner/agentrt/internal/tools"
)

// RegisterCompleteTask registers the reserved complete_task tool.
// AgentCore intercepts this call by name before dispatch, so the
// handler here only runs if something invokes it outside that
// interception path (e.g. direct Registry.Invoke in a test); it simply
// echoes the completion fields back for visibility.
func RegisterCompleteTask(reg *tools.Registry) error {
	t := tools.Tool{
		Schema: tools.Schema{
			Name:        domain.ToolCompleteTask,
			Description: "Signal that the current task is finished. Ends the agent's run (or, for the main agent, the current sub-task).",
			Params: []tools.Param{
				{Name: "reason", Type: tools.TypeString, Required: true},
				{Name: "summary", Type: tools.TypeString, Required: true},
				{Name: "output", Type: tools.TypeString, Required: false},
			},
		},
		Category:  domain.CategoryMeta,
		Protected: true,
		Handler: func(ctx context.Context, args map[string]any) (string, error) {
			return fmt.Sprint(args), nil
		},
	}
	return reg.Register(t)
}

// RegisterManageContext registers the reserved manage_context tool,
// routing "compact" and "set_threshold" actions into mgr.
func RegisterManageContext(reg *tools.Registry, mgr *contextmgr.Manager) error {
	t := tools.Tool{
		Schema: tools.Schema{
			Name:        domain.ToolManageContext,
			Description: "Manage the agent's context window. action: 'compact' forces summarizing compaction now; 'set_threshold' changes the compaction threshold (requires 'threshold').",
			Params: []tools.Param{
				{Name: "action", Type: tools.TypeString, Required: true},
				{Name: "threshold", Type: tools.TypeNumber, Required: false},
			},
		},
		Category:  domain.CategoryMeta,
		Protected: true,
		Handler: func(ctx context.Context, args map[string]any) (string, error) {
			action, _ := args["action"].(string)
			switch action {
			case "compact":
				if err := mgr.Compact(ctx); err != nil {
					return "", err
				}
				return "compaction complete", nil
			case "set_threshold":
				threshold, ok := args["threshold"].(float64)
				if !ok {
					return "", fmt.Errorf("set_threshold: %w: missing threshold", domain.ErrSchemaViolation)
				}
				if err := mgr.SetThreshold(threshold); err != nil {
					return "", err
				}
				return "threshold updated", nil
			default:
				return "", fmt.Errorf("manage_context: unknown action %q", action)
			}
		},
	}
	return reg.Register(t)
}
