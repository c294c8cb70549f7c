package tournament

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/nstogner/agentrt/internal/domain"
	"github.com/nstogner/agentrt/internal/tools"
)

// RegisterTool registers run_tournament so the main agent can invoke
// the Engine as an ordinary tool call. It lives in this package, rather
// than tools/builtin, because Engine already depends on tools/builtin
// to register the reveal tool for each worker; registering
// run_tournament from builtin would create an import cycle.
// Omitted stages/debate_rounds arguments fall back to defaultStages and
// defaultDebateRounds.
func RegisterTool(reg *tools.Registry, engine *Engine, defaultStages []int, defaultDebateRounds int) error {
	t := tools.Tool{
		Schema: tools.Schema{
			Name:        "run_tournament",
			Description: "Run a staged tournament of parallel worker agents narrowing toward a synthesized result.",
			Params: []tools.Param{
				{Name: "topic", Type: tools.TypeString, Required: true},
				{Name: "stages", Type: tools.TypeArray, Required: false},
				{Name: "debate_rounds", Type: tools.TypeNumber, Required: false},
			},
		},
		Category: domain.CategoryCore,
		Handler: func(ctx context.Context, args map[string]any) (string, error) {
			topic, _ := args["topic"].(string)
			stages := defaultStages
			if _, ok := args["stages"]; ok {
				parsed, err := toIntSlice(args["stages"])
				if err != nil {
					return "", fmt.Errorf("run_tournament: %w: %v", domain.ErrSchemaViolation, err)
				}
				stages = parsed
			}
			debateRounds := defaultDebateRounds
			if v, ok := args["debate_rounds"].(float64); ok {
				debateRounds = int(v)
			}

			result, err := engine.Run(ctx, topic, stages, debateRounds)
			if err != nil {
				return "", fmt.Errorf("run_tournament: %w", err)
			}
			out, marshalErr := json.Marshal(result)
			if marshalErr != nil {
				return "", fmt.Errorf("run_tournament: marshaling result: %w", marshalErr)
			}
			return string(out), nil
		},
	}
	return reg.Register(t)
}

func toIntSlice(v any) ([]int, error) {
	arr, ok := v.([]any)
	if !ok {
		return nil, fmt.Errorf("stages must be an array of numbers")
	}
	out := make([]int, len(arr))
	for i, item := range arr {
		f, ok := item.(float64)
		if !ok {
			return nil, fmt.Errorf("stages[%d] is not a number", i)
		}
		out[i] = int(f)
	}
	return out, nil
}
