package builtin

import (
	"context"
	"fmt"

	"github.com/nstogner/agentrt/internal/domain"
	"github.com/nstogner/agentrt/internal/reveal"
	"github.com/nstogner/agentrt/internal/tools"
	"github.com/nstogner/agentrt/internal/workspace"
)

// RegisterReveal registers the reveal tool used by tournament workers
// to publish a workspace file for downstream stages and debate peers.
// workerID identifies the revealing worker so reveal.Merge can resolve
// collisions.
func RegisterReveal(reg *tools.Registry, fs *workspace.FS, set *reveal.Set, workerID string) error {
	t := tools.Tool{
		Schema: tools.Schema{
			Name:        domain.ToolReveal,
			Description: "Publish a workspace file so downstream tournament stages and debate peers can see it.",
			Params: []tools.Param{
				{Name: "filename", Type: tools.TypeString, Required: true},
				{Name: "description", Type: tools.TypeString, Required: true},
			},
		},
		Category: domain.CategoryOutput,
		Handler: func(ctx context.Context, args map[string]any) (string, error) {
			filename, _ := args["filename"].(string)
			description, _ := args["description"].(string)
			data, err := fs.Read(filename)
			if err != nil {
				return "", fmt.Errorf("reveal %q: %w", filename, err)
			}
			set.Put(domain.RevealedFile{
				Filename:    filename,
				Description: description,
				Content:     string(data),
				WorkerID:    workerID,
			})
			return fmt.Sprintf("revealed %q", filename), nil
		},
	}
	return reg.Register(t)
}
