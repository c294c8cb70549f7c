// Package builtin registers the core/meta/output tools every AgentCore
// needs: workspace file access, context management, task completion,
// sandboxed code execution, and (for tournament workers) reveal.
package builtin

import (
	"context"
	"fmt"

	"github.com/nstogner/agentrt/internal/domain"
	"github.com/nstogner/agentrt/internal/tools"
	"github.com/nstogner/agentrt/internal/workspace"
)

// RegisterWorkspaceTools registers read_file, write_file, list_files,
// and delete_file against fs.
func RegisterWorkspaceTools(reg *tools.Registry, fs *workspace.FS) error {
	readFile := tools.Tool{
		Schema: tools.Schema{
			Name:        "read_file",
			Description: "Read the contents of a file in the workspace.",
			Params:      []tools.Param{{Name: "path", Type: tools.TypeString, Required: true}},
		},
		Category: domain.CategoryCore,
		Handler: func(ctx context.Context, args map[string]any) (string, error) {
			path, _ := args["path"].(string)
			data, err := fs.Read(path)
			if err != nil {
				return "", err
			}
			return string(data), nil
		},
	}

	writeFile := tools.Tool{
		Schema: tools.Schema{
			Name:        "write_file",
			Description: "Write content to a file in the workspace, creating parent directories as needed.",
			Params: []tools.Param{
				{Name: "path", Type: tools.TypeString, Required: true},
				{Name: "content", Type: tools.TypeString, Required: true},
			},
		},
		Category: domain.CategoryCore,
		Handler: func(ctx context.Context, args map[string]any) (string, error) {
			path, _ := args["path"].(string)
			content, _ := args["content"].(string)
			if err := fs.Write(path, []byte(content)); err != nil {
				return "", err
			}
			return "success", nil
		},
	}

	listFiles := tools.Tool{
		Schema: tools.Schema{
			Name:        "list_files",
			Description: "List files and directories under a workspace path.",
			Params:      []tools.Param{{Name: "path", Type: tools.TypeString, Required: false}},
		},
		Category: domain.CategoryCore,
		Handler: func(ctx context.Context, args map[string]any) (string, error) {
			path, _ := args["path"].(string)
			names, err := fs.List(path)
			if err != nil {
				return "", err
			}
			return fmt.Sprint(names), nil
		},
	}

	deleteFile := tools.Tool{
		Schema: tools.Schema{
			Name:        "delete_file",
			Description: "Delete a file or directory in the workspace.",
			Params:      []tools.Param{{Name: "path", Type: tools.TypeString, Required: true}},
		},
		Category: domain.CategoryCore,
		Handler: func(ctx context.Context, args map[string]any) (string, error) {
			path, _ := args["path"].(string)
			if err := fs.Delete(path); err != nil {
				return "", err
			}
			return "deleted", nil
		},
	}

	for _, t := range []tools.Tool{readFile, writeFile, listFiles, deleteFile} {
		if err := reg.Register(t); err != nil {
			return fmt.Errorf("registering %s: %w", t.Name, err)
		}
	}
	return nil
}
