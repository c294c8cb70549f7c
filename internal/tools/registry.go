// Package tools implements the tool registry: registration, lookup,
// and policy-guarded invocation of named tools. Each tool declares a
// Param list that is validated at dispatch time, so a Handler only ever
// sees arguments that match its schema.
package tools

import (
	"context"
	"fmt"
	"sync"

	"github.com/nstogner/agentrt/internal/domain"
)

// ParamType is the declared type of one tool parameter.
type ParamType string

const (
	TypeString ParamType = "string"
	TypeNumber ParamType = "number"
	TypeBool   ParamType = "bool"
	TypeObject ParamType = "object"
	TypeArray  ParamType = "array"
)

// Param describes one named, typed tool argument.
type Param struct {
	Name     string
	Type     ParamType
	Required bool
}

// Schema is a tool's name, description, and parameter list, the shape
// handed to ModelClient.Chat so the model knows what it can call.
type Schema struct {
	Name        string
	Description string
	Params      []Param
}

// Handler executes a tool call with already-validated arguments.
type Handler func(ctx context.Context, args map[string]any) (string, error)

// Tool is a named, schema-described, invocable operation.
type Tool struct {
	Schema
	Category  domain.ToolCategory
	Protected bool
	Handler   Handler
}

// Registry is the ToolRegistry. Registered tools are looked up and
// invoked by name; protected tools cannot be deleted or overwritten.
type Registry struct {
	mu    sync.RWMutex
	tools map[string]Tool
}

// NewRegistry creates an empty Registry.
func NewRegistry() *Registry {
	return &Registry{tools: make(map[string]Tool)}
}

// Register adds a tool. Re-registering a protected tool's name fails
// with ErrProtectedToolMutation.
func (r *Registry) Register(t Tool) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if existing, ok := r.tools[t.Name]; ok && existing.Protected {
		return fmt.Errorf("register %q: %w", t.Name, domain.ErrProtectedToolMutation)
	}
	r.tools[t.Name] = t
	return nil
}

// Unregister removes a tool by name. Protected tools cannot be removed.
func (r *Registry) Unregister(name string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	existing, ok := r.tools[name]
	if !ok {
		return fmt.Errorf("unregister %q: %w", name, domain.ErrUnknownTool)
	}
	if existing.Protected {
		return fmt.Errorf("unregister %q: %w", name, domain.ErrProtectedToolMutation)
	}
	delete(r.tools, name)
	return nil
}

// Get returns a tool by name.
func (r *Registry) Get(name string) (Tool, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	t, ok := r.tools[name]
	return t, ok
}

// List returns all registered tools, optionally filtered by category.
func (r *Registry) List(categories ...domain.ToolCategory) []Tool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []Tool
	for _, t := range r.tools {
		if len(categories) == 0 {
			out = append(out, t)
			continue
		}
		for _, c := range categories {
			if t.Category == c {
				out = append(out, t)
				break
			}
		}
	}
	return out
}

// Snapshot captures a shallow, independently-lockable copy of the
// registry so a single turn dispatches against a fixed tool set even if
// custom tools are registered or removed concurrently.
func (r *Registry) Snapshot() *Registry {
	r.mu.RLock()
	defer r.mu.RUnlock()
	cp := make(map[string]Tool, len(r.tools))
	for k, v := range r.tools {
		cp[k] = v
	}
	return &Registry{tools: cp}
}

// Invoke strips a tool_description key from args if the model left one
// there (the description belongs in ToolCall.ToolDescription, which only
// logging sees), validates the remaining args against the tool's schema,
// and runs the handler. Handler errors are wrapped with ErrHandlerFailure.
func (r *Registry) Invoke(ctx context.Context, name string, args map[string]any) (string, error) {
	t, ok := r.Get(name)
	if !ok {
		return "", fmt.Errorf("invoke %q: %w", name, domain.ErrUnknownTool)
	}
	if _, ok := args["tool_description"]; ok {
		filtered := make(map[string]any, len(args)-1)
		for k, v := range args {
			if k != "tool_description" {
				filtered[k] = v
			}
		}
		args = filtered
	}
	if err := validate(t.Schema, args); err != nil {
		return "", err
	}
	out, err := t.Handler(ctx, args)
	if err != nil {
		return "", fmt.Errorf("invoke %q: %w: %v", name, domain.ErrHandlerFailure, err)
	}
	return out, nil
}

func validate(s Schema, args map[string]any) error {
	for _, p := range s.Params {
		v, present := args[p.Name]
		if !present {
			if p.Required {
				return fmt.Errorf("invoke %q: missing required field %q: %w", s.Name, p.Name, domain.ErrSchemaViolation)
			}
			continue
		}
		if !typeMatches(p.Type, v) {
			return fmt.Errorf("invoke %q: field %q has wrong type: %w", s.Name, p.Name, domain.ErrSchemaViolation)
		}
	}
	return nil
}

func typeMatches(t ParamType, v any) bool {
	switch t {
	case TypeString:
		_, ok := v.(string)
		return ok
	case TypeNumber:
		switch v.(type) {
		case float64, float32, int, int64:
			return true
		}
		return false
	case TypeBool:
		_, ok := v.(bool)
		return ok
	case TypeObject:
		_, ok := v.(map[string]any)
		return ok
	case TypeArray:
		_, ok := v.([]any)
		return ok
	default:
		return true
	}
}
