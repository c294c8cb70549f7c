// Package gemini implements model.Client using the Google Gen AI SDK.
// Chat is a single blocking call; streaming is not exposed.
package gemini

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"google.golang.org/genai"

	"github.com/nstogner/agentrt/internal/domain"
	"github.com/nstogner/agentrt/internal/model"
	"github.com/nstogner/agentrt/internal/tools"
)

// Client implements model.Client against the Gemini API.
type Client struct {
	genai *genai.Client
	model string
}

var _ model.Client = (*Client)(nil)

// New creates a Gemini-backed model.Client for the given model name.
func New(ctx context.Context, apiKey, modelName string) (*Client, error) {
	c, err := genai.NewClient(ctx, &genai.ClientConfig{APIKey: apiKey})
	if err != nil {
		return nil, fmt.Errorf("creating genai client: %w", err)
	}
	return &Client{genai: c, model: modelName}, nil
}

// EstimateTokens applies a 4-characters-per-token heuristic floor.
func (c *Client) EstimateTokens(text string) int {
	n := len(text) / 4
	if n == 0 && text != "" {
		n = 1
	}
	return n
}

// Chat sends req to Gemini and blocks for the complete response.
func (c *Client) Chat(ctx context.Context, req model.Request) (*model.Response, error) {
	contents := toContents(req.Messages)

	var sysInstruction *genai.Content
	if req.Instructions != "" {
		sysInstruction = &genai.Content{Parts: []*genai.Part{{Text: req.Instructions}}}
	}

	cfg := &genai.GenerateContentConfig{
		Tools:             toDeclarations(req.Tools),
		SystemInstruction: sysInstruction,
	}

	resp, err := c.genai.Models.GenerateContent(ctx, c.model, contents, cfg)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrTransientNetwork, err)
	}

	msg, finish, err := fromResponse(resp)
	if err != nil {
		return nil, err
	}

	usage := domain.Usage{}
	if resp.UsageMetadata != nil {
		usage.PromptTokens = int(resp.UsageMetadata.PromptTokenCount)
		usage.CompletionTokens = int(resp.UsageMetadata.CandidatesTokenCount)
		usage.TotalTokens = int(resp.UsageMetadata.TotalTokenCount)
	}

	return &model.Response{Message: msg, FinishReason: finish, Usage: usage}, nil
}

func toContents(messages []domain.Message) []*genai.Content {
	var contents []*genai.Content
	toolNames := make(map[string]string)

	for _, msg := range messages {
		var parts []*genai.Part
		if msg.Text != "" {
			parts = append(parts, &genai.Part{Text: msg.Text})
		}
		for _, tc := range msg.ToolCalls {
			toolNames[tc.ID] = tc.Name
			parts = append(parts, &genai.Part{
				FunctionCall: &genai.FunctionCall{Name: tc.Name, Args: tc.Args, ID: tc.ID},
			})
		}
		if msg.ToolResult != nil {
			name := toolNames[msg.ToolResult.ToolCallID]
			parts = append(parts, &genai.Part{
				FunctionResponse: &genai.FunctionResponse{
					Name: name,
					ID:   msg.ToolResult.ToolCallID,
					Response: map[string]any{
						"result": msg.ToolResult.Content,
					},
				},
			})
		}
		if len(parts) == 0 {
			continue
		}

		role := "user"
		if msg.Role == domain.RoleAssistant {
			role = "model"
		}
		contents = append(contents, &genai.Content{Role: role, Parts: parts})
	}
	return contents
}

func toDeclarations(schemas []tools.Schema) []*genai.Tool {
	if len(schemas) == 0 {
		return nil
	}
	var decls []*genai.FunctionDeclaration
	for _, s := range schemas {
		props := map[string]*genai.Schema{}
		var required []string
		for _, p := range s.Params {
			props[p.Name] = &genai.Schema{Type: toGenaiType(p.Type), Description: p.Name}
			if p.Required {
				required = append(required, p.Name)
			}
		}
		decls = append(decls, &genai.FunctionDeclaration{
			Name:        s.Name,
			Description: s.Description,
			Parameters:  &genai.Schema{Type: genai.TypeObject, Properties: props, Required: required},
		})
	}
	return []*genai.Tool{{FunctionDeclarations: decls}}
}

func toGenaiType(t tools.ParamType) genai.Type {
	switch t {
	case tools.TypeNumber:
		return genai.TypeNumber
	case tools.TypeBool:
		return genai.TypeBoolean
	case tools.TypeObject:
		return genai.TypeObject
	case tools.TypeArray:
		return genai.TypeArray
	default:
		return genai.TypeString
	}
}

func fromResponse(resp *genai.GenerateContentResponse) (domain.Message, domain.FinishReason, error) {
	if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return domain.Message{}, "", fmt.Errorf("%w: no candidates returned", domain.ErrMalformedResponse)
	}

	var text strings.Builder
	var calls []domain.ToolCall
	for _, part := range resp.Candidates[0].Content.Parts {
		if part.Text != "" {
			text.WriteString(part.Text)
		}
		if part.FunctionCall != nil {
			id := part.FunctionCall.ID
			if id == "" {
				id = "call-" + uuid.New().String()
			}
			calls = append(calls, domain.ToolCall{
				ID:   id,
				Name: part.FunctionCall.Name,
				Args: part.FunctionCall.Args,
			})
		}
	}

	finish := domain.FinishStop
	if len(calls) > 0 {
		finish = domain.FinishToolCalls
	}

	return domain.Message{
		Role:      domain.RoleAssistant,
		Text:      text.String(),
		ToolCalls: calls,
	}, finish, nil
}
