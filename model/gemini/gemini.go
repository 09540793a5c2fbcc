// Package gemini provides a model wrapper for the Google Gemini API using
// the google.golang.org/genai SDK, including function calling support.
package gemini

import (
	"context"
	"encoding/json"
	"fmt"

	"google.golang.org/genai"

	"github.com/A-calculus/personalisedU/model"
)

// Options configures the Gemini model adapter.
type Options struct {
	Model       string
	Temperature float32
	APIKey      string
}

// Model wraps the Gemini API behind the generic model.Model interface.
type Model struct {
	client *genai.Client
	opts   Options
}

// NewModel creates a new Gemini model. The API key is required; the model id
// defaults to a flash-tier model suitable for conversational tool use.
func NewModel(optFns ...func(o *Options)) (*Model, error) {
	opts := Options{
		Model:       "gemini-2.0-flash",
		Temperature: 0.7,
	}
	for _, fn := range optFns {
		fn(&opts)
	}
	if opts.APIKey == "" {
		return nil, fmt.Errorf("gemini api key is required")
	}

	client, err := genai.NewClient(context.Background(), &genai.ClientConfig{APIKey: opts.APIKey})
	if err != nil {
		return nil, fmt.Errorf("create gemini client: %w", err)
	}
	return &Model{client: client, opts: opts}, nil
}

// NewModelFromClient creates a new Gemini model from an existing client.
func NewModelFromClient(client *genai.Client, optFns ...func(o *Options)) *Model {
	opts := Options{
		Model:       "gemini-2.0-flash",
		Temperature: 0.7,
	}
	for _, fn := range optFns {
		fn(&opts)
	}
	return &Model{client: client, opts: opts}
}

// Generate performs a single generation call. Function-call parts of the
// first candidate are normalized into model.ToolCall values; a response
// without candidates yields an empty model.Response.
func (m *Model) Generate(ctx context.Context, req model.Request) (*model.Response, error) {
	config := &genai.GenerateContentConfig{
		Temperature: genai.Ptr(m.opts.Temperature),
	}
	if req.Instruction != "" {
		config.SystemInstruction = genai.NewContentFromText(req.Instruction, genai.RoleUser)
	}
	if len(req.Tools) > 0 {
		config.Tools = buildTools(req.Tools)
	}

	resp, err := m.client.Models.GenerateContent(ctx, m.opts.Model, genai.Text(req.Prompt), config)
	if err != nil {
		return nil, fmt.Errorf("gemini api error: %w", err)
	}
	if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return &model.Response{}, nil
	}

	out := &model.Response{}
	for _, part := range resp.Candidates[0].Content.Parts {
		if part.Text != "" {
			out.Text += part.Text
		}
		if part.FunctionCall == nil {
			continue
		}
		var args json.RawMessage
		if part.FunctionCall.Args != nil {
			if argsBytes, err := json.Marshal(part.FunctionCall.Args); err == nil {
				args = argsBytes
			}
		}
		out.ToolCalls = append(out.ToolCalls, model.ToolCall{
			ID:        part.FunctionCall.ID,
			Name:      part.FunctionCall.Name,
			Arguments: args,
		})
	}
	return out, nil
}

// buildTools converts normalized tool definitions into Gemini function
// declarations.
func buildTools(tools []model.ToolDefinition) []*genai.Tool {
	decls := make([]*genai.FunctionDeclaration, len(tools))
	for i, tdef := range tools {
		decls[i] = &genai.FunctionDeclaration{
			Name:                 tdef.Name,
			Description:          tdef.Description,
			ParametersJsonSchema: tdef.Parameters,
		}
	}
	return []*genai.Tool{{FunctionDeclarations: decls}}
}

// Info returns metadata describing this Gemini model implementation.
func (m *Model) Info() model.Info {
	return model.Info{
		Name:          m.opts.Model,
		Provider:      "gemini",
		SupportsTools: true,
	}
}
