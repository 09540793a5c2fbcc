// Package model abstracts the generative-language backend: given a grounded
// prompt and a set of declared tools, produce text and/or tool invocations.
// Provider adapters live in subpackages; this package holds the normalized
// request/response shapes so orchestration code never branches per vendor.
package model

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
)

// ToolDefinition declaratively exposes a callable capability to the model.
// Parameters is a JSON Schema object (draft agnostic, minimal subset
// expected).
type ToolDefinition struct {
	Name        string         `json:"name"`
	Description string         `json:"description"`
	Parameters  map[string]any `json:"parameters"`
}

// ToolCall is a function invocation request surfaced by a model provider,
// unified across vendors.
type ToolCall struct {
	ID        string          `json:"id,omitempty"`
	Name      string          `json:"name"`
	Arguments json.RawMessage `json:"arguments,omitempty"`
}

// Request captures the normalized model input produced by the turn processor:
// a fixed instruction prefix, the fully rendered grounded prompt, and the
// declared tool set (empty on follow-up calls, where the model must answer in
// natural language).
type Request struct {
	Instruction string           `json:"instruction,omitempty"`
	Prompt      string           `json:"prompt"`
	Tools       []ToolDefinition `json:"tools,omitempty"`
}

// Response is the settled outcome of one model call. Either or both fields
// may be empty. An empty response is not an error at this layer; the caller
// applies its own text-extraction fallback.
type Response struct {
	Text      string     `json:"text,omitempty"`
	ToolCalls []ToolCall `json:"tool_calls,omitempty"`
}

// Info contains metadata about a model implementation.
type Info struct {
	Name          string `json:"name"`
	Provider      string `json:"provider"` // "openai", "anthropic", "gemini", ...
	SupportsTools bool   `json:"supports_tools"`
}

// Model is the minimal interface the turn processor needs to drive
// generation.
type Model interface {
	Generate(ctx context.Context, req Request) (*Response, error)

	// Info returns information about the model implementation.
	Info() Info
}

// MockModel is a scripted in-memory Model for tests. Responses are consumed
// in enqueue order and every request is recorded for inspection.
type MockModel struct {
	mu       sync.Mutex
	info     Info
	scripted []scriptedResult
	requests []Request
}

type scriptedResult struct {
	resp *Response
	err  error
}

// NewMockModel constructs a MockModel with basic tool support enabled.
func NewMockModel(name, provider string) *MockModel {
	return &MockModel{
		info: Info{Name: name, Provider: provider, SupportsTools: true},
	}
}

// Enqueue registers the next response Generate will return.
func (m *MockModel) Enqueue(resp *Response) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.scripted = append(m.scripted, scriptedResult{resp: resp})
}

// EnqueueError registers the next error Generate will return.
func (m *MockModel) EnqueueError(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.scripted = append(m.scripted, scriptedResult{err: err})
}

// Generate implements Model; pops the next scripted result or echoes the
// prompt when the script is exhausted.
func (m *MockModel) Generate(_ context.Context, req Request) (*Response, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.requests = append(m.requests, req)
	if len(m.scripted) == 0 {
		return &Response{Text: fmt.Sprintf("Mock response to: %s", req.Prompt)}, nil
	}
	next := m.scripted[0]
	m.scripted = m.scripted[1:]
	if next.err != nil {
		return nil, next.err
	}
	return next.resp, nil
}

// Requests returns a copy of every recorded request in call order.
func (m *MockModel) Requests() []Request {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]Request, len(m.requests))
	copy(out, m.requests)
	return out
}

// Info implements Model.
func (m *MockModel) Info() Info { return m.info }
