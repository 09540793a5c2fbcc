// Package tool implements the function calling subsystem that lets the
// language backend invoke structured capabilities (profile reads and writes,
// plan and calendar generation) with schema-declared arguments, uniform
// result shapes and contained failures.
package tool

import (
	"context"
	"fmt"

	"github.com/A-calculus/personalisedU/conversation"
	"github.com/A-calculus/personalisedU/logging"
)

// Tool defines the interface for a callable capability exposed to the
// language backend.
//
// Tool implementations should:
//   - Provide clear, descriptive names (snake_case) and descriptions
//   - Declare a JSON-schema object for their parameters
//   - Be safe for concurrent invocation
type Tool interface {
	// Name returns the unique identifier for this tool.
	Name() string

	// Description returns a human-readable description of what this tool
	// does. It is handed to the language backend to guide tool selection.
	Description() string

	// Parameters returns a JSON-schema object describing the expected
	// arguments. Only required-field presence is enforced before Call.
	Parameters() map[string]any

	// Call executes the tool. Any effect on the conversation context is the
	// tool's own responsibility, performed through the ToolContext.
	Call(toolCtx *ToolContext, args map[string]any) (*Result, error)
}

// Result is the uniform outcome of one tool execution. It is folded into the
// conversation transcript and the follow-up prompt, never persisted on its
// own.
type Result struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
	Data    any    `json:"data,omitempty"`
}

// ToolContext carries the per-invocation environment handed to every tool:
// the caller's context, the conversation the invocation belongs to, and the
// shared context store tools write their effects into.
type ToolContext struct {
	ctx             context.Context
	ConversationKey string
	Conversations   *conversation.Store
	Logger          logging.Logger
}

// NewToolContext builds a ToolContext. A nil logger is replaced by a no-op
// one.
func NewToolContext(ctx context.Context, key string, conversations *conversation.Store, logger logging.Logger) *ToolContext {
	if logger == nil {
		logger = logging.NoOpLogger{}
	}
	return &ToolContext{
		ctx:             ctx,
		ConversationKey: key,
		Conversations:   conversations,
		Logger:          logger,
	}
}

// Context returns the caller's context for outbound calls made by the tool.
func (t *ToolContext) Context() context.Context {
	if t.ctx == nil {
		return context.Background()
	}
	return t.ctx
}

// UnknownToolError reports an invocation naming a tool that was never
// registered. It aborts the current turn's tool-handling phase but not the
// conversation.
type UnknownToolError struct {
	Name string `json:"name"`
}

func (e *UnknownToolError) Error() string {
	return fmt.Sprintf("unknown tool: %s", e.Name)
}
