// Package turn orchestrates one conversational turn end-to-end: ground the
// prompt on the stored context, call the language backend with the declared
// tool set, execute any requested tools concurrently, and produce the final
// reply through a follow-up call. Two backend calls per turn at most, and the
// follow-up never starts before every dispatched tool has settled.
package turn

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/A-calculus/personalisedU/conversation"
	"github.com/A-calculus/personalisedU/logging"
	"github.com/A-calculus/personalisedU/model"
	"github.com/A-calculus/personalisedU/tool"
)

// DefaultHistoryLimit caps how many transcript messages are rendered into a
// prompt. Truncation always drops the oldest entries.
const DefaultHistoryLimit = 20

// apologyText replaces a malformed or empty backend response. The turn still
// succeeds; the user gets a retry hint instead of an error.
const apologyText = "I'm sorry, I wasn't able to put together a response just now. Please try again."

// DefaultInstruction is the fixed prefix of every first-phase prompt. It
// frames the assistant role and the tool workflow.
const DefaultInstruction = `You are an AI assistant specialized in helping users with their personal development and scheduling.

Workflow:
1. Start by retrieving the user's stored profile before answering questions that depend on it.
2. If no profile exists, gather the necessary information conversationally and save it.
3. Save or update profile information automatically as the user shares it; never ask permission to save.
4. When the user wants a personalized plan, generate it from the saved profile, then keep the stored plan up to date when the user tweaks it.
5. When the user wants a calendar, generate the calendar file and share its download link as a clickable hyperlink; never fabricate calendar content yourself.
6. Never echo raw tool output; phrase answers naturally against the conversation so far.
7. Be professional yet friendly.`

// Phases of a turn's backend interaction, used in error reporting and logs.
const (
	PhaseInitial  = "initial"
	PhaseFollowUp = "follow_up"
)

// BackendCallError wraps a language backend failure. It is fatal to the turn;
// context already appended is retained, so a retried turn sees the partial
// history.
type BackendCallError struct {
	Phase string
	Err   error
}

func (e *BackendCallError) Error() string {
	return fmt.Sprintf("backend call failed in %s phase: %v", e.Phase, e.Err)
}

func (e *BackendCallError) Unwrap() error { return e.Err }

// Options configures a Processor.
type Options struct {
	// Instruction is the fixed system prefix. Defaults to DefaultInstruction.
	Instruction string
	// HistoryLimit caps rendered transcript history. Defaults to
	// DefaultHistoryLimit.
	HistoryLimit int
	// Logger for turn progress.
	Logger logging.Logger
}

// Processor drives the per-turn state machine. The caller must not run two
// turns for the same conversation key concurrently; the processor does not
// serialize per key itself.
type Processor struct {
	conversations *conversation.Store
	registry      *tool.Registry
	dispatcher    *tool.Dispatcher
	backend       model.Model

	instruction  string
	historyLimit int
	logger       logging.Logger
}

// NewProcessor wires a turn processor over its collaborators.
func NewProcessor(conversations *conversation.Store, registry *tool.Registry, dispatcher *tool.Dispatcher, backend model.Model, optFns ...func(o *Options)) *Processor {
	opts := Options{
		Instruction:  DefaultInstruction,
		HistoryLimit: DefaultHistoryLimit,
		Logger:       logging.NoOpLogger{},
	}
	for _, fn := range optFns {
		fn(&opts)
	}
	return &Processor{
		conversations: conversations,
		registry:      registry,
		dispatcher:    dispatcher,
		backend:       backend,
		instruction:   opts.Instruction,
		historyLimit:  opts.HistoryLimit,
		logger:        opts.Logger,
	}
}

// ProcessTurn handles one inbound message and returns the reply text.
//
// The turn proceeds through: append the user message, build the grounded
// prompt, first backend call with tool declarations, then either a direct
// reply or a concurrent tool phase followed by a declaration-free follow-up
// call. Backend failures and unknown-tool invocations propagate as errors;
// individual tool failures do not.
func (p *Processor) ProcessTurn(ctx context.Context, key, text string) (string, error) {
	snapshot := p.conversations.Get(key)
	p.conversations.AppendMessage(key, conversation.Message{Role: conversation.RoleUser, Content: text})

	prompt := p.buildPrompt(snapshot, text)
	p.logger.Debug("turn.prompt_built", "conversation", key, "history", len(snapshot.Recent(p.historyLimit)))

	first, err := p.backend.Generate(ctx, model.Request{
		Instruction: p.instruction,
		Prompt:      prompt,
		Tools:       p.registry.Definitions(),
	})
	if err != nil {
		return "", &BackendCallError{Phase: PhaseInitial, Err: err}
	}
	if first == nil {
		first = &model.Response{}
	}

	if len(first.ToolCalls) == 0 {
		reply := extractText(first)
		p.conversations.AppendMessage(key, conversation.Message{Role: conversation.RoleAssistant, Content: reply})
		p.logger.Info("turn.replied", "conversation", key, "tools", 0)
		return reply, nil
	}

	p.logger.Info("turn.tools_requested", "conversation", key, "count", len(first.ToolCalls))
	toolCtx := tool.NewToolContext(ctx, key, p.conversations, p.logger)
	settled := p.dispatcher.DispatchAll(toolCtx, first.ToolCalls, func(s tool.Settled) {
		if s.Err != nil {
			return
		}
		p.conversations.AppendMessage(key, conversation.Message{
			Role:    conversation.RoleAssistant,
			Content: toolNote(s),
		})
	})
	for _, s := range settled {
		if s.Err != nil {
			return "", s.Err
		}
	}

	followUp, err := p.backend.Generate(ctx, model.Request{
		Instruction: p.instruction,
		Prompt:      prompt + renderToolResults(settled),
	})
	if err != nil {
		return "", &BackendCallError{Phase: PhaseFollowUp, Err: err}
	}

	reply := extractText(followUp)
	p.conversations.AppendMessage(key, conversation.Message{Role: conversation.RoleAssistant, Content: reply})
	p.logger.Info("turn.replied", "conversation", key, "tools", len(settled))
	return reply, nil
}

// buildPrompt renders the grounded prompt: the last known user-data snapshot,
// the recent transcript in order, and the current message.
func (p *Processor) buildPrompt(snapshot conversation.Conversation, text string) string {
	var b strings.Builder

	if snapshot.UserData != nil {
		if data, err := json.Marshal(snapshot.UserData); err == nil {
			b.WriteString("Known user data:\n")
			b.Write(data)
			b.WriteString("\n\n")
		}
	}

	history := snapshot.Recent(p.historyLimit)
	if len(history) > 0 {
		b.WriteString("Conversation so far:\n")
		for _, m := range history {
			fmt.Fprintf(&b, "%s: %s\n", m.Role, m.Content)
		}
		b.WriteString("\n")
	}

	fmt.Fprintf(&b, "Current message:\nuser: %s", text)
	return b.String()
}

// renderToolResults appends every tool name/result pair to the follow-up
// prompt in completion order.
func renderToolResults(settled []tool.Settled) string {
	var b strings.Builder
	b.WriteString("\n\nTool results:\n")
	for _, s := range settled {
		data, err := json.Marshal(s.Result)
		if err != nil {
			data = []byte(fmt.Sprintf(`{"success":false,"message":%q}`, err.Error()))
		}
		fmt.Fprintf(&b, "%s: %s\n", s.Call.Name, data)
	}
	return b.String()
}

// toolNote is the synthetic transcript entry recorded when one dispatched
// tool settles.
func toolNote(s tool.Settled) string {
	outcome := "succeeded"
	if !s.Result.Success {
		outcome = "failed"
	}
	return fmt.Sprintf("[tool %s %s] %s", s.Call.Name, outcome, s.Result.Message)
}

// extractText applies the text-extraction fallback: the response text when
// present, the fixed apology otherwise. Malformed responses never surface as
// errors at this step.
func extractText(resp *model.Response) string {
	if resp != nil && resp.Text != "" {
		return resp.Text
	}
	return apologyText
}
