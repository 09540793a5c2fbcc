// Package conversation implements the per-conversation context store: an
// ephemeral, process-local map of transcripts and derived state keyed by the
// chat transport's conversation identifier. Contexts are created lazily,
// mutated through the store only, and evicted by a periodic TTL sweep.
// Nothing here survives a process restart by design.
package conversation

import "time"

// Conversation roles. The transcript only ever contains user and assistant
// entries; tool outcomes are folded in as synthetic assistant messages.
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Message is a single transcript entry.
type Message struct {
	Role      string    `json:"role"`
	Content   string    `json:"content"`
	Timestamp time.Time `json:"timestamp"`
}

// Metadata carries bookkeeping fields for a conversation context.
// MessageCount counts mutation operations applied to the context, not
// transcript entries; a direct Update without an appended message also
// increments it.
type Metadata struct {
	MessageCount int       `json:"message_count"`
	StartTime    time.Time `json:"start_time"`
}

// Conversation is the bounded per-conversation state used to ground prompts.
// The transcript is append-only; consumers cap it at read time via Recent.
// UserData is an opaque snapshot (profile record, plan summary) owned by
// whichever tool last wrote it.
type Conversation struct {
	Messages    []Message `json:"messages"`
	UserData    any       `json:"user_data,omitempty"`
	LastUpdated time.Time `json:"last_updated"`
	Metadata    Metadata  `json:"metadata"`
}

// Recent returns the newest n messages in transcript order (oldest first).
// Truncation always drops the oldest entries.
func (c Conversation) Recent(n int) []Message {
	if n <= 0 || len(c.Messages) == 0 {
		return nil
	}
	if len(c.Messages) > n {
		return c.Messages[len(c.Messages)-n:]
	}
	return c.Messages
}

// clone returns a snapshot safe to hand out: the store exclusively owns the
// live context, so callers only ever see copies.
func (c *Conversation) clone() Conversation {
	cp := *c
	cp.Messages = make([]Message, len(c.Messages))
	copy(cp.Messages, c.Messages)
	return cp
}

// Delta describes a shallow field replacement applied by Store.Update.
// Nil fields are left untouched; there is no deep merge.
type Delta struct {
	// Messages replaces the transcript when non-nil.
	Messages []Message
	// UserData replaces the derived-state snapshot when non-nil.
	UserData any
}
