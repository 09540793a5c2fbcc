package tool

import (
	"errors"

	"github.com/A-calculus/personalisedU/conversation"
	"github.com/A-calculus/personalisedU/internal/schema"
	"github.com/A-calculus/personalisedU/profile"
)

// RetrieveProfileTool fetches the stored user profile and writes the snapshot
// back into the conversation context so later prompts are grounded on it.
type RetrieveProfileTool struct {
	profiles profile.Store
}

// Compile time check to ensure RetrieveProfileTool satisfies the Tool interface.
var _ Tool = (*RetrieveProfileTool)(nil)

// NewRetrieveProfileTool creates the retrieve_profile tool.
func NewRetrieveProfileTool(profiles profile.Store) *RetrieveProfileTool {
	return &RetrieveProfileTool{profiles: profiles}
}

// Name implements Tool.
func (t *RetrieveProfileTool) Name() string { return "retrieve_profile" }

// Description implements Tool.
func (t *RetrieveProfileTool) Description() string {
	return "Retrieves the user's stored profile information from the database."
}

// Parameters implements Tool. The conversation key is supplied by the
// dispatch environment, so no arguments are needed.
func (t *RetrieveProfileTool) Parameters() map[string]any {
	return schema.Object(map[string]any{})
}

// Call implements Tool. A missing profile is a normal outcome reported as a
// failed result, not an error.
func (t *RetrieveProfileTool) Call(toolCtx *ToolContext, _ map[string]any) (*Result, error) {
	rec, err := t.profiles.Get(toolCtx.Context(), toolCtx.ConversationKey)
	if errors.Is(err, profile.ErrNotFound) {
		return &Result{Success: false, Message: "no profile stored for this user yet"}, nil
	}
	if err != nil {
		return nil, err
	}

	snapshot := rec.ToMap()
	toolCtx.Conversations.Update(toolCtx.ConversationKey, conversation.Delta{UserData: snapshot})
	return &Result{Success: true, Message: "profile retrieved", Data: snapshot}, nil
}
