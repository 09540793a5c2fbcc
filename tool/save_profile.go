package tool

import (
	"github.com/A-calculus/personalisedU/conversation"
	"github.com/A-calculus/personalisedU/internal/schema"
	"github.com/A-calculus/personalisedU/profile"
)

// SaveProfileTool merges profile fields into the stored record, inserting a
// fresh one when none exists, and refreshes the context snapshot.
type SaveProfileTool struct {
	profiles profile.Store
}

// Compile time check to ensure SaveProfileTool satisfies the Tool interface.
var _ Tool = (*SaveProfileTool)(nil)

// NewSaveProfileTool creates the save_profile tool.
func NewSaveProfileTool(profiles profile.Store) *SaveProfileTool {
	return &SaveProfileTool{profiles: profiles}
}

// Name implements Tool.
func (t *SaveProfileTool) Name() string { return "save_profile" }

// Description implements Tool.
func (t *SaveProfileTool) Description() string {
	return "Saves or updates user profile information in the database. Only the provided fields are changed."
}

// Parameters implements Tool.
func (t *SaveProfileTool) Parameters() map[string]any {
	return schema.Object(map[string]any{
		profile.FieldBasicInfo:       schema.String("Basic information about the user"),
		profile.FieldUserKnowledge:   schema.String("User's current knowledge and skills"),
		profile.FieldUserObjectives:  schema.String("User's goals and objectives"),
		profile.FieldProgramInfo:     schema.String("Information about the program"),
		profile.FieldUserSchedule:    schema.String("User's current schedule"),
		profile.FieldCalendarContent: schema.String("Calendar events and commitments"),
		profile.FieldPreviousPlan:    schema.String("The personalised plan, use N/A if not available"),
	})
}

// Call implements Tool. Unknown argument names are ignored; an invocation
// carrying no known field is rejected as a failed result.
func (t *SaveProfileTool) Call(toolCtx *ToolContext, args map[string]any) (*Result, error) {
	fields := make(map[string]string)
	for _, name := range profile.FieldNames {
		if value, ok := args[name].(string); ok {
			fields[name] = value
		}
	}
	if len(fields) == 0 {
		return &Result{Success: false, Message: "no profile fields provided"}, nil
	}

	rec, err := t.profiles.Upsert(toolCtx.Context(), toolCtx.ConversationKey, fields)
	if err != nil {
		return nil, err
	}

	snapshot := rec.ToMap()
	toolCtx.Conversations.Update(toolCtx.ConversationKey, conversation.Delta{UserData: snapshot})
	return &Result{Success: true, Message: "profile saved", Data: snapshot}, nil
}
