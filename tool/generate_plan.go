package tool

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/A-calculus/personalisedU/conversation"
	"github.com/A-calculus/personalisedU/internal/schema"
	"github.com/A-calculus/personalisedU/jobs"
	"github.com/A-calculus/personalisedU/profile"
)

// planWebhook is the placeholder the job service expects when no callback
// delivery is wanted; results are polled instead.
const planWebhook = "N/A"

// JobFactory binds a payload to a submit/poll job runner. *jobs.Client
// satisfies it; tests substitute scripted runners.
type JobFactory interface {
	Job(templateID string, payload jobs.PlanRequest) jobs.Runner
}

// GeneratePlanTool submits the stored profile to the planning job template,
// awaits the result, and persists the generated plan both to the profile
// store and to the conversation context.
type GeneratePlanTool struct {
	factory    JobFactory
	poller     *jobs.Poller
	templateID string
	profiles   profile.Store
}

// Compile time check to ensure GeneratePlanTool satisfies the Tool interface.
var _ Tool = (*GeneratePlanTool)(nil)

// NewGeneratePlanTool creates the generate_plan tool.
func NewGeneratePlanTool(factory JobFactory, poller *jobs.Poller, templateID string, profiles profile.Store) *GeneratePlanTool {
	return &GeneratePlanTool{factory: factory, poller: poller, templateID: templateID, profiles: profiles}
}

// Name implements Tool.
func (t *GeneratePlanTool) Name() string { return "generate_plan" }

// Description implements Tool.
func (t *GeneratePlanTool) Description() string {
	return "Creates a personalized development plan from the user's stored profile. Takes up to several minutes."
}

// Parameters implements Tool. The payload is assembled from the stored
// profile, so the invocation carries no arguments.
func (t *GeneratePlanTool) Parameters() map[string]any {
	return schema.Object(map[string]any{})
}

// Call implements Tool.
func (t *GeneratePlanTool) Call(toolCtx *ToolContext, _ map[string]any) (*Result, error) {
	rec, err := t.profiles.Get(toolCtx.Context(), toolCtx.ConversationKey)
	if errors.Is(err, profile.ErrNotFound) {
		return &Result{Success: false, Message: "no profile stored yet; gather and save the user's profile before generating a plan"}, nil
	}
	if err != nil {
		return nil, err
	}

	payload := planPayload(rec)
	raw, err := t.poller.SubmitAndAwait(toolCtx.Context(), t.factory.Job(t.templateID, payload))
	if err != nil {
		return &Result{Success: false, Message: fmt.Sprintf("plan generation failed: %v", err)}, nil
	}
	plan := decodeJobText(raw)

	updated, err := t.profiles.Upsert(toolCtx.Context(), toolCtx.ConversationKey, map[string]string{
		profile.FieldPreviousPlan: plan,
	})
	if err != nil {
		return nil, err
	}

	toolCtx.Conversations.Update(toolCtx.ConversationKey, conversation.Delta{UserData: updated.ToMap()})
	return &Result{Success: true, Message: "plan generated", Data: plan}, nil
}

// planPayload renders the record as the job service's submission shape.
func planPayload(rec profile.Record) jobs.PlanRequest {
	return jobs.PlanRequest{
		BasicInfo:       rec.BasicInfo,
		UserKnowledge:   rec.UserKnowledge,
		UserObjectives:  rec.UserObjectives,
		ProgramInfo:     rec.ProgramInfo,
		UserSchedule:    rec.UserSchedule,
		CalendarContent: rec.CalendarContent,
		Webhook:         planWebhook,
	}
}

// decodeJobText unwraps a JSON-string result payload; anything else is
// passed through verbatim.
func decodeJobText(raw json.RawMessage) string {
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	return string(raw)
}
