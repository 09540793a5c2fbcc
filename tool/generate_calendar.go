package tool

import (
	"errors"
	"fmt"
	"time"

	"github.com/A-calculus/personalisedU/content"
	"github.com/A-calculus/personalisedU/conversation"
	"github.com/A-calculus/personalisedU/internal/schema"
	"github.com/A-calculus/personalisedU/jobs"
	"github.com/A-calculus/personalisedU/profile"
)

// DefaultLinkTTL is how long a generated calendar download link stays valid.
const DefaultLinkTTL = 24 * time.Hour

// icsContentType is the media type for iCalendar artifacts.
const icsContentType = "text/calendar"

// GenerateCalendarTool submits the stored profile and plan to the calendar
// job template, persists the resulting .ics artifact and writes a
// time-limited download link into the conversation context.
type GenerateCalendarTool struct {
	factory    JobFactory
	poller     *jobs.Poller
	templateID string
	profiles   profile.Store
	artifacts  content.Store
	linkTTL    time.Duration
}

// GenerateCalendarOptions configures the calendar tool.
type GenerateCalendarOptions struct {
	// LinkTTL overrides the download link validity. Defaults to DefaultLinkTTL.
	LinkTTL time.Duration
}

// Compile time check to ensure GenerateCalendarTool satisfies the Tool interface.
var _ Tool = (*GenerateCalendarTool)(nil)

// NewGenerateCalendarTool creates the generate_calendar tool.
func NewGenerateCalendarTool(factory JobFactory, poller *jobs.Poller, templateID string, profiles profile.Store, artifacts content.Store, optFns ...func(o *GenerateCalendarOptions)) *GenerateCalendarTool {
	opts := GenerateCalendarOptions{LinkTTL: DefaultLinkTTL}
	for _, fn := range optFns {
		fn(&opts)
	}
	return &GenerateCalendarTool{
		factory:    factory,
		poller:     poller,
		templateID: templateID,
		profiles:   profiles,
		artifacts:  artifacts,
		linkTTL:    opts.LinkTTL,
	}
}

// Name implements Tool.
func (t *GenerateCalendarTool) Name() string { return "generate_calendar" }

// Description implements Tool.
func (t *GenerateCalendarTool) Description() string {
	return "Creates a downloadable .ics calendar file from the user's personalised plan and returns a temporary download link."
}

// Parameters implements Tool.
func (t *GenerateCalendarTool) Parameters() map[string]any {
	return schema.Object(map[string]any{})
}

// Call implements Tool.
func (t *GenerateCalendarTool) Call(toolCtx *ToolContext, _ map[string]any) (*Result, error) {
	rec, err := t.profiles.Get(toolCtx.Context(), toolCtx.ConversationKey)
	if errors.Is(err, profile.ErrNotFound) {
		return &Result{Success: false, Message: "no profile stored yet; gather and save the user's profile before generating a calendar"}, nil
	}
	if err != nil {
		return nil, err
	}

	raw, err := t.poller.SubmitAndAwait(toolCtx.Context(), t.factory.Job(t.templateID, planPayload(rec)))
	if err != nil {
		return &Result{Success: false, Message: fmt.Sprintf("calendar generation failed: %v", err)}, nil
	}
	ics := decodeJobText(raw)

	name := fmt.Sprintf("calendar/%s.ics", toolCtx.ConversationKey)
	if err := t.artifacts.Put(toolCtx.Context(), name, []byte(ics), icsContentType); err != nil {
		return &Result{Success: false, Message: fmt.Sprintf("storing calendar failed: %v", err)}, nil
	}
	link, err := t.artifacts.TemporaryLink(toolCtx.Context(), name, t.linkTTL)
	if err != nil {
		return &Result{Success: false, Message: fmt.Sprintf("creating calendar link failed: %v", err)}, nil
	}

	toolCtx.Conversations.Update(toolCtx.ConversationKey, conversation.Delta{
		UserData: map[string]any{
			"profile":       rec.ToMap(),
			"calendar_link": link,
		},
	})
	return &Result{Success: true, Message: "calendar created", Data: map[string]any{"link": link, "name": name}}, nil
}
