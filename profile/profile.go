// Package profile defines the user-profile record store boundary: a
// key-value store of per-conversation profile rows with an
// update-if-exists-else-insert write path. Implementations live in
// subpackages; the in-memory store here backs tests and single-process
// prototypes.
package profile

import (
	"context"
	"errors"
)

// ErrNotFound is returned by Get when no record exists for the key.
var ErrNotFound = errors.New("profile not found")

// Field names shared by every Store implementation and by the tool schemas
// exposed to the language backend.
const (
	FieldBasicInfo       = "basic_info"
	FieldUserKnowledge   = "user_knowledge"
	FieldUserObjectives  = "user_objectives"
	FieldProgramInfo     = "program_info"
	FieldUserSchedule    = "user_schedule"
	FieldCalendarContent = "calendar_content"
	FieldPreviousPlan    = "previous_plan"
)

// FieldNames lists every profile field in declaration order.
var FieldNames = []string{
	FieldBasicInfo,
	FieldUserKnowledge,
	FieldUserObjectives,
	FieldProgramInfo,
	FieldUserSchedule,
	FieldCalendarContent,
	FieldPreviousPlan,
}

// Record is one user-profile row, keyed by conversation identifier.
type Record struct {
	BasicInfo       string `json:"basic_info"`
	UserKnowledge   string `json:"user_knowledge"`
	UserObjectives  string `json:"user_objectives"`
	ProgramInfo     string `json:"program_info"`
	UserSchedule    string `json:"user_schedule"`
	CalendarContent string `json:"calendar_content"`
	PreviousPlan    string `json:"previous_plan"`
}

// ToMap renders the record as field-name keyed values, the shape shared with
// hash-based store implementations and tool results.
func (r Record) ToMap() map[string]string {
	return map[string]string{
		FieldBasicInfo:       r.BasicInfo,
		FieldUserKnowledge:   r.UserKnowledge,
		FieldUserObjectives:  r.UserObjectives,
		FieldProgramInfo:     r.ProgramInfo,
		FieldUserSchedule:    r.UserSchedule,
		FieldCalendarContent: r.CalendarContent,
		FieldPreviousPlan:    r.PreviousPlan,
	}
}

// Apply merges the given fields into the record. Unknown field names are
// ignored.
func (r *Record) Apply(fields map[string]string) {
	for name, value := range fields {
		switch name {
		case FieldBasicInfo:
			r.BasicInfo = value
		case FieldUserKnowledge:
			r.UserKnowledge = value
		case FieldUserObjectives:
			r.UserObjectives = value
		case FieldProgramInfo:
			r.ProgramInfo = value
		case FieldUserSchedule:
			r.UserSchedule = value
		case FieldCalendarContent:
			r.CalendarContent = value
		case FieldPreviousPlan:
			r.PreviousPlan = value
		}
	}
}

// FromMap builds a record from field-name keyed values.
func FromMap(fields map[string]string) Record {
	var r Record
	r.Apply(fields)
	return r
}

// Store persists user-profile records keyed by conversation identifier.
type Store interface {
	// Get returns the record for key or ErrNotFound.
	Get(ctx context.Context, key string) (Record, error)
	// Upsert merges fields into the existing record, or inserts a new one if
	// none exists. The existence check precedes the write. The stored record
	// is returned.
	Upsert(ctx context.Context, key string, fields map[string]string) (Record, error)
}
