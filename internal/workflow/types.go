package workflow

import (
	"errors"
	"fmt"
	"time"

	"github.com/dukerupert/casework/internal/assessment"
	"github.com/dukerupert/casework/internal/model"
)

var (
	ErrUnknownTab  = errors.New("unknown tab")
	ErrNotEditable = errors.New("form does not accept edits")
	ErrNotFound    = errors.New("workflow not found")
)

// Type selects which assessment the workflow collects for every member.
type Type string

const (
	TypeEntry Type = "ENTRY"
	TypeExit  Type = "EXIT"
)

// Valid reports whether t is a known workflow type.
func (t Type) Valid() bool {
	return t == TypeEntry || t == TypeExit
}

// Role is the assessment role collected by this workflow type.
func (t Type) Role() model.AssessmentRole {
	if t == TypeExit {
		return model.RoleExit
	}
	return model.RoleIntake
}

// TabID identifies a tab. Member tab ids are derived from the client, never
// from list position, so they survive roster refreshes and page reloads.
type TabID string

const SummaryTabID TabID = "summary"

// TabIDFor returns the tab id for a member, e.g. "client-12".
func TabIDFor(m model.HouseholdMember) TabID {
	return TabID(fmt.Sprintf("client-%d", m.ClientID))
}

// Tab is the per-member projection of a roster entry plus local workflow
// state. Tabs are rebuilt on every roster change; only Status is written in
// between.
type Tab struct {
	ID              TabID             `json:"id"`
	Name            string            `json:"name"`
	ClientID        int64             `json:"client_id,omitempty"`
	EnrollmentID    int64             `json:"enrollment_id,omitempty"`
	AssessmentID    *int64            `json:"assessment_id"`
	InProgress      bool              `json:"in_progress"`
	Status          assessment.Status `json:"status"`
	HeadOfHousehold bool              `json:"head_of_household"`
	Summary         bool              `json:"summary,omitempty"`

	Member model.HouseholdMember `json:"-"`
	// statusAt is when Status was last written locally.
	statusAt time.Time
}

// Submitted reports whether the member's assessment is final, either on the
// server or optimistically after a local submit.
func (t Tab) Submitted() bool {
	return (t.AssessmentID != nil && !t.InProgress) || t.Status == assessment.StatusSubmitted
}

type Action string

const (
	ActionSave   Action = "save"
	ActionSubmit Action = "submit"
)

// SaveOutcome reports one save or submit attempt for one member.
type SaveOutcome struct {
	TabID        TabID
	Action       Action
	Skipped      bool
	Created      bool
	AssessmentID int64
	Status       assessment.Status
	Warnings     []string
	Issues       []string
	Err          error
}

// OK reports whether the call reached the form engine without error.
// Skipped outcomes are OK.
func (o SaveOutcome) OK() bool {
	return o.Err == nil
}

// EventKind names what happened in an Event.
type EventKind string

const (
	EventStatusChanged EventKind = "status_changed"
	EventAutosaved     EventKind = "autosaved"
	EventTabSelected   EventKind = "tab_selected"
	EventRosterChanged EventKind = "roster_changed"
	EventBulkSubmitted EventKind = "bulk_submitted"
)

// Event is published to observers of a workflow, e.g. connected dashboards.
type Event struct {
	Kind       EventKind         `json:"kind"`
	WorkflowID string            `json:"workflow_id"`
	TabID      TabID             `json:"tab_id,omitempty"`
	Status     assessment.Status `json:"status,omitempty"`
	Action     Action            `json:"action,omitempty"`
	Err        string            `json:"error,omitempty"`
}
