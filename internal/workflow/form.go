package workflow

import (
	"context"

	"github.com/dukerupert/casework/internal/model"
)

// Form is the assessment form engine as seen by the workflow. The workflow
// never validates fields itself.
type Form interface {
	Dirty() bool
	Save(ctx context.Context) (FormResult, error)
	Submit(ctx context.Context) (FormResult, error)
}

// EditableForm is a Form whose values can be changed through the workflow.
type EditableForm interface {
	Form
	Values() map[string]string
	SetValues(values map[string]string)
}

// FormResult carries the persisted assessment and the engine's validation
// signals after a save or submit. Warnings are advisory and shown to the
// caseworker; Issues flag bad data and put the tab into Warning.
type FormResult struct {
	AssessmentID int64
	InProgress   bool
	Complete     bool
	Warnings     []string
	Issues       []string
}

// FormFactory opens the form for one member. assessmentID is nil when the
// member has no assessment yet.
type FormFactory func(ctx context.Context, member model.HouseholdMember, role model.AssessmentRole, assessmentID *int64) (Form, error)
