// Package form is the assessment form engine: field definitions per role,
// value validation, dirty tracking and persistence through the assessment
// store.
package form

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"maps"
	"strings"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/dukerupert/casework/internal/model"
	"github.com/dukerupert/casework/internal/store"
	"github.com/dukerupert/casework/internal/workflow"
)

var (
	ErrValidation = errors.New("validation failed")
	ErrNotFound   = errors.New("assessment not found")
)

// Engine opens forms backed by the assessment store.
type Engine struct {
	assessments *store.AssessmentStore
	validate    *validator.Validate
	logger      *slog.Logger
}

// NewEngine creates an Engine.
func NewEngine(assessments *store.AssessmentStore, logger *slog.Logger) *Engine {
	if logger == nil {
		logger = slog.Default()
	}
	return &Engine{
		assessments: assessments,
		validate:    validator.New(),
		logger:      logger.With("component", "form"),
	}
}

// Open loads the form for a member. With a nil assessmentID the member's
// existing assessment for role is used, if any; otherwise the form starts
// empty and the first save creates the assessment.
func (e *Engine) Open(ctx context.Context, m model.HouseholdMember, role model.AssessmentRole, assessmentID *int64) (*Form, error) {
	f := &Form{
		engine:       e,
		enrollmentID: m.EnrollmentID,
		entryDate:    m.EntryDate,
		role:         role,
		fields:       Fields(role),
		values:       map[string]string{},
		inProgress:   true,
	}

	var a *model.Assessment
	var err error
	if assessmentID != nil {
		a, err = e.assessments.GetByID(ctx, *assessmentID)
		if err == nil && a == nil {
			err = fmt.Errorf("%w: %d", ErrNotFound, *assessmentID)
		}
	} else {
		a, err = e.assessments.GetForEnrollment(ctx, m.EnrollmentID, role)
	}
	if err != nil {
		return nil, fmt.Errorf("open %s form for enrollment %d: %w", role, m.EnrollmentID, err)
	}
	if a != nil {
		f.id = a.ID
		f.inProgress = a.InProgress
		f.values = maps.Clone(a.Values)
	}
	return f, nil
}

// Factory adapts Open to the workflow's form factory.
func (e *Engine) Factory() workflow.FormFactory {
	return func(ctx context.Context, m model.HouseholdMember, role model.AssessmentRole, assessmentID *int64) (workflow.Form, error) {
		return e.Open(ctx, m, role, assessmentID)
	}
}

// Form is one member's assessment being edited.
type Form struct {
	engine       *Engine
	enrollmentID int64
	entryDate    time.Time
	role         model.AssessmentRole
	fields       []Field

	mu         sync.Mutex
	id         int64
	inProgress bool
	values     map[string]string
	dirty      bool
}

// Dirty reports unsaved edits.
func (f *Form) Dirty() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.dirty
}

// AssessmentID is 0 until the first save.
func (f *Form) AssessmentID() int64 {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.id
}

// Values returns a copy of the current field values.
func (f *Form) Values() map[string]string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return maps.Clone(f.values)
}

// SetValues merges edits into the form. An empty value clears the field.
// Unknown keys are ignored. The form only becomes dirty if something changed.
func (f *Form) SetValues(values map[string]string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for k, v := range values {
		if !f.known(k) {
			continue
		}
		v = strings.TrimSpace(v)
		old, ok := f.values[k]
		switch {
		case v == "" && ok:
			delete(f.values, k)
			f.dirty = true
		case v != "" && old != v:
			f.values[k] = v
			f.dirty = true
		}
	}
}

// Save persists the current values without submitting.
func (f *Form) Save(ctx context.Context) (workflow.FormResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	check, err := f.check()
	if err != nil {
		return workflow.FormResult{}, err
	}

	var a *model.Assessment
	if f.id == 0 {
		a, err = f.engine.assessments.Create(ctx, f.enrollmentID, f.role, f.values, check.date)
	} else {
		a, err = f.engine.assessments.Update(ctx, f.id, f.values, check.date)
	}
	if err != nil {
		return workflow.FormResult{}, err
	}
	return f.persisted(a, check), nil
}

// Submit persists the values and marks the assessment submitted. Missing
// required fields fail with ErrValidation.
func (f *Form) Submit(ctx context.Context) (workflow.FormResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	check, err := f.check()
	if err != nil {
		return workflow.FormResult{}, err
	}
	if len(check.missing) > 0 {
		return workflow.FormResult{}, fmt.Errorf("%w: missing %s", ErrValidation, strings.Join(check.missing, ", "))
	}

	if f.id == 0 {
		a, err := f.engine.assessments.Create(ctx, f.enrollmentID, f.role, f.values, check.date)
		if err != nil {
			return workflow.FormResult{}, err
		}
		f.id = a.ID
	}
	a, err := f.engine.assessments.Submit(ctx, f.id, f.values, check.date)
	if err != nil {
		return workflow.FormResult{}, err
	}
	f.engine.logger.Info("assessment submitted", "assessment_id", a.ID, "enrollment_id", f.enrollmentID, "role", f.role)
	return f.persisted(a, check), nil
}

func (f *Form) persisted(a *model.Assessment, c checkResult) workflow.FormResult {
	f.id = a.ID
	f.inProgress = a.InProgress
	f.dirty = false
	return workflow.FormResult{
		AssessmentID: a.ID,
		InProgress:   a.InProgress,
		Complete:     len(c.missing) == 0,
		Warnings:     c.warnings,
		Issues:       c.issues,
	}
}

type checkResult struct {
	missing  []string
	warnings []string
	issues   []string
	date     *time.Time
}

// check validates every filled-in value against its rule, collects missing
// required and recommended fields and flags data-quality issues. Callers
// hold f.mu.
func (f *Form) check() (checkResult, error) {
	var c checkResult
	var invalid []string
	for _, field := range f.fields {
		v, ok := f.values[field.Key]
		if !ok || v == "" {
			if field.Required {
				c.missing = append(c.missing, field.Key)
			} else if field.Recommended {
				c.warnings = append(c.warnings, fmt.Sprintf("%s is recommended", field.Label))
			}
			continue
		}
		if field.Rule != "" {
			if err := f.engine.validate.Var(v, field.Rule); err != nil {
				invalid = append(invalid, field.Key)
			}
		}
	}
	if len(invalid) > 0 {
		return c, fmt.Errorf("%w: invalid %s", ErrValidation, strings.Join(invalid, ", "))
	}

	if v, ok := f.values[DateField]; ok {
		d, err := time.Parse(DateLayout, v)
		if err != nil {
			return c, fmt.Errorf("%w: invalid %s", ErrValidation, DateField)
		}
		c.date = &d
		if !f.entryDate.IsZero() && d.Before(dateOnly(f.entryDate)) {
			c.issues = append(c.issues, fmt.Sprintf("assessment date %s is before the entry date %s", v, f.entryDate.Format(DateLayout)))
		}
	}
	return c, nil
}

func (f *Form) known(key string) bool {
	for _, field := range f.fields {
		if field.Key == key {
			return true
		}
	}
	return false
}

func dateOnly(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
