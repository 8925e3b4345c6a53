package store

import (
	"context"
	"testing"
	"time"

	"github.com/dukerupert/casework/internal/model"
)

func TestAssessmentCreateAndUpdate(t *testing.T) {
	db := setupTestDB(t)
	fx := seedHousehold(t, db)
	as := NewAssessmentStore(db)
	ctx := context.Background()

	a, err := as.Create(ctx, fx.hoh.ID, model.RoleIntake, map[string]string{"a": "1"}, nil)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if !a.InProgress {
		t.Error("new assessment should be in progress")
	}
	if a.Values["a"] != "1" {
		t.Errorf("value a = %q, want %q", a.Values["a"], "1")
	}

	date := time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC)
	updated, err := as.Update(ctx, a.ID, map[string]string{"a": "2", "b": "x"}, &date)
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if updated.Values["a"] != "2" || updated.Values["b"] != "x" {
		t.Errorf("values = %v", updated.Values)
	}
	if updated.AssessmentDate == nil || !updated.AssessmentDate.Equal(date) {
		t.Errorf("assessment date = %v, want %v", updated.AssessmentDate, date)
	}
}

func TestAssessmentUpdateMissing(t *testing.T) {
	db := setupTestDB(t)
	as := NewAssessmentStore(db)

	if _, err := as.Update(context.Background(), 404, nil, nil); err == nil {
		t.Fatal("expected error updating a missing assessment")
	}
}

func TestAssessmentUniquePerRole(t *testing.T) {
	db := setupTestDB(t)
	fx := seedHousehold(t, db)
	as := NewAssessmentStore(db)
	ctx := context.Background()

	if _, err := as.Create(ctx, fx.hoh.ID, model.RoleIntake, nil, nil); err != nil {
		t.Fatalf("create: %v", err)
	}
	if _, err := as.Create(ctx, fx.hoh.ID, model.RoleIntake, nil, nil); err == nil {
		t.Fatal("expected unique violation for second intake")
	}
	if _, err := as.Create(ctx, fx.hoh.ID, model.RoleExit, nil, nil); err != nil {
		t.Fatalf("exit assessment should be allowed: %v", err)
	}
}

func TestSubmitIntakeEntersEnrollment(t *testing.T) {
	db := setupTestDB(t)
	fx := seedHousehold(t, db)
	as := NewAssessmentStore(db)
	es := NewEnrollmentStore(db)
	ctx := context.Background()

	a, err := as.Create(ctx, fx.hoh.ID, model.RoleIntake, nil, nil)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	submitted, err := as.Submit(ctx, a.ID, map[string]string{"done": "yes"}, nil)
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	if submitted.InProgress {
		t.Error("submitted assessment should not be in progress")
	}
	if submitted.SubmittedAt == nil {
		t.Error("expected submitted_at")
	}

	e, err := es.GetByID(fx.hoh.ID)
	if err != nil {
		t.Fatalf("get enrollment: %v", err)
	}
	if e.InProgress {
		t.Error("enrollment should be entered after intake submit")
	}
}

func TestSubmitExitSetsExitDate(t *testing.T) {
	db := setupTestDB(t)
	fx := seedHousehold(t, db)
	as := NewAssessmentStore(db)
	es := NewEnrollmentStore(db)
	ctx := context.Background()

	a, err := as.Create(ctx, fx.child.ID, model.RoleExit, nil, nil)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	exitDate := time.Date(2026, 4, 15, 0, 0, 0, 0, time.UTC)
	if _, err := as.Submit(ctx, a.ID, nil, &exitDate); err != nil {
		t.Fatalf("submit: %v", err)
	}

	e, err := es.GetByID(fx.child.ID)
	if err != nil {
		t.Fatalf("get enrollment: %v", err)
	}
	if e.ExitDate == nil || !e.ExitDate.Equal(exitDate) {
		t.Errorf("exit date = %v, want %v", e.ExitDate, exitDate)
	}
}

func TestGetForEnrollment(t *testing.T) {
	db := setupTestDB(t)
	fx := seedHousehold(t, db)
	as := NewAssessmentStore(db)
	ctx := context.Background()

	got, err := as.GetForEnrollment(ctx, fx.hoh.ID, model.RoleExit)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got != nil {
		t.Fatal("expected nil for missing exit assessment")
	}

	created, _ := as.Create(ctx, fx.hoh.ID, model.RoleExit, nil, nil)
	got, err = as.GetForEnrollment(ctx, fx.hoh.ID, model.RoleExit)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got == nil || got.ID != created.ID {
		t.Fatalf("got %+v, want id %d", got, created.ID)
	}
}
