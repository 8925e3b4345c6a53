package assessment

import (
	"testing"

	"github.com/dukerupert/casework/internal/model"
)

func TestDeriveNotStarted(t *testing.T) {
	if got := Derive(nil, Signals{}); got != StatusNotStarted {
		t.Errorf("status = %q, want %q", got, StatusNotStarted)
	}
}

func TestDeriveStarted(t *testing.T) {
	ref := &model.AssessmentRef{ID: 1, InProgress: true}
	if got := Derive(ref, Signals{}); got != StatusStarted {
		t.Errorf("status = %q, want %q", got, StatusStarted)
	}
}

func TestDeriveReadyToSubmit(t *testing.T) {
	ref := &model.AssessmentRef{ID: 1, InProgress: true}
	if got := Derive(ref, Signals{Complete: true}); got != StatusReadyToSubmit {
		t.Errorf("status = %q, want %q", got, StatusReadyToSubmit)
	}
}

func TestDeriveIssueBeatsComplete(t *testing.T) {
	ref := &model.AssessmentRef{ID: 1, InProgress: true}
	got := Derive(ref, Signals{Complete: true, Issues: []string{"assessment date is before the entry date"}})
	if got != StatusWarning {
		t.Errorf("status = %q, want %q", got, StatusWarning)
	}
}

func TestDeriveIncompleteWithoutIssuesIsStarted(t *testing.T) {
	ref := &model.AssessmentRef{ID: 1, InProgress: true}
	if got := Derive(ref, Signals{Complete: false}); got != StatusStarted {
		t.Errorf("status = %q, want %q", got, StatusStarted)
	}
}

func TestDeriveFailedWithoutAssessment(t *testing.T) {
	if got := Derive(nil, Signals{Failed: true}); got != StatusError {
		t.Errorf("status = %q, want %q", got, StatusError)
	}
}

func TestDeriveSubmitted(t *testing.T) {
	ref := &model.AssessmentRef{ID: 1, InProgress: false}
	if got := Derive(ref, Signals{Issues: []string{"x"}}); got != StatusSubmitted {
		t.Errorf("status = %q, want %q", got, StatusSubmitted)
	}
}

func TestDeriveFailed(t *testing.T) {
	ref := &model.AssessmentRef{ID: 1, InProgress: false}
	if got := Derive(ref, Signals{Failed: true}); got != StatusError {
		t.Errorf("status = %q, want %q", got, StatusError)
	}
}

func TestReconcile(t *testing.T) {
	inProgress := &model.AssessmentRef{ID: 7, InProgress: true}
	submitted := &model.AssessmentRef{ID: 7, InProgress: false}

	tests := []struct {
		name   string
		local  Status
		server *model.AssessmentRef
		want   Status
	}{
		{"no assessment", StatusStarted, nil, StatusNotStarted},
		{"failed first save", StatusError, nil, StatusError},
		{"server submitted wins", StatusError, submitted, StatusSubmitted},
		{"optimistic submit confirmed", StatusSubmitted, submitted, StatusSubmitted},
		{"ready survives", StatusReadyToSubmit, inProgress, StatusReadyToSubmit},
		{"warning survives", StatusWarning, inProgress, StatusWarning},
		{"error survives", StatusError, inProgress, StatusError},
		{"not started becomes started", StatusNotStarted, inProgress, StatusStarted},
		{"submitted reopened", StatusSubmitted, inProgress, StatusStarted},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Reconcile(tt.local, tt.server); got != tt.want {
				t.Errorf("Reconcile(%q) = %q, want %q", tt.local, got, tt.want)
			}
		})
	}
}

func TestLabel(t *testing.T) {
	if got := StatusReadyToSubmit.Label(); got != "Ready to Submit" {
		t.Errorf("label = %q, want %q", got, "Ready to Submit")
	}
	if got := Status("bogus").Label(); got != "bogus" {
		t.Errorf("label = %q, want %q", got, "bogus")
	}
}
