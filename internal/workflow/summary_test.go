package workflow

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dukerupert/casework/internal/assessment"
	"github.com/dukerupert/casework/internal/model"
)

func TestSummary_BulkSubmitPartialFailure(t *testing.T) {
	src := newFakeSource(
		withIntake(member(1, "Jane", model.RelationshipSelf), 100, true),
		withIntake(member(2, "Bob", model.RelationshipChild), 200, true),
		member(3, "Ann", model.RelationshipSpouse),
	)
	forms := newFormSet(src)
	forms.prepare = func(f *fakeForm) {
		if f.clientID == 2 {
			f.submitErr = errBoom
		}
	}
	events := &eventLog{}
	wf, err := New(context.Background(), Config{EnrollmentID: 10, Type: TypeEntry}, Deps{
		Source: src, Forms: forms.open, Publish: events.publish, BulkConcurrency: 2,
	})
	require.NoError(t, err)
	defer wf.Close()

	s := wf.Summary()
	assert.Equal(t, []TabID{"client-1", "client-2"}, s.SelectableRows())
	s.SetSelection([]TabID{"client-2", "client-1", "client-3"})
	assert.Equal(t, []TabID{"client-1", "client-2"}, s.Selection())

	outcomes := s.SubmitSelected(context.Background())
	require.Len(t, outcomes, 2)
	assert.Equal(t, TabID("client-1"), outcomes[0].TabID)
	assert.NoError(t, outcomes[0].Err)
	assert.Equal(t, TabID("client-2"), outcomes[1].TabID)
	assert.ErrorIs(t, outcomes[1].Err, errBoom)

	assert.Equal(t, assessment.StatusSubmitted, statusOf(t, wf, "client-1"))
	assert.Equal(t, assessment.StatusError, statusOf(t, wf, "client-2"))
	assert.Equal(t, []TabID{"client-2"}, s.Selection())
	assert.Contains(t, events.kinds(), EventBulkSubmitted)
}

func TestSummary_RowsForExitWorkflow(t *testing.T) {
	exited := time.Date(2026, 6, 30, 0, 0, 0, 0, time.UTC)
	jane := member(1, "Jane", model.RelationshipSelf)
	jane.ExitDate = &exited
	bob := member(2, "Bob", model.RelationshipChild)

	h := newHarness(t, TypeExit, "", jane, bob)

	rows := h.wf.Summary().Rows()
	require.Len(t, rows, 2)
	assert.Equal(t, "Exit Date", rows[0].DateLabel)
	require.NotNil(t, rows[0].Date)
	assert.True(t, rows[0].Date.Equal(exited))
	assert.Equal(t, WarningExitedWithoutExit, rows[0].Warning)
	assert.Equal(t, assessment.StatusNotStarted.Label(), rows[0].StatusLabel)
	assert.Empty(t, rows[1].Warning)
	assert.Nil(t, rows[1].Date)
}

func TestIntegrityWarning(t *testing.T) {
	exited := time.Date(2026, 6, 30, 0, 0, 0, 0, time.UTC)

	entered := member(1, "Jane", model.RelationshipSelf)
	entered.EnrollmentInProgress = false

	enteredSubmitted := withIntake(entered, 5, false)

	exitedMember := member(2, "Bob", model.RelationshipChild)
	exitedMember.ExitDate = &exited

	exitedSubmitted := exitedMember
	exitedSubmitted.Exit = &model.AssessmentRef{ID: 9}

	tests := []struct {
		name   string
		member model.HouseholdMember
		typ    Type
		want   string
	}{
		{"entered without intake", entered, TypeEntry, WarningEnteredWithoutIntake},
		{"entered with submitted intake", enteredSubmitted, TypeEntry, ""},
		{"in progress enrollment", member(3, "Ann", model.RelationshipSpouse), TypeEntry, ""},
		{"exited without exit", exitedMember, TypeExit, WarningExitedWithoutExit},
		{"exited with submitted exit", exitedSubmitted, TypeExit, ""},
		{"not exited", member(3, "Ann", model.RelationshipSpouse), TypeExit, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := integrityWarning(tt.member, tt.typ); got != tt.want {
				t.Errorf("integrityWarning() = %q, want %q", got, tt.want)
			}
		})
	}
}
