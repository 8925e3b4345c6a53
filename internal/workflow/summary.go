package workflow

import (
	"context"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/dukerupert/casework/internal/assessment"
	"github.com/dukerupert/casework/internal/model"
)

const (
	WarningEnteredWithoutIntake = "Enrollment has been entered, but this member has no submitted intake assessment."
	WarningExitedWithoutExit    = "Client has exited, but this member has no submitted exit assessment."
)

// SummaryRow is one member's line in the summary table.
type SummaryRow struct {
	TabID           TabID              `json:"tab_id"`
	Name            string             `json:"name"`
	Relationship    model.Relationship `json:"relationship_to_hoh"`
	HeadOfHousehold bool               `json:"head_of_household"`
	Status          assessment.Status  `json:"status"`
	StatusLabel     string             `json:"status_label"`
	DateLabel       string             `json:"date_label"`
	Date            *time.Time         `json:"date"`
	Warning         string             `json:"warning,omitempty"`
	Selectable      bool               `json:"selectable"`
	Selected        bool               `json:"selected"`
}

// Summary aggregates every member's status and submits selected members in
// bulk. Its selection is independent of the active tab.
type Summary struct {
	wf    *Workflow
	limit int

	mu       sync.Mutex
	selected map[TabID]bool
}

func newSummary(wf *Workflow, limit int) *Summary {
	if limit < 1 {
		limit = 1
	}
	return &Summary{wf: wf, limit: limit, selected: make(map[TabID]bool)}
}

// selectable reports whether submitting the member makes sense: there is a
// saved assessment and it is still in progress.
func selectable(t Tab) bool {
	return t.AssessmentID != nil && t.InProgress
}

// Rows returns one row per member in tab order, with any integrity warning.
func (s *Summary) Rows() []SummaryRow {
	s.mu.Lock()
	defer s.mu.Unlock()

	wfType := s.wf.cfg.Type
	tabs := s.wf.session.MemberTabs()
	rows := make([]SummaryRow, 0, len(tabs))
	for _, t := range tabs {
		row := SummaryRow{
			TabID:           t.ID,
			Name:            t.Name,
			Relationship:    t.Member.Relationship,
			HeadOfHousehold: t.HeadOfHousehold,
			Status:          t.Status,
			StatusLabel:     t.Status.Label(),
			Warning:         integrityWarning(t.Member, wfType),
			Selectable:      selectable(t),
		}
		row.Selected = row.Selectable && s.selected[t.ID]
		if wfType == TypeExit {
			row.DateLabel = "Exit Date"
			row.Date = t.Member.ExitDate
		} else {
			row.DateLabel = "Entry Date"
			entry := t.Member.EntryDate
			row.Date = &entry
		}
		rows = append(rows, row)
	}
	return rows
}

// integrityWarning flags members whose enrollment already shows them entered
// or exited while the matching assessment was never submitted.
func integrityWarning(m model.HouseholdMember, wfType Type) string {
	ref := m.AssessmentFor(wfType.Role())
	submitted := ref != nil && !ref.InProgress
	if submitted {
		return ""
	}
	if wfType == TypeExit {
		if m.ExitDate != nil {
			return WarningExitedWithoutExit
		}
		return ""
	}
	if !m.EnrollmentInProgress {
		return WarningEnteredWithoutIntake
	}
	return ""
}

// SelectableRows returns the members that can still be submitted.
func (s *Summary) SelectableRows() []TabID {
	var ids []TabID
	for _, t := range s.wf.session.MemberTabs() {
		if selectable(t) {
			ids = append(ids, t.ID)
		}
	}
	return ids
}

// SetSelection replaces the selection. Ids that are not selectable are
// dropped.
func (s *Summary) SetSelection(ids []TabID) {
	allowed := make(map[TabID]bool)
	for _, id := range s.SelectableRows() {
		allowed[id] = true
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.selected = make(map[TabID]bool, len(ids))
	for _, id := range ids {
		if allowed[id] {
			s.selected[id] = true
		}
	}
}

// Selection returns the selected ids that are still selectable, in tab order.
func (s *Summary) Selection() []TabID {
	s.mu.Lock()
	defer s.mu.Unlock()
	var ids []TabID
	for _, t := range s.wf.session.MemberTabs() {
		if s.selected[t.ID] && selectable(t) {
			ids = append(ids, t.ID)
		}
	}
	return ids
}

// SubmitSelected submits every selected member. Each member is attempted
// independently: one failure never stops the others, and the result has one
// outcome per selected member in tab order.
func (s *Summary) SubmitSelected(ctx context.Context) []SaveOutcome {
	ids := s.Selection()
	outcomes := make([]SaveOutcome, len(ids))

	var g errgroup.Group
	g.SetLimit(s.limit)
	for i, id := range ids {
		g.Go(func() error {
			p := s.wf.existingPanel(id)
			if p == nil {
				outcomes[i] = SaveOutcome{TabID: id, Action: ActionSubmit, Status: assessment.StatusError, Err: ErrUnknownTab}
				return nil
			}
			outcomes[i] = p.Submit(ctx)
			return nil
		})
	}
	_ = g.Wait()

	succeeded := 0
	s.mu.Lock()
	for _, out := range outcomes {
		if out.OK() {
			delete(s.selected, out.TabID)
			succeeded++
		}
	}
	s.mu.Unlock()

	s.wf.logger.Info("bulk submit finished", "selected", len(ids), "submitted", succeeded)
	if succeeded > 0 {
		s.wf.refresh(ctx)
	}
	s.wf.publish(Event{Kind: EventBulkSubmitted, Action: ActionSubmit})
	return outcomes
}
