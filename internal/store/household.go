package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/dukerupert/casework/internal/model"
)

// HouseholdStore reads whole households across enrollments.
type HouseholdStore struct {
	db *sql.DB
}

func NewHouseholdStore(db *sql.DB) *HouseholdStore {
	return &HouseholdStore{db: db}
}

const householdMemberQuery = `
SELECT e.client_id, c.first_name || ' ' || c.last_name, e.relationship_to_hoh, e.id,
       e.entry_date, e.exit_date, e.in_progress,
       i.id, i.in_progress, i.assessment_date,
       x.id, x.in_progress, x.assessment_date
FROM enrollments e
JOIN clients c ON c.id = e.client_id
LEFT JOIN assessments i ON i.enrollment_id = e.id AND i.role = 'INTAKE'
LEFT JOIN assessments x ON x.enrollment_id = e.id AND x.role = 'EXIT'
WHERE e.household_id = (SELECT household_id FROM enrollments WHERE id = ?)
ORDER BY e.entry_date, e.id`

type nullRef struct {
	id         sql.NullInt64
	inProgress sql.NullBool
	date       sql.NullTime
}

func (n nullRef) ref() *model.AssessmentRef {
	if !n.id.Valid {
		return nil
	}
	ref := &model.AssessmentRef{ID: n.id.Int64, InProgress: n.inProgress.Bool}
	if n.date.Valid {
		ref.AssessmentDate = &n.date.Time
	}
	return ref
}

// FetchHouseholdMembers returns every member of the household the given
// enrollment belongs to, in entry order. It returns an empty list if the
// enrollment does not exist.
func (s *HouseholdStore) FetchHouseholdMembers(ctx context.Context, enrollmentID int64) ([]model.HouseholdMember, error) {
	rows, err := s.db.QueryContext(ctx, householdMemberQuery, enrollmentID)
	if err != nil {
		return nil, fmt.Errorf("query household members: %w", err)
	}
	defer rows.Close()

	var members []model.HouseholdMember
	for rows.Next() {
		var m model.HouseholdMember
		var rel string
		var exitDate sql.NullTime
		var intake, exit nullRef
		if err := rows.Scan(
			&m.ClientID, &m.Name, &rel, &m.EnrollmentID,
			&m.EntryDate, &exitDate, &m.EnrollmentInProgress,
			&intake.id, &intake.inProgress, &intake.date,
			&exit.id, &exit.inProgress, &exit.date,
		); err != nil {
			return nil, fmt.Errorf("scan household member: %w", err)
		}
		m.Relationship = model.Relationship(rel)
		if exitDate.Valid {
			m.ExitDate = &exitDate.Time
		}
		m.Intake = intake.ref()
		m.Exit = exit.ref()
		members = append(members, m)
	}
	return members, rows.Err()
}
