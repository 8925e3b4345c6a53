package store

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/dukerupert/casework/internal/model"
)

type EnrollmentStore struct {
	db *sql.DB
}

func NewEnrollmentStore(db *sql.DB) *EnrollmentStore {
	return &EnrollmentStore{db: db}
}

func scanEnrollment(scanner interface{ Scan(...any) error }) (*model.Enrollment, error) {
	var e model.Enrollment
	var rel string
	var exitDate sql.NullTime
	err := scanner.Scan(
		&e.ID, &e.ProjectID, &e.ClientID, &e.HouseholdID, &rel,
		&e.EntryDate, &exitDate, &e.InProgress, &e.CreatedAt, &e.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	e.Relationship = model.Relationship(rel)
	if exitDate.Valid {
		e.ExitDate = &exitDate.Time
	}
	return &e, nil
}

const enrollmentCols = `id, project_id, client_id, household_id, relationship_to_hoh, entry_date, exit_date, in_progress, created_at, updated_at`

func (s *EnrollmentStore) Create(projectID, clientID int64, householdID string, rel model.Relationship, entryDate time.Time) (*model.Enrollment, error) {
	result, err := s.db.Exec(
		`INSERT INTO enrollments (project_id, client_id, household_id, relationship_to_hoh, entry_date)
		 VALUES (?, ?, ?, ?, ?)`,
		projectID, clientID, householdID, string(rel), entryDate.UTC(),
	)
	if err != nil {
		return nil, fmt.Errorf("insert enrollment: %w", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("last insert id: %w", err)
	}
	return s.GetByID(id)
}

func (s *EnrollmentStore) GetByID(id int64) (*model.Enrollment, error) {
	row := s.db.QueryRow(`SELECT `+enrollmentCols+` FROM enrollments WHERE id = ?`, id)
	e, err := scanEnrollment(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get enrollment: %w", err)
	}
	return e, nil
}

// ListByHousehold returns a household's enrollments in entry order.
func (s *EnrollmentStore) ListByHousehold(householdID string) ([]model.Enrollment, error) {
	rows, err := s.db.Query(
		`SELECT `+enrollmentCols+` FROM enrollments WHERE household_id = ? ORDER BY entry_date, id`,
		householdID,
	)
	if err != nil {
		return nil, fmt.Errorf("list enrollments: %w", err)
	}
	defer rows.Close()

	var enrollments []model.Enrollment
	for rows.Next() {
		e, err := scanEnrollment(rows)
		if err != nil {
			return nil, fmt.Errorf("scan enrollment: %w", err)
		}
		enrollments = append(enrollments, *e)
	}
	return enrollments, rows.Err()
}
