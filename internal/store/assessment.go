package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/dukerupert/casework/internal/model"
)

type AssessmentStore struct {
	db  *sql.DB
	now func() time.Time
}

func NewAssessmentStore(db *sql.DB) *AssessmentStore {
	return &AssessmentStore{db: db, now: time.Now}
}

func scanAssessment(scanner interface{ Scan(...any) error }) (*model.Assessment, error) {
	var a model.Assessment
	var role, values string
	var assessmentDate, submittedAt sql.NullTime
	err := scanner.Scan(
		&a.ID, &a.EnrollmentID, &role, &a.InProgress, &values,
		&assessmentDate, &submittedAt, &a.CreatedAt, &a.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	a.Role = model.AssessmentRole(role)
	if err := json.Unmarshal([]byte(values), &a.Values); err != nil {
		return nil, fmt.Errorf("decode field values: %w", err)
	}
	if a.Values == nil {
		a.Values = map[string]string{}
	}
	if assessmentDate.Valid {
		a.AssessmentDate = &assessmentDate.Time
	}
	if submittedAt.Valid {
		a.SubmittedAt = &submittedAt.Time
	}
	return &a, nil
}

const assessmentCols = `id, enrollment_id, role, in_progress, field_values, assessment_date, submitted_at, created_at, updated_at`

func encodeValues(values map[string]string) (string, error) {
	if values == nil {
		values = map[string]string{}
	}
	b, err := json.Marshal(values)
	if err != nil {
		return "", fmt.Errorf("encode field values: %w", err)
	}
	return string(b), nil
}

func nullTime(t *time.Time) any {
	if t == nil {
		return nil
	}
	return t.UTC()
}

func (s *AssessmentStore) GetByID(ctx context.Context, id int64) (*model.Assessment, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+assessmentCols+` FROM assessments WHERE id = ?`, id)
	a, err := scanAssessment(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get assessment: %w", err)
	}
	return a, nil
}

func (s *AssessmentStore) GetForEnrollment(ctx context.Context, enrollmentID int64, role model.AssessmentRole) (*model.Assessment, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+assessmentCols+` FROM assessments WHERE enrollment_id = ? AND role = ?`,
		enrollmentID, string(role),
	)
	a, err := scanAssessment(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get assessment for enrollment: %w", err)
	}
	return a, nil
}

// Create inserts a new in-progress assessment.
func (s *AssessmentStore) Create(ctx context.Context, enrollmentID int64, role model.AssessmentRole, values map[string]string, assessmentDate *time.Time) (*model.Assessment, error) {
	encoded, err := encodeValues(values)
	if err != nil {
		return nil, err
	}
	result, err := s.db.ExecContext(ctx,
		`INSERT INTO assessments (enrollment_id, role, field_values, assessment_date) VALUES (?, ?, ?, ?)`,
		enrollmentID, string(role), encoded, nullTime(assessmentDate),
	)
	if err != nil {
		return nil, fmt.Errorf("insert assessment: %w", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("last insert id: %w", err)
	}
	return s.GetByID(ctx, id)
}

// Update replaces the field values of an assessment without changing its
// submission state.
func (s *AssessmentStore) Update(ctx context.Context, id int64, values map[string]string, assessmentDate *time.Time) (*model.Assessment, error) {
	encoded, err := encodeValues(values)
	if err != nil {
		return nil, err
	}
	result, err := s.db.ExecContext(ctx,
		`UPDATE assessments SET field_values = ?, assessment_date = ? WHERE id = ?`,
		encoded, nullTime(assessmentDate), id,
	)
	if err != nil {
		return nil, fmt.Errorf("update assessment: %w", err)
	}
	if n, err := result.RowsAffected(); err == nil && n == 0 {
		return nil, fmt.Errorf("update assessment %d: not found", id)
	}
	return s.GetByID(ctx, id)
}

// Submit stores the final values, marks the assessment submitted, and moves
// the enrollment forward: an intake enters the enrollment, an exit sets the
// exit date.
func (s *AssessmentStore) Submit(ctx context.Context, id int64, values map[string]string, assessmentDate *time.Time) (*model.Assessment, error) {
	encoded, err := encodeValues(values)
	if err != nil {
		return nil, err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	var enrollmentID int64
	var role string
	err = tx.QueryRowContext(ctx, `SELECT enrollment_id, role FROM assessments WHERE id = ?`, id).Scan(&enrollmentID, &role)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("submit assessment %d: not found", id)
	}
	if err != nil {
		return nil, fmt.Errorf("query assessment: %w", err)
	}

	if _, err := tx.ExecContext(ctx,
		`UPDATE assessments SET field_values = ?, assessment_date = ?, in_progress = 0, submitted_at = ? WHERE id = ?`,
		encoded, nullTime(assessmentDate), s.now().UTC(), id,
	); err != nil {
		return nil, fmt.Errorf("submit assessment: %w", err)
	}

	switch model.AssessmentRole(role) {
	case model.RoleIntake:
		if _, err := tx.ExecContext(ctx, `UPDATE enrollments SET in_progress = 0 WHERE id = ?`, enrollmentID); err != nil {
			return nil, fmt.Errorf("enter enrollment: %w", err)
		}
	case model.RoleExit:
		exitDate := assessmentDate
		if exitDate == nil {
			now := s.now()
			exitDate = &now
		}
		if _, err := tx.ExecContext(ctx, `UPDATE enrollments SET exit_date = ? WHERE id = ?`, exitDate.UTC(), enrollmentID); err != nil {
			return nil, fmt.Errorf("exit enrollment: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit: %w", err)
	}
	return s.GetByID(ctx, id)
}
