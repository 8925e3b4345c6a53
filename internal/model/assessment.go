package model

import "time"

// AssessmentRole distinguishes intake assessments from exit assessments.
type AssessmentRole string

const (
	RoleIntake AssessmentRole = "INTAKE"
	RoleExit   AssessmentRole = "EXIT"
)

type Assessment struct {
	ID             int64             `json:"id"`
	EnrollmentID   int64             `json:"enrollment_id"`
	Role           AssessmentRole    `json:"role"`
	InProgress     bool              `json:"in_progress"`
	Values         map[string]string `json:"values"`
	AssessmentDate *time.Time        `json:"assessment_date"`
	SubmittedAt    *time.Time        `json:"submitted_at"`
	CreatedAt      time.Time         `json:"created_at"`
	UpdatedAt      time.Time         `json:"updated_at"`
}

// AssessmentRef is the lightweight view of an assessment carried on a
// household member.
type AssessmentRef struct {
	ID             int64      `json:"id"`
	InProgress     bool       `json:"in_progress"`
	AssessmentDate *time.Time `json:"assessment_date"`
}

func (a *Assessment) Ref() *AssessmentRef {
	return &AssessmentRef{ID: a.ID, InProgress: a.InProgress, AssessmentDate: a.AssessmentDate}
}
