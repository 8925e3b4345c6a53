package model

import "time"

// HouseholdMember is one person enrolled in a household, as seen from the
// enrollment the workflow was opened for.
type HouseholdMember struct {
	ClientID             int64          `json:"client_id"`
	Name                 string         `json:"name"`
	Relationship         Relationship   `json:"relationship_to_hoh"`
	EnrollmentID         int64          `json:"enrollment_id"`
	EntryDate            time.Time      `json:"entry_date"`
	ExitDate             *time.Time     `json:"exit_date"`
	EnrollmentInProgress bool           `json:"enrollment_in_progress"`
	Intake               *AssessmentRef `json:"intake"`
	Exit                 *AssessmentRef `json:"exit"`
}

func (m HouseholdMember) IsHeadOfHousehold() bool {
	return m.Relationship == RelationshipSelf
}

// AssessmentFor returns the member's assessment for the given role, or nil if
// none has been started.
func (m HouseholdMember) AssessmentFor(role AssessmentRole) *AssessmentRef {
	if role == RoleExit {
		return m.Exit
	}
	return m.Intake
}
