package model

import "time"

// Relationship is a member's relationship to the head of household.
type Relationship string

const (
	RelationshipSelf             Relationship = "SELF_HEAD_OF_HOUSEHOLD"
	RelationshipChild            Relationship = "CHILD"
	RelationshipSpouse           Relationship = "SPOUSE_OR_PARTNER"
	RelationshipOtherRelative    Relationship = "OTHER_RELATIVE"
	RelationshipOtherNonRelative Relationship = "OTHER_NON_RELATIVE"
	RelationshipNotCollected     Relationship = "DATA_NOT_COLLECTED"
)

func (r Relationship) Valid() bool {
	switch r {
	case RelationshipSelf, RelationshipChild, RelationshipSpouse,
		RelationshipOtherRelative, RelationshipOtherNonRelative, RelationshipNotCollected:
		return true
	}
	return false
}

type Project struct {
	ID        int64     `json:"id"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

type Client struct {
	ID        int64     `json:"id"`
	FirstName string    `json:"first_name"`
	LastName  string    `json:"last_name"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (c Client) Name() string {
	return c.FirstName + " " + c.LastName
}

// Enrollment is one client's participation in a project. Members of the same
// household share a HouseholdID.
type Enrollment struct {
	ID           int64        `json:"id"`
	ProjectID    int64        `json:"project_id"`
	ClientID     int64        `json:"client_id"`
	HouseholdID  string       `json:"household_id"`
	Relationship Relationship `json:"relationship_to_hoh"`
	EntryDate    time.Time    `json:"entry_date"`
	ExitDate     *time.Time   `json:"exit_date"`
	InProgress   bool         `json:"in_progress"`
	CreatedAt    time.Time    `json:"created_at"`
	UpdatedAt    time.Time    `json:"updated_at"`
}
