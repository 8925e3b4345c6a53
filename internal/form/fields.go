package form

import "github.com/dukerupert/casework/internal/model"

// DateField holds the assessment date. It is stored on the assessment row
// as well as in the values map.
const DateField = "assessment_date"

// DateLayout is the wire format of date fields.
const DateLayout = "2006-01-02"

// Field is one input on an assessment form. Rule is a validator tag applied
// to non-empty values; only formats the store depends on carry one.
type Field struct {
	Key         string `json:"key"`
	Label       string `json:"label"`
	Required    bool   `json:"required"`
	Recommended bool   `json:"recommended"`
	Rule        string `json:"-"`
}

var intakeFields = []Field{
	{Key: DateField, Label: "Assessment Date", Required: true, Rule: "datetime=" + DateLayout},
	{Key: "prior_living_situation", Label: "Prior Living Situation", Required: true},
	{Key: "disabling_condition", Label: "Disabling Condition", Required: true},
	{Key: "income_from_any_source", Label: "Income From Any Source", Required: true},
	{Key: "monthly_income", Label: "Total Monthly Income", Recommended: true},
	{Key: "health_insurance", Label: "Covered by Health Insurance", Recommended: true},
	{Key: "notes", Label: "Notes"},
}

var exitFields = []Field{
	{Key: DateField, Label: "Exit Date", Required: true, Rule: "datetime=" + DateLayout},
	{Key: "destination", Label: "Destination", Required: true},
	{Key: "income_from_any_source", Label: "Income From Any Source", Required: true},
	{Key: "monthly_income", Label: "Total Monthly Income", Recommended: true},
	{Key: "health_insurance", Label: "Covered by Health Insurance", Recommended: true},
	{Key: "notes", Label: "Notes"},
}

// Fields returns the field list for an assessment role.
func Fields(role model.AssessmentRole) []Field {
	if role == model.RoleExit {
		return exitFields
	}
	return intakeFields
}
