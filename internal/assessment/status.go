// Package assessment derives the workflow status shown on each household
// member's tab.
package assessment

import "github.com/dukerupert/casework/internal/model"

type Status string

const (
	StatusNotStarted    Status = "not_started"
	StatusStarted       Status = "started"
	StatusReadyToSubmit Status = "ready_to_submit"
	StatusSubmitted     Status = "submitted"
	StatusWarning       Status = "warning"
	StatusError         Status = "error"
)

var labels = map[Status]string{
	StatusNotStarted:    "Not Started",
	StatusStarted:       "In Progress",
	StatusReadyToSubmit: "Ready to Submit",
	StatusSubmitted:     "Submitted",
	StatusWarning:       "Warning",
	StatusError:         "Error",
}

// Label is the badge text for the status.
func (s Status) Label() string {
	if l, ok := labels[s]; ok {
		return l
	}
	return string(s)
}

// Signals are the validation results reported by the form engine after a
// save or submit attempt. Issues are data-quality problems in values that
// were entered; advisory hints such as blank recommended fields are not
// signals and never change the status.
type Signals struct {
	Complete bool
	Issues   []string
	Failed   bool
}

// Derive computes a status from the persisted assessment and the latest form
// signals.
func Derive(ref *model.AssessmentRef, sig Signals) Status {
	if sig.Failed {
		return StatusError
	}
	if ref == nil {
		return StatusNotStarted
	}
	if !ref.InProgress {
		return StatusSubmitted
	}
	if len(sig.Issues) > 0 {
		return StatusWarning
	}
	if sig.Complete {
		return StatusReadyToSubmit
	}
	return StatusStarted
}

// Reconcile merges a locally held status with the assessment reported by a
// fresh roster load. Server state wins for submission; local form signals
// survive as long as the server still reports the assessment in progress.
func Reconcile(local Status, server *model.AssessmentRef) Status {
	if server == nil {
		if local == StatusError {
			return StatusError
		}
		return StatusNotStarted
	}
	if !server.InProgress {
		return StatusSubmitted
	}
	switch local {
	case StatusReadyToSubmit, StatusWarning, StatusError:
		return local
	}
	return StatusStarted
}
