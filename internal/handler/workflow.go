package handler

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-playground/validator/v10"

	"github.com/dukerupert/casework/internal/assessment"
	"github.com/dukerupert/casework/internal/auth"
	"github.com/dukerupert/casework/internal/roster"
	"github.com/dukerupert/casework/internal/workflow"
)

type WorkflowHandler struct {
	registry *workflow.Registry
	validate *validator.Validate
	logger   *slog.Logger
}

func NewWorkflowHandler(registry *workflow.Registry, logger *slog.Logger) *WorkflowHandler {
	return &WorkflowHandler{
		registry: registry,
		validate: NewValidator(),
		logger:   logger.With("component", "workflow_handler"),
	}
}

type createWorkflowRequest struct {
	EnrollmentID int64  `json:"enrollment_id" validate:"required,gt=0"`
	WorkflowType string `json:"workflow_type" validate:"required,oneof=ENTRY EXIT"`
	Title        string `json:"title" validate:"max=200"`
	Hash         string `json:"hash" validate:"max=100"`
}

type selectTabRequest struct {
	TabID string `json:"tab_id" validate:"required"`
}

type updateFieldsRequest struct {
	Values map[string]string `json:"values" validate:"required"`
}

type selectionRequest struct {
	TabIDs []string `json:"tab_ids" validate:"required,dive,required"`
}

// outcome is the wire form of workflow.SaveOutcome.
type outcome struct {
	TabID        workflow.TabID    `json:"tab_id"`
	Action       workflow.Action   `json:"action"`
	Skipped      bool              `json:"skipped"`
	Created      bool              `json:"created"`
	AssessmentID int64             `json:"assessment_id,omitempty"`
	Status       assessment.Status `json:"status,omitempty"`
	Warnings     []string          `json:"warnings,omitempty"`
	Issues       []string          `json:"issues,omitempty"`
	Error        string            `json:"error,omitempty"`
}

func toOutcome(o workflow.SaveOutcome) outcome {
	out := outcome{
		TabID:        o.TabID,
		Action:       o.Action,
		Skipped:      o.Skipped,
		Created:      o.Created,
		AssessmentID: o.AssessmentID,
		Status:       o.Status,
		Warnings:     o.Warnings,
		Issues:       o.Issues,
	}
	if o.Err != nil {
		out.Error = o.Err.Error()
	}
	return out
}

type summaryResponse struct {
	Rows      []workflow.SummaryRow `json:"rows"`
	Selection []workflow.TabID      `json:"selection"`
}

func summaryOf(wf *workflow.Workflow) summaryResponse {
	s := wf.Summary()
	resp := summaryResponse{Rows: s.Rows(), Selection: s.Selection()}
	if resp.Selection == nil {
		resp.Selection = []workflow.TabID{}
	}
	return resp
}

func (h *WorkflowHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req createWorkflowRequest
	if !decode(w, r, h.validate, &req) {
		return
	}

	wf, err := h.registry.Create(r.Context(), auth.CaseworkerID(r.Context()), workflow.Config{
		EnrollmentID: req.EnrollmentID,
		Type:         workflow.Type(req.WorkflowType),
		Title:        req.Title,
		Hash:         req.Hash,
	})
	if err != nil {
		h.writeErr(w, "create workflow", err)
		return
	}
	writeJSON(w, http.StatusCreated, wf.View())
}

// Get returns the workflow view. A hash query parameter, as sent by a client
// reloading on a deep link, makes that tab active first.
func (h *WorkflowHandler) Get(w http.ResponseWriter, r *http.Request) {
	wf, ok := h.lookup(w, r)
	if !ok {
		return
	}
	if hash := r.URL.Query().Get("hash"); hash != "" {
		wf.Restore(hash)
	}
	writeJSON(w, http.StatusOK, wf.View())
}

func (h *WorkflowHandler) Delete(w http.ResponseWriter, r *http.Request) {
	if err := h.registry.Close(r.PathValue("id"), auth.CaseworkerID(r.Context())); err != nil {
		h.writeErr(w, "close workflow", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Select switches tabs. The departed member is autosaved in the background
// so the response does not wait for it.
func (h *WorkflowHandler) Select(w http.ResponseWriter, r *http.Request) {
	wf, ok := h.lookup(w, r)
	if !ok {
		return
	}
	var req selectTabRequest
	if !decode(w, r, h.validate, &req) {
		return
	}
	id := workflow.TabID(req.TabID)
	if _, ok := wf.Session().Tab(id); !ok {
		writeError(w, http.StatusNotFound, "tab not found")
		return
	}
	wf.SelectTab(id)
	writeJSON(w, http.StatusOK, wf.View())
}

func (h *WorkflowHandler) Back(w http.ResponseWriter, r *http.Request) {
	h.history(w, r, (*workflow.Workflow).Back)
}

func (h *WorkflowHandler) Forward(w http.ResponseWriter, r *http.Request) {
	h.history(w, r, (*workflow.Workflow).Forward)
}

func (h *WorkflowHandler) history(w http.ResponseWriter, r *http.Request, move func(*workflow.Workflow) bool) {
	wf, ok := h.lookup(w, r)
	if !ok {
		return
	}
	moved := move(wf)
	writeJSON(w, http.StatusOK, map[string]any{"moved": moved, "view": wf.View()})
}

func (h *WorkflowHandler) UpdateFields(w http.ResponseWriter, r *http.Request) {
	wf, ok := h.lookup(w, r)
	if !ok {
		return
	}
	var req updateFieldsRequest
	if !decode(w, r, h.validate, &req) {
		return
	}
	id := workflow.TabID(r.PathValue("tab_id"))
	if err := wf.UpdateFields(id, req.Values); err != nil {
		h.writeErr(w, "update fields", err)
		return
	}
	p, err := wf.Panel(id)
	if err != nil {
		h.writeErr(w, "update fields", err)
		return
	}
	writeJSON(w, http.StatusOK, p.View())
}

func (h *WorkflowHandler) Primary(w http.ResponseWriter, r *http.Request) {
	wf, ok := h.lookup(w, r)
	if !ok {
		return
	}
	out, err := wf.RunPrimaryAction(r.Context(), workflow.TabID(r.PathValue("tab_id")))
	if err != nil {
		h.writeErr(w, "primary action", err)
		return
	}
	status := http.StatusOK
	if !out.OK() {
		status = http.StatusUnprocessableEntity
	}
	writeJSON(w, status, map[string]any{"outcome": toOutcome(out), "view": wf.View()})
}

func (h *WorkflowHandler) Summary(w http.ResponseWriter, r *http.Request) {
	wf, ok := h.lookup(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, summaryOf(wf))
}

func (h *WorkflowHandler) SetSelection(w http.ResponseWriter, r *http.Request) {
	wf, ok := h.lookup(w, r)
	if !ok {
		return
	}
	var req selectionRequest
	if !decode(w, r, h.validate, &req) {
		return
	}
	ids := make([]workflow.TabID, len(req.TabIDs))
	for i, id := range req.TabIDs {
		ids[i] = workflow.TabID(id)
	}
	wf.Summary().SetSelection(ids)
	writeJSON(w, http.StatusOK, summaryOf(wf))
}

// SubmitSelected always answers 200 with one outcome per selected member;
// individual failures are inside the outcomes.
func (h *WorkflowHandler) SubmitSelected(w http.ResponseWriter, r *http.Request) {
	wf, ok := h.lookup(w, r)
	if !ok {
		return
	}
	results := wf.Summary().SubmitSelected(r.Context())
	outcomes := make([]outcome, len(results))
	for i, o := range results {
		outcomes[i] = toOutcome(o)
	}
	writeJSON(w, http.StatusOK, map[string]any{"outcomes": outcomes, "summary": summaryOf(wf)})
}

func (h *WorkflowHandler) lookup(w http.ResponseWriter, r *http.Request) (*workflow.Workflow, bool) {
	wf, err := h.registry.Get(r.PathValue("id"), auth.CaseworkerID(r.Context()))
	if err != nil {
		h.writeErr(w, "get workflow", err)
		return nil, false
	}
	return wf, true
}

func (h *WorkflowHandler) writeErr(w http.ResponseWriter, op string, err error) {
	switch {
	case errors.Is(err, workflow.ErrNotFound):
		writeError(w, http.StatusNotFound, "workflow not found")
	case errors.Is(err, roster.ErrEnrollmentNotFound):
		writeError(w, http.StatusNotFound, "enrollment not found")
	case errors.Is(err, workflow.ErrUnknownTab):
		writeError(w, http.StatusNotFound, "tab not found")
	case errors.Is(err, workflow.ErrNotEditable):
		writeError(w, http.StatusConflict, err.Error())
	default:
		h.logger.Error(op, "error", err)
		writeError(w, http.StatusInternalServerError, "failed to "+op)
	}
}
