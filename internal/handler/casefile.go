package handler

import (
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/dukerupert/casework/internal/model"
	"github.com/dukerupert/casework/internal/store"
)

// CaseFileHandler serves the projects, clients and enrollments a household
// workflow is opened from.
type CaseFileHandler struct {
	projects    *store.ProjectStore
	clients     *store.ClientStore
	enrollments *store.EnrollmentStore
	households  *store.HouseholdStore
	validate    *validator.Validate
	logger      *slog.Logger
}

func NewCaseFileHandler(ps *store.ProjectStore, cs *store.ClientStore, es *store.EnrollmentStore, hs *store.HouseholdStore, logger *slog.Logger) *CaseFileHandler {
	return &CaseFileHandler{
		projects:    ps,
		clients:     cs,
		enrollments: es,
		households:  hs,
		validate:    NewValidator(),
		logger:      logger.With("component", "casefile"),
	}
}

type projectRequest struct {
	Name string `json:"name" validate:"required,max=200"`
}

type clientRequest struct {
	FirstName string `json:"first_name" validate:"required,max=100"`
	LastName  string `json:"last_name" validate:"required,max=100"`
}

type enrollmentRequest struct {
	ProjectID    int64  `json:"project_id" validate:"required,gt=0"`
	ClientID     int64  `json:"client_id" validate:"required,gt=0"`
	HouseholdID  string `json:"household_id" validate:"omitempty,max=64"`
	Relationship string `json:"relationship_to_hoh" validate:"required"`
	EntryDate    string `json:"entry_date" validate:"required,datetime=2006-01-02"`
}

func (h *CaseFileHandler) CreateProject(w http.ResponseWriter, r *http.Request) {
	var req projectRequest
	if !decode(w, r, h.validate, &req) {
		return
	}
	p, err := h.projects.Create(strings.TrimSpace(req.Name))
	if err != nil {
		h.logger.Error("create project", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to create project")
		return
	}
	writeJSON(w, http.StatusCreated, p)
}

func (h *CaseFileHandler) CreateClient(w http.ResponseWriter, r *http.Request) {
	var req clientRequest
	if !decode(w, r, h.validate, &req) {
		return
	}
	c, err := h.clients.Create(strings.TrimSpace(req.FirstName), strings.TrimSpace(req.LastName))
	if err != nil {
		h.logger.Error("create client", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to create client")
		return
	}
	writeJSON(w, http.StatusCreated, c)
}

// CreateEnrollment enrolls a client. An empty household_id starts a new
// household.
func (h *CaseFileHandler) CreateEnrollment(w http.ResponseWriter, r *http.Request) {
	var req enrollmentRequest
	if !decode(w, r, h.validate, &req) {
		return
	}
	rel := model.Relationship(req.Relationship)
	if !rel.Valid() {
		writeError(w, http.StatusBadRequest, "invalid relationship_to_hoh")
		return
	}
	entry, err := time.Parse("2006-01-02", req.EntryDate)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid entry_date")
		return
	}

	if p, err := h.projects.GetByID(req.ProjectID); err != nil || p == nil {
		writeError(w, http.StatusNotFound, "project not found")
		return
	}
	if c, err := h.clients.GetByID(req.ClientID); err != nil || c == nil {
		writeError(w, http.StatusNotFound, "client not found")
		return
	}

	householdID := req.HouseholdID
	if householdID == "" {
		householdID = uuid.NewString()
	}
	e, err := h.enrollments.Create(req.ProjectID, req.ClientID, householdID, rel, entry)
	if err != nil {
		h.logger.Error("create enrollment", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to create enrollment")
		return
	}
	writeJSON(w, http.StatusCreated, e)
}

// Household lists every member of the enrollment's household with their
// intake and exit assessments.
func (h *CaseFileHandler) Household(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid id")
		return
	}
	members, err := h.households.FetchHouseholdMembers(r.Context(), id)
	if err != nil {
		h.logger.Error("fetch household", "enrollment_id", id, "error", err)
		writeError(w, http.StatusInternalServerError, "failed to fetch household")
		return
	}
	if len(members) == 0 {
		writeError(w, http.StatusNotFound, "enrollment not found")
		return
	}
	writeJSON(w, http.StatusOK, members)
}

func Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
