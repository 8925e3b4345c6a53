package server

import (
	"database/sql"
	"log/slog"
	"net/http"
	"time"

	"github.com/dukerupert/casework/internal/form"
	"github.com/dukerupert/casework/internal/handler"
	"github.com/dukerupert/casework/internal/middleware"
	"github.com/dukerupert/casework/internal/store"
	ws "github.com/dukerupert/casework/internal/websocket"
	"github.com/dukerupert/casework/internal/workflow"
)

// Config holds the server's tunables.
type Config struct {
	SessionIdle     time.Duration
	BulkConcurrency int
	SecureCookie    bool
	OriginPatterns  []string
	LoginRateLimit  int
}

type Server struct {
	hub          *ws.Hub
	registry     *workflow.Registry
	authH        *handler.AuthHandler
	workflowH    *handler.WorkflowHandler
	caseFileH    *handler.CaseFileHandler
	sessionStore *store.SessionStore
	caseworkers  *store.CaseworkerStore
	rateLimiter  *middleware.RateLimiter
	cfg          Config
	logger       *slog.Logger
}

func New(db *sql.DB, cfg Config, logger *slog.Logger) *Server {
	if cfg.LoginRateLimit <= 0 {
		cfg.LoginRateLimit = 10
	}
	hub := ws.NewHub(logger)

	householdStore := store.NewHouseholdStore(db)
	sessionStore := store.NewSessionStore(db)
	caseworkers := store.NewCaseworkerStore(db)
	engine := form.NewEngine(store.NewAssessmentStore(db), logger)

	registry := workflow.NewRegistry(workflow.Deps{
		Source:          householdStore,
		Forms:           engine.Factory(),
		Logger:          logger.With("component", "workflow"),
		Publish:         hub.Publish,
		BulkConcurrency: cfg.BulkConcurrency,
	}, cfg.SessionIdle, logger)

	return &Server{
		hub:       hub,
		registry:  registry,
		authH:     handler.NewAuthHandler(caseworkers, sessionStore, cfg.SecureCookie, logger),
		workflowH: handler.NewWorkflowHandler(registry, logger),
		caseFileH: handler.NewCaseFileHandler(
			store.NewProjectStore(db),
			store.NewClientStore(db),
			store.NewEnrollmentStore(db),
			householdStore,
			logger,
		),
		sessionStore: sessionStore,
		caseworkers:  caseworkers,
		rateLimiter:  middleware.NewRateLimiter(cfg.LoginRateLimit, time.Minute),
		cfg:          cfg,
		logger:       logger,
	}
}

// Registry returns the workflow registry so main can start and stop its
// sweeper.
func (s *Server) Registry() *workflow.Registry {
	return s.registry
}

// SessionStore returns the session store for cleanup tasks.
func (s *Server) SessionStore() *store.SessionStore {
	return s.sessionStore
}

// RateLimiter returns the rate limiter for cleanup tasks.
func (s *Server) RateLimiter() *middleware.RateLimiter {
	return s.rateLimiter
}

func (s *Server) Router() http.Handler {
	outerMux := http.NewServeMux()

	// Public routes
	outerMux.Handle("POST /login", middleware.RateLimit(s.rateLimiter, middleware.RealIP)(http.HandlerFunc(s.authH.Login)))
	outerMux.HandleFunc("GET /health", handler.Health)

	protectedMux := http.NewServeMux()
	s.registerProtectedRoutes(protectedMux)

	authMiddleware := middleware.RequireAuth(s.sessionStore, s.caseworkers)
	outerMux.Handle("/", authMiddleware(protectedMux))

	return middleware.RequestLogger(s.logger.With("component", "http"))(outerMux)
}

func (s *Server) registerProtectedRoutes(mux *http.ServeMux) {
	mux.HandleFunc("POST /logout", s.authH.Logout)
	mux.HandleFunc("GET /api/me", s.authH.Me)

	// Case file
	mux.HandleFunc("POST /api/projects", s.caseFileH.CreateProject)
	mux.HandleFunc("POST /api/clients", s.caseFileH.CreateClient)
	mux.HandleFunc("POST /api/enrollments", s.caseFileH.CreateEnrollment)
	mux.HandleFunc("GET /api/enrollments/{id}/household", s.caseFileH.Household)

	// Household workflows
	mux.HandleFunc("POST /api/workflows", s.workflowH.Create)
	mux.HandleFunc("GET /api/workflows/{id}", s.workflowH.Get)
	mux.HandleFunc("DELETE /api/workflows/{id}", s.workflowH.Delete)
	mux.HandleFunc("POST /api/workflows/{id}/select", s.workflowH.Select)
	mux.HandleFunc("POST /api/workflows/{id}/back", s.workflowH.Back)
	mux.HandleFunc("POST /api/workflows/{id}/forward", s.workflowH.Forward)
	mux.HandleFunc("PUT /api/workflows/{id}/tabs/{tab_id}/fields", s.workflowH.UpdateFields)
	mux.HandleFunc("POST /api/workflows/{id}/tabs/{tab_id}/primary", s.workflowH.Primary)
	mux.HandleFunc("GET /api/workflows/{id}/summary", s.workflowH.Summary)
	mux.HandleFunc("PUT /api/workflows/{id}/summary/selection", s.workflowH.SetSelection)
	mux.HandleFunc("POST /api/workflows/{id}/summary/submit", s.workflowH.SubmitSelected)

	// Live events
	mux.HandleFunc("GET /ws", ws.HandleWebSocket(s.hub, s.registry, s.cfg.OriginPatterns, s.logger))
}
