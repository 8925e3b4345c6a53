package workflow

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"
)

type entry struct {
	wf       *Workflow
	ownerID  int64
	lastUsed time.Time
}

// Registry holds the open workflows of every caseworker and closes the ones
// left idle.
type Registry struct {
	deps   Deps
	idle   time.Duration
	logger *slog.Logger
	now    func() time.Time

	mu        sync.Mutex
	workflows map[string]*entry

	interval time.Duration
	cancel   context.CancelFunc
	done     chan struct{}
}

// NewRegistry creates a registry. Workflows untouched for idle are closed by
// the sweeper started with Start.
func NewRegistry(deps Deps, idle time.Duration, logger *slog.Logger) *Registry {
	if logger == nil {
		logger = slog.Default()
	}
	interval := idle / 4
	if interval < time.Second {
		interval = time.Second
	}
	if deps.Logger == nil {
		deps.Logger = logger
	}
	return &Registry{
		deps:      deps,
		idle:      idle,
		logger:    logger.With("component", "registry"),
		now:       time.Now,
		workflows: make(map[string]*entry),
		interval:  interval,
	}
}

// Create opens a workflow owned by ownerID.
func (r *Registry) Create(ctx context.Context, ownerID int64, cfg Config) (*Workflow, error) {
	wf, err := New(ctx, cfg, r.deps)
	if err != nil {
		return nil, err
	}

	r.mu.Lock()
	r.workflows[wf.ID()] = &entry{wf: wf, ownerID: ownerID, lastUsed: r.now()}
	r.mu.Unlock()

	r.logger.Info("workflow opened", "workflow_id", wf.ID(), "owner_id", ownerID, "enrollment_id", cfg.EnrollmentID)
	return wf, nil
}

// Get returns an open workflow and marks it as used. Workflows owned by
// another caseworker are reported as not found.
func (r *Registry) Get(id string, ownerID int64) (*Workflow, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.workflows[id]
	if !ok || e.ownerID != ownerID {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	e.lastUsed = r.now()
	return e.wf, nil
}

// Close removes a workflow and waits for its background saves.
func (r *Registry) Close(id string, ownerID int64) error {
	r.mu.Lock()
	e, ok := r.workflows[id]
	if !ok || e.ownerID != ownerID {
		r.mu.Unlock()
		return fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	delete(r.workflows, id)
	r.mu.Unlock()

	e.wf.Close()
	r.logger.Info("workflow closed", "workflow_id", id)
	return nil
}

// Len returns the number of live workflows.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.workflows)
}

// Start begins the idle sweeper.
func (r *Registry) Start(ctx context.Context) {
	r.mu.Lock()
	ctx, r.cancel = context.WithCancel(ctx)
	r.done = make(chan struct{})
	r.mu.Unlock()

	go func() {
		defer close(r.done)
		ticker := time.NewTicker(r.interval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				r.sweep()
			}
		}
	}()
}

// Stop stops the sweeper and closes every open workflow.
func (r *Registry) Stop() {
	r.mu.Lock()
	cancel := r.cancel
	done := r.done
	r.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	if done != nil {
		<-done
	}
	r.CloseAll()
}

// CloseAll closes every open workflow.
func (r *Registry) CloseAll() {
	r.mu.Lock()
	entries := r.workflows
	r.workflows = make(map[string]*entry)
	r.mu.Unlock()

	for _, e := range entries {
		e.wf.Close()
	}
}

func (r *Registry) sweep() int {
	cutoff := r.now().Add(-r.idle)

	r.mu.Lock()
	var stale []*entry
	for id, e := range r.workflows {
		if e.lastUsed.Before(cutoff) {
			stale = append(stale, e)
			delete(r.workflows, id)
		}
	}
	r.mu.Unlock()

	for _, e := range stale {
		e.wf.Close()
		r.logger.Info("closed idle workflow", "workflow_id", e.wf.ID())
	}
	return len(stale)
}
