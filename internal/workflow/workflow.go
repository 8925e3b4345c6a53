// Package workflow runs the household assessment workflow: one tab per
// household member, per-member autosave when a tab is left, and a summary
// tab that submits ready members in bulk.
package workflow

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/google/uuid"

	"github.com/dukerupert/casework/internal/assessment"
	"github.com/dukerupert/casework/internal/roster"
)

// Config describes one workflow session.
type Config struct {
	ID           string
	EnrollmentID int64
	Type         Type
	Title        string
	// Hash is the fragment the caller arrived with, e.g. "#client-12" after
	// a page reload.
	Hash string
}

// Deps are the collaborators shared by every workflow.
type Deps struct {
	Source          roster.Source
	Forms           FormFactory
	Logger          *slog.Logger
	Publish         func(Event)
	BulkConcurrency int
}

type Workflow struct {
	cfg     Config
	ctx     context.Context
	logger  *slog.Logger
	publish func(Event)
	forms   FormFactory

	router      *MemoryRouter
	roster      *roster.Roster
	session     *TabSession
	coordinator *Coordinator
	summary     *Summary

	panelsMu sync.Mutex
	panels   map[TabID]*Panel
}

// New loads the household and opens a form for every member. A roster or
// form failure here is fatal: no partial workflow is returned.
func New(ctx context.Context, cfg Config, deps Deps) (*Workflow, error) {
	if !cfg.Type.Valid() {
		return nil, fmt.Errorf("invalid workflow type %q", cfg.Type)
	}
	if cfg.EnrollmentID <= 0 {
		return nil, fmt.Errorf("invalid enrollment id %d", cfg.EnrollmentID)
	}
	if cfg.ID == "" {
		cfg.ID = uuid.NewString()
	}
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With("workflow_id", cfg.ID, "enrollment_id", cfg.EnrollmentID, "type", cfg.Type)

	// Background saves outlive the request that created the workflow.
	base := context.WithoutCancel(ctx)

	router := NewMemoryRouter(cfg.Hash)
	w := &Workflow{
		cfg:     cfg,
		ctx:     base,
		logger:  logger,
		publish: deps.Publish,
		forms:   deps.Forms,
		router:  router,
		roster:  roster.New(deps.Source, logger),
		session: NewTabSession(cfg.Type.Role(), router),
		panels:  make(map[TabID]*Panel),
	}
	if w.publish == nil {
		w.publish = func(Event) {}
	} else {
		publish := w.publish
		w.publish = func(e Event) {
			e.WorkflowID = cfg.ID
			publish(e)
		}
	}
	w.coordinator = newCoordinator(w, base, logger.With("component", "autosave"))
	w.summary = newSummary(w, deps.BulkConcurrency)

	w.session.Observe(w.coordinator.observe)
	w.session.Observe(func(t Transition) {
		if t.To == active {
			w.publish(Event{Kind: EventTabSelected, TabID: t.Tab.ID})
		}
	})
	w.roster.OnChange(w.onRosterChange)

	if _, err := w.roster.Load(ctx, cfg.EnrollmentID); err != nil {
		return nil, fmt.Errorf("load roster: %w", err)
	}
	for _, t := range w.session.MemberTabs() {
		if _, err := w.ensurePanel(ctx, t); err != nil {
			return nil, err
		}
	}
	return w, nil
}

// ID returns the workflow's session id.
func (w *Workflow) ID() string { return w.cfg.ID }

// Title returns the display title.
func (w *Workflow) Title() string { return w.cfg.Title }

// Type returns ENTRY or EXIT.
func (w *Workflow) Type() Type { return w.cfg.Type }

// EnrollmentID returns the enrollment the workflow was opened for.
func (w *Workflow) EnrollmentID() int64 { return w.cfg.EnrollmentID }

// Summary returns the summary submission controller.
func (w *Workflow) Summary() *Summary { return w.summary }

// Session returns the tab session.
func (w *Workflow) Session() *TabSession { return w.session }

// Tabs returns the member tabs followed by the summary tab.
func (w *Workflow) Tabs() []Tab { return w.session.Tabs() }

// ActiveTabID returns the selected tab.
func (w *Workflow) ActiveTabID() TabID { return w.session.ActiveTabID() }

// Hash returns the router's current fragment, e.g. "#client-12".
func (w *Workflow) Hash() string { return w.router.Hash() }

// SelectTab activates a tab. Leaving a member tab autosaves it in the
// background; this call does not wait for that save.
func (w *Workflow) SelectTab(id TabID) {
	w.session.SelectTab(id)
}

// Back moves to the previous history entry, like the browser back button.
func (w *Workflow) Back() bool {
	hash, ok := w.router.Back()
	return ok && w.followHistory(hash)
}

// Forward moves to the next history entry.
func (w *Workflow) Forward() bool {
	hash, ok := w.router.Forward()
	return ok && w.followHistory(hash)
}

// Restore adopts the hash a caller reloaded with, e.g. a page refresh on a
// deep link. It replaces the current history entry. Leaving the previous tab
// autosaves it; a hash naming no tab leaves the active tab alone.
func (w *Workflow) Restore(hash string) bool {
	id := TabFromHash(hash)
	if id == w.session.ActiveTabID() {
		return true
	}
	if _, ok := w.session.Tab(id); !ok {
		return false
	}
	w.router.Replace(HashFor(id))
	if !w.session.RestoreFromRouter() {
		w.session.syncRouter()
		return false
	}
	return true
}

func (w *Workflow) followHistory(hash string) bool {
	if TabFromHash(hash) == w.session.ActiveTabID() {
		return true
	}
	if !w.session.navigate(hash) {
		// The entry points at a member who left the household.
		w.session.syncRouter()
		return false
	}
	return true
}

// Panel returns the panel for a member tab.
func (w *Workflow) Panel(id TabID) (*Panel, error) {
	tab, ok := w.session.Tab(id)
	if !ok || tab.Summary {
		return nil, fmt.Errorf("%w: %s", ErrUnknownTab, id)
	}
	return w.ensurePanel(w.ctx, tab)
}

// UpdateFields applies edits to a member's form.
func (w *Workflow) UpdateFields(id TabID, values map[string]string) error {
	p, err := w.Panel(id)
	if err != nil {
		return err
	}
	f, ok := p.form.(EditableForm)
	if !ok {
		return ErrNotEditable
	}
	f.SetValues(values)
	return nil
}

// RunPrimaryAction runs the primary button of a member's panel.
func (w *Workflow) RunPrimaryAction(ctx context.Context, id TabID) (SaveOutcome, error) {
	p, err := w.Panel(id)
	if err != nil {
		return SaveOutcome{}, err
	}
	return p.RunPrimaryAction(ctx), nil
}

// Refresh re-fetches the roster.
func (w *Workflow) Refresh(ctx context.Context) error {
	_, err := w.roster.Refresh(ctx)
	return err
}

// Wait blocks until all background saves have finished.
func (w *Workflow) Wait() {
	w.coordinator.Wait()
}

// Close waits for background saves. The workflow must not be used after.
func (w *Workflow) Close() {
	w.coordinator.Wait()
	w.logger.Debug("workflow closed")
}

// refresh is the fire-and-log roster refresh used after saves.
func (w *Workflow) refresh(ctx context.Context) {
	if err := w.Refresh(ctx); err != nil {
		w.logger.Error("roster refresh failed", "error", err)
	}
}

// settle records the outcome of a save or submit on its own tab.
func (w *Workflow) settle(out SaveOutcome) {
	if out.Skipped {
		return
	}
	if !w.session.setStatus(out.TabID, out.Status) {
		return
	}
	w.publish(eventFor(EventStatusChanged, out))
}

func (w *Workflow) onRosterChange(c roster.Change) {
	added, removed := w.session.apply(c.Members, c.FetchedAt)

	w.panelsMu.Lock()
	for _, id := range removed {
		delete(w.panels, id)
	}
	w.panelsMu.Unlock()
	w.coordinator.forget(removed)

	for _, t := range w.session.MemberTabs() {
		if p := w.existingPanel(t.ID); p != nil {
			p.syncAssessmentID(t.AssessmentID)
		}
	}
	for _, id := range added {
		tab, ok := w.session.Tab(id)
		if !ok {
			continue
		}
		if _, err := w.ensurePanel(w.ctx, tab); err != nil {
			w.logger.Error("open form for new member", "tab_id", id, "error", err)
		}
	}

	if c.IdentityChanged {
		w.publish(Event{Kind: EventRosterChanged})
	}
}

func (w *Workflow) existingPanel(id TabID) *Panel {
	w.panelsMu.Lock()
	defer w.panelsMu.Unlock()
	return w.panels[id]
}

func (w *Workflow) ensurePanel(ctx context.Context, tab Tab) (*Panel, error) {
	if p := w.existingPanel(tab.ID); p != nil {
		return p, nil
	}
	form, err := w.forms(ctx, tab.Member, w.cfg.Type.Role(), tab.AssessmentID)
	if err != nil {
		return nil, fmt.Errorf("open form for %s: %w", tab.ID, err)
	}
	if form == nil {
		return nil, fmt.Errorf("open form for %s: %w", tab.ID, errors.New("no form"))
	}

	w.panelsMu.Lock()
	defer w.panelsMu.Unlock()
	if p, ok := w.panels[tab.ID]; ok {
		return p, nil
	}
	p := newPanel(w, tab, form)
	w.panels[tab.ID] = p
	return p, nil
}

func eventFor(kind EventKind, out SaveOutcome) Event {
	e := Event{Kind: kind, TabID: out.TabID, Status: out.Status, Action: out.Action}
	if out.Err != nil {
		e.Err = out.Err.Error()
		e.Status = assessment.StatusError
	}
	return e
}
