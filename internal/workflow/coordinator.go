package workflow

import (
	"context"
	"log/slog"
	"sync"
)

type effect int

const (
	effectNone effect = iota
	effectAutosave
)

type edge struct {
	from, to visibility
}

// Each tab cycles Inactive -> Active -> Inactive. Leaving a tab is the only
// edge with a side effect. Edges missing from the table (re-selecting the
// active tab) are ignored.
var transitionTable = map[edge]effect{
	{inactive, active}: effectNone,
	{active, inactive}: effectAutosave,
}

// Coordinator saves a panel in the background when its tab is left. The tab
// switch never waits for the save.
type Coordinator struct {
	wf     *Workflow
	ctx    context.Context
	logger *slog.Logger

	mu     sync.Mutex
	states map[TabID]visibility

	wg sync.WaitGroup
}

func newCoordinator(wf *Workflow, ctx context.Context, logger *slog.Logger) *Coordinator {
	return &Coordinator{
		wf:     wf,
		ctx:    ctx,
		logger: logger,
		states: make(map[TabID]visibility),
	}
}

func (c *Coordinator) observe(t Transition) {
	c.mu.Lock()
	from := c.states[t.Tab.ID]
	eff, ok := transitionTable[edge{from, t.To}]
	if !ok {
		c.mu.Unlock()
		c.logger.Debug("ignoring transition", "tab_id", t.Tab.ID, "from", from, "to", t.To)
		return
	}
	c.states[t.Tab.ID] = t.To
	c.mu.Unlock()

	if eff == effectAutosave && !t.Tab.Summary {
		c.dispatch(t.Tab)
	}
}

// forget drops state for tabs removed by a roster rebuild.
func (c *Coordinator) forget(ids []TabID) {
	c.mu.Lock()
	for _, id := range ids {
		delete(c.states, id)
	}
	c.mu.Unlock()
}

// dispatch issues exactly one save or submit for the tab being left, chosen
// by the tab's status at the moment it was left.
func (c *Coordinator) dispatch(tab Tab) {
	p := c.wf.existingPanel(tab.ID)
	if p == nil {
		return
	}
	submit := tab.Submitted()

	c.wg.Add(1)
	go func() {
		defer c.wg.Done()

		var out SaveOutcome
		if submit {
			out = p.SubmitIfDirty(c.ctx)
		} else {
			out = p.SaveIfDirty(c.ctx)
		}

		switch {
		case out.Err != nil:
			c.logger.Warn("autosave failed", "tab_id", tab.ID, "action", out.Action, "error", out.Err)
		case out.Skipped:
			c.logger.Debug("autosave skipped, form clean", "tab_id", tab.ID, "action", out.Action)
		default:
			c.logger.Info("autosaved",
				"tab_id", tab.ID,
				"action", out.Action,
				"assessment_id", out.AssessmentID,
				"created", out.Created,
				"status", out.Status,
			)
		}
		if !out.Skipped {
			c.wf.publish(eventFor(EventAutosaved, out))
		}
	}()
}

// Wait blocks until every background save has finished.
func (c *Coordinator) Wait() {
	c.wg.Wait()
}
