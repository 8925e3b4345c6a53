package workflow

import (
	"context"
	"fmt"
	"sync"

	"github.com/dukerupert/casework/internal/assessment"
	"github.com/dukerupert/casework/internal/model"
)

const (
	LabelPrevious   = "Previous"
	LabelNext       = "Next"
	LabelSave       = "Save Assessment"
	LabelSaveSubmit = "Save & Submit"
)

type Button struct {
	Label    string `json:"label"`
	Disabled bool   `json:"disabled"`
	Target   TabID  `json:"target,omitempty"`
	Action   Action `json:"action,omitempty"`
}

// FormActions is the button row rendered under a member's form.
type FormActions struct {
	Previous Button `json:"previous"`
	Next     Button `json:"next"`
	Primary  Button `json:"primary"`
}

// Panel wraps one member's form. Panels live as long as their tab does and
// are never torn down by switching tabs, so a departing panel still has its
// unsaved values when the autosave runs.
type Panel struct {
	wf    *Workflow
	tabID TabID
	form  Form

	// mu queues save and submit calls: a second departure waits for the
	// first save and then re-checks dirtiness.
	mu sync.Mutex

	idMu         sync.Mutex
	assessmentID *int64
}

func newPanel(wf *Workflow, tab Tab, form Form) *Panel {
	p := &Panel{wf: wf, tabID: tab.ID, form: form}
	p.syncAssessmentID(tab.AssessmentID)
	return p
}

// TabID returns the member tab this panel belongs to.
func (p *Panel) TabID() TabID { return p.tabID }

// Form returns the panel's form collaborator.
func (p *Panel) Form() Form { return p.form }

// Visible reports whether this panel belongs to the active tab. Visibility
// has no effect on the panel's lifetime.
func (p *Panel) Visible() bool {
	return p.wf.session.ActiveTabID() == p.tabID
}

// SaveIfDirty saves the form if it has unsaved changes. When the save
// creates the member's first assessment the roster is refreshed so the new
// id becomes visible.
func (p *Panel) SaveIfDirty(ctx context.Context) SaveOutcome {
	return p.finish(ctx, p.run(ctx, ActionSave, false))
}

// SubmitIfDirty is SaveIfDirty through the form's submit path.
func (p *Panel) SubmitIfDirty(ctx context.Context) SaveOutcome {
	return p.finish(ctx, p.run(ctx, ActionSubmit, false))
}

// FormActions returns the buttons for the panel's current tab state.
func (p *Panel) FormActions() FormActions {
	tab, _ := p.wf.session.Tab(p.tabID)
	return p.FormActionsFor(!tab.Submitted())
}

// FormActionsFor returns the buttons for an assessment that is or is not
// still in progress.
func (p *Panel) FormActionsFor(inProgress bool) FormActions {
	prev, next := p.wf.session.neighbours(p.tabID)

	actions := FormActions{
		Previous: Button{Label: LabelPrevious, Disabled: prev == nil},
		Next:     Button{Label: LabelNext, Disabled: next == nil},
	}
	if prev != nil {
		actions.Previous.Target = prev.ID
	}
	if next != nil {
		actions.Next.Target = next.ID
	}
	if inProgress {
		actions.Primary = Button{Label: LabelSave, Action: ActionSave}
	} else {
		actions.Primary = Button{Label: LabelSaveSubmit, Action: ActionSubmit}
	}
	return actions
}

// RunPrimaryAction performs the primary button's action, updates this
// member's status and refreshes the roster.
func (p *Panel) RunPrimaryAction(ctx context.Context) SaveOutcome {
	tab, ok := p.wf.session.Tab(p.tabID)
	if !ok {
		return SaveOutcome{TabID: p.tabID, Err: ErrUnknownTab}
	}
	action := p.FormActionsFor(!tab.Submitted()).Primary.Action

	out := p.run(ctx, action, true)
	p.wf.settle(out)
	if out.OK() {
		p.wf.refresh(ctx)
	}
	return out
}

// Submit submits unconditionally; bulk submission uses it for saved
// assessments that have no local edits.
func (p *Panel) Submit(ctx context.Context) SaveOutcome {
	out := p.run(ctx, ActionSubmit, true)
	p.wf.settle(out)
	return out
}

func (p *Panel) finish(ctx context.Context, out SaveOutcome) SaveOutcome {
	p.wf.settle(out)
	if out.Created {
		p.wf.refresh(ctx)
	}
	return out
}

func (p *Panel) run(ctx context.Context, action Action, force bool) SaveOutcome {
	p.mu.Lock()
	defer p.mu.Unlock()

	out := SaveOutcome{TabID: p.tabID, Action: action}
	if !force && !p.form.Dirty() {
		out.Skipped = true
		return out
	}

	p.idMu.Lock()
	hadID := p.assessmentID != nil
	p.idMu.Unlock()

	var res FormResult
	var err error
	if action == ActionSubmit {
		res, err = p.form.Submit(ctx)
	} else {
		res, err = p.form.Save(ctx)
	}
	if err != nil {
		out.Err = fmt.Errorf("%s %s: %w", action, p.tabID, err)
		out.Status = assessment.Derive(nil, assessment.Signals{Failed: true})
		return out
	}

	out.AssessmentID = res.AssessmentID
	out.Created = !hadID && res.AssessmentID != 0
	out.Warnings = res.Warnings
	out.Issues = res.Issues
	id := res.AssessmentID
	p.syncAssessmentID(&id)

	ref := &model.AssessmentRef{ID: res.AssessmentID, InProgress: res.InProgress}
	out.Status = assessment.Derive(ref, assessment.Signals{Complete: res.Complete, Issues: res.Issues})
	return out
}

func (p *Panel) syncAssessmentID(id *int64) {
	if id == nil {
		return
	}
	v := *id
	p.idMu.Lock()
	p.assessmentID = &v
	p.idMu.Unlock()
}
