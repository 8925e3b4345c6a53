package workflow

// View is the JSON snapshot returned to clients after every workflow call.
type View struct {
	ID           string       `json:"id"`
	Title        string       `json:"title"`
	Type         Type         `json:"type"`
	EnrollmentID int64        `json:"enrollment_id"`
	Hash         string       `json:"hash"`
	ActiveTabID  TabID        `json:"active_tab_id"`
	Tabs         []Tab        `json:"tabs"`
	Panel        *PanelView   `json:"panel,omitempty"`
	Summary      []SummaryRow `json:"summary,omitempty"`
}

type PanelView struct {
	TabID   TabID             `json:"tab_id"`
	Dirty   bool              `json:"dirty"`
	Values  map[string]string `json:"values,omitempty"`
	Actions FormActions       `json:"actions"`
}

// View renders the active tab: the member's panel or the summary table.
func (w *Workflow) View() View {
	v := View{
		ID:           w.cfg.ID,
		Title:        w.cfg.Title,
		Type:         w.cfg.Type,
		EnrollmentID: w.cfg.EnrollmentID,
		Hash:         w.router.Hash(),
		ActiveTabID:  w.session.ActiveTabID(),
		Tabs:         w.session.Tabs(),
	}
	if v.ActiveTabID == SummaryTabID {
		v.Summary = w.summary.Rows()
		return v
	}
	if p := w.existingPanel(v.ActiveTabID); p != nil {
		pv := p.View()
		v.Panel = &pv
	}
	return v
}

func (p *Panel) View() PanelView {
	pv := PanelView{
		TabID:   p.tabID,
		Dirty:   p.form.Dirty(),
		Actions: p.FormActions(),
	}
	if f, ok := p.form.(EditableForm); ok {
		pv.Values = f.Values()
	}
	return pv
}
