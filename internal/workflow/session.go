package workflow

import (
	"slices"
	"sort"
	"sync"
	"time"

	"github.com/dukerupert/casework/internal/assessment"
	"github.com/dukerupert/casework/internal/model"
)

type visibility int

const (
	inactive visibility = iota
	active
)

func (v visibility) String() string {
	if v == active {
		return "active"
	}
	return "inactive"
}

// Transition is one tab's visibility change.
type Transition struct {
	Tab  Tab
	From visibility
	To   visibility
}

// TabSession owns the ordered tab list and the active selection. The active
// tab id always names a tab in the current list once a roster has loaded.
type TabSession struct {
	role   model.AssessmentRole
	router Router
	now    func() time.Time

	// notifyMu keeps observers seeing transitions in the order they happened.
	notifyMu sync.Mutex

	mu        sync.RWMutex
	tabs      []Tab
	active    TabID
	preferred TabID
	observers []func(Transition)
}

// NewTabSession creates an empty session. The router's current hash decides
// the active tab of the first build, so a reload lands on the same member.
func NewTabSession(role model.AssessmentRole, router Router) *TabSession {
	return &TabSession{
		role:      role,
		router:    router,
		now:       time.Now,
		preferred: TabFromHash(router.Hash()),
	}
}

// Observe registers fn to receive every visibility transition.
func (s *TabSession) Observe(fn func(Transition)) {
	s.mu.Lock()
	s.observers = append(s.observers, fn)
	s.mu.Unlock()
}

// Tabs returns the member tabs, head of household first, followed by the
// summary tab.
func (s *TabSession) Tabs() []Tab {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Clone(s.tabs)
}

// MemberTabs returns the tabs without the summary tab.
func (s *TabSession) MemberTabs() []Tab {
	s.mu.RLock()
	defer s.mu.RUnlock()
	tabs := make([]Tab, 0, len(s.tabs))
	for _, t := range s.tabs {
		if !t.Summary {
			tabs = append(tabs, t)
		}
	}
	return tabs
}

// Tab returns a copy of the tab with the given id.
func (s *TabSession) Tab(id TabID) (Tab, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if i := s.indexOf(id); i >= 0 {
		return s.tabs[i], true
	}
	return Tab{}, false
}

// ActiveTabID returns the selected tab, or "" before the first roster load.
func (s *TabSession) ActiveTabID() TabID {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.active
}

// SelectTab activates id and records it in the router. Unknown ids and the
// already active id are ignored.
func (s *TabSession) SelectTab(id TabID) {
	s.selectTab(id, s.router.Push)
}

// navigate activates the tab named by a router hash without adding history.
// It is used for back/forward, where the router has already moved.
func (s *TabSession) navigate(hash string) bool {
	return s.selectTab(TabFromHash(hash), nil)
}

// RestoreFromRouter adopts the router's current hash if it names a tab.
func (s *TabSession) RestoreFromRouter() bool {
	return s.navigate(s.router.Hash())
}

// syncRouter points the router back at the active tab.
func (s *TabSession) syncRouter() {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.active != "" {
		s.router.Replace(HashFor(s.active))
	}
}

func (s *TabSession) selectTab(id TabID, record func(string)) bool {
	s.notifyMu.Lock()
	defer s.notifyMu.Unlock()

	s.mu.Lock()
	next := s.indexOf(id)
	if next < 0 || id == s.active {
		s.mu.Unlock()
		return false
	}
	var transitions []Transition
	if prev := s.indexOf(s.active); prev >= 0 {
		transitions = append(transitions, Transition{Tab: s.tabs[prev], From: active, To: inactive})
	}
	transitions = append(transitions, Transition{Tab: s.tabs[next], From: inactive, To: active})
	s.active = id
	if record != nil {
		record(HashFor(id))
	}
	observers := slices.Clone(s.observers)
	s.mu.Unlock()

	notify(observers, transitions)
	return true
}

// OnRosterChanged rebuilds the tabs from a fresh member list.
func (s *TabSession) OnRosterChanged(members []model.HouseholdMember) (added, removed []TabID) {
	return s.apply(members, s.now())
}

// apply replaces the tab list wholesale. Local statuses written after
// fetchedAt are kept as they are; older ones are reconciled with the server.
// The active tab is kept if it still exists, otherwise the first tab becomes
// active.
func (s *TabSession) apply(members []model.HouseholdMember, fetchedAt time.Time) (added, removed []TabID) {
	s.notifyMu.Lock()
	defer s.notifyMu.Unlock()

	s.mu.Lock()
	prev := make(map[TabID]Tab, len(s.tabs))
	for _, t := range s.tabs {
		prev[t.ID] = t
	}
	s.tabs = buildTabs(members, s.role, prev, fetchedAt)

	seen := make(map[TabID]bool, len(s.tabs))
	for _, t := range s.tabs {
		seen[t.ID] = true
		if _, ok := prev[t.ID]; !ok && !t.Summary {
			added = append(added, t.ID)
		}
	}
	for id, t := range prev {
		if !seen[id] && !t.Summary {
			removed = append(removed, id)
		}
	}

	var transitions []Transition
	if s.indexOf(s.active) < 0 && len(s.tabs) > 0 {
		next := 0
		if i := s.indexOf(s.preferred); s.active == "" && i >= 0 {
			next = i
		}
		s.active = s.tabs[next].ID
		s.router.Replace(HashFor(s.active))
		transitions = append(transitions, Transition{Tab: s.tabs[next], From: inactive, To: active})
	}
	s.preferred = ""
	observers := slices.Clone(s.observers)
	s.mu.Unlock()

	notify(observers, transitions)
	return added, removed
}

// setStatus records a status produced by the tab's own panel.
func (s *TabSession) setStatus(id TabID, status assessment.Status) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	i := s.indexOf(id)
	if i < 0 {
		return false
	}
	s.tabs[i].Status = status
	s.tabs[i].statusAt = s.now()
	return true
}

// neighbours returns the member tabs before and after id.
func (s *TabSession) neighbours(id TabID) (prev, next *Tab) {
	tabs := s.MemberTabs()
	for i, t := range tabs {
		if t.ID != id {
			continue
		}
		if i > 0 {
			prev = &tabs[i-1]
		}
		if i < len(tabs)-1 {
			next = &tabs[i+1]
		}
		break
	}
	return prev, next
}

func (s *TabSession) indexOf(id TabID) int {
	if id == "" {
		return -1
	}
	for i, t := range s.tabs {
		if t.ID == id {
			return i
		}
	}
	return -1
}

func notify(observers []func(Transition), transitions []Transition) {
	for _, t := range transitions {
		for _, fn := range observers {
			fn(t)
		}
	}
}

func buildTabs(members []model.HouseholdMember, role model.AssessmentRole, prev map[TabID]Tab, fetchedAt time.Time) []Tab {
	tabs := make([]Tab, 0, len(members)+1)
	for _, m := range members {
		ref := m.AssessmentFor(role)
		t := Tab{
			ID:              TabIDFor(m),
			Name:            m.Name,
			ClientID:        m.ClientID,
			EnrollmentID:    m.EnrollmentID,
			HeadOfHousehold: m.IsHeadOfHousehold(),
			Member:          m,
		}
		if ref != nil {
			id := ref.ID
			t.AssessmentID = &id
			t.InProgress = ref.InProgress
		}

		old, ok := prev[t.ID]
		switch {
		case !ok:
			t.Status = assessment.Derive(ref, assessment.Signals{})
		case old.statusAt.After(fetchedAt):
			t.Status, t.statusAt = old.Status, old.statusAt
		default:
			t.Status, t.statusAt = assessment.Reconcile(old.Status, ref), old.statusAt
		}
		tabs = append(tabs, t)
	}

	sort.SliceStable(tabs, func(i, j int) bool {
		return tabs[i].HeadOfHousehold && !tabs[j].HeadOfHousehold
	})

	if len(tabs) > 0 {
		tabs = append(tabs, Tab{ID: SummaryTabID, Name: "Summary", Summary: true})
	}
	return tabs
}
