package workflow

import (
	"context"
	"errors"
	"log/slog"
	"slices"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/dukerupert/casework/internal/assessment"
	"github.com/dukerupert/casework/internal/model"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

var entryDate = time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)

func member(clientID int64, name string, rel model.Relationship) model.HouseholdMember {
	return model.HouseholdMember{
		ClientID:             clientID,
		Name:                 name,
		Relationship:         rel,
		EnrollmentID:         clientID * 10,
		EntryDate:            entryDate,
		EnrollmentInProgress: true,
	}
}

func withIntake(m model.HouseholdMember, id int64, inProgress bool) model.HouseholdMember {
	m.Intake = &model.AssessmentRef{ID: id, InProgress: inProgress}
	return m
}

// fakeSource behaves like the household query: saves and submits made by
// fakeForm show up in the next fetch.
type fakeSource struct {
	mu      sync.Mutex
	members []model.HouseholdMember
	err     error
	fetches int
	nextID  int64
}

func newFakeSource(members ...model.HouseholdMember) *fakeSource {
	return &fakeSource{members: members, nextID: 1000}
}

func (s *fakeSource) FetchHouseholdMembers(_ context.Context, _ int64) ([]model.HouseholdMember, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.fetches++
	if s.err != nil {
		return nil, s.err
	}
	return slices.Clone(s.members), nil
}

func (s *fakeSource) setMembers(members ...model.HouseholdMember) {
	s.mu.Lock()
	s.members = members
	s.mu.Unlock()
}

func (s *fakeSource) allocID() int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextID++
	return s.nextID
}

func (s *fakeSource) record(clientID int64, role model.AssessmentRole, ref model.AssessmentRef) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.members {
		if s.members[i].ClientID != clientID {
			continue
		}
		r := ref
		if role == model.RoleExit {
			s.members[i].Exit = &r
		} else {
			s.members[i].Intake = &r
		}
	}
}

type fakeForm struct {
	src      *fakeSource
	clientID int64
	role     model.AssessmentRole

	// started and gate let a test hold a save in flight.
	started chan struct{}
	gate    chan struct{}

	mu        sync.Mutex
	id        int64
	dirty     bool
	values    map[string]string
	complete  bool
	saves     int
	submits   int
	saveErr   error
	submitErr error
}

func (f *fakeForm) Dirty() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.dirty
}

func (f *fakeForm) Values() map[string]string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make(map[string]string, len(f.values))
	for k, v := range f.values {
		out[k] = v
	}
	return out
}

func (f *fakeForm) SetValues(values map[string]string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.values == nil {
		f.values = make(map[string]string)
	}
	for k, v := range values {
		f.values[k] = v
	}
	f.dirty = true
}

func (f *fakeForm) setDirty() {
	f.mu.Lock()
	f.dirty = true
	f.mu.Unlock()
}

func (f *fakeForm) counts() (saves, submits int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.saves, f.submits
}

func (f *fakeForm) Save(ctx context.Context) (FormResult, error) {
	return f.persist(true)
}

func (f *fakeForm) Submit(ctx context.Context) (FormResult, error) {
	return f.persist(false)
}

func (f *fakeForm) persist(inProgress bool) (FormResult, error) {
	if f.started != nil {
		f.started <- struct{}{}
	}
	if f.gate != nil {
		<-f.gate
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	if inProgress {
		f.saves++
		if f.saveErr != nil {
			return FormResult{}, f.saveErr
		}
	} else {
		f.submits++
		if f.submitErr != nil {
			return FormResult{}, f.submitErr
		}
	}
	if f.id == 0 {
		f.id = f.src.allocID()
	}
	f.dirty = false
	f.src.record(f.clientID, f.role, model.AssessmentRef{ID: f.id, InProgress: inProgress})
	return FormResult{AssessmentID: f.id, InProgress: inProgress, Complete: f.complete || !inProgress}, nil
}

// formSet is a FormFactory that keeps every form it opens.
type formSet struct {
	src *fakeSource

	mu      sync.Mutex
	forms   map[int64]*fakeForm
	failFor map[int64]error
	prepare func(*fakeForm)
}

func newFormSet(src *fakeSource) *formSet {
	return &formSet{src: src, forms: make(map[int64]*fakeForm), failFor: make(map[int64]error)}
}

func (s *formSet) open(_ context.Context, m model.HouseholdMember, role model.AssessmentRole, assessmentID *int64) (Form, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.failFor[m.ClientID]; err != nil {
		return nil, err
	}
	f := &fakeForm{src: s.src, clientID: m.ClientID, role: role}
	if assessmentID != nil {
		f.id = *assessmentID
	}
	if s.prepare != nil {
		s.prepare(f)
	}
	s.forms[m.ClientID] = f
	return f, nil
}

func (s *formSet) get(t *testing.T, clientID int64) *fakeForm {
	t.Helper()
	s.mu.Lock()
	defer s.mu.Unlock()
	f, ok := s.forms[clientID]
	require.True(t, ok, "no form opened for client %d", clientID)
	return f
}

type eventLog struct {
	mu     sync.Mutex
	events []Event
}

func (l *eventLog) publish(e Event) {
	l.mu.Lock()
	l.events = append(l.events, e)
	l.mu.Unlock()
}

func (l *eventLog) kinds() []EventKind {
	l.mu.Lock()
	defer l.mu.Unlock()
	var out []EventKind
	for _, e := range l.events {
		out = append(out, e.Kind)
	}
	return out
}

type harness struct {
	wf     *Workflow
	src    *fakeSource
	forms  *formSet
	events *eventLog
}

func newHarness(t *testing.T, typ Type, hash string, members ...model.HouseholdMember) *harness {
	t.Helper()
	src := newFakeSource(members...)
	forms := newFormSet(src)
	events := &eventLog{}
	wf, err := New(context.Background(), Config{EnrollmentID: 10, Type: typ, Hash: hash}, Deps{
		Source:          src,
		Forms:           forms.open,
		Logger:          slog.New(slog.DiscardHandler),
		Publish:         events.publish,
		BulkConcurrency: 2,
	})
	require.NoError(t, err)
	t.Cleanup(wf.Close)
	return &harness{wf: wf, src: src, forms: forms, events: events}
}

func tabIDs(tabs []Tab) []TabID {
	ids := make([]TabID, len(tabs))
	for i, t := range tabs {
		ids[i] = t.ID
	}
	return ids
}

func statusOf(t *testing.T, wf *Workflow, id TabID) assessment.Status {
	t.Helper()
	tab, ok := wf.session.Tab(id)
	require.True(t, ok, "tab %s missing", id)
	return tab.Status
}

var errBoom = errors.New("boom")
