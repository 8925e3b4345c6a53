// Package roster loads the members of a household for the enrollment a
// workflow was opened from.
package roster

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"sync"
	"time"

	"github.com/dukerupert/casework/internal/model"
)

// ErrEnrollmentNotFound is returned when the enrollment has no household.
var ErrEnrollmentNotFound = errors.New("enrollment not found")

var errNotLoaded = errors.New("roster not loaded")

// Source fetches the household members for an enrollment. Implementations
// return an empty list when the enrollment does not exist.
type Source interface {
	FetchHouseholdMembers(ctx context.Context, enrollmentID int64) ([]model.HouseholdMember, error)
}

// Change is delivered to listeners after every successful load or refresh.
type Change struct {
	Members         []model.HouseholdMember
	IdentityChanged bool
	// FetchedAt is when the fetch that produced Members started.
	FetchedAt time.Time
}

type ChangeFunc func(Change)

// Roster owns the household member list. The list is replaced wholesale on
// every refresh and callers only ever receive copies.
type Roster struct {
	source Source
	logger *slog.Logger
	now    func() time.Time

	// fetchMu serialises load/refresh so a slow fetch cannot overwrite a
	// newer one.
	fetchMu sync.Mutex

	mu           sync.RWMutex
	enrollmentID int64
	members      []model.HouseholdMember
	loaded       bool
	listeners    []ChangeFunc
}

// New creates a Roster that fetches members from source.
func New(source Source, logger *slog.Logger) *Roster {
	return &Roster{
		source: source,
		logger: logger,
		now:    time.Now,
	}
}

// OnChange registers a listener. Listeners run synchronously on the goroutine
// that performed the fetch.
func (r *Roster) OnChange(fn ChangeFunc) {
	r.mu.Lock()
	r.listeners = append(r.listeners, fn)
	r.mu.Unlock()
}

// Load fetches the household for enrollmentID. A failure is fatal for the
// workflow: nothing is kept from a previous load.
func (r *Roster) Load(ctx context.Context, enrollmentID int64) ([]model.HouseholdMember, error) {
	r.fetchMu.Lock()
	defer r.fetchMu.Unlock()
	return r.fetch(ctx, enrollmentID)
}

// Refresh re-fetches the household for the loaded enrollment and replaces
// the whole list.
func (r *Roster) Refresh(ctx context.Context) ([]model.HouseholdMember, error) {
	r.fetchMu.Lock()
	defer r.fetchMu.Unlock()

	r.mu.RLock()
	loaded, enrollmentID := r.loaded, r.enrollmentID
	r.mu.RUnlock()
	if !loaded {
		return nil, errNotLoaded
	}
	return r.fetch(ctx, enrollmentID)
}

func (r *Roster) fetch(ctx context.Context, enrollmentID int64) ([]model.HouseholdMember, error) {
	started := r.now()
	members, err := r.source.FetchHouseholdMembers(ctx, enrollmentID)
	if err != nil {
		return nil, fmt.Errorf("fetch household for enrollment %d: %w", enrollmentID, err)
	}
	if len(members) == 0 {
		return nil, fmt.Errorf("enrollment %d: %w", enrollmentID, ErrEnrollmentNotFound)
	}
	members = slices.Clone(members)

	r.mu.Lock()
	changed := !r.loaded || r.enrollmentID != enrollmentID || !SameMembers(r.members, members)
	r.enrollmentID = enrollmentID
	r.members = members
	r.loaded = true
	listeners := slices.Clone(r.listeners)
	r.mu.Unlock()

	r.logger.Debug("roster fetched",
		"enrollment_id", enrollmentID,
		"members", len(members),
		"identity_changed", changed,
	)

	for _, fn := range listeners {
		fn(Change{Members: slices.Clone(members), IdentityChanged: changed, FetchedAt: started})
	}
	return slices.Clone(members), nil
}

// Members returns a copy of the current member list.
func (r *Roster) Members() []model.HouseholdMember {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return slices.Clone(r.members)
}

// EnrollmentID returns the enrollment the roster was loaded for.
func (r *Roster) EnrollmentID() int64 {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.enrollmentID
}

// SameMembers reports whether a and b contain the same set of clients.
func SameMembers(a, b []model.HouseholdMember) bool {
	if len(a) != len(b) {
		return false
	}
	ids := make(map[int64]struct{}, len(a))
	for _, m := range a {
		ids[m.ClientID] = struct{}{}
	}
	for _, m := range b {
		if _, ok := ids[m.ClientID]; !ok {
			return false
		}
	}
	return true
}
