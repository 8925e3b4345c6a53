package workflow

import (
	"context"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRegistry(t *testing.T) *Registry {
	t.Helper()
	src := newFakeSource(household()...)
	deps := Deps{Source: src, Forms: newFormSet(src).open}
	return NewRegistry(deps, time.Minute, slog.New(slog.DiscardHandler))
}

func TestRegistry_Ownership(t *testing.T) {
	r := newTestRegistry(t)
	defer r.CloseAll()

	wf, err := r.Create(context.Background(), 7, Config{EnrollmentID: 10, Type: TypeEntry})
	require.NoError(t, err)

	got, err := r.Get(wf.ID(), 7)
	require.NoError(t, err)
	assert.Same(t, wf, got)

	_, err = r.Get(wf.ID(), 8)
	assert.ErrorIs(t, err, ErrNotFound)
	assert.ErrorIs(t, r.Close(wf.ID(), 8), ErrNotFound)

	require.NoError(t, r.Close(wf.ID(), 7))
	assert.Equal(t, 0, r.Len())
	_, err = r.Get(wf.ID(), 7)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestRegistry_CreateFailure(t *testing.T) {
	r := newTestRegistry(t)
	_, err := r.Create(context.Background(), 7, Config{EnrollmentID: 10, Type: "BOGUS"})
	require.Error(t, err)
	assert.Equal(t, 0, r.Len())
}

func TestRegistry_SweepClosesIdle(t *testing.T) {
	r := newTestRegistry(t)
	defer r.CloseAll()

	now := time.Date(2026, 5, 1, 9, 0, 0, 0, time.UTC)
	r.now = func() time.Time { return now }

	idle, err := r.Create(context.Background(), 7, Config{EnrollmentID: 10, Type: TypeEntry})
	require.NoError(t, err)

	now = now.Add(50 * time.Second)
	busy, err := r.Create(context.Background(), 7, Config{EnrollmentID: 10, Type: TypeExit})
	require.NoError(t, err)

	now = now.Add(30 * time.Second)
	assert.Equal(t, 1, r.sweep())

	_, err = r.Get(idle.ID(), 7)
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = r.Get(busy.ID(), 7)
	assert.NoError(t, err)
}

func TestRegistry_StartStop(t *testing.T) {
	r := newTestRegistry(t)
	_, err := r.Create(context.Background(), 7, Config{EnrollmentID: 10, Type: TypeEntry})
	require.NoError(t, err)

	r.Start(context.Background())
	r.Stop()
	assert.Equal(t, 0, r.Len())
}
