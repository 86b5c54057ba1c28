package wizard

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestManagerOpenReusesLiveSession(t *testing.T) {
	ctx := context.Background()
	m := NewManager(Options{})
	t.Cleanup(m.Wait)

	first, err := m.Open(ctx, "s-1")
	require.NoError(t, err)
	second, err := m.Open(ctx, " s-1 ")
	require.NoError(t, err)
	assert.Same(t, first, second)
	assert.Equal(t, "s-1", first.SessionID())

	_, err = m.Open(ctx, "  ")
	assert.Error(t, err)
}

func TestManagerCreateAssignsSessionID(t *testing.T) {
	m := NewManager(Options{})
	w := m.Create(context.Background())
	require.NotEmpty(t, w.SessionID())
	got, ok := m.Get(w.SessionID())
	require.True(t, ok)
	assert.Same(t, w, got)
}

func TestManagerSessionsAreIsolatedAndRestored(t *testing.T) {
	ctx := context.Background()
	store := NewInMemorySnapshotStore()
	m := NewManager(Options{Store: store})

	a, err := m.Open(ctx, "a")
	require.NoError(t, err)
	b, err := m.Open(ctx, "b")
	require.NoError(t, err)
	require.NoError(t, a.UpdateStepData(ctx, StepAccount, map[string]any{"username": "alpha"}))
	require.NoError(t, b.UpdateStepData(ctx, StepAccount, map[string]any{"username": "beta"}))

	m.Close("a")
	_, live := m.Get("a")
	assert.False(t, live)

	reopened, err := m.Open(ctx, "a")
	require.NoError(t, err)
	assert.NotSame(t, a, reopened)
	assert.Equal(t, "alpha", reopened.State().StepData[StepAccount]["username"])

	sessions, err := m.Sessions(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b"}, sessions)
}

func TestManagerDiscardDeletesSnapshot(t *testing.T) {
	ctx := context.Background()
	store := NewInMemorySnapshotStore()
	m := NewManager(Options{Store: store})
	w, err := m.Open(ctx, "gone")
	require.NoError(t, err)
	require.NoError(t, w.UpdateStepData(ctx, StepAccount, map[string]any{"username": "x"}))

	require.NoError(t, m.Discard(ctx, "gone"))
	_, err = store.Get(ctx, StorageKeyFor("gone"))
	assert.ErrorIs(t, err, ErrSnapshotNotFound)

	sessions, err := m.Sessions(ctx)
	require.NoError(t, err)
	assert.Empty(t, sessions)
}

func TestInMemorySnapshotStoreCopies(t *testing.T) {
	ctx := context.Background()
	store := NewInMemorySnapshotStore()
	payload := []byte(`{"a":1}`)
	require.NoError(t, store.Put(ctx, "k", payload))
	payload[0] = 'x'

	got, err := store.Get(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, `{"a":1}`, string(got))

	keys, err := store.Keys(ctx, "")
	require.NoError(t, err)
	assert.Equal(t, []string{"k"}, keys)
	require.NoError(t, store.Delete(ctx, "k"))
	require.NoError(t, store.Delete(ctx, "k"))
}
