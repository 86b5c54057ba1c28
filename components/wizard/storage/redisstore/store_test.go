package redisstore

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/goliatone/go-wizard/components/wizard"
	backend "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newStore(t *testing.T, opts ...Option) (*Store, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := backend.NewClient(&backend.Options{Addr: mr.Addr()})
	store := NewFromClient(client, opts...)
	t.Cleanup(func() { _ = store.Close() })
	return store, mr
}

func TestStoreRoundTrip(t *testing.T) {
	ctx := context.Background()
	store, mr := newStore(t, WithPrefix("test:"))

	_, err := store.Get(ctx, "missing")
	assert.ErrorIs(t, err, wizard.ErrSnapshotNotFound)

	require.NoError(t, store.Put(ctx, "multi-step-form-storage:a", []byte(`{"currentStep":2}`)))
	got, err := store.Get(ctx, "multi-step-form-storage:a")
	require.NoError(t, err)
	assert.Equal(t, `{"currentStep":2}`, string(got))
	assert.True(t, mr.Exists("test:multi-step-form-storage:a"))

	keys, err := store.Keys(ctx, "multi-step-form-storage:")
	require.NoError(t, err)
	assert.Equal(t, []string{"multi-step-form-storage:a"}, keys)

	require.NoError(t, store.Delete(ctx, "multi-step-form-storage:a"))
	_, err = store.Get(ctx, "multi-step-form-storage:a")
	assert.ErrorIs(t, err, wizard.ErrSnapshotNotFound)
	keys, err = store.Keys(ctx, "")
	require.NoError(t, err)
	assert.Empty(t, keys)
}

func TestStoreTTL(t *testing.T) {
	ctx := context.Background()
	store, mr := newStore(t, WithTTL(time.Minute))
	require.NoError(t, store.Put(ctx, "k", []byte(`{}`)))
	assert.Equal(t, time.Minute, mr.TTL("wizard:k"))

	mr.FastForward(2 * time.Minute)
	_, err := store.Get(ctx, "k")
	assert.ErrorIs(t, err, wizard.ErrSnapshotNotFound)
}

func TestStoreBacksManager(t *testing.T) {
	ctx := context.Background()
	store, _ := newStore(t)
	m := wizard.NewManager(wizard.Options{Store: store})
	w, err := m.Open(ctx, "r-1")
	require.NoError(t, err)
	require.NoError(t, w.UpdateStepData(ctx, wizard.StepAccount, map[string]any{"username": "redis"}))
	m.Close("r-1")

	sessions, err := m.Sessions(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"r-1"}, sessions)

	reopened, err := m.Open(ctx, "r-1")
	require.NoError(t, err)
	assert.Equal(t, "redis", reopened.State().StepData[wizard.StepAccount]["username"])
}
