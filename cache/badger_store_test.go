package cache

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) *BadgerStore {
	t.Helper()
	store, err := OpenInMemory()
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func TestSetGetDelete(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)

	_, _, err := store.Get(ctx, "missing")
	assert.ErrorIs(t, err, ErrNotFound)

	require.NoError(t, store.Set(ctx, "k", []byte("v"), time.Minute))
	value, expiresAt, err := store.Get(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, []byte("v"), value)
	assert.WithinDuration(t, time.Now().Add(time.Minute), expiresAt, 2*time.Second)

	deleted, err := store.Delete(ctx, "k")
	require.NoError(t, err)
	assert.True(t, deleted)

	deleted, err = store.Delete(ctx, "k")
	require.NoError(t, err)
	assert.False(t, deleted)
}

func TestAddOnlyWhenAbsent(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)

	added, err := store.Add(ctx, "lease", []byte("alice"), time.Minute)
	require.NoError(t, err)
	assert.True(t, added)

	added, err = store.Add(ctx, "lease", []byte("bob"), time.Minute)
	require.NoError(t, err)
	assert.False(t, added)

	value, _, err := store.Get(ctx, "lease")
	require.NoError(t, err)
	assert.Equal(t, []byte("alice"), value)
}

func TestEntriesExpire(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)

	added, err := store.Add(ctx, "short", []byte("alice"), time.Second)
	require.NoError(t, err)
	require.True(t, added)

	time.Sleep(2 * time.Second)

	_, _, err = store.Get(ctx, "short")
	assert.ErrorIs(t, err, ErrNotFound)

	added, err = store.Add(ctx, "short", []byte("bob"), time.Second)
	require.NoError(t, err)
	assert.True(t, added)
}

func TestCompareAndDelete(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)

	require.NoError(t, store.Set(ctx, "k", []byte("alice"), time.Minute))

	deleted, err := store.CompareAndDelete(ctx, "k", []byte("bob"))
	require.NoError(t, err)
	assert.False(t, deleted)

	deleted, err = store.CompareAndDelete(ctx, "k", []byte("alice"))
	require.NoError(t, err)
	assert.True(t, deleted)

	_, _, err = store.Get(ctx, "k")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestConcurrentAddHasSingleWinner(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)

	var (
		wg      sync.WaitGroup
		winners atomic.Int32
	)
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			added, err := store.Add(ctx, "contended", []byte{byte(i)}, time.Minute)
			assert.NoError(t, err)
			if added {
				winners.Add(1)
			}
		}(i)
	}
	wg.Wait()
	assert.Equal(t, int32(1), winners.Load())
}
