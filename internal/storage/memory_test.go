package storage

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryStore_Increment_NewWindow(t *testing.T) {
	store := NewMemoryStore(time.Minute)
	defer store.Close()

	before := time.Now()
	c, err := store.Increment(context.Background(), "client-1", time.Second)
	require.NoError(t, err)

	assert.Equal(t, int64(1), c.Count)
	assert.False(t, c.ResetTime.Before(before.Add(time.Second)))
}

func TestMemoryStore_Increment_FixedWindow(t *testing.T) {
	store := NewMemoryStore(time.Minute)
	defer store.Close()

	first, err := store.Increment(context.Background(), "client-1", time.Minute)
	require.NoError(t, err)

	// Subsequent increments advance the count but never move the window.
	for i := int64(2); i <= 5; i++ {
		c, err := store.Increment(context.Background(), "client-1", time.Minute)
		require.NoError(t, err)
		assert.Equal(t, i, c.Count)
		assert.Equal(t, first.ResetTime, c.ResetTime, "reset time must not extend on activity")
	}
}

func TestMemoryStore_Increment_WindowReset(t *testing.T) {
	store := NewMemoryStore(time.Minute)
	defer store.Close()

	for i := 0; i < 4; i++ {
		_, err := store.Increment(context.Background(), "client-1", 30*time.Millisecond)
		require.NoError(t, err)
	}

	time.Sleep(50 * time.Millisecond)

	c, err := store.Increment(context.Background(), "client-1", 30*time.Millisecond)
	require.NoError(t, err)
	assert.Equal(t, int64(1), c.Count, "a new window starts at 1, the triggering request counts")
}

func TestMemoryStore_Get(t *testing.T) {
	store := NewMemoryStore(time.Minute)
	defer store.Close()

	_, found, err := store.Get(context.Background(), "missing")
	require.NoError(t, err)
	assert.False(t, found)

	want, err := store.Increment(context.Background(), "client-1", time.Minute)
	require.NoError(t, err)

	got, found, err := store.Get(context.Background(), "client-1")
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, want, got)
}

func TestMemoryStore_Get_ExpiredIsAbsent(t *testing.T) {
	store := NewMemoryStore(time.Minute)
	defer store.Close()

	_, err := store.Increment(context.Background(), "client-1", 20*time.Millisecond)
	require.NoError(t, err)

	time.Sleep(40 * time.Millisecond)

	// Still physically present (sweep has not run) but logically gone.
	assert.Equal(t, 1, store.Len())
	_, found, err := store.Get(context.Background(), "client-1")
	require.NoError(t, err)
	assert.False(t, found)
}

func TestMemoryStore_Decrement(t *testing.T) {
	store := NewMemoryStore(time.Minute)
	defer store.Close()

	_, err := store.Increment(context.Background(), "client-1", time.Minute)
	require.NoError(t, err)
	_, err = store.Increment(context.Background(), "client-1", time.Minute)
	require.NoError(t, err)

	require.NoError(t, store.Decrement(context.Background(), "client-1"))

	c, found, err := store.Get(context.Background(), "client-1")
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, int64(1), c.Count)
}

func TestMemoryStore_Decrement_FloorsAtZero(t *testing.T) {
	store := NewMemoryStore(time.Minute)
	defer store.Close()

	// Absent key is a no-op.
	require.NoError(t, store.Decrement(context.Background(), "missing"))

	_, err := store.Increment(context.Background(), "client-1", time.Minute)
	require.NoError(t, err)

	require.NoError(t, store.Decrement(context.Background(), "client-1"))
	require.NoError(t, store.Decrement(context.Background(), "client-1"))

	c, found, err := store.Get(context.Background(), "client-1")
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, int64(0), c.Count)
}

func TestMemoryStore_KeyIsolation(t *testing.T) {
	store := NewMemoryStore(time.Minute)
	defer store.Close()

	for i := 0; i < 10; i++ {
		_, err := store.Increment(context.Background(), "client-1", time.Minute)
		require.NoError(t, err)
	}

	c, err := store.Increment(context.Background(), "client-2", time.Minute)
	require.NoError(t, err)
	assert.Equal(t, int64(1), c.Count)
}

func TestMemoryStore_ConcurrentIncrement(t *testing.T) {
	store := NewMemoryStore(time.Minute)
	defer store.Close()

	const goroutines = 50
	var wg sync.WaitGroup
	counts := make(chan int64, goroutines)

	for i := 0; i < goroutines; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			c, err := store.Increment(context.Background(), "shared", time.Minute)
			if err == nil {
				counts <- c.Count
			}
		}()
	}
	wg.Wait()
	close(counts)

	// Every increment must observe a distinct count: no lost updates.
	seen := make(map[int64]bool)
	for c := range counts {
		assert.False(t, seen[c], "count %d assigned twice", c)
		seen[c] = true
	}
	assert.Len(t, seen, goroutines)

	final, found, err := store.Get(context.Background(), "shared")
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, int64(goroutines), final.Count)
}

func TestMemoryStore_Sweep(t *testing.T) {
	store := NewMemoryStore(30 * time.Millisecond)
	defer store.Close()

	_, err := store.Increment(context.Background(), "ephemeral", 10*time.Millisecond)
	require.NoError(t, err)
	require.Equal(t, 1, store.Len())

	time.Sleep(100 * time.Millisecond)

	assert.Equal(t, 0, store.Len(), "expired counter should be swept")
}

func TestMemoryStore_Close(t *testing.T) {
	store := NewMemoryStore(time.Minute)
	require.NoError(t, store.Close())
	// Double close must not panic.
	require.NoError(t, store.Close())

	_, err := store.Increment(context.Background(), "client-1", time.Minute)
	assert.ErrorIs(t, err, ErrClosed)

	_, _, err = store.Get(context.Background(), "client-1")
	assert.ErrorIs(t, err, ErrClosed)
}
