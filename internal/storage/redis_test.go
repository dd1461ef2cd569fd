package storage

import (
	"context"
	"fmt"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newRedisTestStore(t *testing.T) *RedisStore {
	t.Helper()
	addr := os.Getenv("REDIS_TEST_ADDR")
	if addr == "" {
		t.Skip("REDIS_TEST_ADDR not set, skipping Redis tests")
	}
	store, err := NewRedisStore(Config{RedisAddr: addr})
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

// testKey returns a key unique to the test run so repeated runs against
// the same Redis instance do not interfere.
func testKey(t *testing.T, name string) string {
	return fmt.Sprintf("test:%s:%s:%d", t.Name(), name, time.Now().UnixNano())
}

func TestRedisStore_RequiresAddr(t *testing.T) {
	_, err := NewRedisStore(Config{})
	assert.Error(t, err)
}

func TestRedisStore_Increment(t *testing.T) {
	store := newRedisTestStore(t)
	key := testKey(t, "client-1")

	first, err := store.Increment(context.Background(), key, time.Minute)
	require.NoError(t, err)
	assert.Equal(t, int64(1), first.Count)

	second, err := store.Increment(context.Background(), key, time.Minute)
	require.NoError(t, err)
	assert.Equal(t, int64(2), second.Count)
	assert.WithinDuration(t, first.ResetTime, second.ResetTime, 100*time.Millisecond,
		"reset time must not extend on activity")
}

func TestRedisStore_WindowReset(t *testing.T) {
	store := newRedisTestStore(t)
	key := testKey(t, "client-1")

	for i := 0; i < 3; i++ {
		_, err := store.Increment(context.Background(), key, 100*time.Millisecond)
		require.NoError(t, err)
	}

	time.Sleep(150 * time.Millisecond)

	c, err := store.Increment(context.Background(), key, 100*time.Millisecond)
	require.NoError(t, err)
	assert.Equal(t, int64(1), c.Count)
}

func TestRedisStore_Get(t *testing.T) {
	store := newRedisTestStore(t)
	key := testKey(t, "client-1")

	_, found, err := store.Get(context.Background(), key)
	require.NoError(t, err)
	assert.False(t, found)

	want, err := store.Increment(context.Background(), key, time.Minute)
	require.NoError(t, err)

	got, found, err := store.Get(context.Background(), key)
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, want.Count, got.Count)
	assert.WithinDuration(t, want.ResetTime, got.ResetTime, 100*time.Millisecond)
}

func TestRedisStore_Decrement(t *testing.T) {
	store := newRedisTestStore(t)
	key := testKey(t, "client-1")

	require.NoError(t, store.Decrement(context.Background(), key))

	_, err := store.Increment(context.Background(), key, time.Minute)
	require.NoError(t, err)

	require.NoError(t, store.Decrement(context.Background(), key))
	require.NoError(t, store.Decrement(context.Background(), key))

	c, found, err := store.Get(context.Background(), key)
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, int64(0), c.Count)
}

func TestRedisStore_ConcurrentIncrement(t *testing.T) {
	store := newRedisTestStore(t)
	key := testKey(t, "shared")

	const goroutines = 30
	var wg sync.WaitGroup
	counts := make(chan int64, goroutines)

	for i := 0; i < goroutines; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			c, err := store.Increment(context.Background(), key, time.Minute)
			if err == nil {
				counts <- c.Count
			}
		}()
	}
	wg.Wait()
	close(counts)

	seen := make(map[int64]bool)
	for c := range counts {
		assert.False(t, seen[c], "count %d assigned twice", c)
		seen[c] = true
	}
	assert.Len(t, seen, goroutines)
}
