package cache

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeClock lets tests move time forward without sleeping
type fakeClock struct {
	now time.Time
}

func (c *fakeClock) Now() time.Time { return c.now }

func (c *fakeClock) Advance(d time.Duration) { c.now = c.now.Add(d) }

func newStoreWithClock() (*MemoryStore, *fakeClock) {
	store := NewMemoryStore()
	clock := &fakeClock{now: time.Now()}
	store.SetClock(clock.Now)
	return store, clock
}

func TestMemoryStoreSetGet(t *testing.T) {
	ctx := context.Background()
	store, clock := newStoreWithClock()

	require.True(t, store.Set(ctx, "k", "v", time.Minute))

	val, ok := store.Get(ctx, "k")
	require.True(t, ok)
	assert.Equal(t, "v", val)
	assert.True(t, store.Exists(ctx, "k"))

	// Value expires at its TTL
	clock.Advance(time.Minute)
	_, ok = store.Get(ctx, "k")
	assert.False(t, ok)
	assert.False(t, store.Exists(ctx, "k"))
}

func TestMemoryStoreZeroTTLNeverExpires(t *testing.T) {
	ctx := context.Background()
	store, clock := newStoreWithClock()

	store.Set(ctx, "k", "v", 0)
	clock.Advance(240 * time.Hour)

	_, ok := store.Get(ctx, "k")
	assert.True(t, ok)
}

func TestMemoryStoreSetNX(t *testing.T) {
	ctx := context.Background()
	store, clock := newStoreWithClock()

	assert.True(t, store.SetNX(ctx, "k", "first", time.Minute))
	assert.False(t, store.SetNX(ctx, "k", "second", time.Minute))

	val, _ := store.Get(ctx, "k")
	assert.Equal(t, "first", val)

	// After expiry the key can be taken again
	clock.Advance(time.Minute)
	assert.True(t, store.SetNX(ctx, "k", "second", time.Minute))
}

func TestMemoryStoreDelete(t *testing.T) {
	ctx := context.Background()
	store, _ := newStoreWithClock()

	store.Set(ctx, "k", "v", time.Minute)
	assert.True(t, store.Delete(ctx, "k"))
	assert.False(t, store.Delete(ctx, "k"))
}

func TestMemoryStoreIncrement(t *testing.T) {
	ctx := context.Background()
	store, clock := newStoreWithClock()

	n, ok := store.Increment(ctx, "counter", time.Minute)
	require.True(t, ok)
	assert.Equal(t, int64(1), n)

	n, ok = store.Increment(ctx, "counter", time.Minute)
	require.True(t, ok)
	assert.Equal(t, int64(2), n)

	// TTL set on creation carries through increments
	clock.Advance(time.Minute)
	n, ok = store.Increment(ctx, "counter", time.Minute)
	require.True(t, ok)
	assert.Equal(t, int64(1), n)
}

func TestMemoryStoreCompareAndDelete(t *testing.T) {
	ctx := context.Background()
	store, _ := newStoreWithClock()

	store.Set(ctx, "k", "token-a", time.Minute)

	assert.False(t, store.CompareAndDelete(ctx, "k", "token-b"))
	assert.True(t, store.Exists(ctx, "k"))

	assert.True(t, store.CompareAndDelete(ctx, "k", "token-a"))
	assert.False(t, store.Exists(ctx, "k"))
}
