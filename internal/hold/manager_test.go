package hold

import (
	"context"
	"io"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/swifttransit/booking-core/internal/cache"
)

func testLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return logger
}

func setupManager() (*Manager, *cache.MemoryStore, *time.Time) {
	store := cache.NewMemoryStore()
	now := time.Now()
	store.SetClock(func() time.Time { return now })
	return NewManager(store, testLogger(), 15*time.Minute), store, &now
}

func TestReserveAndListHeld(t *testing.T) {
	ctx := context.Background()
	m, _, _ := setupManager()

	m.Reserve(ctx, "route-1", "2026-09-01", []string{"12", "13"}, "booking-1")

	held := m.ListHeld(ctx, "route-1", "2026-09-01")
	assert.ElementsMatch(t, []string{"12", "13"}, held)

	// Other scopes are unaffected
	assert.Empty(t, m.ListHeld(ctx, "route-1", "2026-09-02"))
	assert.Empty(t, m.ListHeld(ctx, "route-2", "2026-09-01"))
}

func TestHeldBy(t *testing.T) {
	ctx := context.Background()
	m, _, _ := setupManager()

	m.Reserve(ctx, "route-1", "2026-09-01", []string{"12"}, "booking-1")

	bookingID, ok := m.HeldBy(ctx, "route-1", "2026-09-01", "12")
	require.True(t, ok)
	assert.Equal(t, "booking-1", bookingID)

	_, ok = m.HeldBy(ctx, "route-1", "2026-09-01", "99")
	assert.False(t, ok)
}

func TestReserveMergesIntoIndex(t *testing.T) {
	ctx := context.Background()
	m, _, _ := setupManager()

	m.Reserve(ctx, "route-1", "2026-09-01", []string{"12"}, "booking-1")
	m.Reserve(ctx, "route-1", "2026-09-01", []string{"13", "14"}, "booking-2")

	held := m.ListHeld(ctx, "route-1", "2026-09-01")
	assert.ElementsMatch(t, []string{"12", "13", "14"}, held)
}

func TestReleaseFreesSeats(t *testing.T) {
	ctx := context.Background()
	m, _, _ := setupManager()

	m.Reserve(ctx, "route-1", "2026-09-01", []string{"12", "13"}, "booking-1")
	m.Release(ctx, "route-1", "2026-09-01", []string{"12"})

	held := m.ListHeld(ctx, "route-1", "2026-09-01")
	assert.Equal(t, []string{"13"}, held)

	m.Release(ctx, "route-1", "2026-09-01", []string{"13"})
	assert.Empty(t, m.ListHeld(ctx, "route-1", "2026-09-01"))
}

func TestExpiredHoldsDropOut(t *testing.T) {
	ctx := context.Background()
	m, _, now := setupManager()

	m.Reserve(ctx, "route-1", "2026-09-01", []string{"12", "13"}, "booking-1")

	*now = now.Add(15 * time.Minute)

	// Expired seat keys are pruned from the listing even though they
	// were still in the index
	assert.Empty(t, m.ListHeld(ctx, "route-1", "2026-09-01"))
}

func TestMalformedIndexTreatedAsEmpty(t *testing.T) {
	ctx := context.Background()
	m, store, _ := setupManager()

	store.Set(ctx, "seat_hold_index:route-1:2026-09-01", "not json", time.Minute)
	assert.Empty(t, m.ListHeld(ctx, "route-1", "2026-09-01"))
}
