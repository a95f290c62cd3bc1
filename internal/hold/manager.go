package hold

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/swifttransit/booking-core/internal/cache"
)

const (
	seatKeyPrefix  = "seat_hold"
	indexKeyPrefix = "seat_hold_index"
)

// Hold is the value stored against a held seat
type Hold struct {
	BookingID  string    `json:"booking_id"`
	ReservedAt time.Time `json:"reserved_at"`
}

// Manager places, enumerates and releases temporary per-seat
// reservations in the cache store. A hold shields a seat between "user
// started checkout" and "booking durably recorded"; it expires on its
// own via the store's TTL and is never the source of truth for
// availability.
//
// The store contract has no key scanning, so the manager keeps a
// per-scope index key listing held seats alongside the per-seat keys.
// Index mutations only happen under the scope's distributed lock, which
// serializes the read-modify-write. ListHeld validates every index
// entry against its seat key, so seats whose holds expired silently
// drop out.
type Manager struct {
	store  cache.Store
	logger *logrus.Logger
	ttl    time.Duration
}

// NewManager creates a seat hold manager with the given hold TTL
func NewManager(store cache.Store, logger *logrus.Logger, ttl time.Duration) *Manager {
	return &Manager{store: store, logger: logger, ttl: ttl}
}

// TTL returns the configured hold lifetime
func (m *Manager) TTL() time.Duration {
	return m.ttl
}

func seatKey(routeID, journeyDate, seat string) string {
	return fmt.Sprintf("%s:%s:%s:%s", seatKeyPrefix, routeID, journeyDate, seat)
}

func indexKey(routeID, journeyDate string) string {
	return fmt.Sprintf("%s:%s:%s", indexKeyPrefix, routeID, journeyDate)
}

// Reserve writes one hold entry per seat, tagged with the booking id.
// Partial failures are logged and left in place; the availability check
// reconciles against persisted bookings, so an orphaned hold only
// over-reserves until its TTL lapses.
func (m *Manager) Reserve(ctx context.Context, routeID, journeyDate string, seats []string, bookingID string) {
	now := time.Now()
	payload, err := json.Marshal(Hold{BookingID: bookingID, ReservedAt: now})
	if err != nil {
		m.logger.WithError(err).Error("failed to encode seat hold")
		return
	}

	var failed []string
	for _, seat := range seats {
		if !m.store.Set(ctx, seatKey(routeID, journeyDate, seat), string(payload), m.ttl) {
			failed = append(failed, seat)
		}
	}
	if len(failed) > 0 {
		m.logger.WithFields(logrus.Fields{
			"route_id":     routeID,
			"journey_date": journeyDate,
			"seats":        failed,
			"booking_id":   bookingID,
		}).Warn("some seat holds could not be written")
	}

	m.addToIndex(ctx, routeID, journeyDate, seats)
}

// ListHeld returns the seats with an active hold in the scope
func (m *Manager) ListHeld(ctx context.Context, routeID, journeyDate string) []string {
	indexed := m.readIndex(ctx, routeID, journeyDate)
	if len(indexed) == 0 {
		return nil
	}

	var live []string
	for _, seat := range indexed {
		if m.store.Exists(ctx, seatKey(routeID, journeyDate, seat)) {
			live = append(live, seat)
		}
	}

	// Prune index entries whose holds expired
	if len(live) != len(indexed) {
		m.writeIndex(ctx, routeID, journeyDate, live)
	}

	return live
}

// HeldBy returns the booking id holding the given seat, if any
func (m *Manager) HeldBy(ctx context.Context, routeID, journeyDate, seat string) (string, bool) {
	raw, ok := m.store.Get(ctx, seatKey(routeID, journeyDate, seat))
	if !ok {
		return "", false
	}
	var h Hold
	if err := json.Unmarshal([]byte(raw), &h); err != nil {
		m.logger.WithError(err).WithField("seat", seat).Warn("malformed seat hold entry")
		return "", false
	}
	return h.BookingID, true
}

// Release removes the holds for the given seats before their TTL
func (m *Manager) Release(ctx context.Context, routeID, journeyDate string, seats []string) {
	for _, seat := range seats {
		m.store.Delete(ctx, seatKey(routeID, journeyDate, seat))
	}
	m.removeFromIndex(ctx, routeID, journeyDate, seats)
}

func (m *Manager) readIndex(ctx context.Context, routeID, journeyDate string) []string {
	raw, ok := m.store.Get(ctx, indexKey(routeID, journeyDate))
	if !ok {
		return nil
	}
	var seats []string
	if err := json.Unmarshal([]byte(raw), &seats); err != nil {
		m.logger.WithError(err).WithFields(logrus.Fields{
			"route_id":     routeID,
			"journey_date": journeyDate,
		}).Warn("malformed seat hold index; treating as empty")
		return nil
	}
	return seats
}

func (m *Manager) writeIndex(ctx context.Context, routeID, journeyDate string, seats []string) {
	key := indexKey(routeID, journeyDate)
	if len(seats) == 0 {
		m.store.Delete(ctx, key)
		return
	}
	payload, err := json.Marshal(seats)
	if err != nil {
		m.logger.WithError(err).Error("failed to encode seat hold index")
		return
	}
	m.store.Set(ctx, key, string(payload), m.ttl)
}

func (m *Manager) addToIndex(ctx context.Context, routeID, journeyDate string, seats []string) {
	existing := m.readIndex(ctx, routeID, journeyDate)
	seen := make(map[string]bool, len(existing))
	for _, seat := range existing {
		seen[seat] = true
	}
	merged := existing
	for _, seat := range seats {
		if !seen[seat] {
			seen[seat] = true
			merged = append(merged, seat)
		}
	}
	m.writeIndex(ctx, routeID, journeyDate, merged)
}

func (m *Manager) removeFromIndex(ctx context.Context, routeID, journeyDate string, seats []string) {
	existing := m.readIndex(ctx, routeID, journeyDate)
	if len(existing) == 0 {
		return
	}
	drop := make(map[string]bool, len(seats))
	for _, seat := range seats {
		drop[seat] = true
	}
	var remaining []string
	for _, seat := range existing {
		if !drop[seat] {
			remaining = append(remaining, seat)
		}
	}
	m.writeIndex(ctx, routeID, journeyDate, remaining)
}
