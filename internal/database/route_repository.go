package database

import (
	"database/sql"
	"errors"
	"fmt"

	"github.com/swifttransit/booking-core/internal/models"
)

// ErrRouteNotFound is returned when a route does not exist
var ErrRouteNotFound = errors.New("route not found")

// RouteRepository handles database operations for the routes table
type RouteRepository struct {
	db DB
}

// NewRouteRepository creates a new RouteRepository
func NewRouteRepository(db DB) *RouteRepository {
	return &RouteRepository{db: db}
}

// GetByID retrieves a route by ID
func (r *RouteRepository) GetByID(routeID string) (*models.Route, error) {
	query := `
		SELECT id, route_number, origin, destination, departure_time,
		       seat_capacity, base_fare, is_active, created_at, updated_at
		FROM routes
		WHERE id = $1
	`

	var route models.Route
	err := r.db.Get(&route, query, routeID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrRouteNotFound
		}
		return nil, fmt.Errorf("failed to get route: %w", err)
	}

	return &route, nil
}

// GetActiveByID retrieves a route by ID only if it is active
func (r *RouteRepository) GetActiveByID(routeID string) (*models.Route, error) {
	route, err := r.GetByID(routeID)
	if err != nil {
		return nil, err
	}
	if !route.IsActive {
		return nil, fmt.Errorf("route %s is not active", routeID)
	}
	return route, nil
}
