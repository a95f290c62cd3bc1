package models

import "time"

// Route represents a scheduled bus route that can be booked
type Route struct {
	ID            string    `json:"id" db:"id"`
	RouteNumber   string    `json:"route_number" db:"route_number"`
	Origin        string    `json:"origin" db:"origin"`
	Destination   string    `json:"destination" db:"destination"`
	DepartureTime string    `json:"departure_time" db:"departure_time"` // HH:MM
	SeatCapacity  int       `json:"seat_capacity" db:"seat_capacity"`
	BaseFare      float64   `json:"base_fare" db:"base_fare"`
	IsActive      bool      `json:"is_active" db:"is_active"`
	CreatedAt     time.Time `json:"created_at" db:"created_at"`
	UpdatedAt     time.Time `json:"updated_at" db:"updated_at"`
}
