package models

import "time"

// TripState represents the lifecycle state of a trip
type TripState string

const (
	TripStateScheduled TripState = "scheduled"
	TripStateEnRoute   TripState = "en_route"
	TripStateCompleted TripState = "completed"
	TripStateCancelled TripState = "cancelled"
)

// Trip is one scheduled departure of a vehicle.
// DepartureAt holds the local wall-clock time of the departure.
type Trip struct {
	ID          int64     `json:"id" db:"id"`
	VehicleID   int64     `json:"vehicle_id" db:"vehicle_id"`
	DepartureAt time.Time `json:"departure_at" db:"departure_at"`
	Price       float64   `json:"price" db:"price"`
	State       TripState `json:"state" db:"state"`
}

// TravelDate returns the calendar date of the departure
func (t *Trip) TravelDate() time.Time {
	return DateOf(t.DepartureAt)
}

// IsBookable reports whether seats on this trip may be reserved
func (t *Trip) IsBookable() bool {
	return t.State == TripStateScheduled
}

// TripDetails is a trip joined with its route and endpoint cities
type TripDetails struct {
	Trip
	RouteID         int64  `json:"route_id" db:"route_id"`
	OperatorName    string `json:"operator_name" db:"operator_name"`
	OriginName      string `json:"origin" db:"origin_name"`
	DestinationName string `json:"destination" db:"destination_name"`
	DurationMinutes int    `json:"duration_minutes" db:"duration_minutes"`
}
