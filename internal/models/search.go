package models

import "time"

// TripSearchRequest is bound from the query string of the search endpoints
type TripSearchRequest struct {
	OriginID      int64  `form:"origin_id" validate:"required,gt=0"`
	DestinationID int64  `form:"destination_id" validate:"required,gt=0"`
	Date          string `form:"date" validate:"required,datetime=2006-01-02"`
}

// TripSearchResult is one bookable trip in the search results
type TripSearchResult struct {
	TripID          int64     `json:"trip_id" db:"trip_id"`
	VehicleID       int64     `json:"vehicle_id" db:"vehicle_id"`
	Operator        string    `json:"operator" db:"operator_name"`
	Origin          string    `json:"origin" db:"origin_name"`
	Destination     string    `json:"destination" db:"destination_name"`
	DepartureAt     time.Time `json:"-" db:"departure_at"`
	DepartureTime   string    `json:"departure_time" db:"-"` // HH:MM
	DurationMinutes int       `json:"duration_minutes" db:"duration_minutes"`
	Duration        string    `json:"duration" db:"-"`
	Price           float64   `json:"price" db:"price"`
	TotalSeats      int       `json:"-" db:"total_seats"`
	SeatsAvailable  int       `json:"seats_available" db:"seats_available"`
}

// TripSearchResponse wraps the trip list
type TripSearchResponse struct {
	Trips []TripSearchResult `json:"trips"`
}

// RouteSearchResult is one vehicle of a matching route, sorted by price
type RouteSearchResult struct {
	RouteID         int64   `json:"route_id" db:"route_id"`
	Operator        string  `json:"operator" db:"operator_name"`
	Origin          string  `json:"origin" db:"origin_name"`
	Destination     string  `json:"destination" db:"destination_name"`
	DurationMinutes int     `json:"duration_minutes" db:"duration_minutes"`
	Duration        string  `json:"duration" db:"-"`
	BasePrice       float64 `json:"base_price" db:"base_price"`
	VehicleID       int64   `json:"vehicle_id" db:"vehicle_id"`
	VehicleNumber   string  `json:"vehicle_number" db:"vehicle_number"`
	SeatsAvailable  int     `json:"seats_available" db:"seats_available"`
}

// RouteSearchResponse wraps the route list
type RouteSearchResponse struct {
	Routes []RouteSearchResult `json:"routes"`
}
