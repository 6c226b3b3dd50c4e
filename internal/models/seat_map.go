package models

import "time"

// SeatMap is the availability view of one trip
type SeatMap struct {
	Trip  SeatMapTrip  `json:"trip"`
	Seats []SeatStatus `json:"seats"`
}

// SeatMapTrip summarises the trip shown above the seat map
type SeatMapTrip struct {
	ID          int64   `json:"id"`
	Operator    string  `json:"operator"`
	Origin      string  `json:"origin"`
	Destination string  `json:"destination"`
	Departure   string  `json:"departure"` // YYYY-MM-DD HH:MM
	Price       float64 `json:"price"`
}

// SeatStatus is one seat with its occupancy for the trip's travel date
type SeatStatus struct {
	ID       int64     `json:"id"`
	Number   int       `json:"number"`
	Class    SeatClass `json:"class"`
	Occupied bool      `json:"occupied"`
}

// Occupancy is the set of seats held on one travel date. HoldsUntil is the
// earliest expiry among the pending holds in the set, nil when there are none.
type Occupancy struct {
	SeatIDs    []int64
	HoldsUntil *time.Time
}
