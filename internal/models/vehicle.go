package models

// SeatClass is the comfort class of a seat
type SeatClass string

const (
	SeatClassNormal  SeatClass = "normal"
	SeatClassPremium SeatClass = "premium"
)

// IsValid reports whether the class is known
func (c SeatClass) IsValid() bool {
	return c == SeatClassNormal || c == SeatClassPremium
}

// Vehicle (bus) is assigned to a route; its number is unique within the route
type Vehicle struct {
	ID       int64  `json:"id" db:"id"`
	RouteID  int64  `json:"route_id" db:"route_id"`
	Number   string `json:"number" db:"number"`
	Capacity int    `json:"capacity" db:"capacity"`
	IsActive bool   `json:"is_active" db:"is_active"`
}

// Seat belongs to a vehicle, not to a trip. Whether it is free depends on
// the reservations held for a given travel date.
type Seat struct {
	ID        int64     `json:"id" db:"id"`
	VehicleID int64     `json:"vehicle_id" db:"vehicle_id"`
	Number    int       `json:"number" db:"number"`
	Class     SeatClass `json:"class" db:"class"`
}
