package models

import (
	"time"

	"github.com/google/uuid"
)

// ReservationState represents the lifecycle state of a reservation
type ReservationState string

const (
	ReservationStatePending   ReservationState = "pending"
	ReservationStateConfirmed ReservationState = "confirmed"
	ReservationStateCancelled ReservationState = "cancelled"
)

// Reservation is a user's claim on a seat for one travel date.
// Price is copied from the trip when the reservation is created and never changes.
type Reservation struct {
	ID             int64            `json:"id" db:"id"`
	UserID         uuid.UUID        `json:"user_id" db:"user_id"`
	SeatID         int64            `json:"seat_id" db:"seat_id"`
	TripID         int64            `json:"trip_id" db:"trip_id"`
	VehicleID      int64            `json:"vehicle_id" db:"vehicle_id"`
	TravelDate     time.Time        `json:"travel_date" db:"travel_date"`
	State          ReservationState `json:"state" db:"state"`
	Price          float64          `json:"price" db:"price"`
	PaymentOrderID *string          `json:"payment_order_id,omitempty" db:"payment_order_id"`
	ExpiresAt      *time.Time       `json:"expires_at,omitempty" db:"expires_at"`
	CreatedAt      time.Time        `json:"created_at" db:"created_at"`
	UpdatedAt      time.Time        `json:"updated_at" db:"updated_at"`
}

// IsOwnedBy reports whether the reservation belongs to the user
func (r *Reservation) IsOwnedBy(userID uuid.UUID) bool {
	return r.UserID == userID
}

// HoldExpired reports whether a pending hold has run out at now
func (r *Reservation) HoldExpired(now time.Time) bool {
	return r.State == ReservationStatePending && r.ExpiresAt != nil && !now.Before(*r.ExpiresAt)
}

// CanBeCancelledOn reports whether the travel date is strictly after today
func (r *Reservation) CanBeCancelledOn(today time.Time) bool {
	return DateOf(r.TravelDate).After(DateOf(today))
}

// NewReservation carries what the store needs to insert a reservation atomically
type NewReservation struct {
	UserID     uuid.UUID
	SeatID     int64
	TravelDate time.Time
	State      ReservationState
	HoldUntil  *time.Time
	Now        time.Time
}

// CreateReservationRequest is the body of POST /reservations
type CreateReservationRequest struct {
	SeatID     int64  `json:"seat_id" binding:"required" validate:"required,gt=0"`
	TravelDate string `json:"travel_date" binding:"required" validate:"required,datetime=2006-01-02"`
}

// CreateReservationResponse is returned after a successful create
type CreateReservationResponse struct {
	ReservationID int64            `json:"reservation_id"`
	Price         float64          `json:"price"`
	State         ReservationState `json:"state"`
	ExpiresAt     *time.Time       `json:"expires_at,omitempty"`
}

// ConfirmPaymentRequest is the body of POST /reservations/:id/confirm
type ConfirmPaymentRequest struct {
	OrderID string `json:"order_id"`
}

// ReservationDetails is one row of the "my trips" listing
type ReservationDetails struct {
	ID              int64            `json:"id" db:"id"`
	State           ReservationState `json:"state" db:"state"`
	TravelDate      time.Time        `json:"-" db:"travel_date"`
	TravelDateText  string           `json:"travel_date" db:"-"`
	Price           float64          `json:"price" db:"price"`
	PaymentOrderID  *string          `json:"payment_order_id,omitempty" db:"payment_order_id"`
	SeatNumber      int              `json:"seat_number" db:"seat_number"`
	SeatClass       SeatClass        `json:"seat_class" db:"seat_class"`
	VehicleNumber   string           `json:"vehicle_number" db:"vehicle_number"`
	RouteName       string           `json:"route_name" db:"route_name"`
	OperatorName    string           `json:"operator" db:"operator_name"`
	OriginName      string           `json:"origin" db:"origin_name"`
	DestinationName string           `json:"destination" db:"destination_name"`
	DepartureAt     *time.Time       `json:"departure_at,omitempty" db:"departure_at"`
	CreatedAt       time.Time        `json:"created_at" db:"created_at"`
}

// ReservationEventType names the events published on state changes
type ReservationEventType string

const (
	ReservationEventCreated   ReservationEventType = "reservation.created"
	ReservationEventConfirmed ReservationEventType = "reservation.confirmed"
	ReservationEventCancelled ReservationEventType = "reservation.cancelled"
	ReservationEventExpired   ReservationEventType = "reservation.expired"
)

// ReservationEvent is the payload published to the message broker
type ReservationEvent struct {
	Type           ReservationEventType `json:"type"`
	ReservationID  int64                `json:"reservation_id"`
	UserID         uuid.UUID            `json:"user_id"`
	SeatID         int64                `json:"seat_id"`
	TripID         int64                `json:"trip_id"`
	TravelDate     string               `json:"travel_date"`
	State          ReservationState     `json:"state"`
	Price          float64              `json:"price"`
	PaymentOrderID *string              `json:"payment_order_id,omitempty"`
	OccurredAt     time.Time            `json:"occurred_at"`
}

// NewReservationEvent builds an event snapshot of r
func NewReservationEvent(eventType ReservationEventType, r *Reservation, at time.Time) ReservationEvent {
	return ReservationEvent{
		Type:           eventType,
		ReservationID:  r.ID,
		UserID:         r.UserID,
		SeatID:         r.SeatID,
		TripID:         r.TripID,
		TravelDate:     r.TravelDate.Format(DateLayout),
		State:          r.State,
		Price:          r.Price,
		PaymentOrderID: r.PaymentOrderID,
		OccurredAt:     at,
	}
}
