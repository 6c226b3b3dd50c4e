package services

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/smarttransit/seat-reservation-backend/internal/models"
)

// Clock supplies the current instant. Calendar dates are derived from it in the
// configured timezone.
type Clock interface {
	Now() time.Time
}

// SystemClock reads the wall clock
type SystemClock struct{}

// Now returns time.Now()
func (SystemClock) Now() time.Time { return time.Now() }

// TripStore reads scheduled departures
type TripStore interface {
	GetTripDetails(ctx context.Context, id int64) (*models.TripDetails, error)
	FindScheduled(ctx context.Context, originID, destinationID int64, date time.Time) ([]models.TripSearchResult, error)
}

// SeatStore reads vehicle seat layouts
type SeatStore interface {
	GetSeat(ctx context.Context, id int64) (*models.Seat, error)
	ListSeatsByVehicle(ctx context.Context, vehicleID int64) ([]models.Seat, error)
	CountSeats(ctx context.Context, vehicleID int64) (int, error)
}

// CatalogStore reads cities and routes
type CatalogStore interface {
	SearchCities(ctx context.Context, term string, limit int) ([]models.CitySearchResult, error)
	FindRouteVehicles(ctx context.Context, originID, destinationID int64) ([]models.RouteSearchResult, error)
}

// ReservationStore persists reservations. CreateAtomic must perform the
// availability check and the insert as one unit.
type ReservationStore interface {
	CreateAtomic(ctx context.Context, in models.NewReservation) (*models.Reservation, error)
	GetByID(ctx context.Context, id int64) (*models.Reservation, error)
	ActiveSeats(ctx context.Context, vehicleID int64, travelDate, now time.Time) (models.Occupancy, error)
	Confirm(ctx context.Context, id int64, userID uuid.UUID, orderID string, now time.Time) (bool, error)
	DeleteBeforeTravel(ctx context.Context, id int64, userID uuid.UUID, today time.Time) (bool, error)
	ListConfirmedByUser(ctx context.Context, userID uuid.UUID) ([]models.ReservationDetails, error)
	ExpireHolds(ctx context.Context, now time.Time, limit int) ([]models.Reservation, error)
	ConfirmAllPending(ctx context.Context, now time.Time) (int64, error)
}

// ReservationNotifier is told about confirmed reservations. Implementations
// must not block the caller.
type ReservationNotifier interface {
	ReservationConfirmed(ctx context.Context, res *models.Reservation)
}

// UserStore persists users
type UserStore interface {
	CreateUser(email, firstName, lastName string) (*models.User, error)
	GetUserByEmail(email string) (*models.User, error)
	GetUserByID(id uuid.UUID) (*models.User, error)
	UpdateUserNames(id uuid.UUID, firstName, lastName string) error
	MarkEmailVerified(id uuid.UUID) error
	DeleteUnverifiedBefore(cutoff time.Time) (int64, error)
}

// VerificationSessionStore persists email verification sessions
type VerificationSessionStore interface {
	Create(s *models.VerificationSession) error
	GetByID(id uuid.UUID) (*models.VerificationSession, error)
	IncrementAttempts(id uuid.UUID) (int, error)
	MarkVerified(id uuid.UUID, at time.Time) (bool, error)
	DeleteExpired(cutoff time.Time) (int64, error)
}

// CodeRateLimiter throttles verification code requests
type CodeRateLimiter interface {
	CheckCodeRateLimit(email, ip string) error
	RecordCodeRequest(email, ip string) error
	CleanupExpiredRateLimits() (int64, error)
}

// todayIn returns the calendar date of now in loc
func todayIn(now time.Time, loc *time.Location) time.Time {
	if loc == nil {
		loc = time.UTC
	}
	return models.DateOf(now.In(loc))
}
