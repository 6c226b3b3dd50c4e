package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/smarttransit/seat-reservation-backend/internal/domain"
	"github.com/smarttransit/seat-reservation-backend/internal/models"
)

// ReservationRepository handles reservation database operations
type ReservationRepository struct {
	db *sqlx.DB
}

// NewReservationRepository creates a new ReservationRepository
func NewReservationRepository(db *sqlx.DB) *ReservationRepository {
	return &ReservationRepository{db: db}
}

// reservationColumns selects a reservation joined with its seat's vehicle
const reservationColumns = `
	r.id, r.user_id, r.seat_id, r.trip_id, s.vehicle_id, r.travel_date, r.state,
	r.price, r.payment_order_id, r.expires_at, r.created_at, r.updated_at`

// activeReservationPredicate matches reservations that occupy a seat at $now
const activeReservationPredicate = `(r.state = 'confirmed' OR (r.state = 'pending' AND (r.expires_at IS NULL OR r.expires_at > %s)))`

// CreateAtomic checks availability and inserts the reservation as one unit.
//
// The seat and trip are resolved inside the transaction, stale holds on the same
// seat and date are released, and the insert relies on the partial unique index
// over active reservations so that concurrent callers cannot both succeed.
func (r *ReservationRepository) CreateAtomic(ctx context.Context, in models.NewReservation) (*models.Reservation, error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	// 1. Seat
	var seat models.Seat
	err = tx.GetContext(ctx, &seat, `SELECT id, vehicle_id, number, class FROM seats WHERE id = $1`, in.SeatID)
	if err == sql.ErrNoRows {
		return nil, domain.NewNotFoundError("seat", in.SeatID)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load seat: %w", err)
	}

	// 2. Scheduled trip of the seat's vehicle on the travel date
	var trip models.Trip
	err = tx.GetContext(ctx, &trip, `
		SELECT id, vehicle_id, departure_at, price, state
		FROM trips
		WHERE vehicle_id = $1
		  AND departure_at::date = $2::date
		  AND state = 'scheduled'
		ORDER BY departure_at ASC
		LIMIT 1`, seat.VehicleID, in.TravelDate)
	if err == sql.ErrNoRows {
		return nil, domain.NotFoundError{Resource: "trip"}
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load trip: %w", err)
	}

	// 3. Release an expired hold on the same seat and date
	_, err = tx.ExecContext(ctx, `
		UPDATE reservations
		SET state = 'cancelled', updated_at = $3
		WHERE seat_id = $1
		  AND travel_date = $2::date
		  AND state = 'pending'
		  AND expires_at IS NOT NULL
		  AND expires_at <= $3`, in.SeatID, in.TravelDate, in.Now)
	if err != nil {
		return nil, fmt.Errorf("failed to release expired holds: %w", err)
	}

	// 4. Insert; the unique index rejects a second active reservation
	res := &models.Reservation{
		UserID:     in.UserID,
		SeatID:     seat.ID,
		TripID:     trip.ID,
		VehicleID:  seat.VehicleID,
		TravelDate: models.DateOf(in.TravelDate),
		State:      in.State,
		Price:      trip.Price,
		ExpiresAt:  in.HoldUntil,
	}
	err = tx.QueryRowxContext(ctx, `
		INSERT INTO reservations (user_id, seat_id, trip_id, travel_date, state, price, expires_at, created_at, updated_at)
		VALUES ($1, $2, $3, $4::date, $5, $6, $7, $8, $8)
		RETURNING id, created_at, updated_at`,
		res.UserID, res.SeatID, res.TripID, res.TravelDate, res.State, res.Price, res.ExpiresAt, in.Now,
	).Scan(&res.ID, &res.CreatedAt, &res.UpdatedAt)
	if err != nil {
		if isUniqueViolation(err, activeReservationIndex) {
			return nil, domain.NewConflictError("seat", "seat already reserved", err)
		}
		return nil, fmt.Errorf("failed to insert reservation: %w", err)
	}

	if err := tx.Commit(); err != nil {
		if isUniqueViolation(err, activeReservationIndex) {
			return nil, domain.NewConflictError("seat", "seat already reserved", err)
		}
		return nil, fmt.Errorf("failed to commit reservation: %w", err)
	}

	return res, nil
}

// GetByID returns a reservation or nil if it does not exist
func (r *ReservationRepository) GetByID(ctx context.Context, id int64) (*models.Reservation, error) {
	var res models.Reservation
	query := `SELECT ` + reservationColumns + `
		FROM reservations r
		JOIN seats s ON s.id = r.seat_id
		WHERE r.id = $1`

	err := r.db.GetContext(ctx, &res, query, id)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get reservation: %w", err)
	}

	return &res, nil
}

// ActiveSeats returns the vehicle's seats occupied on travelDate at now, together
// with the earliest expiry among the pending holds
func (r *ReservationRepository) ActiveSeats(ctx context.Context, vehicleID int64, travelDate, now time.Time) (models.Occupancy, error) {
	query := `
		SELECT r.seat_id,
		       CASE WHEN r.state = 'pending' THEN r.expires_at END AS hold_expires_at
		FROM reservations r
		JOIN seats s ON s.id = r.seat_id
		WHERE s.vehicle_id = $1
		  AND r.travel_date = $2::date
		  AND ` + fmt.Sprintf(activeReservationPredicate, "$3") + `
		ORDER BY r.seat_id`

	var rows []struct {
		SeatID        int64      `db:"seat_id"`
		HoldExpiresAt *time.Time `db:"hold_expires_at"`
	}
	if err := r.db.SelectContext(ctx, &rows, query, vehicleID, travelDate, now); err != nil {
		return models.Occupancy{}, fmt.Errorf("failed to get occupied seats: %w", err)
	}

	occupancy := models.Occupancy{SeatIDs: make([]int64, 0, len(rows))}
	for _, row := range rows {
		occupancy.SeatIDs = append(occupancy.SeatIDs, row.SeatID)
		if row.HoldExpiresAt != nil && (occupancy.HoldsUntil == nil || row.HoldExpiresAt.Before(*occupancy.HoldsUntil)) {
			occupancy.HoldsUntil = row.HoldExpiresAt
		}
	}
	return occupancy, nil
}

// Confirm moves a pending, unexpired reservation owned by userID to confirmed.
// It reports false when no row matched, leaving the caller to classify why.
func (r *ReservationRepository) Confirm(ctx context.Context, id int64, userID uuid.UUID, orderID string, now time.Time) (bool, error) {
	result, err := r.db.ExecContext(ctx, `
		UPDATE reservations
		SET state = 'confirmed', payment_order_id = $3, expires_at = NULL, updated_at = $4
		WHERE id = $1
		  AND user_id = $2
		  AND state = 'pending'
		  AND (expires_at IS NULL OR expires_at > $4)`, id, userID, orderID, now)
	if err != nil {
		return false, fmt.Errorf("failed to confirm reservation: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to get rows affected: %w", err)
	}

	return rows == 1, nil
}

// DeleteBeforeTravel removes the reservation if its travel date is after today.
// The date predicate is evaluated by the statement itself.
func (r *ReservationRepository) DeleteBeforeTravel(ctx context.Context, id int64, userID uuid.UUID, today time.Time) (bool, error) {
	result, err := r.db.ExecContext(ctx, `
		DELETE FROM reservations
		WHERE id = $1
		  AND user_id = $2
		  AND travel_date > $3::date`, id, userID, today)
	if err != nil {
		return false, fmt.Errorf("failed to delete reservation: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to get rows affected: %w", err)
	}

	return rows == 1, nil
}

// ListConfirmedByUser returns the user's confirmed reservations, latest travel date first
func (r *ReservationRepository) ListConfirmedByUser(ctx context.Context, userID uuid.UUID) ([]models.ReservationDetails, error) {
	query := `
		SELECT
			r.id, r.state, r.travel_date, r.price, r.payment_order_id, r.created_at,
			s.number AS seat_number, s.class AS seat_class,
			v.number AS vehicle_number,
			rt.name AS route_name, rt.operator_name,
			o.name AS origin_name, d.name AS destination_name,
			t.departure_at
		FROM reservations r
		JOIN seats s ON s.id = r.seat_id
		JOIN vehicles v ON v.id = s.vehicle_id
		JOIN routes rt ON rt.id = v.route_id
		JOIN cities o ON o.id = rt.origin_city_id
		JOIN cities d ON d.id = rt.destination_city_id
		LEFT JOIN trips t ON t.id = r.trip_id
		WHERE r.user_id = $1
		  AND r.state = 'confirmed'
		ORDER BY r.travel_date DESC, r.id DESC`

	reservations := []models.ReservationDetails{}
	if err := r.db.SelectContext(ctx, &reservations, query, userID); err != nil {
		return nil, fmt.Errorf("failed to list reservations: %w", err)
	}

	return reservations, nil
}

// ExpireHolds cancels up to limit pending reservations whose hold ran out at now
// and returns them. Rows locked by another sweeper are skipped.
func (r *ReservationRepository) ExpireHolds(ctx context.Context, now time.Time, limit int) ([]models.Reservation, error) {
	query := `
		WITH expired AS (
			UPDATE reservations
			SET state = 'cancelled', updated_at = $1
			WHERE id IN (
				SELECT id FROM reservations
				WHERE state = 'pending'
				  AND expires_at IS NOT NULL
				  AND expires_at <= $1
				ORDER BY expires_at
				LIMIT $2
				FOR UPDATE SKIP LOCKED
			)
			RETURNING *
		)
		SELECT ` + reservationColumns + `
		FROM expired r
		JOIN seats s ON s.id = r.seat_id
		ORDER BY r.id`

	expired := []models.Reservation{}
	if err := r.db.SelectContext(ctx, &expired, query, now, limit); err != nil {
		return nil, fmt.Errorf("failed to expire holds: %w", err)
	}

	return expired, nil
}

// ConfirmAllPending promotes every unexpired pending reservation to confirmed
func (r *ReservationRepository) ConfirmAllPending(ctx context.Context, now time.Time) (int64, error) {
	result, err := r.db.ExecContext(ctx, `
		UPDATE reservations
		SET state = 'confirmed', expires_at = NULL, updated_at = $1
		WHERE state = 'pending'
		  AND (expires_at IS NULL OR expires_at > $1)`, now)
	if err != nil {
		return 0, fmt.Errorf("failed to confirm pending reservations: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to get rows affected: %w", err)
	}

	return rows, nil
}
