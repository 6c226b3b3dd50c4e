package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/smarttransit/seat-reservation-backend/internal/models"
)

// TripRepository handles trip database operations
type TripRepository struct {
	db *sqlx.DB
}

// NewTripRepository creates a new TripRepository
func NewTripRepository(db *sqlx.DB) *TripRepository {
	return &TripRepository{db: db}
}

// CreateTrip inserts a trip
func (r *TripRepository) CreateTrip(ctx context.Context, t *models.Trip) error {
	if t.State == "" {
		t.State = models.TripStateScheduled
	}
	err := r.db.QueryRowxContext(ctx, `
		INSERT INTO trips (vehicle_id, departure_at, price, state)
		VALUES ($1, $2, $3, $4)
		RETURNING id`, t.VehicleID, t.DepartureAt, t.Price, t.State,
	).Scan(&t.ID)
	if err != nil {
		return fmt.Errorf("failed to create trip: %w", err)
	}
	return nil
}

// GetTripDetails returns a trip with its route and endpoint names, or nil
func (r *TripRepository) GetTripDetails(ctx context.Context, id int64) (*models.TripDetails, error) {
	var trip models.TripDetails
	query := `
		SELECT
			t.id, t.vehicle_id, t.departure_at, t.price, t.state,
			rt.id AS route_id, rt.operator_name, rt.duration_minutes,
			o.name AS origin_name, d.name AS destination_name
		FROM trips t
		JOIN vehicles v ON v.id = t.vehicle_id
		JOIN routes rt ON rt.id = v.route_id
		JOIN cities o ON o.id = rt.origin_city_id
		JOIN cities d ON d.id = rt.destination_city_id
		WHERE t.id = $1`

	err := r.db.GetContext(ctx, &trip, query, id)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get trip: %w", err)
	}
	return &trip, nil
}

// FindScheduled returns the scheduled trips between two cities on date,
// with the seat count of each vehicle. Seats available are computed by the caller.
func (r *TripRepository) FindScheduled(ctx context.Context, originID, destinationID int64, date time.Time) ([]models.TripSearchResult, error) {
	query := `
		SELECT
			t.id AS trip_id, t.vehicle_id, t.departure_at, t.price,
			rt.operator_name, rt.duration_minutes,
			o.name AS origin_name, d.name AS destination_name,
			(SELECT COUNT(*) FROM seats s WHERE s.vehicle_id = t.vehicle_id) AS total_seats
		FROM trips t
		JOIN vehicles v ON v.id = t.vehicle_id AND v.is_active
		JOIN routes rt ON rt.id = v.route_id AND rt.is_active
		JOIN cities o ON o.id = rt.origin_city_id
		JOIN cities d ON d.id = rt.destination_city_id
		WHERE rt.origin_city_id = $1
		  AND rt.destination_city_id = $2
		  AND t.departure_at::date = $3::date
		  AND t.state = 'scheduled'
		ORDER BY t.departure_at ASC, t.id ASC`

	trips := []models.TripSearchResult{}
	if err := r.db.SelectContext(ctx, &trips, query, originID, destinationID, date); err != nil {
		return nil, fmt.Errorf("failed to search trips: %w", err)
	}
	return trips, nil
}
