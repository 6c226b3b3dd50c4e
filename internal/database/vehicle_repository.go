package database

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/smarttransit/seat-reservation-backend/internal/models"
)

// VehicleRepository handles vehicles and their seats
type VehicleRepository struct {
	db *sqlx.DB
}

// NewVehicleRepository creates a new VehicleRepository
func NewVehicleRepository(db *sqlx.DB) *VehicleRepository {
	return &VehicleRepository{db: db}
}

// CreateVehicle inserts a vehicle
func (r *VehicleRepository) CreateVehicle(ctx context.Context, v *models.Vehicle) error {
	err := r.db.QueryRowxContext(ctx, `
		INSERT INTO vehicles (route_id, number, capacity, is_active)
		VALUES ($1, $2, $3, $4)
		RETURNING id`, v.RouteID, v.Number, v.Capacity, v.IsActive,
	).Scan(&v.ID)
	if err != nil {
		return fmt.Errorf("failed to create vehicle: %w", err)
	}
	return nil
}

// ListActiveVehicles returns every active vehicle ordered by id
func (r *VehicleRepository) ListActiveVehicles(ctx context.Context) ([]models.Vehicle, error) {
	vehicles := []models.Vehicle{}
	err := r.db.SelectContext(ctx, &vehicles, `
		SELECT id, route_id, number, capacity, is_active
		FROM vehicles
		WHERE is_active
		ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("failed to list vehicles: %w", err)
	}
	return vehicles, nil
}

// GetSeat returns a seat or nil if it does not exist
func (r *VehicleRepository) GetSeat(ctx context.Context, id int64) (*models.Seat, error) {
	var seat models.Seat
	err := r.db.GetContext(ctx, &seat, `SELECT id, vehicle_id, number, class FROM seats WHERE id = $1`, id)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get seat: %w", err)
	}
	return &seat, nil
}

// ListSeatsByVehicle returns the vehicle's seats ordered by number
func (r *VehicleRepository) ListSeatsByVehicle(ctx context.Context, vehicleID int64) ([]models.Seat, error) {
	seats := []models.Seat{}
	err := r.db.SelectContext(ctx, &seats, `
		SELECT id, vehicle_id, number, class
		FROM seats
		WHERE vehicle_id = $1
		ORDER BY number`, vehicleID)
	if err != nil {
		return nil, fmt.Errorf("failed to list seats: %w", err)
	}
	return seats, nil
}

// CountSeats returns how many seats the vehicle has
func (r *VehicleRepository) CountSeats(ctx context.Context, vehicleID int64) (int, error) {
	var count int
	if err := r.db.GetContext(ctx, &count, `SELECT COUNT(*) FROM seats WHERE vehicle_id = $1`, vehicleID); err != nil {
		return 0, fmt.Errorf("failed to count seats: %w", err)
	}
	return count, nil
}

// CreateSeats inserts the seats, skipping numbers the vehicle already has.
// It returns how many rows were created.
func (r *VehicleRepository) CreateSeats(ctx context.Context, vehicleID int64, seats []models.Seat) (int, error) {
	if len(seats) == 0 {
		return 0, nil
	}

	numbers := make([]int64, len(seats))
	classes := make([]string, len(seats))
	for i, s := range seats {
		numbers[i] = int64(s.Number)
		classes[i] = string(s.Class)
	}

	result, err := r.db.ExecContext(ctx, `
		INSERT INTO seats (vehicle_id, number, class)
		SELECT $1, n, c
		FROM UNNEST($2::int[], $3::text[]) AS u(n, c)
		ON CONFLICT (vehicle_id, number) DO NOTHING`,
		vehicleID, pq.Array(numbers), pq.Array(classes))
	if err != nil {
		return 0, fmt.Errorf("failed to create seats: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to get rows affected: %w", err)
	}
	return int(rows), nil
}

// DeleteUnreservedSeats removes the vehicle's seats that no reservation points at
func (r *VehicleRepository) DeleteUnreservedSeats(ctx context.Context, vehicleID int64) (int, error) {
	result, err := r.db.ExecContext(ctx, `
		DELETE FROM seats s
		WHERE s.vehicle_id = $1
		  AND NOT EXISTS (SELECT 1 FROM reservations r WHERE r.seat_id = s.id)`, vehicleID)
	if err != nil {
		return 0, fmt.Errorf("failed to delete seats: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to get rows affected: %w", err)
	}
	return int(rows), nil
}
