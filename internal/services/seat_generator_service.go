package services

import (
	"context"
	"fmt"

	"github.com/sirupsen/logrus"
	"github.com/smarttransit/seat-reservation-backend/internal/models"
)

const (
	defaultVehicleCapacity = 40
	premiumSeatCount       = 8
)

// SeatLayoutStore writes the seats of vehicles
type SeatLayoutStore interface {
	ListActiveVehicles(ctx context.Context) ([]models.Vehicle, error)
	CountSeats(ctx context.Context, vehicleID int64) (int, error)
	CreateSeats(ctx context.Context, vehicleID int64, seats []models.Seat) (int, error)
	DeleteUnreservedSeats(ctx context.Context, vehicleID int64) (int, error)
}

// SeatGenerationResult summarises a generation run
type SeatGenerationResult struct {
	Vehicles int `json:"vehicles"`
	Created  int `json:"created"`
	Deleted  int `json:"deleted"`
	Skipped  int `json:"skipped"`
}

// SeatGeneratorService fills the seat layout of active vehicles
type SeatGeneratorService struct {
	store  SeatLayoutStore
	logger *logrus.Logger
}

// NewSeatGeneratorService creates a new SeatGeneratorService
func NewSeatGeneratorService(store SeatLayoutStore, logger *logrus.Logger) *SeatGeneratorService {
	return &SeatGeneratorService{store: store, logger: logger}
}

// Generate creates seats 1..capacity for every active vehicle that has none.
// With force, seats without reservations are dropped and the layout is rebuilt;
// reserved seats keep their rows.
func (s *SeatGeneratorService) Generate(ctx context.Context, force bool) (*SeatGenerationResult, error) {
	vehicles, err := s.store.ListActiveVehicles(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list vehicles: %w", err)
	}

	result := &SeatGenerationResult{}
	for _, v := range vehicles {
		logger := s.logger.WithFields(logrus.Fields{"vehicle_id": v.ID, "number": v.Number})

		if force {
			deleted, err := s.store.DeleteUnreservedSeats(ctx, v.ID)
			if err != nil {
				return result, fmt.Errorf("failed to clear seats of vehicle %d: %w", v.ID, err)
			}
			result.Deleted += deleted
		} else {
			existing, err := s.store.CountSeats(ctx, v.ID)
			if err != nil {
				return result, fmt.Errorf("failed to count seats of vehicle %d: %w", v.ID, err)
			}
			if existing > 0 {
				result.Skipped++
				continue
			}
		}

		created, err := s.store.CreateSeats(ctx, v.ID, SeatLayout(v.Capacity))
		if err != nil {
			return result, fmt.Errorf("failed to create seats of vehicle %d: %w", v.ID, err)
		}
		result.Vehicles++
		result.Created += created
		logger.WithField("seats", created).Info("Generated seats")
	}

	return result, nil
}

// SeatLayout returns seats numbered 1..capacity; the first rows are premium
func SeatLayout(capacity int) []models.Seat {
	if capacity <= 0 {
		capacity = defaultVehicleCapacity
	}
	seats := make([]models.Seat, capacity)
	for i := range seats {
		class := models.SeatClassNormal
		if i < premiumSeatCount {
			class = models.SeatClassPremium
		}
		seats[i] = models.Seat{Number: i + 1, Class: class}
	}
	return seats
}
