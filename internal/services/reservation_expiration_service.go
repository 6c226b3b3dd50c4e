package services

import (
	"context"

	"github.com/sirupsen/logrus"
	"github.com/smarttransit/seat-reservation-backend/internal/cache"
	"github.com/smarttransit/seat-reservation-backend/internal/events"
	"github.com/smarttransit/seat-reservation-backend/internal/models"
)

// defaultExpiryBatch bounds how many holds one statement cancels
const defaultExpiryBatch = 100

// ReservationExpirationService cancels pending reservations whose hold ran out.
// Expired holds already stop counting as occupied the moment they expire; the
// sweep only makes their state explicit and announces it.
type ReservationExpirationService struct {
	reservations ReservationStore
	occupied     cache.OccupiedSeats
	publisher    events.Publisher
	clock        Clock
	batchSize    int
	logger       *logrus.Logger
}

// NewReservationExpirationService creates a new ReservationExpirationService
func NewReservationExpirationService(
	reservations ReservationStore,
	occupied cache.OccupiedSeats,
	publisher events.Publisher,
	clock Clock,
	batchSize int,
	logger *logrus.Logger,
) *ReservationExpirationService {
	if occupied == nil {
		occupied = cache.Noop{}
	}
	if publisher == nil {
		publisher = events.Noop{}
	}
	if batchSize <= 0 {
		batchSize = defaultExpiryBatch
	}
	return &ReservationExpirationService{
		reservations: reservations,
		occupied:     occupied,
		publisher:    publisher,
		clock:        clock,
		batchSize:    batchSize,
		logger:       logger,
	}
}

// RunOnce expires every hold that ran out by now and returns how many were cancelled
func (s *ReservationExpirationService) RunOnce(ctx context.Context) (int, error) {
	total := 0
	for {
		if err := ctx.Err(); err != nil {
			return total, err
		}

		now := s.clock.Now()
		expired, err := s.reservations.ExpireHolds(ctx, now, s.batchSize)
		if err != nil {
			s.logger.WithError(err).Error("Failed to expire reservation holds")
			return total, err
		}

		for i := range expired {
			res := &expired[i]
			invalidateOccupied(ctx, s.occupied, s.logger, res)
			publishEvent(ctx, s.publisher, s.logger, models.ReservationEventExpired, res, now)
		}
		total += len(expired)

		if len(expired) < s.batchSize {
			break
		}
	}

	if total > 0 {
		s.logger.WithField("count", total).Info("Expired reservation holds")
	}
	return total, nil
}
