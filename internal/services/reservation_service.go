package services

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/smarttransit/seat-reservation-backend/internal/cache"
	"github.com/smarttransit/seat-reservation-backend/internal/config"
	"github.com/smarttransit/seat-reservation-backend/internal/domain"
	"github.com/smarttransit/seat-reservation-backend/internal/events"
	"github.com/smarttransit/seat-reservation-backend/internal/models"
	"github.com/smarttransit/seat-reservation-backend/pkg/validator"
)

// ReservationService creates, confirms, cancels and lists seat reservations.
//
// A new reservation is a pending hold until confirm_payment, unless the direct
// confirm flow is configured. Either way the seat is claimed by CreateAtomic.
type ReservationService struct {
	reservations ReservationStore
	occupied     cache.OccupiedSeats
	publisher    events.Publisher
	notifier     ReservationNotifier
	clock        Clock
	loc          *time.Location
	config       config.ReservationConfig
	validator    *validator.StructValidator
	logger       *logrus.Logger
}

// NewReservationService creates a new ReservationService. Nil cache, publisher or
// notifier are replaced by no-ops.
func NewReservationService(
	reservations ReservationStore,
	occupied cache.OccupiedSeats,
	publisher events.Publisher,
	notifier ReservationNotifier,
	clock Clock,
	loc *time.Location,
	cfg config.ReservationConfig,
	logger *logrus.Logger,
) *ReservationService {
	if occupied == nil {
		occupied = cache.Noop{}
	}
	if publisher == nil {
		publisher = events.Noop{}
	}
	if notifier == nil {
		notifier = noopNotifier{}
	}
	return &ReservationService{
		reservations: reservations,
		occupied:     occupied,
		publisher:    publisher,
		notifier:     notifier,
		clock:        clock,
		loc:          loc,
		config:       cfg,
		validator:    validator.NewStructValidator(),
		logger:       logger,
	}
}

// Create reserves a seat for a travel date on behalf of userID
func (s *ReservationService) Create(ctx context.Context, userID uuid.UUID, req models.CreateReservationRequest) (*models.CreateReservationResponse, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, validationError(err)
	}

	now := s.clock.Now()
	travelDate, err := parseUpcomingDate("travel_date", req.TravelDate, todayIn(now, s.loc))
	if err != nil {
		return nil, err
	}

	in := models.NewReservation{
		UserID:     userID,
		SeatID:     req.SeatID,
		TravelDate: travelDate,
		State:      models.ReservationStateConfirmed,
		Now:        now,
	}
	if !s.config.DirectConfirm {
		holdUntil := now.Add(s.config.HoldTTL)
		in.State = models.ReservationStatePending
		in.HoldUntil = &holdUntil
	}

	res, err := s.reservations.CreateAtomic(ctx, in)
	if err != nil {
		return nil, domain.Internal("create reservation", err)
	}

	s.logger.WithFields(logrus.Fields{
		"reservation_id": res.ID,
		"user_id":        userID,
		"seat_id":        res.SeatID,
		"travel_date":    res.TravelDate.Format(models.DateLayout),
		"state":          res.State,
	}).Info("Reservation created")

	s.invalidate(ctx, res)
	s.publish(ctx, models.ReservationEventCreated, res, now)
	if res.State == models.ReservationStateConfirmed {
		s.publish(ctx, models.ReservationEventConfirmed, res, now)
		s.notifier.ReservationConfirmed(ctx, res)
	}

	return &models.CreateReservationResponse{
		ReservationID: res.ID,
		Price:         res.Price,
		State:         res.State,
		ExpiresAt:     res.ExpiresAt,
	}, nil
}

// ConfirmPayment records the payment order of a pending reservation and confirms it
func (s *ReservationService) ConfirmPayment(ctx context.Context, userID uuid.UUID, reservationID int64, orderID string) error {
	orderID = strings.TrimSpace(orderID)
	if orderID == "" {
		return domain.NewValidationError("order_id", "is required")
	}

	now := s.clock.Now()
	confirmed, err := s.reservations.Confirm(ctx, reservationID, userID, orderID, now)
	if err != nil {
		return domain.Internal("confirm reservation", err)
	}

	if !confirmed {
		res, err := s.reservations.GetByID(ctx, reservationID)
		if err != nil {
			return domain.Internal("load reservation", err)
		}
		return confirmFailure(res, reservationID, userID, now)
	}

	logger := s.logger.WithFields(logrus.Fields{
		"reservation_id": reservationID,
		"user_id":        userID,
		"order_id":       orderID,
	})
	logger.Info("Reservation confirmed")

	// The payment is recorded from here on; a failed reload only skips the side effects
	res, err := s.reservations.GetByID(ctx, reservationID)
	if err != nil {
		logger.WithError(err).Warn("Failed to reload confirmed reservation")
		return nil
	}
	if res == nil {
		logger.Warn("Confirmed reservation disappeared before notification")
		return nil
	}

	s.invalidate(ctx, res)
	s.publish(ctx, models.ReservationEventConfirmed, res, now)
	s.notifier.ReservationConfirmed(ctx, res)
	return nil
}

// confirmFailure explains why the conditional confirm matched no row
func confirmFailure(res *models.Reservation, reservationID int64, userID uuid.UUID, now time.Time) error {
	if res == nil || !res.IsOwnedBy(userID) {
		return domain.NewNotFoundError("reservation", reservationID)
	}
	if res.State != models.ReservationStatePending {
		return domain.NewStateError("reservation", string(res.State), "reservation is not pending")
	}
	if res.HoldExpired(now) {
		return domain.NewStateError("reservation", "expired", "reservation hold has expired")
	}
	return domain.NewStateError("reservation", string(res.State), "reservation is not pending")
}

// Cancel deletes the user's reservation if its travel date is still in the future
func (s *ReservationService) Cancel(ctx context.Context, userID uuid.UUID, reservationID int64) error {
	res, err := s.reservations.GetByID(ctx, reservationID)
	if err != nil {
		return domain.Internal("load reservation", err)
	}
	if res == nil || !res.IsOwnedBy(userID) {
		return domain.NewNotFoundError("reservation", reservationID)
	}

	now := s.clock.Now()
	today := todayIn(now, s.loc)
	if !res.CanBeCancelledOn(today) {
		return domain.NewStateError("reservation", string(res.State), "travel date has passed")
	}

	deleted, err := s.reservations.DeleteBeforeTravel(ctx, reservationID, userID, today)
	if err != nil {
		return domain.Internal("delete reservation", err)
	}
	if !deleted {
		// Removed concurrently or the date turned between the read and the delete
		current, err := s.reservations.GetByID(ctx, reservationID)
		if err != nil {
			return domain.Internal("load reservation", err)
		}
		if current == nil {
			return domain.NewNotFoundError("reservation", reservationID)
		}
		return domain.NewStateError("reservation", string(current.State), "travel date has passed")
	}

	s.logger.WithFields(logrus.Fields{
		"reservation_id": reservationID,
		"user_id":        userID,
	}).Info("Reservation cancelled")

	res.State = models.ReservationStateCancelled
	s.invalidate(ctx, res)
	s.publish(ctx, models.ReservationEventCancelled, res, now)
	return nil
}

// ListMine returns the user's confirmed reservations, latest travel date first
func (s *ReservationService) ListMine(ctx context.Context, userID uuid.UUID) ([]models.ReservationDetails, error) {
	list, err := s.reservations.ListConfirmedByUser(ctx, userID)
	if err != nil {
		return nil, domain.Internal("list reservations", err)
	}
	for i := range list {
		list[i].TravelDateText = list[i].TravelDate.Format(models.DateLayout)
	}
	return list, nil
}

// ConfirmAllPending promotes every unexpired pending reservation to confirmed.
// Occupancy does not change, so no cache entry is touched.
func (s *ReservationService) ConfirmAllPending(ctx context.Context) (int64, error) {
	n, err := s.reservations.ConfirmAllPending(ctx, s.clock.Now())
	if err != nil {
		return 0, domain.Internal("confirm pending reservations", err)
	}
	s.logger.WithField("count", n).Info("Confirmed pending reservations")
	return n, nil
}

func (s *ReservationService) invalidate(ctx context.Context, res *models.Reservation) {
	invalidateOccupied(ctx, s.occupied, s.logger, res)
}

func (s *ReservationService) publish(ctx context.Context, eventType models.ReservationEventType, res *models.Reservation, at time.Time) {
	publishEvent(ctx, s.publisher, s.logger, eventType, res, at)
}

func invalidateOccupied(ctx context.Context, occupied cache.OccupiedSeats, logger *logrus.Logger, res *models.Reservation) {
	if err := occupied.Invalidate(ctx, res.VehicleID, res.TravelDate); err != nil {
		logger.WithError(err).WithField("reservation_id", res.ID).Warn("Seat cache invalidation failed")
	}
}

func publishEvent(ctx context.Context, publisher events.Publisher, logger *logrus.Logger, eventType models.ReservationEventType, res *models.Reservation, at time.Time) {
	if err := publisher.Publish(ctx, models.NewReservationEvent(eventType, res, at)); err != nil {
		logger.WithError(err).WithFields(logrus.Fields{
			"reservation_id": res.ID,
			"event":          eventType,
		}).Warn("Failed to publish reservation event")
	}
}

type noopNotifier struct{}

func (noopNotifier) ReservationConfirmed(context.Context, *models.Reservation) {}
