package services

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/smarttransit/seat-reservation-backend/internal/models"
	"github.com/smarttransit/seat-reservation-backend/pkg/mailer"
)

const notificationTimeout = 30 * time.Second

// NotificationService emails a receipt when a reservation is confirmed.
// Delivery runs in the background and never fails the reservation.
type NotificationService struct {
	users  UserStore
	trips  TripStore
	seats  SeatStore
	mailer mailer.Mailer
	logger *logrus.Logger
	wg     sync.WaitGroup
}

// NewNotificationService creates a new NotificationService
func NewNotificationService(users UserStore, trips TripStore, seats SeatStore, m mailer.Mailer, logger *logrus.Logger) *NotificationService {
	return &NotificationService{
		users:  users,
		trips:  trips,
		seats:  seats,
		mailer: m,
		logger: logger,
	}
}

// ReservationConfirmed queues the receipt for res and returns immediately
func (s *NotificationService) ReservationConfirmed(ctx context.Context, res *models.Reservation) {
	snapshot := *res
	// detach from the request so the send outlives the response
	bg, cancel := context.WithTimeout(context.WithoutCancel(ctx), notificationTimeout)

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		defer cancel()

		if err := s.sendReceipt(bg, &snapshot); err != nil {
			s.logger.WithError(err).WithFields(logrus.Fields{
				"reservation_id": snapshot.ID,
				"mailer":         s.mailer.GetName(),
			}).Error("Failed to send reservation receipt")
			return
		}
		s.logger.WithField("reservation_id", snapshot.ID).Info("Reservation receipt sent")
	}()
}

// Wait blocks until every queued receipt has been handled
func (s *NotificationService) Wait() {
	s.wg.Wait()
}

func (s *NotificationService) sendReceipt(ctx context.Context, res *models.Reservation) error {
	user, err := s.users.GetUserByID(res.UserID)
	if err != nil {
		return fmt.Errorf("load user: %w", err)
	}
	if user == nil {
		return fmt.Errorf("user %s not found", res.UserID)
	}

	receipt := mailer.ReservationReceipt{
		ReservationID: res.ID,
		TravelDate:    res.TravelDate.Format(models.DateLayout),
		Price:         res.Price,
	}
	if res.PaymentOrderID != nil {
		receipt.OrderID = *res.PaymentOrderID
	}

	trip, err := s.trips.GetTripDetails(ctx, res.TripID)
	if err != nil {
		return fmt.Errorf("load trip: %w", err)
	}
	if trip != nil {
		receipt.Origin = trip.OriginName
		receipt.Destination = trip.DestinationName
		receipt.Departure = trip.DepartureAt.Format("15:04")
	}

	seat, err := s.seats.GetSeat(ctx, res.SeatID)
	if err != nil {
		return fmt.Errorf("load seat: %w", err)
	}
	if seat != nil {
		receipt.SeatNumber = seat.Number
	}

	return s.mailer.Send(ctx, mailer.ReservationConfirmedMessage(user.Email, receipt))
}
