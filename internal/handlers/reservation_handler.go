package handlers

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/smarttransit/seat-reservation-backend/internal/middleware"
	"github.com/smarttransit/seat-reservation-backend/internal/models"
)

// ReservationOperations creates and manages the caller's reservations
type ReservationOperations interface {
	Create(ctx context.Context, userID uuid.UUID, req models.CreateReservationRequest) (*models.CreateReservationResponse, error)
	ConfirmPayment(ctx context.Context, userID uuid.UUID, reservationID int64, orderID string) error
	Cancel(ctx context.Context, userID uuid.UUID, reservationID int64) error
	ListMine(ctx context.Context, userID uuid.UUID) ([]models.ReservationDetails, error)
}

// ReservationHandler handles reservation requests
type ReservationHandler struct {
	reservations ReservationOperations
	logger       *logrus.Logger
}

// NewReservationHandler creates a new ReservationHandler
func NewReservationHandler(reservations ReservationOperations, logger *logrus.Logger) *ReservationHandler {
	return &ReservationHandler{reservations: reservations, logger: logger}
}

// Create handles POST /api/v1/reservations
func (h *ReservationHandler) Create(c *gin.Context) {
	userID, ok := h.currentUser(c)
	if !ok {
		return
	}

	var req models.CreateReservationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, "", "seat_id and travel_date are required")
		return
	}

	resp, err := h.reservations.Create(c.Request.Context(), userID, req)
	if err != nil {
		RespondError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusCreated, resp)
}

// ConfirmPayment handles POST /api/v1/reservations/:id/confirm
func (h *ReservationHandler) ConfirmPayment(c *gin.Context) {
	userID, ok := h.currentUser(c)
	if !ok {
		return
	}
	reservationID, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	var req models.ConfirmPaymentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, "order_id", "order_id is required")
		return
	}

	if err := h.reservations.ConfirmPayment(c.Request.Context(), userID, reservationID, req.OrderID); err != nil {
		RespondError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// Cancel handles DELETE /api/v1/reservations/:id
func (h *ReservationHandler) Cancel(c *gin.Context) {
	userID, ok := h.currentUser(c)
	if !ok {
		return
	}
	reservationID, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	if err := h.reservations.Cancel(c.Request.Context(), userID, reservationID); err != nil {
		RespondError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": "cancelled"})
}

// ListMine handles GET /api/v1/reservations/mine
func (h *ReservationHandler) ListMine(c *gin.Context) {
	userID, ok := h.currentUser(c)
	if !ok {
		return
	}

	list, err := h.reservations.ListMine(c.Request.Context(), userID)
	if err != nil {
		RespondError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"reservations": list})
}

func (h *ReservationHandler) currentUser(c *gin.Context) (uuid.UUID, bool) {
	userID, ok := middleware.CurrentUserID(c)
	if !ok {
		c.AbortWithStatusJSON(http.StatusUnauthorized, ErrorResponse{
			Error:     CodeUnauthorized,
			Message:   "Authentication required",
			RequestID: middleware.GetRequestID(c),
		})
		return uuid.Nil, false
	}
	return userID, true
}
