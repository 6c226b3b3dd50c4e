package handlers

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"github.com/smarttransit/seat-reservation-backend/internal/models"
)

// AvailabilityQueries answers seat, trip, route and city lookups
type AvailabilityQueries interface {
	GetSeatMap(ctx context.Context, tripID int64) (*models.SeatMap, error)
	SearchTrips(ctx context.Context, req models.TripSearchRequest) (*models.TripSearchResponse, error)
	SearchRoutes(ctx context.Context, req models.TripSearchRequest) (*models.RouteSearchResponse, error)
	SearchCities(ctx context.Context, q string) ([]models.CitySearchResult, error)
}

// AvailabilityHandler handles search and seat map requests
type AvailabilityHandler struct {
	availability AvailabilityQueries
	logger       *logrus.Logger
}

// NewAvailabilityHandler creates a new AvailabilityHandler
func NewAvailabilityHandler(availability AvailabilityQueries, logger *logrus.Logger) *AvailabilityHandler {
	return &AvailabilityHandler{availability: availability, logger: logger}
}

// GetSeatMap handles GET /api/v1/trips/:id/seats
func (h *AvailabilityHandler) GetSeatMap(c *gin.Context) {
	tripID, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	seatMap, err := h.availability.GetSeatMap(c.Request.Context(), tripID)
	if err != nil {
		RespondError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, seatMap)
}

// SearchTrips handles GET /api/v1/trips/search
func (h *AvailabilityHandler) SearchTrips(c *gin.Context) {
	var req models.TripSearchRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		respondBadRequest(c, "", "origin_id and destination_id must be integers")
		return
	}

	resp, err := h.availability.SearchTrips(c.Request.Context(), req)
	if err != nil {
		RespondError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, resp)
}

// SearchRoutes handles GET /api/v1/routes/search
func (h *AvailabilityHandler) SearchRoutes(c *gin.Context) {
	var req models.TripSearchRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		respondBadRequest(c, "", "origin_id and destination_id must be integers")
		return
	}

	resp, err := h.availability.SearchRoutes(c.Request.Context(), req)
	if err != nil {
		RespondError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, resp)
}

// SearchCities handles GET /api/v1/cities/search?q=
func (h *AvailabilityHandler) SearchCities(c *gin.Context) {
	results, err := h.availability.SearchCities(c.Request.Context(), c.Query("q"))
	if err != nil {
		RespondError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"results": results})
}
