package handlers

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"github.com/smarttransit/seat-reservation-backend/internal/middleware"
)

// CityDeleter removes catalog cities
type CityDeleter interface {
	DeleteCity(ctx context.Context, id int64) error
}

// JobRunner exposes the scheduled maintenance jobs
type JobRunner interface {
	RunExpireHoldsNow()
	RunVerificationCleanupNow()
	GetJobStatus() map[string]interface{}
}

// AdminHandler handles admin-related HTTP requests
type AdminHandler struct {
	cities CityDeleter
	jobs   JobRunner
	logger *logrus.Logger
}

// NewAdminHandler creates a new admin handler
func NewAdminHandler(cities CityDeleter, jobs JobRunner, logger *logrus.Logger) *AdminHandler {
	return &AdminHandler{cities: cities, jobs: jobs, logger: logger}
}

// DeleteCity handles DELETE /api/v1/admin/cities/:id
func (h *AdminHandler) DeleteCity(c *gin.Context) {
	cityID, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	if err := h.cities.DeleteCity(c.Request.Context(), cityID); err != nil {
		RespondError(c, h.logger, err)
		return
	}

	userID, _ := middleware.CurrentUserID(c)
	h.logger.WithFields(logrus.Fields{
		"city_id":  cityID,
		"admin_id": userID,
	}).Info("City deleted")

	c.Status(http.StatusNoContent)
}

// GetJobStatus handles GET /api/v1/admin/jobs
func (h *AdminHandler) GetJobStatus(c *gin.Context) {
	c.JSON(http.StatusOK, h.jobs.GetJobStatus())
}

// RunJob handles POST /api/v1/admin/jobs/:name/run
func (h *AdminHandler) RunJob(c *gin.Context) {
	switch name := c.Param("name"); name {
	case "expire-holds":
		h.jobs.RunExpireHoldsNow()
	case "verification-cleanup":
		h.jobs.RunVerificationCleanupNow()
	default:
		respondBadRequest(c, "name", "unknown job: "+name)
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": "completed"})
}
