package handlers

import (
	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"github.com/smarttransit/seat-reservation-backend/internal/middleware"
	"github.com/smarttransit/seat-reservation-backend/internal/models"
	"github.com/smarttransit/seat-reservation-backend/pkg/jwt"
)

// RoleAdmin grants access to the /admin routes
const RoleAdmin = models.RoleAdmin

// Router holds everything the API routes are served from
type Router struct {
	Auth         *AuthHandler
	Availability *AvailabilityHandler
	Reservations *ReservationHandler
	Admin        *AdminHandler
	JWT          *jwt.Service
	Logger       *logrus.Logger
}

// Register mounts the API under /api/v1
func (r *Router) Register(engine *gin.Engine) {
	v1 := engine.Group("/api/v1")

	auth := v1.Group("/auth")
	{
		auth.POST("/register", r.Auth.Register)
		auth.POST("/verify", r.Auth.Verify)
		auth.POST("/resend", r.Auth.Resend)
		auth.POST("/refresh", r.Auth.Refresh)
	}

	v1.GET("/cities/search", r.Availability.SearchCities)

	protected := v1.Group("")
	protected.Use(middleware.AuthMiddleware(r.JWT, r.Logger))
	{
		protected.GET("/trips/search", r.Availability.SearchTrips)
		protected.GET("/trips/:id/seats", r.Availability.GetSeatMap)
		protected.GET("/routes/search", r.Availability.SearchRoutes)

		reservations := protected.Group("/reservations")
		{
			reservations.POST("", r.Reservations.Create)
			reservations.GET("/mine", r.Reservations.ListMine)
			reservations.POST("/:id/confirm", r.Reservations.ConfirmPayment)
			reservations.DELETE("/:id", r.Reservations.Cancel)
		}

		admin := protected.Group("/admin")
		admin.Use(middleware.RequireRole(RoleAdmin))
		{
			admin.DELETE("/cities/:id", r.Admin.DeleteCity)
			admin.GET("/jobs", r.Admin.GetJobStatus)
			admin.POST("/jobs/:name/run", r.Admin.RunJob)
		}
	}
}
