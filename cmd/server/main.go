package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"github.com/smarttransit/seat-reservation-backend/internal/cache"
	"github.com/smarttransit/seat-reservation-backend/internal/config"
	"github.com/smarttransit/seat-reservation-backend/internal/database"
	"github.com/smarttransit/seat-reservation-backend/internal/events"
	"github.com/smarttransit/seat-reservation-backend/internal/handlers"
	"github.com/smarttransit/seat-reservation-backend/internal/middleware"
	"github.com/smarttransit/seat-reservation-backend/internal/services"
	"github.com/smarttransit/seat-reservation-backend/pkg/jwt"
	"github.com/smarttransit/seat-reservation-backend/pkg/mailer"
)

var (
	version   = "1.0.0"
	buildTime = "unknown"
)

func main() {
	// Initialize logger
	logger := logrus.New()
	logger.SetFormatter(&logrus.JSONFormatter{})
	logger.SetOutput(os.Stdout)

	logger.Info("Starting seat reservation backend")
	logger.Infof("Version: %s, Build Time: %s", version, buildTime)

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		logger.Fatalf("Failed to load configuration: %v", err)
	}

	// Set log level
	logLevel, err := logrus.ParseLevel(cfg.Server.LogLevel)
	if err != nil {
		logger.Warn("Invalid log level, using INFO")
		logLevel = logrus.InfoLevel
	}
	logger.SetLevel(logLevel)

	// Set Gin mode
	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	} else {
		gin.SetMode(gin.DebugMode)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Initialize database connection
	logger.Info("Connecting to database...")
	db, err := database.NewConnection(cfg.Database)
	if err != nil {
		logger.Fatalf("Failed to connect to database: %v", err)
	}
	defer db.Close()
	logger.Info("Database connection established")

	applied, err := database.Migrate(ctx, db.DB, logger)
	if err != nil {
		logger.Fatalf("Failed to apply migrations: %v", err)
	}
	logger.WithField("applied", applied).Info("Database schema up to date")

	// Seat map cache
	var occupied cache.OccupiedSeats = cache.Noop{}
	if cfg.Redis.URL != "" {
		redisClient, err := cache.NewRedisClient(ctx, cfg.Redis.URL)
		if err != nil {
			logger.WithError(err).Warn("Redis unavailable, seat map cache disabled")
		} else {
			defer redisClient.Close()
			occupied = cache.NewRedisOccupiedSeats(redisClient, cfg.Redis.SeatMapTTL)
			logger.Info("✓ Seat map cache enabled")
		}
	}

	// Reservation events
	var publisher events.Publisher = events.Noop{}
	if cfg.RabbitMQ.URL != "" {
		rabbit, err := events.NewRabbitMQPublisher(ctx, cfg.RabbitMQ.URL, cfg.RabbitMQ.Exchange, logger)
		if err != nil {
			logger.WithError(err).Warn("RabbitMQ unavailable, reservation events disabled")
		} else {
			publisher = rabbit
			logger.Info("✓ Reservation events enabled")
		}
	}
	defer publisher.Close()

	// Outgoing mail
	var mail mailer.Mailer = mailer.NewLogMailer(logger)
	if cfg.SMTP.Mode == "production" {
		smtpMailer, err := mailer.NewSMTPMailer(mailer.SMTPConfig{
			Host:     cfg.SMTP.Host,
			Port:     cfg.SMTP.Port,
			Username: cfg.SMTP.Username,
			Password: cfg.SMTP.Password,
			From:     cfg.SMTP.From,
			FromName: cfg.SMTP.FromName,
			Timeout:  15 * time.Second,
		})
		if err != nil {
			logger.Fatalf("Failed to initialize SMTP mailer: %v", err)
		}
		mail = smtpMailer
	}
	logger.WithField("mailer", mail.GetName()).Info("Mailer initialized")

	// Initialize repositories
	catalogRepository := database.NewCatalogRepository(db.DB)
	vehicleRepository := database.NewVehicleRepository(db.DB)
	tripRepository := database.NewTripRepository(db.DB)
	reservationRepository := database.NewReservationRepository(db.DB)
	userRepository := database.NewUserRepository(db)
	sessionRepository := database.NewVerificationSessionRepository(db)

	// Initialize services
	logger.Info("Initializing services...")
	clock := services.SystemClock{}
	loc := cfg.Location()

	jwtService := jwt.NewService(
		cfg.JWT.Secret,
		cfg.JWT.RefreshSecret,
		cfg.JWT.AccessTokenExpiry,
		cfg.JWT.RefreshTokenExpiry,
	)

	rateLimits := services.DefaultRateLimitConfig()
	rateLimits.MaxEmailRequests = cfg.Verification.RateLimit
	rateLimits.EmailWindow = cfg.Verification.RateWindow
	rateLimitService := services.NewRateLimitService(db, rateLimits)

	notificationService := services.NewNotificationService(userRepository, tripRepository, vehicleRepository, mail, logger)
	reservationService := services.NewReservationService(
		reservationRepository, occupied, publisher, notificationService, clock, loc, cfg.Reservation, logger,
	)
	availabilityService := services.NewAvailabilityService(
		tripRepository, vehicleRepository, catalogRepository, reservationRepository, occupied, clock, loc, logger,
	)
	verificationService := services.NewVerificationService(
		userRepository, sessionRepository, rateLimitService, mail, jwtService, clock,
		services.VerificationOptions{
			CodeLength:        cfg.Verification.CodeLength,
			Expiry:            cfg.Verification.Expiry,
			MaxAttempts:       cfg.Verification.MaxAttempts,
			BcryptCost:        cfg.Security.BcryptCost,
			UnverifiedUserTTL: cfg.Verification.UnverifiedUserTTL,
			ExposeCode:        cfg.Verification.ReturnCodeInDevelopment && !cfg.IsProduction(),
		},
		logger,
	)
	expirationService := services.NewReservationExpirationService(
		reservationRepository, occupied, publisher, clock, cfg.Reservation.ExpiryBatch, logger,
	)

	// Initialize and start cron service
	cronService := services.NewCronService(services.CronSchedules{
		HoldExpiry:          cfg.Reservation.ExpirySchedule,
		VerificationCleanup: cfg.Verification.CleanupSchedule,
	}, expirationService, verificationService, logger)
	if err := cronService.Start(); err != nil {
		logger.Fatalf("Failed to start cron service: %v", err)
	}
	logger.Info("✓ Cron service started - hold expiry and verification cleanup enabled")

	logger.Info("Services initialized")

	// Initialize Gin router
	router := gin.New()

	// Middleware
	router.Use(gin.Recovery())
	router.Use(middleware.RequestID())
	if cfg.Security.EnableRequestLog {
		router.Use(middleware.RequestLogger(logger))
	}

	// CORS configuration
	router.Use(cors.New(cors.Config{
		AllowOrigins:     cfg.CORS.AllowedOrigins,
		AllowMethods:     cfg.CORS.AllowedMethods,
		AllowHeaders:     cfg.CORS.AllowedHeaders,
		ExposeHeaders:    []string{"Content-Length", middleware.RequestIDHeader},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))

	// Health check endpoint
	router.GET("/health", handlers.HealthCheck(db, version))

	routes := &handlers.Router{
		Auth:         handlers.NewAuthHandler(verificationService, logger),
		Availability: handlers.NewAvailabilityHandler(availabilityService, logger),
		Reservations: handlers.NewReservationHandler(reservationService, logger),
		Admin:        handlers.NewAdminHandler(catalogRepository, cronService, logger),
		JWT:          jwtService,
		Logger:       logger,
	}
	routes.Register(router)

	// Create HTTP server
	srv := &http.Server{
		Addr:           ":" + cfg.Server.Port,
		Handler:        router,
		ReadTimeout:    15 * time.Second,
		WriteTimeout:   15 * time.Second,
		IdleTimeout:    60 * time.Second,
		MaxHeaderBytes: 1 << 20,
	}

	// Start server in a goroutine
	go func() {
		logger.Infof("Server starting on port %s", cfg.Server.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatalf("Failed to start server: %v", err)
		}
	}()

	// Wait for interrupt signal to gracefully shutdown the server
	<-ctx.Done()
	logger.Info("Shutting down server...")

	cronService.Stop()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Errorf("Server forced to shutdown: %v", err)
	}

	notificationService.Wait()
	logger.Info("Server exited")
}
