package main

import (
	"context"
	"flag"
	"os"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/smarttransit/seat-reservation-backend/internal/config"
	"github.com/smarttransit/seat-reservation-backend/internal/database"
	"github.com/smarttransit/seat-reservation-backend/internal/services"
	"github.com/smarttransit/seat-reservation-backend/pkg/mailer"
)

func main() {
	var (
		dbURLFlag string
		olderThan time.Duration
	)
	flag.StringVar(&dbURLFlag, "database-url", "", "PostgreSQL connection string (overrides DATABASE_URL)")
	flag.DurationVar(&olderThan, "older-than", 0, "remove unverified users registered before now minus this (default: UNVERIFIED_USER_TTL_HOURS)")
	flag.Parse()

	logger := logrus.New()
	logger.SetOutput(os.Stdout)

	cfg, err := config.LoadForTool(dbURLFlag)
	if err != nil {
		logger.Fatal(err)
	}
	if olderThan <= 0 {
		olderThan = cfg.Verification.UnverifiedUserTTL
	}

	db, err := database.NewConnection(cfg.Database)
	if err != nil {
		logger.Fatalf("failed to connect to database: %v", err)
	}
	defer db.Close()

	rateLimits := services.DefaultRateLimitConfig()
	rateLimits.EmailWindow = cfg.Verification.RateWindow

	verification := services.NewVerificationService(
		database.NewUserRepository(db),
		database.NewVerificationSessionRepository(db),
		services.NewRateLimitService(db, rateLimits),
		mailer.NewLogMailer(logger),
		nil,
		services.SystemClock{},
		services.VerificationOptions{UnverifiedUserTTL: olderThan},
		logger,
	)

	result, err := verification.CleanupUnverified(context.Background())
	if err != nil {
		logger.Fatalf("cleanup failed: %v", err)
	}

	logger.WithFields(logrus.Fields{
		"users":       result.Users,
		"sessions":    result.Sessions,
		"rate_limits": result.RateLimits,
		"older_than":  olderThan,
	}).Info("Unverified users purged")
}
