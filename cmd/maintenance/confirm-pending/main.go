package main

import (
	"context"
	"flag"
	"os"

	"github.com/sirupsen/logrus"
	"github.com/smarttransit/seat-reservation-backend/internal/config"
	"github.com/smarttransit/seat-reservation-backend/internal/database"
	"github.com/smarttransit/seat-reservation-backend/internal/services"
)

// Confirms every pending reservation whose hold is still running, e.g. after a
// payment provider outage left orders paid but unconfirmed.
func main() {
	var (
		dbURLFlag string
		yes       bool
	)
	flag.StringVar(&dbURLFlag, "database-url", "", "PostgreSQL connection string (overrides DATABASE_URL)")
	flag.BoolVar(&yes, "yes", false, "actually confirm; without it the tool only reports what it would do")
	flag.Parse()

	logger := logrus.New()
	logger.SetOutput(os.Stdout)

	cfg, err := config.LoadForTool(dbURLFlag)
	if err != nil {
		logger.Fatal(err)
	}

	db, err := database.NewConnection(cfg.Database)
	if err != nil {
		logger.Fatalf("failed to connect to database: %v", err)
	}
	defer db.Close()

	if !yes {
		var pending int
		if err := db.Get(&pending, `
			SELECT COUNT(*) FROM reservations
			WHERE state = 'pending' AND (expires_at IS NULL OR expires_at > NOW())`); err != nil {
			logger.Fatalf("failed to count pending reservations: %v", err)
		}
		logger.WithField("pending", pending).Info("Dry run, pass -yes to confirm them")
		return
	}

	reservations := services.NewReservationService(
		database.NewReservationRepository(db.DB), nil, nil, nil,
		services.SystemClock{}, cfg.Location(), cfg.Reservation, logger,
	)

	confirmed, err := reservations.ConfirmAllPending(context.Background())
	if err != nil {
		logger.Fatalf("failed to confirm pending reservations: %v", err)
	}

	logger.WithField("confirmed", confirmed).Info("Pending reservations confirmed")
}
