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

func main() {
	var (
		dbURLFlag string
		force     bool
	)
	flag.StringVar(&dbURLFlag, "database-url", "", "PostgreSQL connection string (overrides DATABASE_URL)")
	flag.BoolVar(&force, "force", false, "rebuild the layout of vehicles that already have seats")
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

	generator := services.NewSeatGeneratorService(database.NewVehicleRepository(db.DB), logger)
	result, err := generator.Generate(context.Background(), force)
	if err != nil {
		logger.Fatalf("seat generation failed: %v", err)
	}

	logger.WithFields(logrus.Fields{
		"vehicles": result.Vehicles,
		"created":  result.Created,
		"deleted":  result.Deleted,
		"skipped":  result.Skipped,
	}).Info("Seat generation complete")
}
