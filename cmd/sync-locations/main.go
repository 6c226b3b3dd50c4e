package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/sirupsen/logrus"
	"github.com/smarttransit/seat-reservation-backend/internal/config"
	"github.com/smarttransit/seat-reservation-backend/internal/database"
	"github.com/smarttransit/seat-reservation-backend/internal/services"
	"github.com/smarttransit/seat-reservation-backend/pkg/geo"
)

func main() {
	var (
		dbURLFlag string
		countries string
	)
	flag.StringVar(&dbURLFlag, "database-url", "", "PostgreSQL connection string (overrides DATABASE_URL)")
	flag.StringVar(&countries, "countries", "", "comma separated ISO country codes to sync, e.g. CL,AR (default: all)")
	flag.Parse()

	logger := logrus.New()
	logger.SetOutput(os.Stdout)

	cfg, err := config.LoadForTool(dbURLFlag)
	if err != nil {
		logger.Fatal(err)
	}
	if cfg.Geo.GeoDBAPIKey == "" {
		logger.Warn("GEODB_API_KEY is not set, city requests will probably be rejected")
	}

	db, err := database.NewConnection(cfg.Database)
	if err != nil {
		logger.Fatalf("failed to connect to database: %v", err)
	}
	defer db.Close()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	source := geo.NewClient(geo.Config{
		RestCountriesURL: cfg.Geo.RestCountriesURL,
		GeoDBURL:         cfg.Geo.GeoDBURL,
		GeoDBHost:        cfg.Geo.GeoDBHost,
		GeoDBAPIKey:      cfg.Geo.GeoDBAPIKey,
		MinPopulation:    cfg.Geo.MinPopulation,
		Timeout:          cfg.Geo.RequestTimeout,
	})
	syncer := services.NewLocationSyncService(source, database.NewCatalogRepository(db.DB), logger)

	var codes []string
	for _, code := range strings.Split(countries, ",") {
		if code = strings.TrimSpace(code); code != "" {
			codes = append(codes, strings.ToUpper(code))
		}
	}

	result, err := syncer.Sync(ctx, codes...)
	if err != nil {
		logger.Fatalf("location sync failed: %v", err)
	}

	logger.WithFields(logrus.Fields{
		"countries": result.Countries,
		"regions":   result.Regions,
		"cities":    result.Cities,
	}).Info("Location sync complete")
}
