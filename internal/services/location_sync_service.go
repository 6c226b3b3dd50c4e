package services

import (
	"context"
	"fmt"
	"strings"

	"github.com/sirupsen/logrus"
	"github.com/smarttransit/seat-reservation-backend/internal/models"
	"github.com/smarttransit/seat-reservation-backend/pkg/geo"
)

// LocationSource provides reference countries and cities
type LocationSource interface {
	FetchCountries(ctx context.Context) ([]geo.Country, error)
	FetchCities(ctx context.Context, countryCode string) ([]geo.City, error)
}

// LocationStore upserts the location catalog
type LocationStore interface {
	UpsertCountry(ctx context.Context, name, code string) (*models.Country, bool, error)
	UpsertRegion(ctx context.Context, countryID int64, name string) (*models.Region, bool, error)
	UpsertCity(ctx context.Context, regionID int64, name string, lat, lon *float64) (*models.City, bool, error)
}

// LocationSyncService loads countries, regions and cities from external APIs
type LocationSyncService struct {
	source LocationSource
	store  LocationStore
	logger *logrus.Logger
}

// NewLocationSyncService creates a new LocationSyncService
func NewLocationSyncService(source LocationSource, store LocationStore, logger *logrus.Logger) *LocationSyncService {
	return &LocationSyncService{source: source, store: store, logger: logger}
}

// Sync upserts every country and, per country, its cities. A country whose
// cities cannot be fetched is logged and skipped. The result counts new rows.
func (s *LocationSyncService) Sync(ctx context.Context, countryCodes ...string) (*models.LocationSyncResult, error) {
	countries, err := s.source.FetchCountries(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch countries: %w", err)
	}

	wanted := make(map[string]bool, len(countryCodes))
	for _, code := range countryCodes {
		wanted[strings.ToUpper(code)] = true
	}

	result := &models.LocationSyncResult{}
	for _, c := range countries {
		if len(wanted) > 0 && !wanted[strings.ToUpper(c.Code)] {
			continue
		}
		if c.Code == "" || c.Name == "" {
			continue
		}

		country, created, err := s.store.UpsertCountry(ctx, c.Name, c.Code)
		if err != nil {
			return result, err
		}
		if created {
			result.Countries++
		}

		if err := s.syncCities(ctx, country, result); err != nil {
			if ctx.Err() != nil {
				return result, ctx.Err()
			}
			s.logger.WithError(err).WithField("country", country.Code).Warn("Skipping cities of country")
		}
	}

	s.logger.WithFields(logrus.Fields{
		"countries": result.Countries,
		"regions":   result.Regions,
		"cities":    result.Cities,
	}).Info("Location sync finished")
	return result, nil
}

func (s *LocationSyncService) syncCities(ctx context.Context, country *models.Country, result *models.LocationSyncResult) error {
	cities, err := s.source.FetchCities(ctx, country.Code)
	if err != nil {
		return err
	}

	regions := make(map[string]int64)
	for _, c := range cities {
		regionName := strings.TrimSpace(c.Region)
		if regionName == "" {
			regionName = country.Name
		}

		regionID, ok := regions[regionName]
		if !ok {
			region, created, err := s.store.UpsertRegion(ctx, country.ID, regionName)
			if err != nil {
				return err
			}
			if created {
				result.Regions++
			}
			regionID = region.ID
			regions[regionName] = regionID
		}

		_, created, err := s.store.UpsertCity(ctx, regionID, c.Name, c.Latitude, c.Longitude)
		if err != nil {
			return err
		}
		if created {
			result.Cities++
		}
	}
	return nil
}
