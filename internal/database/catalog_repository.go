package database

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/jmoiron/sqlx"
	"github.com/smarttransit/seat-reservation-backend/internal/domain"
	"github.com/smarttransit/seat-reservation-backend/internal/models"
)

// CatalogRepository handles countries, regions, cities and routes
type CatalogRepository struct {
	db *sqlx.DB
}

// NewCatalogRepository creates a new CatalogRepository
func NewCatalogRepository(db *sqlx.DB) *CatalogRepository {
	return &CatalogRepository{db: db}
}

// ============================================================================
// LOCATIONS
// ============================================================================

// UpsertCountry inserts or renames a country keyed by code. created is true for new rows.
func (r *CatalogRepository) UpsertCountry(ctx context.Context, name, code string) (country *models.Country, created bool, err error) {
	country = &models.Country{Name: name, Code: strings.ToUpper(code)}
	err = r.db.QueryRowxContext(ctx, `
		INSERT INTO countries (name, code)
		VALUES ($1, $2)
		ON CONFLICT (code) DO UPDATE SET name = EXCLUDED.name
		RETURNING id, (xmax = 0) AS created`, country.Name, country.Code,
	).Scan(&country.ID, &created)
	if err != nil {
		return nil, false, fmt.Errorf("failed to upsert country %s: %w", code, err)
	}
	return country, created, nil
}

// UpsertRegion inserts a region of the country unless it already exists
func (r *CatalogRepository) UpsertRegion(ctx context.Context, countryID int64, name string) (region *models.Region, created bool, err error) {
	region = &models.Region{Name: name, CountryID: countryID}
	err = r.db.QueryRowxContext(ctx, `
		INSERT INTO regions (name, country_id)
		VALUES ($1, $2)
		ON CONFLICT (country_id, name) DO UPDATE SET name = EXCLUDED.name
		RETURNING id, (xmax = 0) AS created`, region.Name, region.CountryID,
	).Scan(&region.ID, &created)
	if err != nil {
		return nil, false, fmt.Errorf("failed to upsert region %s: %w", name, err)
	}
	return region, created, nil
}

// UpsertCity inserts a city of the region or refreshes its coordinates
func (r *CatalogRepository) UpsertCity(ctx context.Context, regionID int64, name string, lat, lon *float64) (city *models.City, created bool, err error) {
	city = &models.City{Name: name, RegionID: regionID, Latitude: lat, Longitude: lon}
	err = r.db.QueryRowxContext(ctx, `
		INSERT INTO cities (name, region_id, latitude, longitude)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (region_id, name) DO UPDATE
			SET latitude = EXCLUDED.latitude, longitude = EXCLUDED.longitude
		RETURNING id, (xmax = 0) AS created`, city.Name, city.RegionID, city.Latitude, city.Longitude,
	).Scan(&city.ID, &created)
	if err != nil {
		return nil, false, fmt.Errorf("failed to upsert city %s: %w", name, err)
	}
	return city, created, nil
}

// SearchCities matches the term against city, region and country names
func (r *CatalogRepository) SearchCities(ctx context.Context, term string, limit int) ([]models.CitySearchResult, error) {
	pattern := "%" + escapeLike(term) + "%"
	query := `
		SELECT c.id, c.name || ', ' || rg.name || ', ' || co.name AS text
		FROM cities c
		JOIN regions rg ON rg.id = c.region_id
		JOIN countries co ON co.id = rg.country_id
		WHERE c.name ILIKE $1 OR rg.name ILIKE $1 OR co.name ILIKE $1
		ORDER BY c.name, c.id
		LIMIT $2`

	results := []models.CitySearchResult{}
	if err := r.db.SelectContext(ctx, &results, query, pattern, limit); err != nil {
		return nil, fmt.Errorf("failed to search cities: %w", err)
	}
	return results, nil
}

// DeleteCity removes a city. Cities used as a route endpoint are protected.
func (r *CatalogRepository) DeleteCity(ctx context.Context, id int64) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM cities WHERE id = $1`, id)
	if err != nil {
		if isForeignKeyViolation(err) {
			return domain.NewConflictError("city", "city is referenced by a route", err)
		}
		return fmt.Errorf("failed to delete city: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rows == 0 {
		return domain.NewNotFoundError("city", id)
	}
	return nil
}

// ============================================================================
// ROUTES
// ============================================================================

// CreateRoute inserts a route
func (r *CatalogRepository) CreateRoute(ctx context.Context, route *models.Route) error {
	err := r.db.QueryRowxContext(ctx, `
		INSERT INTO routes (name, operator_name, origin_city_id, destination_city_id, duration_minutes, base_price, is_active)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id`,
		route.Name, route.OperatorName, route.OriginCityID, route.DestinationCityID,
		route.DurationMinutes, route.BasePrice, route.IsActive,
	).Scan(&route.ID)
	if err != nil {
		return fmt.Errorf("failed to create route: %w", err)
	}
	return nil
}

// FindRouteVehicles lists active vehicles of active routes between two cities
func (r *CatalogRepository) FindRouteVehicles(ctx context.Context, originID, destinationID int64) ([]models.RouteSearchResult, error) {
	query := `
		SELECT
			rt.id AS route_id, rt.operator_name,
			o.name AS origin_name, d.name AS destination_name,
			rt.duration_minutes, rt.base_price,
			v.id AS vehicle_id, v.number AS vehicle_number
		FROM routes rt
		JOIN vehicles v ON v.route_id = rt.id AND v.is_active
		JOIN cities o ON o.id = rt.origin_city_id
		JOIN cities d ON d.id = rt.destination_city_id
		WHERE rt.origin_city_id = $1
		  AND rt.destination_city_id = $2
		  AND rt.is_active
		ORDER BY rt.base_price ASC, v.id ASC`

	results := []models.RouteSearchResult{}
	if err := r.db.SelectContext(ctx, &results, query, originID, destinationID); err != nil {
		return nil, fmt.Errorf("failed to find route vehicles: %w", err)
	}
	return results, nil
}

// GetCity returns a city or nil if it does not exist
func (r *CatalogRepository) GetCity(ctx context.Context, id int64) (*models.City, error) {
	var city models.City
	err := r.db.GetContext(ctx, &city, `SELECT id, name, region_id, latitude, longitude FROM cities WHERE id = $1`, id)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get city: %w", err)
	}
	return &city, nil
}

// escapeLike escapes LIKE wildcards in user input
func escapeLike(s string) string {
	replacer := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return replacer.Replace(s)
}
