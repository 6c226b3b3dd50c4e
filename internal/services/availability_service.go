package services

import (
	"context"
	"sort"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/sirupsen/logrus"
	"github.com/smarttransit/seat-reservation-backend/internal/cache"
	"github.com/smarttransit/seat-reservation-backend/internal/domain"
	"github.com/smarttransit/seat-reservation-backend/internal/models"
	"github.com/smarttransit/seat-reservation-backend/pkg/validator"
)

const (
	minCityQueryLength = 2
	maxCityResults     = 10
)

// AvailabilityService answers read-only questions about seats, trips and routes
type AvailabilityService struct {
	trips        TripStore
	seats        SeatStore
	catalog      CatalogStore
	reservations ReservationStore
	occupied     cache.OccupiedSeats
	clock        Clock
	loc          *time.Location
	validator    *validator.StructValidator
	logger       *logrus.Logger
}

// NewAvailabilityService creates a new AvailabilityService. A nil cache disables caching.
func NewAvailabilityService(
	trips TripStore,
	seats SeatStore,
	catalog CatalogStore,
	reservations ReservationStore,
	occupied cache.OccupiedSeats,
	clock Clock,
	loc *time.Location,
	logger *logrus.Logger,
) *AvailabilityService {
	if occupied == nil {
		occupied = cache.Noop{}
	}
	return &AvailabilityService{
		trips:        trips,
		seats:        seats,
		catalog:      catalog,
		reservations: reservations,
		occupied:     occupied,
		clock:        clock,
		loc:          loc,
		validator:    validator.NewStructValidator(),
		logger:       logger,
	}
}

// GetSeatMap returns every seat of a scheduled trip's vehicle with its occupancy
// on the trip's departure date.
func (s *AvailabilityService) GetSeatMap(ctx context.Context, tripID int64) (*models.SeatMap, error) {
	trip, err := s.trips.GetTripDetails(ctx, tripID)
	if err != nil {
		return nil, domain.Internal("load trip", err)
	}
	if trip == nil || !trip.IsBookable() {
		return nil, domain.NewNotFoundError("trip", tripID)
	}

	seats, err := s.seats.ListSeatsByVehicle(ctx, trip.VehicleID)
	if err != nil {
		return nil, domain.Internal("load seats", err)
	}

	occupiedIDs, err := s.occupiedSeatIDs(ctx, trip.VehicleID, trip.TravelDate())
	if err != nil {
		return nil, err
	}
	occupied := make(map[int64]struct{}, len(occupiedIDs))
	for _, id := range occupiedIDs {
		occupied[id] = struct{}{}
	}

	statuses := make([]models.SeatStatus, 0, len(seats))
	for _, seat := range seats {
		_, taken := occupied[seat.ID]
		statuses = append(statuses, models.SeatStatus{
			ID:       seat.ID,
			Number:   seat.Number,
			Class:    seat.Class,
			Occupied: taken,
		})
	}

	return &models.SeatMap{
		Trip: models.SeatMapTrip{
			ID:          trip.ID,
			Operator:    trip.OperatorName,
			Origin:      trip.OriginName,
			Destination: trip.DestinationName,
			Departure:   trip.DepartureAt.Format("2006-01-02 15:04"),
			Price:       trip.Price,
		},
		Seats: statuses,
	}, nil
}

// SearchTrips lists scheduled trips between two cities on a date that still have free seats,
// earliest departure first.
func (s *AvailabilityService) SearchTrips(ctx context.Context, req models.TripSearchRequest) (*models.TripSearchResponse, error) {
	date, err := s.validateSearch(req)
	if err != nil {
		return nil, err
	}

	trips, err := s.trips.FindScheduled(ctx, req.OriginID, req.DestinationID, date)
	if err != nil {
		return nil, domain.Internal("search trips", err)
	}

	results := make([]models.TripSearchResult, 0, len(trips))
	for _, trip := range trips {
		occupiedIDs, err := s.occupiedSeatIDs(ctx, trip.VehicleID, date)
		if err != nil {
			return nil, err
		}

		trip.SeatsAvailable = trip.TotalSeats - len(occupiedIDs)
		if trip.SeatsAvailable <= 0 {
			continue
		}
		trip.DepartureTime = trip.DepartureAt.Format("15:04")
		trip.Duration = models.FormatDuration(trip.DurationMinutes)
		results = append(results, trip)
	}

	sort.SliceStable(results, func(i, j int) bool {
		return results[i].DepartureAt.Before(results[j].DepartureAt)
	})

	return &models.TripSearchResponse{Trips: results}, nil
}

// SearchRoutes lists every active vehicle of the routes between two cities with its
// free seats on date, cheapest route first.
func (s *AvailabilityService) SearchRoutes(ctx context.Context, req models.TripSearchRequest) (*models.RouteSearchResponse, error) {
	date, err := s.validateSearch(req)
	if err != nil {
		return nil, err
	}

	routes, err := s.catalog.FindRouteVehicles(ctx, req.OriginID, req.DestinationID)
	if err != nil {
		return nil, domain.Internal("search routes", err)
	}

	for i := range routes {
		total, err := s.seats.CountSeats(ctx, routes[i].VehicleID)
		if err != nil {
			return nil, domain.Internal("count seats", err)
		}
		occupiedIDs, err := s.occupiedSeatIDs(ctx, routes[i].VehicleID, date)
		if err != nil {
			return nil, err
		}

		routes[i].SeatsAvailable = max(total-len(occupiedIDs), 0)
		routes[i].Duration = models.FormatDuration(routes[i].DurationMinutes)
	}

	sort.SliceStable(routes, func(i, j int) bool {
		return routes[i].BasePrice < routes[j].BasePrice
	})

	return &models.RouteSearchResponse{Routes: routes}, nil
}

// SearchCities suggests cities whose city, region or country name contains q
func (s *AvailabilityService) SearchCities(ctx context.Context, q string) ([]models.CitySearchResult, error) {
	q = strings.TrimSpace(q)
	if utf8.RuneCountInString(q) < minCityQueryLength {
		return []models.CitySearchResult{}, nil
	}

	results, err := s.catalog.SearchCities(ctx, q, maxCityResults)
	if err != nil {
		return nil, domain.Internal("search cities", err)
	}
	return results, nil
}

func (s *AvailabilityService) validateSearch(req models.TripSearchRequest) (time.Time, error) {
	if err := s.validator.Struct(req); err != nil {
		return time.Time{}, validationError(err)
	}
	return parseUpcomingDate("date", req.Date, todayIn(s.clock.Now(), s.loc))
}

// occupiedSeatIDs returns the seats of a vehicle held by an active reservation on travelDate.
// Cache failures are logged and fall through to the store. The entry never outlives
// the earliest pending hold it contains.
func (s *AvailabilityService) occupiedSeatIDs(ctx context.Context, vehicleID int64, travelDate time.Time) ([]int64, error) {
	cached, cacheErr := s.occupied.Get(ctx, vehicleID, travelDate)
	if cacheErr != nil {
		s.logger.WithError(cacheErr).WithField("vehicle_id", vehicleID).Warn("Seat cache read failed")
	} else if cached.Hit {
		return cached.SeatIDs, nil
	}

	now := s.clock.Now()
	occupancy, err := s.reservations.ActiveSeats(ctx, vehicleID, travelDate, now)
	if err != nil {
		return nil, domain.Internal("load occupied seats", err)
	}
	if cacheErr != nil {
		return occupancy.SeatIDs, nil
	}

	var ttl time.Duration
	if occupancy.HoldsUntil != nil {
		ttl = occupancy.HoldsUntil.Sub(now)
		if ttl <= 0 {
			return occupancy.SeatIDs, nil
		}
	}
	if err := s.occupied.Set(ctx, vehicleID, travelDate, cached.Generation, occupancy.SeatIDs, ttl); err != nil {
		s.logger.WithError(err).WithField("vehicle_id", vehicleID).Warn("Seat cache write failed")
	}
	return occupancy.SeatIDs, nil
}
