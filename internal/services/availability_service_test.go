package services

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/smarttransit/seat-reservation-backend/internal/config"
	"github.com/smarttransit/seat-reservation-backend/internal/domain"
	"github.com/smarttransit/seat-reservation-backend/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func searchRequest(date string) models.TripSearchRequest {
	return models.TripSearchRequest{OriginID: 1, DestinationID: 2, Date: date}
}

func TestGetSeatMap(t *testing.T) {
	f := newReservationFixture(t, config.ReservationConfig{})

	seatMap, err := f.avail.GetSeatMap(context.Background(), tripT)
	require.NoError(t, err)
	assert.Equal(t, "2025-06-01 08:00", seatMap.Trip.Departure)
	assert.Equal(t, "Pullman Sur", seatMap.Trip.Operator)
	assert.Equal(t, 1500.0, seatMap.Trip.Price)
	require.Len(t, seatMap.Seats, 20)
	assert.Equal(t, 1, seatMap.Seats[0].Number)
	assert.False(t, seatMap.Seats[0].Occupied)
}

func TestGetSeatMap_NotFound(t *testing.T) {
	f := newReservationFixture(t, config.ReservationConfig{})

	_, err := f.avail.GetSeatMap(context.Background(), 404)
	assert.True(t, domain.IsNotFound(err))

	f.store.addTrip(models.TripDetails{Trip: models.Trip{
		ID: 11, VehicleID: vehicleV, DepartureAt: time.Date(2025, 6, 2, 8, 0, 0, 0, time.UTC), State: models.TripStateCancelled,
	}})
	_, err = f.avail.GetSeatMap(context.Background(), 11)
	assert.True(t, domain.IsNotFound(err))
}

func TestGetSeatMap_UsesCachedOccupancy(t *testing.T) {
	f := newReservationFixture(t, config.ReservationConfig{})
	date := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)
	require.NoError(t, f.cache.Set(context.Background(), vehicleV, date, 0, []int64{firstSeat + 2}, 0))

	seatMap, err := f.avail.GetSeatMap(context.Background(), tripT)
	require.NoError(t, err)
	assert.True(t, seatMap.Seats[2].Occupied)
	assert.False(t, seatMap.Seats[4].Occupied)
}

// interleavingStore runs a write after the occupied set was read from the store
// and before it reaches the cache
type interleavingStore struct {
	*memoryStore
	once  sync.Once
	write func()
}

func (s *interleavingStore) ActiveSeats(ctx context.Context, vehicleID int64, travelDate, now time.Time) (models.Occupancy, error) {
	occupancy, err := s.memoryStore.ActiveSeats(ctx, vehicleID, travelDate, now)
	s.once.Do(s.write)
	return occupancy, err
}

func TestGetSeatMap_ReservationDuringLoadIsNotHiddenByCache(t *testing.T) {
	f := newReservationFixture(t, config.ReservationConfig{})
	store := &interleavingStore{memoryStore: f.store}
	store.write = func() {
		_, err := f.svc.Create(context.Background(), uuid.New(), createRequest(seatFiveID, "2025-06-01"))
		require.NoError(t, err)
	}
	avail := NewAvailabilityService(f.store, f.store, f.store, store, f.cache, f.clock, santiago, newTestLogger())

	before, err := avail.GetSeatMap(context.Background(), tripT)
	require.NoError(t, err)
	assert.False(t, before.Seats[4].Occupied)

	after, err := avail.GetSeatMap(context.Background(), tripT)
	require.NoError(t, err)
	assert.True(t, after.Seats[4].Occupied, "seat 5 after a committed reservation")
}

func TestGetSeatMap_CachedHoldLapsesWithItsExpiry(t *testing.T) {
	f := newReservationFixture(t, config.ReservationConfig{HoldTTL: 10 * time.Minute})
	date := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)

	_, err := f.svc.Create(context.Background(), uuid.New(), createRequest(seatFiveID, "2025-06-01"))
	require.NoError(t, err)

	seatMap, err := f.avail.GetSeatMap(context.Background(), tripT)
	require.NoError(t, err)
	assert.True(t, seatMap.Seats[4].Occupied)

	entry, ok := f.cache.entry(vehicleV, date)
	require.True(t, ok)
	assert.Equal(t, 10*time.Minute, entry.ttl)

	// the sweeper has not run; the cached set must not keep the seat taken
	f.clock.Advance(11 * time.Minute)

	seatMap, err = f.avail.GetSeatMap(context.Background(), tripT)
	require.NoError(t, err)
	assert.False(t, seatMap.Seats[4].Occupied)
}

func TestGetSeatMap_ConfirmedSetUsesDefaultTTL(t *testing.T) {
	f := newReservationFixture(t, config.ReservationConfig{DirectConfirm: true})
	date := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)

	_, err := f.svc.Create(context.Background(), uuid.New(), createRequest(seatFiveID, "2025-06-01"))
	require.NoError(t, err)
	_, err = f.avail.GetSeatMap(context.Background(), tripT)
	require.NoError(t, err)

	entry, ok := f.cache.entry(vehicleV, date)
	require.True(t, ok)
	assert.Zero(t, entry.ttl)
}

func TestGetSeatMap_CacheWriteFailureIsIgnored(t *testing.T) {
	f := newReservationFixture(t, config.ReservationConfig{})
	f.cache.failSet = true

	_, err := f.avail.GetSeatMap(context.Background(), tripT)
	assert.NoError(t, err)
}

func TestSearchTrips(t *testing.T) {
	f := newReservationFixture(t, config.ReservationConfig{})
	// a second, earlier trip on another vehicle with a single seat
	f.store.addSeats(2, 500, 1)
	f.store.addTrip(models.TripDetails{
		Trip:            models.Trip{ID: 20, VehicleID: 2, DepartureAt: time.Date(2025, 6, 1, 6, 15, 0, 0, time.UTC), Price: 900},
		OperatorName:    "Tur Bus",
		DurationMinutes: 90,
	})

	resp, err := f.avail.SearchTrips(context.Background(), searchRequest("2025-06-01"))
	require.NoError(t, err)
	require.Len(t, resp.Trips, 2)
	assert.Equal(t, int64(20), resp.Trips[0].TripID)
	assert.Equal(t, "06:15", resp.Trips[0].DepartureTime)
	assert.Equal(t, "1:30:00", resp.Trips[0].Duration)
	assert.Equal(t, 1, resp.Trips[0].SeatsAvailable)
	assert.Equal(t, 20, resp.Trips[1].SeatsAvailable)

	// the single seat gets taken: the trip drops out of the results
	_, err = f.svc.Create(context.Background(), uuid.New(), createRequest(500, "2025-06-01"))
	require.NoError(t, err)

	resp, err = f.avail.SearchTrips(context.Background(), searchRequest("2025-06-01"))
	require.NoError(t, err)
	require.Len(t, resp.Trips, 1)
	assert.Equal(t, tripT, resp.Trips[0].TripID)
}

func TestSearchTrips_Validation(t *testing.T) {
	f := newReservationFixture(t, config.ReservationConfig{})

	_, err := f.avail.SearchTrips(context.Background(), searchRequest("2025-05-19"))
	assert.True(t, domain.IsValidation(err), "yesterday")

	_, err = f.avail.SearchTrips(context.Background(), models.TripSearchRequest{DestinationID: 2, Date: "2025-06-01"})
	assert.True(t, domain.IsValidation(err), "missing origin")

	resp, err := f.avail.SearchTrips(context.Background(), searchRequest("2025-05-20"))
	require.NoError(t, err, "today")
	assert.Empty(t, resp.Trips)
}

func TestSearchRoutes(t *testing.T) {
	f := newReservationFixture(t, config.ReservationConfig{})
	f.store.routes = []models.RouteSearchResult{
		{RouteID: 1, VehicleID: vehicleV, BasePrice: 1500, DurationMinutes: 105},
		{RouteID: 2, VehicleID: 3, BasePrice: 1200, DurationMinutes: 120},
	}

	_, err := f.svc.Create(context.Background(), uuid.New(), createRequest(firstSeat, "2025-06-01"))
	require.NoError(t, err)

	resp, err := f.avail.SearchRoutes(context.Background(), searchRequest("2025-06-01"))
	require.NoError(t, err)
	require.Len(t, resp.Routes, 2)
	assert.Equal(t, int64(2), resp.Routes[0].RouteID, "cheapest first")
	assert.Equal(t, 0, resp.Routes[0].SeatsAvailable)
	assert.Equal(t, 19, resp.Routes[1].SeatsAvailable)
	assert.Equal(t, "1:45:00", resp.Routes[1].Duration)
}

func TestSearchCities(t *testing.T) {
	f := newReservationFixture(t, config.ReservationConfig{})
	f.store.cities = []models.CitySearchResult{{ID: 1, Text: "Santiago, Región Metropolitana, Chile"}}

	results, err := f.avail.SearchCities(context.Background(), " s ")
	require.NoError(t, err)
	assert.NotNil(t, results)
	assert.Empty(t, results)

	results, err = f.avail.SearchCities(context.Background(), "san")
	require.NoError(t, err)
	assert.Len(t, results, 1)
}
