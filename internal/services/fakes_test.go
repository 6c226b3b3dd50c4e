package services

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/smarttransit/seat-reservation-backend/internal/cache"
	"github.com/smarttransit/seat-reservation-backend/internal/domain"
	"github.com/smarttransit/seat-reservation-backend/internal/models"
)

var santiago = mustLoadLocation("America/Santiago")

func mustLoadLocation(name string) *time.Location {
	loc, err := time.LoadLocation(name)
	if err != nil {
		return time.FixedZone(name, -4*60*60)
	}
	return loc
}

func newTestLogger() *logrus.Logger {
	logger, _ := test.NewNullLogger()
	return logger
}

// fakeClock returns a settable instant
type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock(t time.Time) *fakeClock { return &fakeClock{now: t} }

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Set(t time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = t
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

// memoryStore is an in-memory catalog and reservation store. CreateAtomic
// serialises on the mutex, which plays the role of the unique index.
type memoryStore struct {
	mu           sync.Mutex
	seats        map[int64]models.Seat
	trips        map[int64]models.TripDetails
	routes       []models.RouteSearchResult
	cities       []models.CitySearchResult
	reservations map[int64]*models.Reservation
	nextID       int64
	err          error
}

func newMemoryStore() *memoryStore {
	return &memoryStore{
		seats:        map[int64]models.Seat{},
		trips:        map[int64]models.TripDetails{},
		reservations: map[int64]*models.Reservation{},
	}
}

func (m *memoryStore) addSeats(vehicleID int64, firstID int64, count int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := 0; i < count; i++ {
		id := firstID + int64(i)
		m.seats[id] = models.Seat{ID: id, VehicleID: vehicleID, Number: i + 1, Class: models.SeatClassNormal}
	}
}

func (m *memoryStore) addTrip(trip models.TripDetails) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if trip.State == "" {
		trip.State = models.TripStateScheduled
	}
	m.trips[trip.ID] = trip
}

func (m *memoryStore) setTripPrice(id int64, price float64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	trip := m.trips[id]
	trip.Price = price
	m.trips[id] = trip
}

func (m *memoryStore) reservation(id int64) *models.Reservation {
	m.mu.Lock()
	defer m.mu.Unlock()
	if r, ok := m.reservations[id]; ok {
		cp := *r
		return &cp
	}
	return nil
}

func (m *memoryStore) isActive(r *models.Reservation, now time.Time) bool {
	switch r.State {
	case models.ReservationStateConfirmed:
		return true
	case models.ReservationStatePending:
		return r.ExpiresAt == nil || r.ExpiresAt.After(now)
	}
	return false
}

// TripStore

func (m *memoryStore) GetTripDetails(_ context.Context, id int64) (*models.TripDetails, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return nil, m.err
	}
	trip, ok := m.trips[id]
	if !ok {
		return nil, nil
	}
	return &trip, nil
}

func (m *memoryStore) FindScheduled(_ context.Context, originID, destinationID int64, date time.Time) ([]models.TripSearchResult, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var results []models.TripSearchResult
	for _, trip := range m.trips {
		if trip.State != models.TripStateScheduled || !trip.TravelDate().Equal(models.DateOf(date)) {
			continue
		}
		total := 0
		for _, seat := range m.seats {
			if seat.VehicleID == trip.VehicleID {
				total++
			}
		}
		results = append(results, models.TripSearchResult{
			TripID:          trip.ID,
			VehicleID:       trip.VehicleID,
			Operator:        trip.OperatorName,
			Origin:          trip.OriginName,
			Destination:     trip.DestinationName,
			DepartureAt:     trip.DepartureAt,
			DurationMinutes: trip.DurationMinutes,
			Price:           trip.Price,
			TotalSeats:      total,
		})
	}
	sort.Slice(results, func(i, j int) bool { return results[i].TripID < results[j].TripID })
	return results, nil
}

// SeatStore

func (m *memoryStore) GetSeat(_ context.Context, id int64) (*models.Seat, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	seat, ok := m.seats[id]
	if !ok {
		return nil, nil
	}
	return &seat, nil
}

func (m *memoryStore) ListSeatsByVehicle(_ context.Context, vehicleID int64) ([]models.Seat, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	seats := []models.Seat{}
	for _, seat := range m.seats {
		if seat.VehicleID == vehicleID {
			seats = append(seats, seat)
		}
	}
	sort.Slice(seats, func(i, j int) bool { return seats[i].Number < seats[j].Number })
	return seats, nil
}

func (m *memoryStore) CountSeats(ctx context.Context, vehicleID int64) (int, error) {
	seats, err := m.ListSeatsByVehicle(ctx, vehicleID)
	return len(seats), err
}

// CatalogStore

func (m *memoryStore) SearchCities(_ context.Context, term string, limit int) ([]models.CitySearchResult, error) {
	results := []models.CitySearchResult{}
	for _, c := range m.cities {
		if len(results) == limit {
			break
		}
		results = append(results, c)
	}
	return results, nil
}

func (m *memoryStore) FindRouteVehicles(_ context.Context, originID, destinationID int64) ([]models.RouteSearchResult, error) {
	out := make([]models.RouteSearchResult, len(m.routes))
	copy(out, m.routes)
	return out, nil
}

// ReservationStore

func (m *memoryStore) CreateAtomic(_ context.Context, in models.NewReservation) (*models.Reservation, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return nil, m.err
	}

	seat, ok := m.seats[in.SeatID]
	if !ok {
		return nil, domain.NewNotFoundError("seat", in.SeatID)
	}

	date := models.DateOf(in.TravelDate)
	var trip *models.TripDetails
	for id := range m.trips {
		t := m.trips[id]
		if t.VehicleID == seat.VehicleID && t.State == models.TripStateScheduled && t.TravelDate().Equal(date) {
			trip = &t
			break
		}
	}
	if trip == nil {
		return nil, domain.NotFoundError{Resource: "trip"}
	}

	for _, r := range m.reservations {
		if r.SeatID != seat.ID || !r.TravelDate.Equal(date) {
			continue
		}
		if r.State == models.ReservationStatePending && r.ExpiresAt != nil && !r.ExpiresAt.After(in.Now) {
			r.State = models.ReservationStateCancelled
			continue
		}
		if m.isActive(r, in.Now) {
			return nil, domain.NewConflictError("seat", "seat already reserved", nil)
		}
	}

	m.nextID++
	res := &models.Reservation{
		ID:         m.nextID,
		UserID:     in.UserID,
		SeatID:     seat.ID,
		TripID:     trip.ID,
		VehicleID:  seat.VehicleID,
		TravelDate: date,
		State:      in.State,
		Price:      trip.Price,
		ExpiresAt:  in.HoldUntil,
		CreatedAt:  in.Now,
		UpdatedAt:  in.Now,
	}
	m.reservations[res.ID] = res
	cp := *res
	return &cp, nil
}

func (m *memoryStore) GetByID(_ context.Context, id int64) (*models.Reservation, error) {
	return m.reservation(id), nil
}

func (m *memoryStore) ActiveSeats(_ context.Context, vehicleID int64, travelDate, now time.Time) (models.Occupancy, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	occupancy := models.Occupancy{SeatIDs: []int64{}}
	for _, r := range m.reservations {
		if r.VehicleID != vehicleID || !r.TravelDate.Equal(models.DateOf(travelDate)) || !m.isActive(r, now) {
			continue
		}
		occupancy.SeatIDs = append(occupancy.SeatIDs, r.SeatID)
		if r.State == models.ReservationStatePending && r.ExpiresAt != nil &&
			(occupancy.HoldsUntil == nil || r.ExpiresAt.Before(*occupancy.HoldsUntil)) {
			expires := *r.ExpiresAt
			occupancy.HoldsUntil = &expires
		}
	}
	sort.Slice(occupancy.SeatIDs, func(i, j int) bool { return occupancy.SeatIDs[i] < occupancy.SeatIDs[j] })
	return occupancy, nil
}

func (m *memoryStore) Confirm(_ context.Context, id int64, userID uuid.UUID, orderID string, now time.Time) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.reservations[id]
	if !ok || r.UserID != userID || r.State != models.ReservationStatePending {
		return false, nil
	}
	if r.ExpiresAt != nil && !r.ExpiresAt.After(now) {
		return false, nil
	}
	r.State = models.ReservationStateConfirmed
	r.PaymentOrderID = &orderID
	r.ExpiresAt = nil
	r.UpdatedAt = now
	return true, nil
}

func (m *memoryStore) DeleteBeforeTravel(_ context.Context, id int64, userID uuid.UUID, today time.Time) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.reservations[id]
	if !ok || r.UserID != userID || !r.TravelDate.After(models.DateOf(today)) {
		return false, nil
	}
	delete(m.reservations, id)
	return true, nil
}

func (m *memoryStore) ListConfirmedByUser(_ context.Context, userID uuid.UUID) ([]models.ReservationDetails, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	list := []models.ReservationDetails{}
	for _, r := range m.reservations {
		if r.UserID == userID && r.State == models.ReservationStateConfirmed {
			list = append(list, models.ReservationDetails{
				ID:         r.ID,
				State:      r.State,
				TravelDate: r.TravelDate,
				Price:      r.Price,
				SeatNumber: m.seats[r.SeatID].Number,
			})
		}
	}
	sort.Slice(list, func(i, j int) bool { return list[i].TravelDate.After(list[j].TravelDate) })
	return list, nil
}

func (m *memoryStore) ExpireHolds(_ context.Context, now time.Time, limit int) ([]models.Reservation, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	ids := make([]int64, 0)
	for id, r := range m.reservations {
		if r.State == models.ReservationStatePending && r.ExpiresAt != nil && !r.ExpiresAt.After(now) {
			ids = append(ids, id)
		}
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	if len(ids) > limit {
		ids = ids[:limit]
	}
	expired := make([]models.Reservation, 0, len(ids))
	for _, id := range ids {
		r := m.reservations[id]
		r.State = models.ReservationStateCancelled
		expired = append(expired, *r)
	}
	return expired, nil
}

func (m *memoryStore) ConfirmAllPending(_ context.Context, now time.Time) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var n int64
	for _, r := range m.reservations {
		if m.isActive(r, now) && r.State == models.ReservationStatePending {
			r.State = models.ReservationStateConfirmed
			r.ExpiresAt = nil
			n++
		}
	}
	return n, nil
}

// recordingCache mirrors the redis cache: entries expire on the fake clock and
// a Set carrying an outdated generation is dropped
type recordingCache struct {
	mu          sync.Mutex
	clock       *fakeClock
	entries     map[string]cachedSeats
	generations map[string]int64
	invalidated []string
	failSet     bool
}

type cachedSeats struct {
	ids     []int64
	ttl     time.Duration
	expires time.Time
}

func newRecordingCache(clock *fakeClock) *recordingCache {
	return &recordingCache{clock: clock, entries: map[string]cachedSeats{}, generations: map[string]int64{}}
}

func cacheKey(vehicleID int64, date time.Time) string {
	return fmt.Sprintf("%d:%s", vehicleID, date.Format(models.DateLayout))
}

func (c *recordingCache) Get(_ context.Context, vehicleID int64, date time.Time) (cache.Lookup, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	key := cacheKey(vehicleID, date)
	lookup := cache.Lookup{Generation: c.generations[key]}
	entry, ok := c.entries[key]
	if ok && (entry.ttl == 0 || c.clock.Now().Before(entry.expires)) {
		lookup.SeatIDs = entry.ids
		lookup.Hit = true
	}
	return lookup, nil
}

func (c *recordingCache) Set(_ context.Context, vehicleID int64, date time.Time, generation int64, ids []int64, ttl time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.failSet {
		return context.DeadlineExceeded
	}
	key := cacheKey(vehicleID, date)
	if c.generations[key] != generation {
		return nil
	}
	c.entries[key] = cachedSeats{ids: ids, ttl: ttl, expires: c.clock.Now().Add(ttl)}
	return nil
}

func (c *recordingCache) Invalidate(_ context.Context, vehicleID int64, date time.Time) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	key := cacheKey(vehicleID, date)
	c.generations[key]++
	delete(c.entries, key)
	c.invalidated = append(c.invalidated, key)
	return nil
}

func (c *recordingCache) entry(vehicleID int64, date time.Time) (cachedSeats, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	entry, ok := c.entries[cacheKey(vehicleID, date)]
	return entry, ok
}

// recordingPublisher keeps published events
type recordingPublisher struct {
	mu     sync.Mutex
	events []models.ReservationEvent
	err    error
}

func (p *recordingPublisher) Publish(_ context.Context, e models.ReservationEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.err != nil {
		return p.err
	}
	p.events = append(p.events, e)
	return nil
}

func (p *recordingPublisher) Close() error { return nil }

func (p *recordingPublisher) types() []models.ReservationEventType {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]models.ReservationEventType, 0, len(p.events))
	for _, e := range p.events {
		out = append(out, e.Type)
	}
	return out
}
