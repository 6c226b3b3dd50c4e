// Package cache keeps short-lived copies of the occupied seat set per vehicle and travel date.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

// OccupiedSeats caches the ids of occupied seats. Reservation writes invalidate
// the entry; reads fall back to the database on a miss.
//
// Every invalidation bumps a per-key generation. A reader that missed passes the
// generation it saw to Set, and the write is dropped when an invalidation ran in
// between, so a slow reader can never put back a set older than the last write.
type OccupiedSeats interface {
	Get(ctx context.Context, vehicleID int64, travelDate time.Time) (Lookup, error)
	// Set stores seatIDs if the generation is still current. ttl shortens the
	// configured lifetime; zero keeps it.
	Set(ctx context.Context, vehicleID int64, travelDate time.Time, generation int64, seatIDs []int64, ttl time.Duration) error
	Invalidate(ctx context.Context, vehicleID int64, travelDate time.Time) error
}

// Lookup is the result of a Get. Generation is meaningful on a miss.
type Lookup struct {
	SeatIDs    []int64
	Hit        bool
	Generation int64
}

const (
	keyPrefix        = "seats:occupied"
	generationPrefix = "seats:gen"

	// generationTTL only has to outlive the slowest reader between Get and Set
	generationTTL = 24 * time.Hour
)

// KEYS[1] entry, KEYS[2] generation; ARGV[1] expected generation, ARGV[2] payload, ARGV[3] ttl in ms
const setScript = `
local current = redis.call('GET', KEYS[2])
if (current or '0') ~= ARGV[1] then
	return 0
end
redis.call('SET', KEYS[1], ARGV[2], 'PX', ARGV[3])
return 1`

// KEYS[1] entry, KEYS[2] generation; ARGV[1] generation ttl in ms
const invalidateScript = `
redis.call('INCR', KEYS[2])
redis.call('PEXPIRE', KEYS[2], ARGV[1])
redis.call('DEL', KEYS[1])
return 1`

// Key returns the cache key of a vehicle and travel date
func Key(vehicleID int64, travelDate time.Time) string {
	return fmt.Sprintf("%s:%d:%s", keyPrefix, vehicleID, travelDate.Format("2006-01-02"))
}

// GenerationKey returns the key of the invalidation counter paired with Key
func GenerationKey(vehicleID int64, travelDate time.Time) string {
	return fmt.Sprintf("%s:%d:%s", generationPrefix, vehicleID, travelDate.Format("2006-01-02"))
}

// RedisOccupiedSeats stores the set as a JSON array with a TTL
type RedisOccupiedSeats struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedisClient parses a redis:// URL and verifies the server answers
func NewRedisClient(ctx context.Context, url string) (*redis.Client, error) {
	opt, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("error parsing redis connection string: %w", err)
	}

	client := redis.NewClient(opt)
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to ping redis: %w", err)
	}
	return client, nil
}

// NewRedisOccupiedSeats creates a redis-backed cache
func NewRedisOccupiedSeats(client *redis.Client, ttl time.Duration) *RedisOccupiedSeats {
	return &RedisOccupiedSeats{client: client, ttl: ttl}
}

// Get reads the entry and its generation in one round trip
func (c *RedisOccupiedSeats) Get(ctx context.Context, vehicleID int64, travelDate time.Time) (Lookup, error) {
	vals, err := c.client.MGet(ctx, Key(vehicleID, travelDate), GenerationKey(vehicleID, travelDate)).Result()
	if err != nil {
		return Lookup{}, fmt.Errorf("failed to read occupied seats: %w", err)
	}
	if len(vals) != 2 {
		return Lookup{}, fmt.Errorf("failed to read occupied seats: unexpected reply of %d values", len(vals))
	}

	var lookup Lookup
	if raw, ok := vals[1].(string); ok {
		lookup.Generation, err = strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return Lookup{}, fmt.Errorf("failed to read occupied seats generation: %w", err)
		}
	}

	raw, ok := vals[0].(string)
	if !ok {
		return lookup, nil
	}
	// A corrupt entry is treated as a miss and overwritten by the next Set
	if err := json.Unmarshal([]byte(raw), &lookup.SeatIDs); err != nil {
		lookup.SeatIDs = nil
		return lookup, nil
	}
	lookup.Hit = true
	return lookup, nil
}

// Set stores the ids unless the entry was invalidated since generation was read
func (c *RedisOccupiedSeats) Set(ctx context.Context, vehicleID int64, travelDate time.Time, generation int64, seatIDs []int64, ttl time.Duration) error {
	if seatIDs == nil {
		seatIDs = []int64{}
	}
	payload, err := json.Marshal(seatIDs)
	if err != nil {
		return fmt.Errorf("failed to encode occupied seats: %w", err)
	}
	if ttl <= 0 || ttl > c.ttl {
		ttl = c.ttl
	}

	err = c.client.Eval(ctx, setScript,
		[]string{Key(vehicleID, travelDate), GenerationKey(vehicleID, travelDate)},
		strconv.FormatInt(generation, 10), string(payload), ttl.Milliseconds(),
	).Err()
	if err != nil && !errors.Is(err, redis.Nil) {
		return fmt.Errorf("failed to cache occupied seats: %w", err)
	}
	return nil
}

// Invalidate bumps the generation and drops the entry
func (c *RedisOccupiedSeats) Invalidate(ctx context.Context, vehicleID int64, travelDate time.Time) error {
	err := c.client.Eval(ctx, invalidateScript,
		[]string{Key(vehicleID, travelDate), GenerationKey(vehicleID, travelDate)},
		generationTTL.Milliseconds(),
	).Err()
	if err != nil && !errors.Is(err, redis.Nil) {
		return fmt.Errorf("failed to invalidate occupied seats: %w", err)
	}
	return nil
}

// Noop never caches. Used when no Redis URL is configured.
type Noop struct{}

func (Noop) Get(context.Context, int64, time.Time) (Lookup, error)                      { return Lookup{}, nil }
func (Noop) Set(context.Context, int64, time.Time, int64, []int64, time.Duration) error { return nil }
func (Noop) Invalidate(context.Context, int64, time.Time) error                         { return nil }
