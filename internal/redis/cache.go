package redis

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"

	"ridedispatch/internal/domain"
)

// RideCacheTTL bounds how long a ride snapshot may be served.
const RideCacheTTL = 10 * time.Second

const (
	rideCachePrefix = "cache:ride:"
	rideFencePrefix = "cache:ride-fence:"
)

// setRideScript stores a snapshot unless the ride was invalidated at or
// after the snapshot's updated_at.
var setRideScript = redis.NewScript(`
local fence = redis.call("GET", KEYS[2])
if fence and tonumber(ARGV[2]) <= tonumber(fence) then
	return 0
end
redis.call("SET", KEYS[1], ARGV[1], "PX", ARGV[3])
return 1
`)

// CacheStore handles ride caching in Redis.
type CacheStore struct {
	client *redis.Client
	ttl    time.Duration
}

// NewCacheStore creates a new CacheStore. A non-positive ttl uses RideCacheTTL.
func NewCacheStore(client *redis.Client, ttl time.Duration) *CacheStore {
	if ttl <= 0 {
		ttl = RideCacheTTL
	}
	return &CacheStore{client: client, ttl: ttl}
}

// GetRide retrieves a ride from cache. A miss returns (nil, nil).
func (s *CacheStore) GetRide(ctx context.Context, rideID string) (*domain.Ride, error) {
	data, err := s.client.Get(ctx, rideCachePrefix+rideID).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, err
	}

	var ride domain.Ride
	if err := json.Unmarshal(data, &ride); err != nil {
		return nil, err
	}
	return &ride, nil
}

// SetRide stores a ride snapshot. A snapshot read before the ride's last
// invalidation is dropped.
func (s *CacheStore) SetRide(ctx context.Context, ride *domain.Ride) error {
	data, err := json.Marshal(ride)
	if err != nil {
		return err
	}
	keys := []string{rideCachePrefix + ride.ID, rideFencePrefix + ride.ID}
	return setRideScript.Run(ctx, s.client, keys, data, ride.UpdatedAt.UnixMilli(), s.ttl.Milliseconds()).Err()
}

// InvalidateRide removes a ride from cache and fences out snapshots read
// before now for one ttl.
func (s *CacheStore) InvalidateRide(ctx context.Context, rideID string) error {
	_, err := s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Set(ctx, rideFencePrefix+rideID, time.Now().UnixMilli(), s.ttl)
		pipe.Del(ctx, rideCachePrefix+rideID)
		return nil
	})
	return err
}
