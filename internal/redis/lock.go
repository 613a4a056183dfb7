package redis

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const lockPrefix = "lock:"

// releaseScript deletes the lock only while it is still held by the caller.
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// LockStore handles distributed locking in Redis. Locks are owned by the
// store instance that acquired them.
type LockStore struct {
	client *redis.Client
	owner  string
}

// NewLockStore creates a new LockStore with a unique owner token.
func NewLockStore(client *redis.Client) *LockStore {
	return &LockStore{client: client, owner: uuid.New().String()}
}

// AcquireLock attempts to take the named lock for ttl.
// Returns true if the lock was acquired, false if already held.
func (s *LockStore) AcquireLock(ctx context.Context, name string, ttl time.Duration) (bool, error) {
	ok, err := s.client.SetNX(ctx, lockPrefix+name, s.owner, ttl).Result()
	if err != nil {
		return false, err
	}
	return ok, nil
}

// ReleaseLock releases the named lock if this store still holds it.
func (s *LockStore) ReleaseLock(ctx context.Context, name string) error {
	return releaseScript.Run(ctx, s.client, []string{lockPrefix + name}, s.owner).Err()
}
