package redis

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	idempotencyPrefix = "idempotency:"
	pendingMarker     = "pending"

	// ReplyTTL is how long a completed reply is replayed.
	ReplyTTL = 24 * time.Hour

	// ClaimTTL bounds how long an unfinished request blocks its key.
	ClaimTTL = 30 * time.Second
)

// StoredReply is a response recorded for an idempotency key.
type StoredReply struct {
	Status      int    `json:"status"`
	ContentType string `json:"content_type"`
	Body        []byte `json:"body"`
}

// IdempotencyStore records replies to mutating requests so that a retried
// request is answered without running twice.
type IdempotencyStore struct {
	client *redis.Client
}

// NewIdempotencyStore creates a new IdempotencyStore.
func NewIdempotencyStore(client *redis.Client) *IdempotencyStore {
	return &IdempotencyStore{client: client}
}

// Claim reserves key for the caller. When the key already holds a completed
// reply it is returned instead. A nil reply with claimed false means another
// request with the same key is still running.
func (s *IdempotencyStore) Claim(ctx context.Context, key string) (reply *StoredReply, claimed bool, err error) {
	ok, err := s.client.SetNX(ctx, idempotencyPrefix+key, pendingMarker, ClaimTTL).Result()
	if err != nil {
		return nil, false, err
	}
	if ok {
		return nil, true, nil
	}

	data, err := s.client.Get(ctx, idempotencyPrefix+key).Bytes()
	if errors.Is(err, redis.Nil) {
		// Expired between the two calls; let the caller retry the claim.
		return s.Claim(ctx, key)
	}
	if err != nil {
		return nil, false, err
	}
	if string(data) == pendingMarker {
		return nil, false, nil
	}

	var stored StoredReply
	if err := json.Unmarshal(data, &stored); err != nil {
		return nil, false, err
	}
	return &stored, false, nil
}

// Complete replaces the claim on key with the final reply.
func (s *IdempotencyStore) Complete(ctx context.Context, key string, reply StoredReply) error {
	data, err := json.Marshal(reply)
	if err != nil {
		return err
	}
	return s.client.Set(ctx, idempotencyPrefix+key, data, ReplyTTL).Err()
}

// Release drops the claim on key so the request may be retried.
func (s *IdempotencyStore) Release(ctx context.Context, key string) error {
	return s.client.Del(ctx, idempotencyPrefix+key).Err()
}
