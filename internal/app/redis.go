package app

import (
	"context"
	"fmt"
	"strings"

	"github.com/newrelic/go-agent/v3/newrelic"
	"github.com/redis/go-redis/v9"

	"ridedispatch/internal/config"
)

// NewRedisClient connects to Redis, which backs the ride cache, idempotent
// replies and the janitor lock.
func NewRedisClient(ctx context.Context, cfg config.RedisConfig, nrApp *newrelic.Application) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
		PoolSize: cfg.PoolSize,
	})

	if nrApp != nil {
		client.AddHook(datastoreHook{})
	}

	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to ping redis: %w", err)
	}
	return client, nil
}

// datastoreHook reports each command as a New Relic datastore segment on the
// transaction carried by the context. The collection is the key namespace,
// e.g. "cache" for cache:ride:<id>.
type datastoreHook struct{}

func (datastoreHook) DialHook(next redis.DialHook) redis.DialHook {
	return next
}

func (datastoreHook) ProcessHook(next redis.ProcessHook) redis.ProcessHook {
	return func(ctx context.Context, cmd redis.Cmder) error {
		defer startSegment(ctx, cmd.Name(), keyNamespace(cmd)).End()
		return next(ctx, cmd)
	}
}

func (datastoreHook) ProcessPipelineHook(next redis.ProcessPipelineHook) redis.ProcessPipelineHook {
	return func(ctx context.Context, cmds []redis.Cmder) error {
		defer startSegment(ctx, "pipeline", "redis").End()
		return next(ctx, cmds)
	}
}

func startSegment(ctx context.Context, operation, collection string) *newrelic.DatastoreSegment {
	txn := newrelic.FromContext(ctx)
	if txn == nil {
		return nil
	}
	return &newrelic.DatastoreSegment{
		StartTime:  txn.StartSegmentNow(),
		Product:    newrelic.DatastoreRedis,
		Operation:  operation,
		Collection: collection,
	}
}

func keyNamespace(cmd redis.Cmder) string {
	args := cmd.Args()
	if len(args) < 2 {
		return "redis"
	}
	key, ok := args[1].(string)
	if !ok {
		return "redis"
	}
	if i := strings.IndexByte(key, ':'); i > 0 {
		return key[:i]
	}
	return key
}
