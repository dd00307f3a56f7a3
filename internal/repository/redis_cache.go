package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

const cacheTracerName = "gymdesk-cache"

var ErrCacheMiss = errors.New("cache miss")

// RedisCacheRepository is a JSON value cache on Redis. Spans are tagged with
// the entity a key belongs to ("members" for "members:all").
type RedisCacheRepository struct {
	client *redis.Client
	tracer trace.Tracer
}

// NewRedisCacheRepository creates a new Redis cache repository
func NewRedisCacheRepository(client *redis.Client) *RedisCacheRepository {
	return &RedisCacheRepository{
		client: client,
		tracer: otel.Tracer(cacheTracerName),
	}
}

// cacheEntity is the key segment before the first colon
func cacheEntity(key string) string {
	entity, _, _ := strings.Cut(key, ":")
	return entity
}

func (r *RedisCacheRepository) startSpan(ctx context.Context, op string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	return r.tracer.Start(ctx, "cache."+op,
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(append(attrs, attribute.String("db.system", "redis"))...),
	)
}

// Get decodes the value at key into dest. A missing key is ErrCacheMiss.
func (r *RedisCacheRepository) Get(ctx context.Context, key string, dest interface{}) error {
	ctx, span := r.startSpan(ctx, "get",
		attribute.String("cache.key", key),
		attribute.String("cache.entity", cacheEntity(key)),
	)
	defer span.End()

	data, err := r.client.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		span.SetAttributes(attribute.Bool("cache.hit", false))
		return ErrCacheMiss
	}
	if err != nil {
		span.RecordError(err)
		return fmt.Errorf("cache get %s: %w", key, err)
	}
	span.SetAttributes(attribute.Bool("cache.hit", true), attribute.Int("cache.bytes", len(data)))

	if err := json.Unmarshal(data, dest); err != nil {
		span.RecordError(err)
		return fmt.Errorf("cache decode %s: %w", key, err)
	}
	return nil
}

// Set stores value as JSON. A zero ttl keeps the key until it is deleted.
func (r *RedisCacheRepository) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	ctx, span := r.startSpan(ctx, "set",
		attribute.String("cache.key", key),
		attribute.String("cache.entity", cacheEntity(key)),
		attribute.Int64("cache.ttl_seconds", int64(ttl.Seconds())),
	)
	defer span.End()

	data, err := json.Marshal(value)
	if err != nil {
		span.RecordError(err)
		return fmt.Errorf("cache encode %s: %w", key, err)
	}
	if err := r.client.Set(ctx, key, data, ttl).Err(); err != nil {
		span.RecordError(err)
		return fmt.Errorf("cache set %s: %w", key, err)
	}
	return nil
}

// Delete removes keys; no keys is a no-op
func (r *RedisCacheRepository) Delete(ctx context.Context, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}
	ctx, span := r.startSpan(ctx, "delete",
		attribute.StringSlice("cache.keys", keys),
		attribute.String("cache.entity", cacheEntity(keys[0])),
	)
	defer span.End()

	if err := r.client.Del(ctx, keys...).Err(); err != nil {
		span.RecordError(err)
		return fmt.Errorf("cache delete: %w", err)
	}
	return nil
}
