package repository

import (
	"context"
	"log"
	"sync/atomic"
	"time"

	"github.com/mansoorceksport/gymdesk/internal/domain"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

const memberListKey = "members:all"

// CachedMemberRepository wraps a member repository with a Redis copy of the
// full member list. Any write drops the cached list.
type CachedMemberRepository struct {
	store domain.MemberRepository
	cache *RedisCacheRepository
	ttl   time.Duration

	lookups      metric.Int64Counter
	hits, misses atomic.Int64
}

// CacheStats counts member list lookups since startup
type CacheStats struct {
	Hits   int64
	Misses int64
}

// NewCachedMemberRepository creates a new cached member repository
func NewCachedMemberRepository(store domain.MemberRepository, cache *RedisCacheRepository, ttl time.Duration) *CachedMemberRepository {
	lookups, err := otel.Meter("gymdesk/member-cache").Int64Counter("gymdesk.member_cache.lookups",
		metric.WithDescription("Member list lookups served by the Redis copy, by result"))
	if err != nil {
		log.Printf("Warning: member cache counter unavailable: %v", err)
	}
	return &CachedMemberRepository{
		store:   store,
		cache:   cache,
		ttl:     ttl,
		lookups: lookups,
	}
}

// Stats reports how often List was served from Redis
func (r *CachedMemberRepository) Stats() CacheStats {
	return CacheStats{Hits: r.hits.Load(), Misses: r.misses.Load()}
}

func (r *CachedMemberRepository) record(ctx context.Context, hit bool) {
	result := "miss"
	if hit {
		r.hits.Add(1)
		result = "hit"
	} else {
		r.misses.Add(1)
	}
	if r.lookups != nil {
		r.lookups.Add(ctx, 1, metric.WithAttributes(attribute.String("result", result)))
	}
}

// List serves the member list from Redis, falling back to the store on a miss
func (r *CachedMemberRepository) List(ctx context.Context) ([]*domain.Member, error) {
	var members []*domain.Member
	if err := r.cache.Get(ctx, memberListKey, &members); err == nil {
		r.record(ctx, true)
		return members, nil
	}
	r.record(ctx, false)

	members, err := r.store.List(ctx)
	if err != nil {
		return nil, err
	}

	// Store in cache (ignore cache errors)
	_ = r.cache.Set(ctx, memberListKey, members, r.ttl)
	return members, nil
}

func (r *CachedMemberRepository) Create(ctx context.Context, member *domain.Member) error {
	if err := r.store.Create(ctx, member); err != nil {
		return err
	}
	r.invalidate(ctx)
	return nil
}

func (r *CachedMemberRepository) Replace(ctx context.Context, member *domain.Member) error {
	if err := r.store.Replace(ctx, member); err != nil {
		return err
	}
	r.invalidate(ctx)
	return nil
}

func (r *CachedMemberRepository) Delete(ctx context.Context, id string) error {
	if err := r.store.Delete(ctx, id); err != nil {
		return err
	}
	r.invalidate(ctx)
	return nil
}

// Invalidate drops the cached list so the next List reads the store
func (r *CachedMemberRepository) Invalidate(ctx context.Context) {
	r.invalidate(ctx)
}

func (r *CachedMemberRepository) invalidate(ctx context.Context) {
	if err := r.cache.Delete(ctx, memberListKey); err != nil {
		log.Printf("Warning: failed to invalidate member cache: %v", err)
	}
}
