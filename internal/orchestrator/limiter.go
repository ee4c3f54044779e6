package orchestrator

import (
	"context"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"

	"voicegate/pkg/utils"
)

// Limiter caps concurrent AI conversations per tenant. Acquire returns a
// release func when a slot was granted and ok=false when the tenant is at
// its limit.
type Limiter interface {
	Acquire(ctx context.Context, tenantID string) (release func(), ok bool, err error)
}

// RedisLimiter enforces the cap across all API instances. The slot TTL
// covers the longest possible call so crashed workers cannot leak slots
// forever.
type RedisLimiter struct {
	rdb     *redis.Client
	limit   int
	slotTTL time.Duration
}

func NewRedisLimiter(rdb *redis.Client, limit int, maxCallDuration time.Duration) *RedisLimiter {
	return &RedisLimiter{
		rdb:     rdb,
		limit:   limit,
		slotTTL: maxCallDuration + time.Minute,
	}
}

func capKey(tenantID string) string { return "tenant:" + tenantID + ":active_calls" }

func (l *RedisLimiter) Acquire(ctx context.Context, tenantID string) (func(), bool, error) {
	ok, err := utils.AcquireConcurrencyCap(ctx, l.rdb, capKey(tenantID), l.limit, l.slotTTL)
	if err != nil || !ok {
		return nil, false, err
	}
	release := func() {
		// Release must survive call-context cancellation.
		rctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 2*time.Second)
		defer cancel()
		_ = utils.ReleaseConcurrencyCap(rctx, l.rdb, capKey(tenantID))
	}
	return release, true, nil
}

// MemoryLimiter is the single-process variant for tests and local runs.
type MemoryLimiter struct {
	mu     sync.Mutex
	limit  int
	active map[string]int
}

func NewMemoryLimiter(limit int) *MemoryLimiter {
	return &MemoryLimiter{limit: limit, active: make(map[string]int)}
}

func (l *MemoryLimiter) Acquire(ctx context.Context, tenantID string) (func(), bool, error) {
	_ = ctx
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.active[tenantID] >= l.limit {
		return nil, false, nil
	}
	l.active[tenantID]++
	var once sync.Once
	release := func() {
		once.Do(func() {
			l.mu.Lock()
			defer l.mu.Unlock()
			if l.active[tenantID] > 0 {
				l.active[tenantID]--
			}
		})
	}
	return release, true, nil
}
