package services

import (
	"context"
	"math"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// Decision is the result of an admission check.
type Decision struct {
	Allowed      bool
	Remaining    int
	ResetSeconds int
}

// TokenBucket admits publishes per identity. Each identity holds up to
// capacity tokens, refilled evenly over interval.
type TokenBucket struct {
	capacity int
	limit    rate.Limit
	idleTTL  time.Duration
	now      func() time.Time

	mu        sync.Mutex
	buckets   map[string]*limiterEntry
	lastSweep time.Time
}

type limiterEntry struct {
	limiter *rate.Limiter
	lastUse time.Time
}

const bucketSweepInterval = 5 * time.Minute

func NewTokenBucket(capacity int, interval time.Duration) *TokenBucket {
	if capacity <= 0 {
		capacity = 1
	}
	if interval <= 0 {
		interval = time.Hour
	}
	return &TokenBucket{
		capacity: capacity,
		limit:    rate.Limit(float64(capacity) / interval.Seconds()),
		// an idle bucket is full again after one interval, so forgetting it changes nothing
		idleTTL: interval,
		now:     time.Now,
		buckets: make(map[string]*limiterEntry),
	}
}

// Evaluate spends cost tokens from identity's bucket if it holds enough.
func (b *TokenBucket) Evaluate(_ context.Context, identity string, cost int) (Decision, error) {
	if cost <= 0 {
		cost = 1
	}
	now := b.now()

	b.mu.Lock()
	b.sweep(now)
	e, ok := b.buckets[identity]
	if !ok {
		e = &limiterEntry{limiter: rate.NewLimiter(b.limit, b.capacity)}
		b.buckets[identity] = e
	}
	e.lastUse = now
	b.mu.Unlock()

	if e.limiter.AllowN(now, cost) {
		return Decision{Allowed: true, Remaining: int(math.Floor(e.limiter.TokensAt(now)))}, nil
	}

	tokens := e.limiter.TokensAt(now)
	wait := (float64(cost) - tokens) / float64(b.limit)
	return Decision{
		Allowed:      false,
		Remaining:    int(math.Max(0, math.Floor(tokens))),
		ResetSeconds: int(math.Ceil(wait - 1e-6)),
	}, nil
}

func (b *TokenBucket) sweep(now time.Time) {
	if now.Sub(b.lastSweep) < bucketSweepInterval {
		return
	}
	b.lastSweep = now
	for id, e := range b.buckets {
		if now.Sub(e.lastUse) > b.idleTTL {
			delete(b.buckets, id)
		}
	}
}
