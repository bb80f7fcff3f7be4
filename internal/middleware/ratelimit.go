package middleware

import (
	"net/http"
	"strconv"
	"time"

	"github.com/AnshRaj112/reflect-backend/internal/logger"
	"github.com/AnshRaj112/reflect-backend/pkg/clientip"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
)

const (
	// RateLimitWindow is 120 seconds
	RateLimitWindow = 120 * time.Second
	// RateLimitMaxRequests is the maximum number of requests allowed in the window
	RateLimitMaxRequests = 120
	// RateLimitKeyPrefix is the Redis key prefix for rate limiting
	RateLimitKeyPrefix = "ratelimit:"
	// BlockedIPKeyPrefix is the Redis key prefix for blocked IPs
	BlockedIPKeyPrefix = "blocked_ip:"
	// BlockedIPDuration is how long an IP stays blocked
	BlockedIPDuration = 15 * time.Minute
)

// IPRateLimiter is a fixed-window per-IP limit shared by every instance
// through Redis. An IP that overruns the window is blocked for a while.
type IPRateLimiter struct {
	client   *redis.Client
	window   time.Duration
	max      int64
	blockFor time.Duration
}

func NewIPRateLimiter(client *redis.Client) *IPRateLimiter {
	return &IPRateLimiter{
		client:   client,
		window:   RateLimitWindow,
		max:      RateLimitMaxRequests,
		blockFor: BlockedIPDuration,
	}
}

// Handler fails open when Redis is unavailable.
func (l *IPRateLimiter) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		ip := clientip.Key(r)

		blockedKey := BlockedIPKeyPrefix + ip
		if blocked, err := l.client.Exists(ctx, blockedKey).Result(); err == nil && blocked > 0 {
			w.Header().Set("Retry-After", strconv.Itoa(int(l.blockFor.Seconds())))
			writeError(w, http.StatusTooManyRequests, "Your IP has been temporarily blocked due to excessive requests. Please try again later.")
			return
		}

		key := RateLimitKeyPrefix + ip
		pipe := l.client.TxPipeline()
		incr := pipe.Incr(ctx, key)
		ttl := pipe.TTL(ctx, key)
		if _, err := pipe.Exec(ctx); err != nil {
			logger.Log.WithError(err).Warn("rate limiter unavailable, allowing request")
			next.ServeHTTP(w, r)
			return
		}

		count := incr.Val()
		reset := ttl.Val()
		if reset < 0 {
			// first hit of the window
			reset = l.window
			l.client.Expire(ctx, key, l.window)
		}

		if count > l.max {
			if err := l.client.Set(ctx, blockedKey, "1", l.blockFor).Err(); err == nil {
				logger.Log.WithFields(logrus.Fields{"ip": ip, "count": count}).Warn("blocked IP for excessive requests")
			}
			w.Header().Set("Retry-After", strconv.Itoa(int(l.blockFor.Seconds())))
			writeError(w, http.StatusTooManyRequests, "Rate limit exceeded. Please try again later.")
			return
		}

		w.Header().Set("X-RateLimit-Limit", strconv.FormatInt(l.max, 10))
		w.Header().Set("X-RateLimit-Remaining", strconv.FormatInt(l.max-count, 10))
		w.Header().Set("X-RateLimit-Reset", strconv.FormatInt(time.Now().Add(reset).Unix(), 10))

		next.ServeHTTP(w, r)
	})
}
