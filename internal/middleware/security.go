package middleware

import (
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/AnshRaj112/reflect-backend/pkg/clientip"
	"golang.org/x/time/rate"
)

const (
	headerXContentTypeOptions     = "X-Content-Type-Options"
	headerXFrameOptions           = "X-Frame-Options"
	headerXXSSProtection          = "X-XSS-Protection"
	headerContentSecurityPolicy   = "Content-Security-Policy"
	headerStrictTransportSecurity = "Strict-Transport-Security"
)

// SecurityHeaders sets security-related response headers.
func SecurityHeaders(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set(headerXContentTypeOptions, "nosniff")
		w.Header().Set(headerXFrameOptions, "DENY")
		w.Header().Set(headerXXSSProtection, "1; mode=block")
		w.Header().Set(headerContentSecurityPolicy, "default-src 'self'")
		w.Header().Set(headerStrictTransportSecurity, "max-age=31536000; includeSubDomains")
		next.ServeHTTP(w, r)
	})
}

// HostCheck returns 403 when r.Host does not match allowedHost (e.g. api.reflect.app).
// allowedHost should be the bare hostname without scheme or port.
func HostCheck(allowedHost string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if allowedHost == "" {
				next.ServeHTTP(w, r)
				return
			}
			reqHost := r.Host
			if host, _, err := net.SplitHostPort(reqHost); err == nil {
				reqHost = host
			}
			if !strings.EqualFold(strings.TrimSpace(reqHost), strings.TrimSpace(allowedHost)) {
				writeError(w, http.StatusForbidden, "Forbidden")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// --- Burst limiting (per-IP, in-process) ---

const (
	burstRateLimitRPS   = 5
	burstRateLimitBurst = 20
	burstLimiterTTL     = 30 * time.Minute
	burstSweepInterval  = 5 * time.Minute
)

type ipLimiter struct {
	limiter *rate.Limiter
	lastUse time.Time
}

// BurstLimiter smooths request bursts from one IP before they reach Redis.
type BurstLimiter struct {
	mu        sync.Mutex
	entries   map[string]*ipLimiter
	limit     rate.Limit
	burst     int
	lastSweep time.Time
}

func NewBurstLimiter() *BurstLimiter {
	return &BurstLimiter{
		entries: make(map[string]*ipLimiter),
		limit:   rate.Limit(burstRateLimitRPS),
		burst:   burstRateLimitBurst,
	}
}

func (b *BurstLimiter) get(ip string) *rate.Limiter {
	b.mu.Lock()
	defer b.mu.Unlock()

	now := time.Now()
	if now.Sub(b.lastSweep) > burstSweepInterval {
		b.lastSweep = now
		for k, e := range b.entries {
			if now.Sub(e.lastUse) > burstLimiterTTL {
				delete(b.entries, k)
			}
		}
	}

	e, ok := b.entries[ip]
	if !ok {
		e = &ipLimiter{limiter: rate.NewLimiter(b.limit, b.burst)}
		b.entries[ip] = e
	}
	e.lastUse = now
	return e.limiter
}

// Handler returns 429 when the IP exceeds its burst.
func (b *BurstLimiter) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !b.get(clientip.Key(r)).Allow() {
			writeError(w, http.StatusTooManyRequests, "Too many requests. Please slow down.")
			return
		}
		next.ServeHTTP(w, r)
	})
}

// ProductionSecurity returns middlewares for production: SecurityHeaders → HostCheck → BurstLimiter.
func ProductionSecurity(allowedHost string) []func(http.Handler) http.Handler {
	return []func(http.Handler) http.Handler{
		SecurityHeaders,
		HostCheck(allowedHost),
		NewBurstLimiter().Handler,
	}
}
