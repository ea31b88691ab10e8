package middleware

import (
	"net/http"
	"sync"
	"time"

	"github.com/AnshRaj112/wayfarer-backend/pkg/clientip"
	"golang.org/x/time/rate"
)

const (
	limiterCleanupInterval = 5 * time.Minute
	limiterTTL             = 30 * time.Minute
)

type limiterEntry struct {
	limiter *rate.Limiter
	lastUse time.Time
}

// IPRateLimiter keeps one token bucket per client IP. Buckets unused for
// limiterTTL are dropped by a background sweep.
type IPRateLimiter struct {
	limit rate.Limit
	burst int

	mu         sync.Mutex
	entries    map[string]*limiterEntry
	cleanupRun bool
}

func NewIPRateLimiter(limit rate.Limit, burst int) *IPRateLimiter {
	return &IPRateLimiter{
		limit:   limit,
		burst:   burst,
		entries: make(map[string]*limiterEntry),
	}
}

// Allow reports whether ip may make a request now.
func (l *IPRateLimiter) Allow(ip string) bool {
	return l.get(ip).Allow()
}

func (l *IPRateLimiter) get(ip string) *rate.Limiter {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.startCleanupOnce()
	e, ok := l.entries[ip]
	if !ok {
		e = &limiterEntry{limiter: rate.NewLimiter(l.limit, l.burst)}
		l.entries[ip] = e
	}
	e.lastUse = time.Now()
	return e.limiter
}

func (l *IPRateLimiter) startCleanupOnce() {
	if l.cleanupRun {
		return
	}
	l.cleanupRun = true
	go func() {
		ticker := time.NewTicker(limiterCleanupInterval)
		defer ticker.Stop()
		for range ticker.C {
			l.mu.Lock()
			now := time.Now()
			for ip, e := range l.entries {
				if now.Sub(e.lastUse) > limiterTTL {
					delete(l.entries, ip)
				}
			}
			l.mu.Unlock()
		}
	}()
}

// Limit returns a middleware answering 429 with message when the client IP
// is over its budget. Requests for which match returns false are not
// counted.
func (l *IPRateLimiter) Limit(message string, match func(r *http.Request) bool) func(http.Handler) http.Handler {
	body := []byte(`{"success":false,"message":"` + message + `"}`)
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if match != nil && !match(r) {
				next.ServeHTTP(w, r)
				return
			}
			if !l.Allow(clientip.RealClientIP(r)) {
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusTooManyRequests)
				w.Write(body)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// --- Global rate limiting (per-IP, 20/s, burst 50) ---

var globalLimiter = NewIPRateLimiter(rate.Limit(20), 50)

// GlobalRateLimit limits each IP to 20 req/s, burst 50.
func GlobalRateLimit(next http.Handler) http.Handler {
	return globalLimiter.Limit("Too many requests. Please slow down.", nil)(next)
}

// --- Destructive route rate limiting (1 req/5s, burst 2) ---

var destructiveLimiter = NewIPRateLimiter(rate.Every(5*time.Second), 2)

var destructiveRoutes = map[string]string{
	"/api/data":           http.MethodDelete,
	"/api/recovery/force": http.MethodPost,
}

func isDestructive(r *http.Request) bool {
	method, ok := destructiveRoutes[r.URL.Path]
	return ok && r.Method == method
}

// DestructiveRateLimit applies a stricter limit to clear-data and
// force-recovery. Use after GlobalRateLimit.
func DestructiveRateLimit(next http.Handler) http.Handler {
	return destructiveLimiter.Limit("Too many attempts. Please try again later.", isDestructive)(next)
}
