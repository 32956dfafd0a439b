package middleware

import (
	"net"
	"net/http"
	"sync"
	"time"

	"pubhook/internal/pkg/errors"
)

type RateLimiter struct {
	store *sync.Map // map[string]*Bucket
	limit int
	now   func() time.Time
}

type Bucket struct {
	tokens     int
	lastRefill time.Time
	mu         sync.Mutex
	lastAccess time.Time
	// deleted is set under mu once Sweep has removed the bucket from the
	// store. Allow must not count against a deleted bucket.
	deleted bool
}

// NewRateLimiter allows limit requests per minute per key. A non-positive limit
// disables limiting.
func NewRateLimiter(limit int) *RateLimiter {
	return &RateLimiter{
		store: &sync.Map{},
		limit: limit,
		now:   time.Now,
	}
}

// Sweep drops buckets idle for longer than idle.
func (rl *RateLimiter) Sweep(idle time.Duration) {
	now := rl.now()
	rl.store.Range(func(key, value interface{}) bool {
		bucket := value.(*Bucket)
		bucket.mu.Lock()
		if now.Sub(bucket.lastAccess) > idle {
			bucket.deleted = true
			rl.store.CompareAndDelete(key, value)
		}
		bucket.mu.Unlock()
		return true
	})
}

func (rl *RateLimiter) Allow(key string) bool {
	if rl.limit <= 0 {
		return true
	}
	now := rl.now()

	bucket := rl.bucket(key, now)
	defer bucket.mu.Unlock()

	bucket.lastAccess = now

	// Rate is limit / 60 seconds
	elapsed := now.Sub(bucket.lastRefill)
	refillTokens := int(elapsed.Seconds() * float64(rl.limit) / 60.0)

	if refillTokens > 0 {
		bucket.tokens += refillTokens
		if bucket.tokens > rl.limit {
			bucket.tokens = rl.limit
		}
		bucket.lastRefill = now
	}

	if bucket.tokens > 0 {
		bucket.tokens--
		return true
	}

	return false
}

// bucket returns the live bucket for key, locked. A bucket swept between
// LoadOrStore and Lock is skipped and the lookup retried.
func (rl *RateLimiter) bucket(key string, now time.Time) *Bucket {
	for {
		val, _ := rl.store.LoadOrStore(key, &Bucket{
			tokens:     rl.limit,
			lastRefill: now,
			lastAccess: now,
		})
		bucket := val.(*Bucket)
		bucket.mu.Lock()
		if !bucket.deleted {
			return bucket
		}
		bucket.mu.Unlock()
	}
}

// Handle limits requests per remote host.
func (rl *RateLimiter) Handle(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		key, _, err := net.SplitHostPort(r.RemoteAddr)
		if err != nil {
			key = r.RemoteAddr
		}

		if !rl.Allow(key) {
			w.Header().Set("Retry-After", "60")
			errors.WriteError(w, http.StatusTooManyRequests, errors.ErrCodeRateLimitExceeded, "Rate limit exceeded", nil)
			return
		}

		next(w, r)
	}
}
