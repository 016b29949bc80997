package middleware

import (
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/catalogsync/backend/internal/interfaces/http/dto"
	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"
)

// idleEviction is how long an unused key keeps its bucket
const idleEviction = 10 * time.Minute

// RateLimiter hands out one token bucket per key
type RateLimiter struct {
	mu        sync.Mutex
	clients   map[string]*client
	perMinute int
	lastSweep time.Time
	now       func() time.Time
}

type client struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// NewRateLimiter allows perMinute requests per key, with bursts up to perMinute
func NewRateLimiter(perMinute int) *RateLimiter {
	if perMinute <= 0 {
		perMinute = 1
	}
	return &RateLimiter{
		clients:   make(map[string]*client),
		perMinute: perMinute,
		now:       time.Now,
	}
}

// Allow reports whether key may make another request now
func (rl *RateLimiter) Allow(key string) bool {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := rl.now()
	rl.sweep(now)

	cl, ok := rl.clients[key]
	if !ok {
		cl = &client{limiter: rate.NewLimiter(rate.Every(time.Minute/time.Duration(rl.perMinute)), rl.perMinute)}
		rl.clients[key] = cl
	}
	cl.lastSeen = now
	return cl.limiter.AllowN(now, 1)
}

// sweep drops idle buckets at most once per eviction window; caller holds mu
func (rl *RateLimiter) sweep(now time.Time) {
	if now.Sub(rl.lastSweep) < idleEviction {
		return
	}
	for key, cl := range rl.clients {
		if now.Sub(cl.lastSeen) > idleEviction {
			delete(rl.clients, key)
		}
	}
	rl.lastSweep = now
}

// RateLimitByKey rejects requests with 429 once keyFunc's bucket is empty.
// Requests with an empty key fall back to the client IP.
func RateLimitByKey(limiter *RateLimiter, keyFunc func(*gin.Context) string) gin.HandlerFunc {
	return func(c *gin.Context) {
		key := keyFunc(c)
		if key == "" {
			key = c.ClientIP()
		}

		if !limiter.Allow(key) {
			c.Header("Retry-After", strconv.Itoa(int((time.Minute/time.Duration(limiter.perMinute)).Seconds())+1))
			abortWithError(c, http.StatusTooManyRequests, dto.ErrCodeRateLimited, "Too many uploads. Please try again later.")
			return
		}
		c.Header("X-RateLimit-Limit", strconv.Itoa(limiter.perMinute))
		c.Next()
	}
}

// OwnerRateLimit limits requests per owner, see RequestOwner
func OwnerRateLimit(limiter *RateLimiter) gin.HandlerFunc {
	return RateLimitByKey(limiter, RequestOwner)
}
