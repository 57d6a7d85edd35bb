package middlewares

import (
	"net/http"
	"sync"
	"time"

	"github.com/ciclus/rd-dashboard/utils"
	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"
)

type visitor struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// RateLimiter keeps one token bucket per client IP.
type RateLimiter struct {
	limit rate.Limit
	burst int
	ttl   time.Duration

	mu       sync.Mutex
	visitors map[string]*visitor
}

// NewRateLimiter allows burst requests and then one every interval per IP.
func NewRateLimiter(burst int, interval time.Duration) *RateLimiter {
	return &RateLimiter{
		limit:    rate.Every(interval),
		burst:    burst,
		ttl:      10 * time.Minute,
		visitors: make(map[string]*visitor),
	}
}

func (rl *RateLimiter) allow(ip string) bool {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := time.Now()
	v, ok := rl.visitors[ip]
	if !ok {
		v = &visitor{limiter: rate.NewLimiter(rl.limit, rl.burst)}
		rl.visitors[ip] = v
	}
	v.lastSeen = now

	for k, other := range rl.visitors {
		if now.Sub(other.lastSeen) > rl.ttl {
			delete(rl.visitors, k)
		}
	}
	return v.limiter.Allow()
}

func (rl *RateLimiter) RateLimit() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !rl.allow(c.ClientIP()) {
			utils.InfoLogger.Warnf("rate limit hit by %s on %s", c.ClientIP(), c.Request.URL.Path)
			c.JSON(http.StatusTooManyRequests, utils.JSONResponse{
				Status:  false,
				Message: "Muitas requisições, aguarde alguns instantes",
			})
			c.Abort()
			return
		}
		c.Next()
	}
}

// NewStrictRateLimiter guards the login route: five attempts, then one
// every twelve seconds per IP.
func NewStrictRateLimiter() gin.HandlerFunc {
	return NewRateLimiter(5, 12*time.Second).RateLimit()
}
