package middleware

import (
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"
)

// UserRateLimiter keeps one token bucket per authenticated user. Used on the
// send endpoints so one user cannot flood a conversation or item room.
type UserRateLimiter struct {
	users map[int]*limiterEntry
	mu    sync.Mutex
	r     rate.Limit
	burst int
}

type limiterEntry struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// NewUserRateLimiter creates a limiter allowing perMinute sends with the
// given burst.
func NewUserRateLimiter(perMinute, burst int) *UserRateLimiter {
	rl := &UserRateLimiter{
		users: make(map[int]*limiterEntry),
		r:     rate.Limit(float64(perMinute) / 60.0),
		burst: burst,
	}
	go rl.cleanup()
	return rl
}

func (rl *UserRateLimiter) cleanup() {
	for {
		time.Sleep(time.Minute)
		rl.mu.Lock()
		for id, entry := range rl.users {
			if time.Since(entry.lastSeen) > 3*time.Minute {
				delete(rl.users, id)
			}
		}
		rl.mu.Unlock()
	}
}

func (rl *UserRateLimiter) limiterFor(userID int) *rate.Limiter {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	entry, ok := rl.users[userID]
	if !ok {
		entry = &limiterEntry{limiter: rate.NewLimiter(rl.r, rl.burst)}
		rl.users[userID] = entry
	}
	entry.lastSeen = time.Now()
	return entry.limiter
}

// Middleware rejects requests once the caller's bucket is drained. Must run
// after AuthMiddleware so the user id is on the context.
func (rl *UserRateLimiter) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		userID := c.GetInt("userID")
		if !rl.limiterFor(userID).Allow() {
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{"error": "too many messages, slow down"})
			return
		}
		c.Next()
	}
}
