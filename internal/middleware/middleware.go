package middleware

import (
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
)

type RateLimiter struct {
	actors map[string]time.Time
	mu     sync.Mutex
	limit  time.Duration
}

func NewRateLimiter(limit time.Duration) *RateLimiter {
	return &RateLimiter{
		actors: make(map[string]time.Time),
		limit:  limit,
	}
}

func (r *RateLimiter) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		actorID := c.GetHeader("X-Actor-ID")
		if actorID == "" {
			c.JSON(http.StatusBadRequest, gin.H{"error": "X-Actor-ID header required"})
			c.Abort()
			return
		}
		r.mu.Lock()
		last, exists := r.actors[actorID]
		if exists && time.Since(last) < r.limit {
			r.mu.Unlock()
			c.JSON(http.StatusTooManyRequests, gin.H{"error": "rate limit exceeded"})
			c.Abort()
			return
		}
		r.actors[actorID] = time.Now()
		r.mu.Unlock()
		c.Next()
	}
}
