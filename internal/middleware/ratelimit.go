package middleware

import (
	"fmt"
	"net/http"
	"time"

	"buildfund/pkg/response"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
)

// RateLimit applies a fixed-window per-client limit backed by Redis. A nil
// client disables limiting, which keeps local development redis-free.
func RateLimit(client *redis.Client, limit int, window time.Duration) gin.HandlerFunc {
	return func(c *gin.Context) {
		if client == nil {
			c.Next()
			return
		}

		identity := c.GetString("userID")
		if identity == "" {
			identity = c.ClientIP()
		}
		key := fmt.Sprintf("ratelimit:%s:%d", identity, time.Now().Unix()/int64(window.Seconds()))

		count, err := client.Incr(c.Request.Context(), key).Result()
		if err != nil {
			// Redis being down should not take the API with it.
			c.Next()
			return
		}
		if count == 1 {
			client.Expire(c.Request.Context(), key, window)
		}

		if count > int64(limit) {
			c.Header("Retry-After", fmt.Sprintf("%d", int(window.Seconds())))
			c.AbortWithStatusJSON(http.StatusTooManyRequests, response.Error(http.StatusTooManyRequests, "Rate limit exceeded"))
			return
		}

		c.Next()
	}
}
