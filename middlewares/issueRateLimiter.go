package middlewares

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
)

// RateLimitWindow is the lifetime of a user's issue counter.
const RateLimitWindow = 24 * time.Hour

// IssueRateLimiter caps how many issues a user may create per window. It must
// run after AuthMiddleware. A nil client disables the limit.
func IssueRateLimiter(client redis.Cmdable, queuePrefix string, limit int) gin.HandlerFunc {
	return func(c *gin.Context) {
		if client == nil {
			c.Next()
			return
		}

		userID := c.GetString(UserIDKey)
		if userID == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"message": "User not authenticated"})
			return
		}

		ctx := c.Request.Context()
		userKey := queuePrefix + ":" + userID

		count, err := client.Incr(ctx, userKey).Result()
		if err != nil {
			slog.ErrorContext(ctx, "rate limiter incr", slog.String("key", userKey), slog.Any("error", err))
			c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"message": "Something went wrong"})
			return
		}

		// The window starts with the first issue.
		if count == 1 {
			if err := client.Expire(ctx, userKey, RateLimitWindow).Err(); err != nil {
				slog.ErrorContext(ctx, "rate limiter expire", slog.String("key", userKey), slog.Any("error", err))
				c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"message": "Something went wrong"})
				return
			}
		}

		if count > int64(limit) {
			retryAfter, _ := client.TTL(ctx, userKey).Result()
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
				"message":    "Daily issue limit reached",
				"retryAfter": retryAfter.Seconds(),
			})
			return
		}

		c.Next()
	}
}
