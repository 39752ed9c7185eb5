package httpapi

import (
	"fmt"
	"time"

	"judgecore/internal/auth"
	"judgecore/pkg/response"

	"github.com/gin-gonic/gin"
)

// perHour enforces max requests per fixed one-hour window, keyed by the
// authenticated user id when present and falling back to remote address
// for unauthenticated requests (register/login, anonymous run).
func perHour(rl *RateLimiter, scope string, max int) gin.HandlerFunc {
	return func(c *gin.Context) {
		key := fmt.Sprintf("ratelimit:%s:%s", scope, quotaIdentity(c))
		if err := rl.Allow(c.Request.Context(), key, max, time.Hour); err != nil {
			response.Error(c, err)
			c.Abort()
			return
		}
		c.Next()
	}
}

func quotaIdentity(c *gin.Context) string {
	if userID, ok := auth.UserID(c); ok {
		return fmt.Sprintf("user:%d", userID)
	}
	return "ip:" + c.ClientIP()
}
