package auth

import (
	"strings"

	"judgecore/pkg/apperr"
	"judgecore/pkg/log"
	"judgecore/pkg/response"

	"github.com/gin-gonic/gin"
)

const bearerPrefix = "Bearer "

// userIDContextKey is the gin context key under which RequireAuth stores the
// verified user id.
const userIDContextKey = "auth_user_id"

// RequireAuth rejects requests without a valid bearer token, stashing the
// verified user id in both the gin context and the request's log context.
func RequireAuth(verifier *TokenVerifier) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		if !strings.HasPrefix(header, bearerPrefix) {
			response.Error(c, apperr.New(apperr.TokenInvalid).WithMessage("missing bearer token"))
			c.Abort()
			return
		}
		raw := strings.TrimPrefix(header, bearerPrefix)

		claims, err := verifier.Verify(raw)
		if err != nil {
			response.Error(c, err)
			c.Abort()
			return
		}

		c.Set(userIDContextKey, claims.UserID)
		ctx := log.WithUserID(c.Request.Context(), claims.UserID)
		c.Request = c.Request.WithContext(ctx)
		c.Next()
	}
}

// OptionalAuth attaches the verified user id when a valid bearer token is
// present, but never rejects a request over its absence or invalidity.
func OptionalAuth(verifier *TokenVerifier) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		if !strings.HasPrefix(header, bearerPrefix) {
			c.Next()
			return
		}
		claims, err := verifier.Verify(strings.TrimPrefix(header, bearerPrefix))
		if err != nil {
			c.Next()
			return
		}
		c.Set(userIDContextKey, claims.UserID)
		ctx := log.WithUserID(c.Request.Context(), claims.UserID)
		c.Request = c.Request.WithContext(ctx)
		c.Next()
	}
}

// UserID extracts the verified user id set by RequireAuth. ok is false
// outside an authenticated request.
func UserID(c *gin.Context) (int64, bool) {
	v, exists := c.Get(userIDContextKey)
	if !exists {
		return 0, false
	}
	id, ok := v.(int64)
	return id, ok
}
