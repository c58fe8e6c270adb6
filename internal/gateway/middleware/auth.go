package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"gastro-system/internal/utils"
)

// Context keys set by JWTAuth for downstream handlers.
const (
	CtxUserID      = "user_id"
	CtxUsername    = "username"
	CtxRole        = "role"
	CtxAccessLevel = "access_level"
)

func JWTAuth(levelFor func(role string) int32) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		if header == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"success": false,
				"error":   "Authorization header required",
			})
			return
		}

		tokenStr := strings.TrimPrefix(header, "Bearer ")
		if tokenStr == header {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"success": false,
				"error":   "Authorization header must be a Bearer token",
			})
			return
		}

		claims, err := utils.ParseToken(tokenStr)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"success": false,
				"error":   "Invalid or expired token",
			})
			return
		}

		c.Set(CtxUserID, claims.UserId)
		c.Set(CtxUsername, claims.Username)
		c.Set(CtxRole, claims.Role)
		c.Set(CtxAccessLevel, levelFor(claims.Role))
		c.Next()
	}
}

// RequireAccessLevel gates a route group on the access level resolved during
// authentication. Runs after JWTAuth.
func RequireAccessLevel(min int32) gin.HandlerFunc {
	return func(c *gin.Context) {
		level, ok := c.Get(CtxAccessLevel)
		if !ok || level.(int32) < min {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{
				"success": false,
				"error":   "Insufficient permissions",
			})
			return
		}
		c.Next()
	}
}
