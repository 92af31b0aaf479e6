package middleware

import (
	"net/http"
	"os"
	"strings"

	"github.com/gin-gonic/gin"
)

// OperatorMiddleware gates the operational endpoints (position configuration,
// cache flush) behind a shared API key.
type OperatorMiddleware struct {
	apiKey string
}

// NewOperatorMiddleware reads the key from OPERATOR_API_KEY, falling back to a
// development default.
func NewOperatorMiddleware() *OperatorMiddleware {
	apiKey := os.Getenv("OPERATOR_API_KEY")
	if apiKey == "" {
		apiKey = "operator-dev-key-change-in-production"
	}

	return &OperatorMiddleware{apiKey: apiKey}
}

// RequireOperatorAuth validates the operator API key from the Authorization
// header or X-API-Key.
func (om *OperatorMiddleware) RequireOperatorAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader != "" {
			tokenParts := strings.Split(authHeader, " ")
			if len(tokenParts) == 2 && tokenParts[0] == "Bearer" && tokenParts[1] == om.apiKey {
				c.Next()
				return
			}
		}

		if c.GetHeader("X-API-Key") == om.apiKey {
			c.Next()
			return
		}

		c.JSON(http.StatusUnauthorized, gin.H{
			"error":   "Unauthorized",
			"message": "Valid operator API key required for this endpoint",
		})
		c.Abort()
	}
}

// ValidateOperatorKey reports whether a key matches the configured one.
func (om *OperatorMiddleware) ValidateOperatorKey(key string) bool {
	return key == om.apiKey
}
