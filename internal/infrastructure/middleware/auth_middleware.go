package middleware

import (
	"context"
	"net/http"
	"strings"

	"streamledger/internal/core/domain"
	"streamledger/internal/core/services"
	"streamledger/pkg/logger"

	"github.com/gin-gonic/gin"
)

const callerContextKey = "caller_address"

// AuthMiddleware resolves the bearer token to the caller's ledger address.
// Every mutating entry point authorizes against that address.
func AuthMiddleware(authService services.AuthService) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "authorization header required"})
			c.Abort()
			return
		}

		parts := strings.Split(authHeader, " ")
		if len(parts) != 2 || parts[0] != "Bearer" {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid authorization header format"})
			c.Abort()
			return
		}

		claims, err := authService.ValidateToken(parts[1])
		if err != nil {
			c.JSON(http.StatusUnauthorized, gin.H{"error": err.Error()})
			c.Abort()
			return
		}

		c.Set(callerContextKey, claims.Address)
		ctx := context.WithValue(c.Request.Context(), logger.CallerKey, string(claims.Address))
		c.Request = c.Request.WithContext(ctx)
		c.Next()
	}
}

// CallerAddress returns the authenticated address stored by AuthMiddleware.
func CallerAddress(c *gin.Context) (domain.Address, bool) {
	val, exists := c.Get(callerContextKey)
	if !exists {
		return "", false
	}
	addr, ok := val.(domain.Address)
	return addr, ok
}
