package middleware

import (
	"context"

	"streamledger/pkg/logger"
	"streamledger/pkg/utils"

	"github.com/gin-gonic/gin"
)

// RequestIDMiddleware tags every request with an id for log correlation.
// An inbound X-Request-ID is honored, otherwise one is generated.
func RequestIDMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		requestID := c.GetHeader("X-Request-ID")
		if requestID == "" {
			requestID = utils.GenerateRequestID()
		}

		ctx := context.WithValue(c.Request.Context(), logger.RequestIDKey, requestID)
		c.Request = c.Request.WithContext(ctx)
		c.Header("X-Request-ID", requestID)
		c.Next()
	}
}
