package middleware

import (
	"context"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/konohovalex/MachineNotesServer/internal/infra/logger"
)

// RequestIDHeader carries the correlation identifier between client and
// server.
const RequestIDHeader = "X-Request-ID"

// RequestID tags every request with a correlation identifier, echoes it on
// the response, and stores it on the request context so the access log and
// error responses can reference it.
func RequestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := correlationID(c)

		c.Writer.Header().Set(RequestIDHeader, id)
		c.Request = c.Request.WithContext(
			context.WithValue(c.Request.Context(), logger.RequestIDKey{}, id),
		)

		c.Next()
	}
}

// correlationID keeps a client supplied identifier so a request stays
// traceable across retries, and mints a fresh one otherwise.
func correlationID(c *gin.Context) string {
	if id := c.GetHeader(RequestIDHeader); id != "" {
		return id
	}
	return uuid.NewString()
}
