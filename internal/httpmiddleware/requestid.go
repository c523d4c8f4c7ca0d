package httpmiddleware

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// RequestIDKey is the gin context key carrying the request id.
const RequestIDKey = "request_id"

// requestIDMaxLen caps externally supplied ids to keep logs clean.
const requestIDMaxLen = 64

// RequestID reads X-Request-ID from the request, generating a UUID when it
// is absent, and echoes it on the response.
func RequestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		rid := c.GetHeader("X-Request-ID")
		if rid == "" || len(rid) > requestIDMaxLen {
			rid = uuid.New().String()
		}
		c.Set(RequestIDKey, rid)
		c.Header("X-Request-ID", rid)
		c.Next()
	}
}
