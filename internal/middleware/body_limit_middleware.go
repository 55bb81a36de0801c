// internal/middleware/body_limit_middleware.go
package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"escpos-printer/internal/utils"
)

// BodyLimitMiddleware rejects request bodies larger than limit bytes
func BodyLimitMiddleware(limit int64) gin.HandlerFunc {
	return func(c *gin.Context) {
		if limit > 0 && c.Request.ContentLength > limit {
			c.Header("Connection", "close")
			utils.ErrorResponse(c, http.StatusRequestEntityTooLarge, "Request body too large", nil)
			c.Abort()
			return
		}
		if limit > 0 {
			c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, limit)
		}
		c.Next()
	}
}
