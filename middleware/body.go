package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// BodySizeLimiter caps the request body at n bytes
func BodySizeLimiter(n int64) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, n)
		c.Next()
	}
}
