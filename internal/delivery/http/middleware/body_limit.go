package middleware

import (
	"net/http"
	"strconv"

	"contact-relay-backend/internal/delivery/http/response"

	"github.com/gin-gonic/gin"
)

// DefaultBodyLimit bounds JSON request bodies.
const DefaultBodyLimit int64 = 32 << 10

// BodySizeLimit rejects declared oversize bodies up front and caps reads of
// the rest with http.MaxBytesReader.
func BodySizeLimit(maxBytes int64) gin.HandlerFunc {
	if maxBytes <= 0 {
		maxBytes = DefaultBodyLimit
	}
	return func(c *gin.Context) {
		if c.Request.ContentLength > maxBytes {
			response.Error(c, http.StatusRequestEntityTooLarge, "Request body too large", "")
			c.Abort()
			return
		}

		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxBytes)
		c.Header("X-Max-Body-Size", strconv.FormatInt(maxBytes, 10))
		c.Next()
	}
}
