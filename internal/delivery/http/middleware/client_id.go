package middleware

import (
	"contact-relay-backend/pkg/ratelimit"

	"github.com/gin-gonic/gin"
)

// ClientIDKey is the gin context key holding the rate-limit client identifier.
const ClientIDKey = "ClientID"

// ClientID resolves the client identifier used for rate limiting. gin's
// ClientIP honours the trusted proxy list; when no address can be resolved
// every such client shares the ratelimit.UnknownClient bucket.
func ClientID() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.ClientIP()
		if id == "" {
			id = ratelimit.UnknownClient
		}
		c.Set(ClientIDKey, id)
		c.Next()
	}
}

// ClientIDFrom returns the identifier set by ClientID, or ratelimit.UnknownClient.
func ClientIDFrom(c *gin.Context) string {
	if id := c.GetString(ClientIDKey); id != "" {
		return id
	}
	return ratelimit.UnknownClient
}
