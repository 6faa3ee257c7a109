package middleware

import (
	"github.com/gin-gonic/gin"
	"strings"
)

const (
	ClientKeyContextValueKey = "clientKey"
	UnknownClientKey         = "unknown"
)

// ClientIdentityMiddleware buckets callers by the address the fronting proxy
// reports in header. The remote address is never used: behind the proxy it
// is the proxy itself.
func ClientIdentityMiddleware(header string) gin.HandlerFunc {
	return func(c *gin.Context) {
		key := strings.TrimSpace(c.GetHeader(header))
		if key == "" {
			key = UnknownClientKey
		}
		c.Set(ClientKeyContextValueKey, key)
		c.Next()
	}
}

func ClientKey(c *gin.Context) string {
	if key := c.GetString(ClientKeyContextValueKey); key != "" {
		return key
	}
	return UnknownClientKey
}
