package middleware

import (
	"github.com/gin-gonic/gin"
	"github/wdns/chatproxy/pkg/config"
	"net/http"
	"strings"
)

// CORSMiddleware stamps the cross-origin headers on every response and
// answers preflight requests with an empty 204 before any other check runs.
func CORSMiddleware(cfg config.CorsConfig) gin.HandlerFunc {
	allowMethods := strings.Join(cfg.AllowMethods, ", ")
	allowHeaders := strings.Join(cfg.AllowHeaders, ", ")

	return func(c *gin.Context) {
		c.Header("Access-Control-Allow-Origin", cfg.AllowOrigin)
		c.Header("Access-Control-Allow-Methods", allowMethods)
		c.Header("Access-Control-Allow-Headers", allowHeaders)

		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	}
}
