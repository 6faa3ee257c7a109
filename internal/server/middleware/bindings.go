package middleware

import (
	"github.com/gin-gonic/gin"
	"net/http"
)

// BindingCheck reports a missing deployment dependency.
type BindingCheck func() error

func RequireBindingsMiddleware(checks ...BindingCheck) gin.HandlerFunc {
	return func(c *gin.Context) {
		for _, check := range checks {
			if err := check(); err != nil {
				_ = c.Error(NewHTTPError(http.StatusInternalServerError, err))
				c.Abort()
				return
			}
		}
		c.Next()
	}
}
