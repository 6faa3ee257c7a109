package middleware

import (
	"errors"
	"fmt"
	"github.com/gin-gonic/gin"
	"net/http"
	"runtime/debug"
)

// HTTPError carries the status an error should be rendered with and the
// stack captured where it was raised.
type HTTPError struct {
	Status int
	Err    error
	Stack  string
}

func NewHTTPError(status int, err error) *HTTPError {
	return &HTTPError{
		Status: status,
		Err:    err,
		Stack:  string(debug.Stack()),
	}
}

func (e *HTTPError) Error() string {
	return e.Err.Error()
}

func (e *HTTPError) Unwrap() error {
	return e.Err
}

type errorResponseDTO struct {
	Error string `json:"error"`
	Stack string `json:"stack,omitempty"`
}

func renderError(c *gin.Context, err error, exposeStack bool) {
	status := http.StatusInternalServerError
	stack := ""

	var httpErr *HTTPError
	if errors.As(err, &httpErr) {
		status = httpErr.Status
		stack = httpErr.Stack
	}

	resp := errorResponseDTO{Error: err.Error()}
	if exposeStack {
		resp.Stack = stack
	}

	c.AbortWithStatusJSON(status, resp)
}

// ErrorBoundaryMiddleware renders the last error attached to the context
// as {"error": ..., "stack": ...}. Nothing is rendered once the response
// has started.
func ErrorBoundaryMiddleware(exposeStack bool) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if len(c.Errors) == 0 {
			return
		}

		err := c.Errors.Last().Err
		if c.Writer.Written() {
			Logger(c).Warn("error after response started", "error", err)
			return
		}

		Logger(c).Error("request failed", "error", err)
		renderError(c, err, exposeStack)
	}
}

// RecoveryHandler turns a panic into the same JSON error body.
func RecoveryHandler(exposeStack bool) gin.RecoveryFunc {
	return func(c *gin.Context, recovered any) {
		err := &HTTPError{
			Status: http.StatusInternalServerError,
			Err:    fmt.Errorf("%v", recovered),
			Stack:  string(debug.Stack()),
		}
		Logger(c).Error("panic recovered", "error", err)
		renderError(c, err, exposeStack)
	}
}
