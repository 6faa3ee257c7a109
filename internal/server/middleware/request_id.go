package middleware

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"log/slog"
	"time"
)

const (
	RequestIDHeader          = "X-Request-ID"
	RequestIDContextValueKey = "requestID"
	LoggerContextValueKey    = "logger"
)

// RequestIDMiddleware reuses the caller's X-Request-ID or mints one, echoes
// it back and logs one line per request once the handler chain returns.
func RequestIDMiddleware(c *gin.Context) {
	requestID := c.GetHeader(RequestIDHeader)
	if requestID == "" {
		requestID = uuid.NewString()
	}
	c.Header(RequestIDHeader, requestID)
	c.Set(RequestIDContextValueKey, requestID)

	logger := slog.With("request_id", requestID)
	c.Set(LoggerContextValueKey, logger)

	start := time.Now()
	c.Next()

	logger.Info("request completed",
		"method", c.Request.Method,
		"path", c.Request.URL.Path,
		"status", c.Writer.Status(),
		"bytes", c.Writer.Size(),
		"duration", time.Since(start),
	)
}

func Logger(c *gin.Context) *slog.Logger {
	if v, exists := c.Get(LoggerContextValueKey); exists {
		if logger, ok := v.(*slog.Logger); ok {
			return logger
		}
	}
	return slog.Default()
}
