package server

import (
	"context"
	"github.com/gin-gonic/gin"
	"net/http"
	"time"
)

const healthPingTimeout = 2 * time.Second

type healthServicer interface {
	Ping(ctx context.Context) error
}

// HealthHandler reports whether the counter store answers and whether an
// upstream key is configured. Only an unreachable store is unhealthy.
func HealthHandler(store healthServicer, upstream ChatUpstream) gin.HandlerFunc {
	return func(ctx *gin.Context) {
		storeStatus := "unbound"
		status := http.StatusOK

		if store != nil {
			pingCtx, cancel := context.WithTimeout(ctx.Request.Context(), healthPingTimeout)
			defer cancel()
			storeStatus = "ok"
			if err := store.Ping(pingCtx); err != nil {
				storeStatus = "unreachable"
				status = http.StatusServiceUnavailable
			}
		}

		ctx.JSON(status, gin.H{
			"success":             status == http.StatusOK,
			"store":               storeStatus,
			"upstream_configured": upstream != nil && upstream.Configured(),
		})
	}
}
