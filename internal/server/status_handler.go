package server

import (
	"context"
	"errors"
	"github.com/gin-gonic/gin"
	"github/wdns/chatproxy/internal/server/middleware"
	"net/http"
)

type (
	statusHandlerServicer interface {
		GetCount(ctx context.Context, clientKey string) (int64, error)
	}
	statusResponseDTO struct {
		Key   string `json:"key"`
		Count int64  `json:"count"`
	}
)

// StatusHandler returns the caller's current counter without consuming a request.
func StatusHandler(s statusHandlerServicer) gin.HandlerFunc {
	return func(ctx *gin.Context) {
		if s == nil {
			_ = ctx.Error(middleware.NewHTTPError(http.StatusInternalServerError, ErrStoreNotBound))
			return
		}

		key := middleware.ClientKey(ctx)
		count, err := s.GetCount(ctx.Request.Context(), key)
		if err != nil {
			_ = ctx.Error(middleware.NewHTTPError(http.StatusInternalServerError, errors.Join(errors.New("could not read counter"), err)))
			return
		}

		ctx.JSON(http.StatusOK, statusResponseDTO{Key: key, Count: count})
	}
}
