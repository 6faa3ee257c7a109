package server

import (
	"context"
	"errors"
	"fmt"
	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github/wdns/chatproxy/internal/server/middleware"
	"github/wdns/chatproxy/pkg/gemini"
	"github/wdns/chatproxy/pkg/metrics"
	"io"
	"net/http"
	"strconv"
	"strings"
)

const streamChunkSize = 32 << 10

var ErrNoPrompt = errors.New("No 'chatbot' prompt found in body")

type ChatUpstream interface {
	Configured() bool
	Generate(ctx context.Context, prompt string) (*http.Response, error)
}

type chatRequestDTO struct {
	Chatbot string `json:"chatbot" form:"chatbot"`
}

// extractPrompt reads the chatbot field from a JSON or form body. Any other
// content type yields an empty prompt.
func extractPrompt(c *gin.Context) (string, error) {
	var (
		reqDTO      chatRequestDTO
		contentType = c.ContentType()
		err         error
	)

	switch {
	case strings.Contains(contentType, binding.MIMEJSON):
		err = c.ShouldBindJSON(&reqDTO)
	case strings.Contains(contentType, "form"):
		err = c.ShouldBindWith(&reqDTO, binding.Form)
	default:
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("could not parse request body: %w", err)
	}

	return reqDTO.Chatbot, nil
}

func observe(c *gin.Context, outcome string) {
	metrics.ChatRequestsTotal.WithLabelValues(outcome).Inc()
	metrics.ChatRequestDuration.WithLabelValues(outcome).Observe(middleware.SinceArrival(c).Seconds())
}

func fail(c *gin.Context, status int, err error, outcome string) {
	observe(c, outcome)
	_ = c.Error(middleware.NewHTTPError(status, err))
	c.Abort()
}

// streamBody forwards r to w chunk by chunk, flushing after every write so
// the caller sees bytes as soon as upstream produces them.
func streamBody(w gin.ResponseWriter, r io.Reader) (int64, error) {
	var (
		buf     = make([]byte, streamChunkSize)
		written int64
	)

	for {
		n, readErr := r.Read(buf)
		if n > 0 {
			m, writeErr := w.Write(buf[:n])
			written += int64(m)
			if writeErr != nil {
				return written, writeErr
			}
			w.Flush()
		}

		if errors.Is(readErr, io.EOF) {
			return written, nil
		}
		if readErr != nil {
			return written, readErr
		}
	}
}

func ChatHandler(upstream ChatUpstream, responseContentType string) gin.HandlerFunc {
	return func(c *gin.Context) {
		logger := middleware.Logger(c)

		prompt, err := extractPrompt(c)
		if err != nil {
			fail(c, http.StatusBadRequest, err, metrics.OutcomeBadRequest)
			return
		}
		if prompt == "" {
			fail(c, http.StatusBadRequest, ErrNoPrompt, metrics.OutcomeBadRequest)
			return
		}

		resp, err := upstream.Generate(c.Request.Context(), prompt)
		if err != nil {
			var apiErr *gemini.APIError
			if errors.As(err, &apiErr) {
				metrics.UpstreamStatus.WithLabelValues(strconv.Itoa(apiErr.StatusCode)).Inc()
			}
			fail(c, http.StatusInternalServerError, err, metrics.OutcomeUpstreamError)
			return
		}
		defer resp.Body.Close()
		metrics.UpstreamStatus.WithLabelValues(strconv.Itoa(resp.StatusCode)).Inc()

		c.Header("Content-Type", responseContentType)
		c.Status(http.StatusOK)
		c.Writer.WriteHeaderNow()
		c.Writer.Flush()

		n, err := streamBody(c.Writer, resp.Body)
		metrics.StreamedBytes.Add(float64(n))
		if err != nil {
			logger.Warn("stream interrupted", "error", err, "bytes", n)
		}

		logger.Info("chat streamed", "client_key", middleware.ClientKey(c), "bytes", n, "latency", middleware.SinceArrival(c))
		observe(c, metrics.OutcomeStreamed)
	}
}
