// Package metrics registers the Prometheus collectors exposed on the
// metrics route.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const (
	OutcomeStreamed      = "streamed"
	OutcomeRateLimited   = "rate_limited"
	OutcomeBadRequest    = "bad_request"
	OutcomeUpstreamError = "upstream_error"
	OutcomeError         = "error"
)

var (
	// ChatRequestsTotal counts chat requests by outcome.
	ChatRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "chatproxy_chat_requests_total",
			Help: "Total number of chat requests handled, by outcome.",
		},
		[]string{"outcome"},
	)

	// ChatRequestDuration observes time from arrival until the stream ends.
	ChatRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "chatproxy_chat_request_duration_seconds",
			Help:    "Chat request duration in seconds, including streaming.",
			Buckets: []float64{.05, .1, .25, .5, 1, 2.5, 5, 10, 30, 60},
		},
		[]string{"outcome"},
	)

	UpstreamStatus = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "chatproxy_upstream_responses_total",
			Help: "Upstream responses by HTTP status code.",
		},
		[]string{"code"},
	)

	StreamedBytes = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "chatproxy_streamed_bytes_total",
			Help: "Bytes forwarded from upstream to clients.",
		},
	)
)
