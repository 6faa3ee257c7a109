package server

import (
	"context"
	"errors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github/wdns/chatproxy/internal/server/middleware"
	"github/wdns/chatproxy/pkg/config"
	"github/wdns/chatproxy/pkg/env"
	"github/wdns/chatproxy/pkg/gemini"
	"github/wdns/chatproxy/pkg/rate_limiter"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"
)

const (
	DefaultGracefulShutdownTimeout = 10 * time.Second

	HealthPath = "/health"
	StatusPath = "/status"
)

var ErrStoreNotBound = errors.New("counter store is not bound")

type Config struct {
	port                  string
	readTimeoutInSeconds  time.Duration
	writeTimeoutInSeconds time.Duration
	maxHeaderBytes        int
	handler               *gin.Engine
	servicer              rate_limiter.Servicer
	upstream              ChatUpstream
	cfg                   *config.Config
	disableRateLimiter    bool
}

type Option func(config *Config)

func WithDisableRateLimiter(value bool) Option {
	return func(config *Config) {
		config.disableRateLimiter = value
	}
}

// NewServer wires the routes. servicer may be nil when no counter store is
// bound; the chat route then fails with a 500 instead of the process
// refusing to start.
func NewServer(servicer rate_limiter.Servicer, upstream ChatUpstream, cfg *config.Config, opts ...Option) *Config {
	envObj := env.GetEnv()
	c := &Config{
		port:                  envObj.ServerPort,
		readTimeoutInSeconds:  envObj.ServerReadTimeoutInSecond,
		writeTimeoutInSeconds: envObj.ServerWriteTimeoutInSecond,
		maxHeaderBytes:        envObj.ServerMaxHeaderBytes,
		handler:               gin.New(),
		servicer:              servicer,
		upstream:              upstream,
		cfg:                   cfg,
		disableRateLimiter:    false,
	}

	for _, opt := range opts {
		opt(c)
	}

	c.registerRoutes()
	return c
}

func (s *Config) bindingChecks() []middleware.BindingCheck {
	checks := []middleware.BindingCheck{
		func() error {
			if s.upstream == nil || !s.upstream.Configured() {
				return gemini.ErrMissingAPIKey
			}
			return nil
		},
	}

	if !s.disableRateLimiter {
		checks = append(checks, func() error {
			if s.servicer == nil {
				return ErrStoreNotBound
			}
			return nil
		})
	}

	return checks
}

func (s *Config) registerRoutes() {
	exposeStack := s.cfg.Errors.ExposeStack

	// unknown paths, trailing slash included, must reach NoRoute with CORS headers
	s.handler.RedirectTrailingSlash = false
	s.handler.RedirectFixedPath = false

	s.handler.Use(gin.CustomRecovery(middleware.RecoveryHandler(exposeStack)))
	s.handler.Use(middleware.RequestIDMiddleware)
	s.handler.Use(middleware.CORSMiddleware(s.cfg.Cors))
	s.handler.Use(middleware.QueueTimeMiddleware)
	s.handler.Use(middleware.ErrorBoundaryMiddleware(exposeStack))
	s.handler.Use(middleware.ClientIdentityMiddleware(s.cfg.RateLimit.ClientIPHeader))

	chain := []gin.HandlerFunc{middleware.RequireBindingsMiddleware(s.bindingChecks()...)}
	if s.disableRateLimiter == false {
		chain = append(chain, middleware.RateLimitMiddleware(s.servicer, s.cfg.RateLimit.ExceededMessage()))
	}
	chain = append(chain, ChatHandler(s.upstream, s.cfg.Chat.ResponseContentType))

	s.handler.POST(s.cfg.Chat.Path, chain...) // rate limit, then stream the upstream answer
	s.handler.GET(StatusPath, StatusHandler(s.servicer))
	s.handler.GET(HealthPath, HealthHandler(s.servicer, s.upstream))
	if s.cfg.Metrics.Enabled {
		s.handler.GET(s.cfg.Metrics.Path, gin.WrapH(promhttp.Handler()))
	}
	s.handler.NoRoute(NotFoundHandler)
}

func (s *Config) Handler() http.Handler {
	return s.handler
}

func (s *Config) Run() {
	srv := &http.Server{
		Addr:           s.port,
		Handler:        s.handler,
		ReadTimeout:    s.readTimeoutInSeconds,
		WriteTimeout:   s.writeTimeoutInSeconds,
		MaxHeaderBytes: s.maxHeaderBytes,
	}

	go func() {
		slog.Info("listening", "addr", s.port, "chat_path", s.cfg.Chat.Path)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("Could not listen: %v", err)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	<-stop // block until interrupt signal
	slog.Info("shutting down the server...")

	ctx, cancel := context.WithTimeout(context.Background(), DefaultGracefulShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Fatalf("Server forced to shutdown :%v", err)
	}

	slog.Info("Server exited gracefully")
}
