package main

import (
	"context"
	"flag"
	"fmt"
	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github/wdns/chatproxy/internal/server"
	"github/wdns/chatproxy/pkg/config"
	"github/wdns/chatproxy/pkg/env"
	"github/wdns/chatproxy/pkg/gemini"
	"github/wdns/chatproxy/pkg/rate_limiter"
	"log/slog"
	"net/http"
	"os"
	"time"
)

const memoryJanitorInterval = 30 * time.Second

var (
	envFilePath        string
	disableRateLimiter bool
)

func init() {
	flag.StringVar(&envFilePath, "env", "", "Enter the env file path you want to load if any")
	flag.BoolVar(&disableRateLimiter, "disableRateLimiter", false, "Disable the rate limiter")
}

func setupLogger(envObj *env.Specification) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(envObj.LogLevel)); err != nil {
		level = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{Level: level}
	var handler slog.Handler = slog.NewTextHandler(os.Stdout, opts)
	if envObj.IsProduction() {
		handler = slog.NewJSONHandler(os.Stdout, opts)
		gin.SetMode(gin.ReleaseMode)
	}
	slog.SetDefault(slog.New(handler))
}

// newStorage returns nil when no store can be bound; requests to the chat
// route then fail until the deployment is fixed.
func newStorage(ctx context.Context, envObj *env.Specification) rate_limiter.Storer {
	switch envObj.StoreDriver {
	case env.StoreDriverMemory:
		storage := rate_limiter.NewMemoryStorage()
		go storage.RunJanitor(ctx, memoryJanitorInterval)
		return storage
	case env.StoreDriverRedis:
		storage, err := rate_limiter.NewRedis()
		if err != nil {
			slog.Warn("counter store is not bound", "driver", envObj.StoreDriver, "error", err)
			return nil
		}
		if err := storage.Ping(ctx); err != nil {
			slog.Warn("redis is not reachable yet", "addr", envObj.RedisAddr, "error", err)
		}
		return storage
	default:
		slog.Warn("unknown store driver", "driver", envObj.StoreDriver)
		return nil
	}
}

func main() {
	slog.Info("chat proxy v0")

	flag.Parse()

	if envFilePath != "" {
		slog.Info(fmt.Sprintf("loading env file %s", envFilePath))
		if err := godotenv.Load(envFilePath); err != nil {
			panic(fmt.Errorf("could not be able to load the env file: %v", err))
		}
	}

	envObj := env.GetEnv()
	setupLogger(envObj)
	slog.Info("env loaded", "file", envFilePath, "version", envObj.Version, "env", envObj.Env)

	if disableRateLimiter {
		slog.Warn("rate limiter is disabled")
	}

	cfg := config.GetConfig()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var servicer rate_limiter.Servicer
	if storage := newStorage(ctx, envObj); storage != nil {
		defer storage.Close()
		servicer = rate_limiter.New(storage, cfg.RateLimit)
	}

	if envObj.GeminiApiKey == "" {
		slog.Warn("GEMINI_API_KEY is not set, chat requests will fail")
	}

	upstream := gemini.New(envObj.GeminiApiKey,
		gemini.WithBaseURL(cfg.Upstream.BaseURL),
		gemini.WithModel(cfg.Upstream.Model),
		gemini.WithSystemInstruction(cfg.Upstream.SystemInstruction),
		gemini.WithHTTPClient(&http.Client{
			Transport: &http.Transport{
				Proxy:                 http.ProxyFromEnvironment,
				ResponseHeaderTimeout: cfg.Upstream.ResponseHeaderTimeout,
				ForceAttemptHTTP2:     true,
			},
		}),
	)

	srv := server.NewServer(servicer, upstream, cfg, server.WithDisableRateLimiter(disableRateLimiter))
	srv.Run()
}
