package config

import (
	"errors"
	"fmt"
	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"
	"github/wdns/chatproxy/pkg/enum"
	"github/wdns/chatproxy/pkg/env"
	"github/wdns/chatproxy/pkg/gemini"
	"log"
	"log/slog"
	"net/http"
	"sync"
	"time"
)

const (
	DefaultRateLimit         = 10
	DefaultRateLimitWindow   = 60 * time.Second
	DefaultRateLimitPrefix   = "rate_limit"
	DefaultClientIPHeader    = "CF-Connecting-IP"
	DefaultChatPath          = "/gem"
	DefaultResponseType      = "application/json"
	DefaultAllowOrigin       = "*"
	DefaultMetricsPath       = "/metrics"
)

var (
	FileReadErr                  = errors.New("could not read config file")
	RawConfigStructValidationErr = errors.New("invalid config")
)

type rawConfig struct {
	RateLimit *struct {
		Limit          int    `mapstructure:"limit" validate:"gt=0"`
		Window         int    `mapstructure:"window" validate:"gt=0"`
		KeyPrefix      string `mapstructure:"key_prefix"`
		Strategy       string `mapstructure:"strategy" validate:"omitempty,oneof=atomic read_modify_write"`
		ClientIPHeader string `mapstructure:"client_ip_header"`
	} `mapstructure:"rate_limit" validate:"required"`
	Chat *struct {
		Path                string `mapstructure:"path" validate:"omitempty,startswith=/"`
		ResponseContentType string `mapstructure:"response_content_type"`
	} `mapstructure:"chat"`
	Upstream *struct {
		BaseURL               string `mapstructure:"base_url" validate:"omitempty,url"`
		Model                 string `mapstructure:"model"`
		SystemInstruction     string `mapstructure:"system_instruction"`
		ResponseHeaderTimeout int    `mapstructure:"response_header_timeout" validate:"gte=0"`
	} `mapstructure:"upstream"`
	Cors *struct {
		AllowOrigin  string   `mapstructure:"allow_origin"`
		AllowMethods []string `mapstructure:"allow_methods"`
		AllowHeaders []string `mapstructure:"allow_headers"`
	} `mapstructure:"cors"`
	Errors *struct {
		ExposeStack *bool `mapstructure:"expose_stack"`
	} `mapstructure:"errors"`
	Metrics *struct {
		Enabled *bool
		Path    string
	}
}

var validate = validator.New()

func loadRawConfig(v *viper.Viper) (*rawConfig, error) {
	var rc rawConfig
	if err := v.Unmarshal(&rc); err != nil {
		return nil, err
	}
	if err := validate.Struct(&rc); err != nil {
		return nil, fmt.Errorf("%w: %v", RawConfigStructValidationErr, err)
	}
	return &rc, nil
}

type RateLimitConfig struct {
	Limit          int
	Window         time.Duration // every accepted request resets the key expiry to Window
	KeyPrefix      string
	Strategy       enum.Strategy
	ClientIPHeader string
}

// ExceededMessage is the error text returned with a 429, e.g. "Rate limit exceeded (10/min)".
func (r RateLimitConfig) ExceededMessage() string {
	per := "min"
	if r.Window != time.Minute {
		per = r.Window.String()
	}
	return fmt.Sprintf("Rate limit exceeded (%d/%s)", r.Limit, per)
}

type ChatConfig struct {
	Path                string
	ResponseContentType string
}

type UpstreamConfig struct {
	BaseURL               string
	Model                 string
	SystemInstruction     string
	ResponseHeaderTimeout time.Duration // zero means no timeout
}

type CorsConfig struct {
	AllowOrigin  string
	AllowMethods []string
	AllowHeaders []string
}

type ErrorsConfig struct {
	ExposeStack bool
}

type metricConfig struct {
	Enabled bool
	Path    string
}

type Config struct {
	RateLimit RateLimitConfig
	Chat      ChatConfig
	Upstream  UpstreamConfig
	Cors      CorsConfig
	Errors    ErrorsConfig
	Metrics   metricConfig
}

// Default returns the configuration used when a section is omitted.
func Default() *Config {
	return &Config{
		RateLimit: RateLimitConfig{
			Limit:          DefaultRateLimit,
			Window:         DefaultRateLimitWindow,
			KeyPrefix:      DefaultRateLimitPrefix,
			Strategy:       enum.Atomic,
			ClientIPHeader: DefaultClientIPHeader,
		},
		Chat: ChatConfig{
			Path:                DefaultChatPath,
			ResponseContentType: DefaultResponseType,
		},
		Upstream: UpstreamConfig{
			BaseURL:           gemini.DefaultBaseURL,
			Model:             gemini.DefaultModel,
			SystemInstruction: gemini.DefaultSystemInstruction,
		},
		Cors: CorsConfig{
			AllowOrigin:  DefaultAllowOrigin,
			AllowMethods: []string{http.MethodPost, http.MethodOptions},
			AllowHeaders: []string{"Content-Type"},
		},
		Errors: ErrorsConfig{
			ExposeStack: true,
		},
		Metrics: metricConfig{
			Enabled: true,
			Path:    DefaultMetricsPath,
		},
	}
}

func parseRateLimitConfig(rc *rawConfig, cfg *Config) error {
	raw := rc.RateLimit
	strategy, ok := enum.ParseStrategy(raw.Strategy)
	if !ok {
		return fmt.Errorf("%w: unknown rate limit strategy %q", RawConfigStructValidationErr, raw.Strategy)
	}

	cfg.RateLimit.Limit = raw.Limit
	cfg.RateLimit.Window = time.Duration(raw.Window) * time.Second
	cfg.RateLimit.Strategy = strategy
	if raw.KeyPrefix != "" {
		cfg.RateLimit.KeyPrefix = raw.KeyPrefix
	}
	if raw.ClientIPHeader != "" {
		cfg.RateLimit.ClientIPHeader = raw.ClientIPHeader
	}
	return nil
}

func parseChatConfig(rc *rawConfig, cfg *Config) {
	if rc.Chat == nil {
		return
	}
	if rc.Chat.Path != "" {
		cfg.Chat.Path = rc.Chat.Path
	}
	if rc.Chat.ResponseContentType != "" {
		cfg.Chat.ResponseContentType = rc.Chat.ResponseContentType
	}
}

func parseUpstreamConfig(rc *rawConfig, cfg *Config) {
	if rc.Upstream == nil {
		return
	}
	if rc.Upstream.BaseURL != "" {
		cfg.Upstream.BaseURL = rc.Upstream.BaseURL
	}
	if rc.Upstream.Model != "" {
		cfg.Upstream.Model = rc.Upstream.Model
	}
	if rc.Upstream.SystemInstruction != "" {
		cfg.Upstream.SystemInstruction = rc.Upstream.SystemInstruction
	}
	cfg.Upstream.ResponseHeaderTimeout = time.Duration(rc.Upstream.ResponseHeaderTimeout) * time.Second
}

func parseCorsConfig(rc *rawConfig, cfg *Config) {
	if rc.Cors == nil {
		return
	}
	if rc.Cors.AllowOrigin != "" {
		cfg.Cors.AllowOrigin = rc.Cors.AllowOrigin
	}
	if len(rc.Cors.AllowMethods) > 0 {
		cfg.Cors.AllowMethods = rc.Cors.AllowMethods
	}
	if len(rc.Cors.AllowHeaders) > 0 {
		cfg.Cors.AllowHeaders = rc.Cors.AllowHeaders
	}
}

func parseMetricConfig(rc *rawConfig, cfg *Config) error {
	if rc.Metrics == nil {
		return nil
	}

	if rc.Metrics.Path == "" {
		return errors.New("metrics path could not be empty")
	}
	cfg.Metrics.Path = rc.Metrics.Path

	if rc.Metrics.Enabled != nil {
		cfg.Metrics.Enabled = *rc.Metrics.Enabled
	}
	return nil
}

func parseRawConfig(rc *rawConfig) (*Config, error) {
	cfg := Default()

	if err := parseRateLimitConfig(rc, cfg); err != nil {
		return nil, err
	}
	parseChatConfig(rc, cfg)
	parseUpstreamConfig(rc, cfg)
	parseCorsConfig(rc, cfg)

	if rc.Errors != nil && rc.Errors.ExposeStack != nil {
		cfg.Errors.ExposeStack = *rc.Errors.ExposeStack
	}

	if err := parseMetricConfig(rc, cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}

var (
	once           sync.Once
	configInstance *Config
)

func newConfig(path string) (*Config, error) {
	slog.Info("loading config", "path", path)
	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("yaml")

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("%w: %v", FileReadErr, err)
	}

	rawConfig, err := loadRawConfig(v)
	if err != nil {
		return nil, fmt.Errorf("unable to read raw config, %w", err)
	}

	return parseRawConfig(rawConfig)
}

func GetConfig() *Config {
	once.Do(func() {
		var err error
		configInstance, err = newConfig(env.GetEnv().ConfigFile)
		if err != nil {
			log.Fatalf("Could not create new config err: %v", err)
		}
	})
	return configInstance
}

func resetConfigForTests() {
	once = sync.Once{}
	configInstance = nil
}
