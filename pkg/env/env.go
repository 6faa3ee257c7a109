package env

import (
	"github.com/kelseyhightower/envconfig"
	"log"
	"log/slog"
	"sync"
	"time"
)

const (
	StoreDriverRedis  = "redis"
	StoreDriverMemory = "memory"
)

type Specification struct {
	Version  int
	Env      string `default:"production"`
	LogLevel string `default:"info" split_words:"true"`

	ServerPort                 string        `default:":8080" split_words:"true"`
	ServerReadTimeoutInSecond  time.Duration `default:"10s" split_words:"true"`
	ServerWriteTimeoutInSecond time.Duration `default:"2m" split_words:"true"`
	ServerMaxHeaderBytes       int           `default:"1048576" split_words:"true"`

	// GeminiApiKey is checked per request, not at boot, so a missing key
	// surfaces as a 500 on the chat route instead of a crash loop.
	GeminiApiKey string `envconfig:"GEMINI_API_KEY"`

	StoreDriver   string `default:"redis" split_words:"true"`
	RedisAddr     string `default:"" split_words:"true"`
	RedisPassword string `default:"" split_words:"true"`
	RedisDb       int    `default:"0" split_words:"true"`
	RedisPoolSize int    `default:"100" split_words:"true"`

	ConfigFile string `default:"./config.yaml" split_words:"true"`
}

func (s *Specification) IsProduction() bool {
	return s.Env == "production"
}

var (
	once        sync.Once
	envInstance Specification
)

func GetEnv() *Specification {
	once.Do(func() {
		slog.Info("initializing env...")
		err := envconfig.Process("app", &envInstance)
		if err != nil {
			log.Fatal(err.Error())
		}
	})

	return &envInstance
}

func resetEnvForTests() {
	once = sync.Once{}
	envInstance = Specification{}
}
