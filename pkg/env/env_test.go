package env

import (
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"sync"
	"testing"
	"time"
)

func setRequiredEnvVars(t *testing.T) {
	t.Setenv("APP_ENV", "test")
	t.Setenv("APP_VERSION", "1")
	t.Setenv("APP_REDIS_ADDR", "localhost:6379")
	t.Setenv("APP_GEMINI_API_KEY", "secret")
}

func TestGetEnv_IsSingletonAndConcurrentSafe(t *testing.T) {
	setRequiredEnvVars(t)
	t.Cleanup(resetEnvForTests)
	goroutine := 100

	wg := sync.WaitGroup{}
	wg.Add(goroutine)

	instances := make(chan *Specification, goroutine)

	for i := 0; i < goroutine; i++ {
		go func() {
			defer wg.Done()
			instances <- GetEnv()
		}()
	}
	wg.Wait()
	close(instances)

	var first *Specification
	for instance := range instances {
		if first == nil {
			first = instance
			continue
		}
		require.Same(t, first, instance)
	}
}

func TestGetEnv_SpecificationIsValid(t *testing.T) {
	setRequiredEnvVars(t)
	t.Cleanup(resetEnvForTests)
	envObj := GetEnv()

	assert.Equal(t, 1, envObj.Version, "Version")
	assert.Equal(t, "test", envObj.Env, "Env")
	assert.False(t, envObj.IsProduction(), "IsProduction")
	assert.Equal(t, "info", envObj.LogLevel, "Log Level")
	assert.Equal(t, ":8080", envObj.ServerPort, "Server Port")
	assert.Equal(t, 2*time.Minute, envObj.ServerWriteTimeoutInSecond, "Server Write Timeout")
	assert.Equal(t, 10*time.Second, envObj.ServerReadTimeoutInSecond, "Server Read Timeout")
	assert.Equal(t, 1048576, envObj.ServerMaxHeaderBytes, "Server Max Header Bytes")
	assert.Equal(t, "secret", envObj.GeminiApiKey, "Gemini Api Key")
	assert.Equal(t, StoreDriverRedis, envObj.StoreDriver, "Store Driver")
	assert.Equal(t, "localhost:6379", envObj.RedisAddr, "Redis Addr")
	assert.Equal(t, 0, envObj.RedisDb, "Redis DB")
	assert.Equal(t, "", envObj.RedisPassword, "Redis Password")
	assert.Equal(t, 100, envObj.RedisPoolSize, "Redis Pool Size")
	assert.Equal(t, "./config.yaml", envObj.ConfigFile, "Config Dir Path")
}

func TestGetEnv_MissingApiKeyIsNotFatal(t *testing.T) {
	t.Setenv("APP_GEMINI_API_KEY", "")
	t.Setenv("APP_STORE_DRIVER", StoreDriverMemory)
	t.Cleanup(resetEnvForTests)

	envObj := GetEnv()
	assert.Empty(t, envObj.GeminiApiKey)
	assert.Equal(t, StoreDriverMemory, envObj.StoreDriver)
	assert.True(t, envObj.IsProduction())
}
