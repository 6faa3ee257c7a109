package rate_limiter

import (
	"context"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github/wdns/chatproxy/pkg/config"
	"github/wdns/chatproxy/pkg/enum"
	"testing"
	"time"
)

func TestParseCount(t *testing.T) {
	tests := []struct {
		value string
		want  int64
	}{
		{value: "", want: 0},
		{value: "7", want: 7},
		{value: "  7", want: 7},
		{value: "3.5", want: 3},
		{value: "12abc", want: 12},
		{value: "abc12", want: 0},
		{value: "-3", want: 0},
		{value: "garbage", want: 0},
	}

	for _, tt := range tests {
		t.Run(tt.value, func(t *testing.T) {
			assert.Equal(t, tt.want, parseCount(tt.value))
		})
	}
}

// Both strategies must read the same stored value the same way, whatever
// the store.
func TestClient_StrategiesAgreeOnStoredCount(t *testing.T) {
	values := []string{"3.5", "9.9", "12abc", " 4", "-2", "garbage"}

	for _, value := range values {
		t.Run(value, func(t *testing.T) {
			decisions := map[enum.Strategy]Decision{}
			for _, strategy := range []enum.Strategy{enum.Atomic, enum.ReadModifyWrite} {
				_, storage := newTestRedisStorage(t, map[string]string{"rate_limit:203.0.113.7": value})
				c := New(storage, config.RateLimitConfig{
					Limit:     10,
					Window:    time.Minute,
					KeyPrefix: "rate_limit",
					Strategy:  strategy,
				})

				decision, err := c.CheckRateLimit(context.Background(), "203.0.113.7")
				require.NoError(t, err)
				decisions[strategy] = decision
			}

			assert.Equal(t, decisions[enum.Atomic], decisions[enum.ReadModifyWrite])
		})
	}
}
