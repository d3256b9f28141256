package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("SERVER_PORT", "")
	t.Setenv("KAFKA_BROKERS", "")

	cfg := Load()
	require.Equal(t, "8080", cfg.ServerPort)
	require.Equal(t, []string{"localhost:9092"}, cfg.KafkaBrokers)
	require.Equal(t, "drop", cfg.VitalsPolicy)
	require.Equal(t, 12*time.Hour, cfg.SessionTTL)
	require.False(t, cfg.EnableDB)
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("SERVER_PORT", "9090")
	t.Setenv("KAFKA_BROKERS", "k1:9092, k2:9092")
	t.Setenv("ENABLE_REDIS", "true")
	t.Setenv("MODEL_TIMEOUT", "750ms")
	t.Setenv("RATE_LIMIT_RPS", "not-a-number")

	cfg := Load()
	require.Equal(t, "9090", cfg.ServerPort)
	require.Equal(t, []string{"k1:9092", "k2:9092"}, cfg.KafkaBrokers)
	require.True(t, cfg.EnableRedis)
	require.Equal(t, 750*time.Millisecond, cfg.ModelTimeout)
	require.Equal(t, 50, cfg.RateLimitRPS)
}
