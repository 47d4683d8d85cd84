package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func envMap(m map[string]string) func(string) string {
	return func(k string) string { return m[k] }
}

func TestFromEnv_Defaults(t *testing.T) {
	cfg := FromEnv(envMap(nil))

	assert.Equal(t, "8080", cfg.Port)
	assert.Equal(t, "mongo", cfg.StoreDriver)
	assert.Equal(t, 60, cfg.Timers.SubmitSeconds)
	assert.Equal(t, 30, cfg.Timers.VotingMinSeconds)
	assert.Equal(t, 15, cfg.Timers.VotingPerExemplarSeconds)
	assert.Equal(t, 5*time.Minute, cfg.GMGrace)
	assert.Equal(t, time.Second, cfg.TickInterval)
	assert.Equal(t, []string{"*"}, cfg.CORSAllowedOrigins)
	assert.Empty(t, cfg.Warnings)
	assert.False(t, cfg.Development())
}

func TestFromEnv_Overrides(t *testing.T) {
	cfg := FromEnv(envMap(map[string]string{
		"STORE_DRIVER":         "Postgres",
		"REDIS_ADDR":           "redis://cache:6379",
		"SUBMIT_SECONDS":       "45",
		"PLAYER_GRACE":         "90s",
		"APP_ENV":              "development",
		"CORS_ALLOWED_ORIGINS": "http://a.test, http://b.test",
	}))

	assert.Equal(t, "postgres", cfg.StoreDriver)
	assert.Equal(t, "cache:6379", cfg.RedisAddr)
	assert.Equal(t, 45, cfg.Timers.SubmitSeconds)
	assert.Equal(t, 90*time.Second, cfg.PlayerGrace)
	assert.True(t, cfg.Development())
	assert.Equal(t, []string{"http://a.test", "http://b.test"}, cfg.CORSAllowedOrigins)
}

func TestFromEnv_InvalidValuesFallBack(t *testing.T) {
	cfg := FromEnv(envMap(map[string]string{
		"SUBMIT_SECONDS": "soon",
		"GM_GRACE":       "-1m",
		"WS_BURST":       "lots",
	}))

	assert.Equal(t, 60, cfg.Timers.SubmitSeconds)
	assert.Equal(t, 5*time.Minute, cfg.GMGrace)
	assert.Equal(t, 20, cfg.WSBurst)
	assert.Len(t, cfg.Warnings, 3)
}
