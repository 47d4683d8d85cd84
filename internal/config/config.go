package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"exemplarparty/internal/game"
)

type Config struct {
	Port     string
	AppEnv   string
	LogLevel string

	StoreDriver string
	MongoURI    string
	MongoDB     string
	PostgresDSN string

	RedisAddr     string
	RedisPassword string
	RedisDB       int

	JWTSecret      string
	ExportPassword string

	Timers       game.TimerSettings
	TickInterval time.Duration

	GMGrace     time.Duration
	PlayerGrace time.Duration
	SweepSpec   string

	WSRatePerSec float64
	WSBurst      int

	CORSAllowedOrigins []string

	// Warnings lists values that failed to parse and fell back to their default.
	Warnings []string
}

func (c *Config) Development() bool {
	return c.AppEnv == "development"
}

// Load reads an optional .env file and then the environment.
func Load() *Config {
	_ = godotenv.Load()
	return FromEnv(os.Getenv)
}

// FromEnv builds the configuration from a lookup function.
func FromEnv(getenv func(string) string) *Config {
	e := env{get: getenv}
	cfg := &Config{
		Port:     e.str("PORT", "8080"),
		AppEnv:   e.str("APP_ENV", "production"),
		LogLevel: e.str("LOG_LEVEL", "info"),

		StoreDriver: strings.ToLower(e.str("STORE_DRIVER", "mongo")),
		MongoURI:    e.str("MONGO_URI", "mongodb://localhost:27017"),
		MongoDB:     e.str("MONGO_DB", "exemplar"),
		PostgresDSN: e.str("POSTGRES_DSN", "host=localhost user=postgres dbname=exemplar sslmode=disable"),

		RedisAddr:     strings.TrimPrefix(e.str("REDIS_ADDR", "localhost:6379"), "redis://"),
		RedisPassword: e.str("REDIS_PASSWORD", ""),
		RedisDB:       e.int("REDIS_DB", 0),

		JWTSecret:      e.str("JWT_SECRET", "super-secret-key-change-in-production"),
		ExportPassword: e.str("EXPORT_PASSWORD", ""),

		Timers: game.TimerSettings{
			SubmitSeconds:            e.int("SUBMIT_SECONDS", 60),
			VotingMinSeconds:         e.int("VOTING_MIN_SECONDS", 30),
			VotingPerExemplarSeconds: e.int("VOTING_PER_EXEMPLAR_SECONDS", 15),
			RevealSeconds:            e.int("REVEAL_SECONDS", 6),
			SummarySeconds:           e.int("SUMMARY_SECONDS", 12),
			ScoreboardSeconds:        e.int("SCOREBOARD_SECONDS", 8),
		},
		TickInterval: e.duration("TICK_INTERVAL", time.Second),

		GMGrace:     e.duration("GM_GRACE", 5*time.Minute),
		PlayerGrace: e.duration("PLAYER_GRACE", 2*time.Minute),
		SweepSpec:   e.str("SWEEP_SPEC", "@every 30s"),

		WSRatePerSec: e.float("WS_RATE_PER_SEC", 10),
		WSBurst:      e.int("WS_BURST", 20),

		CORSAllowedOrigins: splitList(e.str("CORS_ALLOWED_ORIGINS", "*")),
	}
	cfg.Warnings = e.warnings
	return cfg
}

type env struct {
	get      func(string) string
	warnings []string
}

func (e *env) str(key, defaultVal string) string {
	if val := e.get(key); val != "" {
		return val
	}
	return defaultVal
}

func (e *env) int(key string, defaultVal int) int {
	val := e.get(key)
	if val == "" {
		return defaultVal
	}
	n, err := strconv.Atoi(val)
	if err != nil {
		e.warn(key, val)
		return defaultVal
	}
	return n
}

func (e *env) float(key string, defaultVal float64) float64 {
	val := e.get(key)
	if val == "" {
		return defaultVal
	}
	f, err := strconv.ParseFloat(val, 64)
	if err != nil {
		e.warn(key, val)
		return defaultVal
	}
	return f
}

func (e *env) duration(key string, defaultVal time.Duration) time.Duration {
	val := e.get(key)
	if val == "" {
		return defaultVal
	}
	d, err := time.ParseDuration(val)
	if err != nil || d <= 0 {
		e.warn(key, val)
		return defaultVal
	}
	return d
}

func (e *env) warn(key, val string) {
	e.warnings = append(e.warnings, fmt.Sprintf("invalid %s=%q, using default", key, val))
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
