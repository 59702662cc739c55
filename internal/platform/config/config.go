package config

import (
	"os"
	"strconv"
	"time"
)

// Server captures process-level configuration. Values come from the
// environment so main stays lean; defaults favor local development.
type Server struct {
	Addr        string
	PostgresDSN string
	Redis       RedisConfig
	SessionTTL  time.Duration
	BcryptCost  int
}

// RedisConfig configures the optional Redis-backed session store. An empty
// URL means sessions stay in process memory.
type RedisConfig struct {
	URL          string
	PoolSize     int
	MinIdleConns int
	DialTimeout  time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

// DefaultSessionTTL matches the fixed per-session time-to-live enforced by
// the session store.
const DefaultSessionTTL = 15 * time.Minute

// FromEnv builds a Server config from environment variables.
func FromEnv() Server {
	addr := os.Getenv("LICENSURE_ADDR")
	if addr == "" {
		addr = ":8080"
	}

	return Server{
		Addr:        addr,
		PostgresDSN: os.Getenv("LICENSURE_POSTGRES_DSN"),
		Redis: RedisConfig{
			URL:          os.Getenv("LICENSURE_REDIS_URL"),
			PoolSize:     envInt("LICENSURE_REDIS_POOL_SIZE", 10),
			MinIdleConns: envInt("LICENSURE_REDIS_MIN_IDLE_CONNS", 2),
			DialTimeout:  envDuration("LICENSURE_REDIS_DIAL_TIMEOUT", 5*time.Second),
			ReadTimeout:  envDuration("LICENSURE_REDIS_READ_TIMEOUT", 3*time.Second),
			WriteTimeout: envDuration("LICENSURE_REDIS_WRITE_TIMEOUT", 3*time.Second),
		},
		SessionTTL: envDuration("LICENSURE_SESSION_TTL", DefaultSessionTTL),
		BcryptCost: envInt("LICENSURE_BCRYPT_COST", 12),
	}
}

func envInt(key string, fallback int) int {
	raw := os.Getenv(key)
	if raw == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(raw)
	if err != nil {
		return fallback
	}
	return parsed
}

func envDuration(key string, fallback time.Duration) time.Duration {
	raw := os.Getenv(key)
	if raw == "" {
		return fallback
	}
	parsed, err := time.ParseDuration(raw)
	if err != nil {
		return fallback
	}
	return parsed
}
