package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"infinite-experiment/dispatchboard/internal/scheduling"
)

const (
	BackendPostgres = "postgres"
	BackendSQLite   = "sqlite"

	CacheMemory = "memory"
	CacheRedis  = "redis"

	NotifyLocal = "local"
	NotifyRedis = "redis"
)

// Config is everything the server reads from the environment at startup.
type Config struct {
	AppEnv   string
	HTTPPort int

	StoreBackend string
	PGHost       string
	PGPort       string
	PGUser       string
	PGDB         string
	PGPassword   string
	SQLitePath   string

	RedisHost     string
	RedisPort     string
	RedisPassword string
	NotifyBackend string
	NotifyChannel string

	GateBuffer       scheduling.GateBuffer
	DefaultGateCount int

	JWTSecret    string
	CacheBackend string
	CacheTTL     time.Duration
}

// Load reads the environment, applying defaults for anything unset.
func Load() (*Config, error) {
	cfg := &Config{
		AppEnv:        getEnv("APP_ENV", "development"),
		StoreBackend:  getEnv("STORE_BACKEND", BackendPostgres),
		PGHost:        getEnv("PG_HOST", "localhost"),
		PGPort:        getEnv("PG_PORT", "5432"),
		PGUser:        os.Getenv("PG_USER"),
		PGDB:          os.Getenv("PG_DB"),
		PGPassword:    os.Getenv("PG_PASSWORD"),
		SQLitePath:    getEnv("SQLITE_PATH", "dispatch.db"),
		RedisHost:     getEnv("REDIS_HOST", "localhost"),
		RedisPort:     getEnv("REDIS_PORT", "6379"),
		RedisPassword: os.Getenv("REDIS_PASSWORD"),
		NotifyBackend: getEnv("NOTIFY_BACKEND", NotifyLocal),
		NotifyChannel: getEnv("NOTIFY_CHANNEL", "dispatch_updates"),
		JWTSecret:     os.Getenv("JWT_SECRET"),
		CacheBackend:  getEnv("CACHE_BACKEND", CacheMemory),
	}

	var err error
	if cfg.HTTPPort, err = getEnvInt("HTTP_PORT", 8080); err != nil {
		return nil, err
	}
	if cfg.GateBuffer.PreMinutes, err = getEnvInt("GATE_BUFFER_PRE_MIN", scheduling.DefaultGateBuffer.PreMinutes); err != nil {
		return nil, err
	}
	if cfg.GateBuffer.PostMinutes, err = getEnvInt("GATE_BUFFER_POST_MIN", scheduling.DefaultGateBuffer.PostMinutes); err != nil {
		return nil, err
	}
	if cfg.DefaultGateCount, err = getEnvInt("DEFAULT_GATE_COUNT", 10); err != nil {
		return nil, err
	}
	ttl, err := getEnvInt("CACHE_TTL_SECONDS", 60)
	if err != nil {
		return nil, err
	}
	cfg.CacheTTL = time.Duration(ttl) * time.Second

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) Validate() error {
	if c.StoreBackend != BackendPostgres && c.StoreBackend != BackendSQLite {
		return fmt.Errorf("STORE_BACKEND must be %q or %q, got %q", BackendPostgres, BackendSQLite, c.StoreBackend)
	}
	if c.CacheBackend != CacheMemory && c.CacheBackend != CacheRedis {
		return fmt.Errorf("CACHE_BACKEND must be %q or %q, got %q", CacheMemory, CacheRedis, c.CacheBackend)
	}
	if c.NotifyBackend != NotifyLocal && c.NotifyBackend != NotifyRedis {
		return fmt.Errorf("NOTIFY_BACKEND must be %q or %q, got %q", NotifyLocal, NotifyRedis, c.NotifyBackend)
	}
	if err := c.GateBuffer.Validate(); err != nil {
		return err
	}
	if c.DefaultGateCount < 0 {
		return fmt.Errorf("DEFAULT_GATE_COUNT must be non-negative, got %d", c.DefaultGateCount)
	}
	return nil
}

// PostgresDSN builds the connection string used by both sqlx and GORM.
func (c *Config) PostgresDSN() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%s/%s?sslmode=disable", c.PGUser, c.PGPassword, c.PGHost, c.PGPort, c.PGDB)
}

// NeedsRedis reports whether any configured component talks to Redis.
func (c *Config) NeedsRedis() bool {
	return c.CacheBackend == CacheRedis || c.NotifyBackend == NotifyRedis
}

// RedisAddr is host:port.
func (c *Config) RedisAddr() string {
	return fmt.Sprintf("%s:%s", c.RedisHost, c.RedisPort)
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) (int, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", key, err)
	}
	return n, nil
}
