package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Lock backends for per-account session serialization.
const (
	LockBackendMemory = "memory"
	LockBackendRedis  = "redis"
)

// Config aggregates runtime configuration for the service.
type Config struct {
	App      AppConfig
	Postgres PostgresConfig
	Redis    RedisConfig
	Logger   LoggerConfig
	Auth     AuthConfig
}

// AppConfig controls server level behavior.
type AppConfig struct {
	Name                  string
	Env                   string
	Host                  string
	Port                  string
	Version               string
	RequestTimeoutSeconds int
}

// PostgresConfig holds DB connection values.
type PostgresConfig struct {
	DSN            string
	MaxConns       int32
	MinConns       int32
	RunMigrations  bool
	ConnMaxIdleSec int32
	ConnMaxLifeSec int32
}

// RedisConfig holds Redis connection values.
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

// LoggerConfig configures logging behavior.
type LoggerConfig struct {
	Level      string
	File       string
	MaxSizeMB  int
	MaxBackups int
	MaxAgeDays int
}

// AuthConfig defines authentication parameters.
type AuthConfig struct {
	Issuer                        string
	AccessTokenTTLSeconds         int64
	RefreshTokenTTLSeconds        int64
	PrivateKeyPath                string
	PublicKeyPath                 string
	PrivateKeyPEM                 string
	PublicKeyPEM                  string
	BcryptCost                    int
	BlacklistPruneIntervalSeconds int
	LockBackend                   string
	LockTTLSeconds                int
}

// Load reads configuration from environment variables, applying defaults where possible.
func Load() (*Config, error) {
	_ = godotenv.Load()

	redisDB, err := strconv.Atoi(getEnv("REDIS_DB", "0"))
	if err != nil {
		return nil, fmt.Errorf("invalid REDIS_DB: %w", err)
	}

	cfg := &Config{
		App: AppConfig{
			Name:                  getEnv("APP_NAME", "blog-api"),
			Env:                   getEnv("APP_ENV", "development"),
			Host:                  getEnv("APP_HOST", "0.0.0.0"),
			Port:                  getEnv("APP_PORT", "8080"),
			Version:               getEnv("APP_VERSION", "dev"),
			RequestTimeoutSeconds: getEnvAsInt("HTTP_REQUEST_TIMEOUT_SECONDS", 30),
		},
		Postgres: PostgresConfig{
			DSN:            os.Getenv("POSTGRES_DSN"),
			MaxConns:       int32(getEnvAsInt("POSTGRES_MAX_CONNS", 10)),
			MinConns:       int32(getEnvAsInt("POSTGRES_MIN_CONNS", 2)),
			RunMigrations:  getEnvAsBool("POSTGRES_RUN_MIGRATIONS", true),
			ConnMaxIdleSec: int32(getEnvAsInt("POSTGRES_CONN_MAX_IDLE_SECONDS", 30)),
			ConnMaxLifeSec: int32(getEnvAsInt("POSTGRES_CONN_MAX_LIFE_SECONDS", 300)),
		},
		Redis: RedisConfig{
			Addr:     getEnv("REDIS_ADDR", "127.0.0.1:6379"),
			Password: os.Getenv("REDIS_PASSWORD"),
			DB:       redisDB,
		},
		Logger: LoggerConfig{
			Level:      getEnv("LOG_LEVEL", "info"),
			File:       os.Getenv("LOG_FILE"),
			MaxSizeMB:  getEnvAsInt("LOG_MAX_SIZE_MB", 100),
			MaxBackups: getEnvAsInt("LOG_MAX_BACKUPS", 3),
			MaxAgeDays: getEnvAsInt("LOG_MAX_AGE_DAYS", 28),
		},
		Auth: AuthConfig{
			Issuer:                        getEnv("AUTH_ISSUER", "blog-api"),
			AccessTokenTTLSeconds:         int64(getEnvAsInt("AUTH_ACCESS_TOKEN_TTL_SECONDS", 3600)),
			RefreshTokenTTLSeconds:        int64(getEnvAsInt("AUTH_REFRESH_TOKEN_TTL_SECONDS", 86400)),
			PrivateKeyPath:                os.Getenv("AUTH_PRIVATE_KEY_PATH"),
			PublicKeyPath:                 os.Getenv("AUTH_PUBLIC_KEY_PATH"),
			PrivateKeyPEM:                 os.Getenv("AUTH_PRIVATE_KEY"),
			PublicKeyPEM:                  os.Getenv("AUTH_PUBLIC_KEY"),
			BcryptCost:                    getEnvAsInt("AUTH_BCRYPT_COST", 10),
			BlacklistPruneIntervalSeconds: getEnvAsInt("AUTH_BLACKLIST_PRUNE_INTERVAL_SECONDS", 0),
			LockBackend:                   strings.ToLower(getEnv("AUTH_LOCK_BACKEND", LockBackendMemory)),
			LockTTLSeconds:                getEnvAsInt("AUTH_LOCK_TTL_SECONDS", 10),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate rejects settings the service cannot run with.
func (c *Config) Validate() error {
	if c.Auth.AccessTokenTTLSeconds <= 0 {
		return errors.New("AUTH_ACCESS_TOKEN_TTL_SECONDS must be positive")
	}
	if c.Auth.RefreshTokenTTLSeconds <= 0 {
		return errors.New("AUTH_REFRESH_TOKEN_TTL_SECONDS must be positive")
	}
	switch c.Auth.LockBackend {
	case LockBackendMemory, LockBackendRedis:
	default:
		return fmt.Errorf("unknown AUTH_LOCK_BACKEND %q", c.Auth.LockBackend)
	}
	if (c.Auth.PrivateKeyPath == "") != (c.Auth.PublicKeyPath == "") {
		return errors.New("AUTH_PRIVATE_KEY_PATH and AUTH_PUBLIC_KEY_PATH must be set together")
	}
	if (c.Auth.PrivateKeyPEM == "") != (c.Auth.PublicKeyPEM == "") {
		return errors.New("AUTH_PRIVATE_KEY and AUTH_PUBLIC_KEY must be set together")
	}
	return nil
}

// Addr returns the HTTP bind address.
func (a AppConfig) Addr() string {
	return fmt.Sprintf("%s:%s", a.Host, a.Port)
}

// IsProduction reports whether the service runs in a production environment.
func (a AppConfig) IsProduction() bool {
	return strings.EqualFold(a.Env, "production")
}

// RequestTimeout returns the configured request timeout duration.
func (a AppConfig) RequestTimeout() time.Duration {
	if a.RequestTimeoutSeconds <= 0 {
		return 0
	}
	return time.Duration(a.RequestTimeoutSeconds) * time.Second
}

// BlacklistPruneInterval returns the pruning period; zero disables pruning.
func (a AuthConfig) BlacklistPruneInterval() time.Duration {
	if a.BlacklistPruneIntervalSeconds <= 0 {
		return 0
	}
	return time.Duration(a.BlacklistPruneIntervalSeconds) * time.Second
}

// LockTTL bounds how long a distributed account lock may be held.
func (a AuthConfig) LockTTL() time.Duration {
	if a.LockTTLSeconds <= 0 {
		return 10 * time.Second
	}
	return time.Duration(a.LockTTLSeconds) * time.Second
}

func getEnv(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}

func getEnvAsInt(key string, fallback int) int {
	val := os.Getenv(key)
	if val == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(val)
	if err != nil {
		return fallback
	}
	return parsed
}

func getEnvAsBool(key string, fallback bool) bool {
	val := os.Getenv(key)
	if val == "" {
		return fallback
	}
	parsed, err := strconv.ParseBool(val)
	if err != nil {
		return fallback
	}
	return parsed
}
