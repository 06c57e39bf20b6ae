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

const (
	devJWTSecret        = "dev-secret"
	devFederationSecret = "dev-federation-secret"

	maxBcryptCost = 31
)

// Config aggregates runtime configuration for the service.
type Config struct {
	App        AppConfig
	Postgres   PostgresConfig
	Redis      RedisConfig
	Logger     LoggerConfig
	Auth       AuthConfig
	Federation FederationConfig
	RateLimit  RateLimitConfig
	Gateway    GatewayConfig
}

// AppConfig controls server level behavior.
type AppConfig struct {
	Name                  string
	Env                   string
	Host                  string
	Port                  string
	Version               string
	RequestTimeoutSeconds int
	SeedDemo              bool
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
	Level       string
	Development bool
}

// AuthConfig defines session token and credential store parameters.
type AuthConfig struct {
	JWTSecret           string
	SessionTTLMinutes   int
	BcryptCost          int
	StoreTimeoutSeconds int
	SessionCookieName   string
}

// FederationConfig describes the CMS the bridge hands sessions to.
type FederationConfig struct {
	Secret             string
	Issuer             string
	TTLMinutes         int
	ExternalBaseURL    string
	LoginPath          string
	FailureDelayMillis int
}

// RateLimitConfig throttles the login endpoint per client IP.
type RateLimitConfig struct {
	LoginPerMinute int
	LoginBurst     int
}

// GatewayConfig configures the CMS-side gateway binary.
type GatewayConfig struct {
	Host              string
	Port              string
	UpstreamURL       string
	SessionCookieName string
	SessionTTLMinutes int
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
			Name:                  getEnv("APP_NAME", "taskflow"),
			Env:                   getEnv("APP_ENV", "development"),
			Host:                  getEnv("APP_HOST", "0.0.0.0"),
			Port:                  getEnv("APP_PORT", "3000"),
			Version:               getEnv("APP_VERSION", "dev"),
			RequestTimeoutSeconds: getEnvAsInt("HTTP_REQUEST_TIMEOUT_SECONDS", 30),
			SeedDemo:              getEnvAsBool("APP_SEED_DEMO", false),
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
			Level:       getEnv("LOG_LEVEL", "info"),
			Development: getEnvAsBool("LOG_DEVELOPMENT", false),
		},
		Auth: AuthConfig{
			JWTSecret:           getEnv("JWT_SECRET", devJWTSecret),
			SessionTTLMinutes:   getEnvAsInt("AUTH_SESSION_TTL_MINUTES", 60),
			BcryptCost:          getEnvAsInt("AUTH_BCRYPT_COST", 10),
			StoreTimeoutSeconds: getEnvAsInt("AUTH_STORE_TIMEOUT_SECONDS", 5),
			SessionCookieName:   getEnv("AUTH_SESSION_COOKIE", "taskflow_token"),
		},
		Federation: FederationConfig{
			Secret:             getEnv("JWT_AUTH_SECRET_KEY", devFederationSecret),
			Issuer:             getEnv("FEDERATION_ISSUER", "http://localhost:3000"),
			TTLMinutes:         getEnvAsInt("FEDERATION_TTL_MINUTES", 60),
			ExternalBaseURL:    strings.TrimRight(getEnv("FEDERATION_BASE_URL", "http://localhost:8080"), "/"),
			LoginPath:          getEnv("FEDERATION_LOGIN_PATH", "/wp-login.php"),
			FailureDelayMillis: getEnvAsInt("FEDERATION_FAILURE_DELAY_MS", 1500),
		},
		RateLimit: RateLimitConfig{
			LoginPerMinute: getEnvAsInt("RATELIMIT_LOGIN_REQUESTS", 10),
			LoginBurst:     getEnvAsInt("RATELIMIT_LOGIN_BURST", 5),
		},
		Gateway: GatewayConfig{
			Host:              getEnv("GATEWAY_HOST", "0.0.0.0"),
			Port:              getEnv("GATEWAY_PORT", "8081"),
			UpstreamURL:       strings.TrimRight(getEnv("GATEWAY_UPSTREAM_URL", "http://127.0.0.1:8080"), "/"),
			SessionCookieName: getEnv("GATEWAY_SESSION_COOKIE", "cms_session"),
			SessionTTLMinutes: getEnvAsInt("GATEWAY_SESSION_TTL_MINUTES", 480),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate rejects configurations the bridge cannot run safely with.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.Auth.JWTSecret) == "" {
		return errors.New("JWT_SECRET must not be empty")
	}
	if strings.TrimSpace(c.Federation.Secret) == "" {
		return errors.New("JWT_AUTH_SECRET_KEY must not be empty")
	}
	if c.Auth.BcryptCost < 10 {
		return fmt.Errorf("AUTH_BCRYPT_COST must be at least 10, got %d", c.Auth.BcryptCost)
	}
	if c.Auth.BcryptCost > maxBcryptCost {
		return fmt.Errorf("AUTH_BCRYPT_COST must be at most %d, got %d", maxBcryptCost, c.Auth.BcryptCost)
	}
	if c.App.Env == "production" {
		if c.Auth.JWTSecret == devJWTSecret || c.Federation.Secret == devFederationSecret {
			return errors.New("development secrets are not allowed in production")
		}
	}
	return nil
}

// Addr returns the HTTP bind address.
func (a AppConfig) Addr() string {
	return fmt.Sprintf("%s:%s", a.Host, a.Port)
}

// RequestTimeout returns the configured request timeout duration.
func (a AppConfig) RequestTimeout() time.Duration {
	if a.RequestTimeoutSeconds <= 0 {
		return 0
	}
	return time.Duration(a.RequestTimeoutSeconds) * time.Second
}

// SessionTTL is the lifetime of a session token.
func (a AuthConfig) SessionTTL() time.Duration {
	if a.SessionTTLMinutes <= 0 {
		return time.Hour
	}
	return time.Duration(a.SessionTTLMinutes) * time.Minute
}

// StoreTimeout bounds a single credential store call.
func (a AuthConfig) StoreTimeout() time.Duration {
	if a.StoreTimeoutSeconds <= 0 {
		return 5 * time.Second
	}
	return time.Duration(a.StoreTimeoutSeconds) * time.Second
}

// TTL is the lifetime of a federation token.
func (f FederationConfig) TTL() time.Duration {
	if f.TTLMinutes <= 0 {
		return time.Hour
	}
	return time.Duration(f.TTLMinutes) * time.Minute
}

// FailureDelay is how long the bridge waits before its fallback redirect.
func (f FederationConfig) FailureDelay() time.Duration {
	if f.FailureDelayMillis <= 0 {
		return 0
	}
	return time.Duration(f.FailureDelayMillis) * time.Millisecond
}

// LoginURL is the CMS's own login page.
func (f FederationConfig) LoginURL() string {
	return f.ExternalBaseURL + f.LoginPath
}

// Addr returns the gateway bind address.
func (g GatewayConfig) Addr() string {
	return fmt.Sprintf("%s:%s", g.Host, g.Port)
}

// SessionTTL is the lifetime of a CMS-side session.
func (g GatewayConfig) SessionTTL() time.Duration {
	if g.SessionTTLMinutes <= 0 {
		return 8 * time.Hour
	}
	return time.Duration(g.SessionTTLMinutes) * time.Minute
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
