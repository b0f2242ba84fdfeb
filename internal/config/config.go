package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config aggregates runtime configuration for the service.
type Config struct {
	App          AppConfig
	Postgres     PostgresConfig
	Redis        RedisConfig
	Logger       LoggerConfig
	Auth         AuthConfig
	OpenVerse    OpenVerseConfig
	Notification NotificationConfig
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
	Level string
}

// AuthConfig defines authentication and token lifecycle parameters.
type AuthConfig struct {
	JWTSecret               string
	Issuer                  string
	Audience                string
	AccessTokenTTLMinutes   int
	RefreshTokenTTLHours    int
	ActivationTokenTTLHours int
	BcryptCost              int
	LockoutMaxAttempts      int
	LockoutWindowHours      int
}

// OpenVerseConfig holds media catalog client credentials.
type OpenVerseConfig struct {
	BaseURL        string
	ClientID       string
	ClientSecret   string
	TimeoutSeconds int
	MaxRetries     int
}

// NotificationConfig holds stub notification endpoints.
type NotificationConfig struct {
	EmailFrom  string
	WebhookURL string
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
			Name:                  getEnv("APP_NAME", "media-locator-service"),
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
			Level: getEnv("LOG_LEVEL", "info"),
		},
		Auth: AuthConfig{
			JWTSecret:               getEnv("AUTH_JWT_SECRET", "dev-secret"),
			Issuer:                  getEnv("AUTH_JWT_ISSUER", "media-locator"),
			Audience:                getEnv("AUTH_JWT_AUDIENCE", "media-locator-clients"),
			AccessTokenTTLMinutes:   getEnvAsInt("AUTH_ACCESS_TOKEN_TTL_MINUTES", 15),
			RefreshTokenTTLHours:    getEnvAsInt("AUTH_REFRESH_TOKEN_TTL_HOURS", 8),
			ActivationTokenTTLHours: getEnvAsInt("AUTH_ACTIVATION_TOKEN_TTL_HOURS", 24),
			BcryptCost:              getEnvAsInt("AUTH_BCRYPT_COST", 12),
			LockoutMaxAttempts:      getEnvAsInt("AUTH_LOCKOUT_MAX_ATTEMPTS", 5),
			LockoutWindowHours:      getEnvAsInt("AUTH_LOCKOUT_WINDOW_HOURS", 24),
		},
		OpenVerse: OpenVerseConfig{
			BaseURL:        getEnv("OPENVERSE_BASE_URL", "https://api.openverse.org"),
			ClientID:       os.Getenv("OPENVERSE_CLIENT_ID"),
			ClientSecret:   os.Getenv("OPENVERSE_CLIENT_SECRET"),
			TimeoutSeconds: getEnvAsInt("OPENVERSE_TIMEOUT_SECONDS", 10),
			MaxRetries:     getEnvAsInt("OPENVERSE_MAX_RETRIES", 3),
		},
		Notification: NotificationConfig{
			EmailFrom:  getEnv("NOTIFY_EMAIL_FROM", "noreply@example.com"),
			WebhookURL: getEnv("NOTIFY_WEBHOOK_URL", ""),
		},
	}

	return cfg, nil
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

// AccessTokenTTL returns the access token lifetime.
func (a AuthConfig) AccessTokenTTL() time.Duration {
	return time.Duration(a.AccessTokenTTLMinutes) * time.Minute
}

// RefreshTokenTTL returns the refresh token lifetime. The refresh token must
// outlive the access token, so the floor is one hour.
func (a AuthConfig) RefreshTokenTTL() time.Duration {
	if a.RefreshTokenTTLHours <= 0 {
		return time.Hour
	}
	return time.Duration(a.RefreshTokenTTLHours) * time.Hour
}

// ActivationTokenTTL returns the signup activation token lifetime.
func (a AuthConfig) ActivationTokenTTL() time.Duration {
	if a.ActivationTokenTTLHours <= 0 {
		return 24 * time.Hour
	}
	return time.Duration(a.ActivationTokenTTLHours) * time.Hour
}

// LockoutWindow returns how long a locked account stays locked.
func (a AuthConfig) LockoutWindow() time.Duration {
	if a.LockoutWindowHours <= 0 {
		return 24 * time.Hour
	}
	return time.Duration(a.LockoutWindowHours) * time.Hour
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
