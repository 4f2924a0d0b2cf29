package config

import (
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const (
	EnvDevelopment = "development"
	EnvProduction  = "production"
)

// Config holds application configuration
type Config struct {
	Environment string
	ServerPort  string
	LogLevel    string

	// Database settings
	DatabaseType string
	DatabasePath string
	DatabaseURL  string

	// Session token settings
	JWTSecret         string
	JWTExpiresIn      time.Duration
	CookieExpiresDays int
	BcryptCost        int
	ResetTokenTTL     time.Duration

	// Email settings
	AppBaseURL   string
	AWSRegion    string
	SESFromEmail string
	SESFromName  string
	EmailDebug   bool

	// Request limits
	RateLimit       int
	RateLimitWindow time.Duration
	RedisURL        string
	MaxBodyBytes    int64

	// GeneratedSecret is set when JWTSecret was not configured and a random one was created
	GeneratedSecret bool
}

// Load reads configuration from environment variables with sensible defaults.
// A .env file in the working directory is loaded first when present.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("failed to load .env file: %w", err)
	}

	jwtExpires, err := getDuration("JWT_EXPIRES_IN", 24*time.Hour)
	if err != nil {
		return nil, err
	}
	resetTTL, err := getDuration("RESET_TOKEN_TTL", 10*time.Minute)
	if err != nil {
		return nil, err
	}
	rateWindow, err := getDuration("RATE_LIMIT_WINDOW", time.Hour)
	if err != nil {
		return nil, err
	}

	cfg := &Config{
		Environment:       strings.ToLower(getEnv("APP_ENV", EnvDevelopment)),
		ServerPort:        getEnv("PORT", "8080"),
		LogLevel:          getEnv("LOG_LEVEL", "info"),
		DatabaseType:      getEnv("DB_TYPE", "sqlite"),
		DatabasePath:      getEnv("DB_PATH", "./blog.db"),
		DatabaseURL:       getEnv("DATABASE_URL", ""),
		JWTSecret:         getEnv("JWT_SECRET", ""),
		JWTExpiresIn:      jwtExpires,
		CookieExpiresDays: getInt("JWT_COOKIE_EXPIRES_IN", 90),
		BcryptCost:        getInt("BCRYPT_COST", 12),
		ResetTokenTTL:     resetTTL,
		AppBaseURL:        strings.TrimRight(getEnv("APP_BASE_URL", ""), "/"),
		AWSRegion:         getEnv("AWS_REGION", "us-east-1"),
		SESFromEmail:      getEnv("SES_FROM_EMAIL", ""),
		SESFromName:       getEnv("SES_FROM_NAME", "Blog"),
		EmailDebug:        getBool("EMAIL_DEBUG", false),
		RateLimit:         getInt("RATE_LIMIT", 1000),
		RateLimitWindow:   rateWindow,
		RedisURL:          getEnv("REDIS_URL", ""),
		MaxBodyBytes:      int64(getInt("MAX_BODY_BYTES", 10*1024)),
	}

	if cfg.JWTSecret == "" {
		if cfg.IsProduction() {
			return nil, errors.New("JWT_SECRET must be set in production")
		}
		secret, err := generateSecret()
		if err != nil {
			return nil, fmt.Errorf("failed to generate jwt secret: %w", err)
		}
		cfg.JWTSecret = secret
		cfg.GeneratedSecret = true
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate checks values that would otherwise fail later at runtime
func (c *Config) Validate() error {
	if len(c.JWTSecret) < 32 {
		return errors.New("JWT_SECRET must be at least 32 characters")
	}
	if c.JWTExpiresIn <= 0 {
		return errors.New("JWT_EXPIRES_IN must be positive")
	}
	if c.CookieExpiresDays <= 0 {
		return errors.New("JWT_COOKIE_EXPIRES_IN must be positive")
	}
	if c.BcryptCost < 4 || c.BcryptCost > 31 {
		return fmt.Errorf("BCRYPT_COST must be between 4 and 31, got %d", c.BcryptCost)
	}
	if c.RateLimit <= 0 {
		return errors.New("RATE_LIMIT must be positive")
	}
	return nil
}

// IsProduction reports whether the app runs with production hardening
func (c *Config) IsProduction() bool {
	return c.Environment == EnvProduction
}

// CookieExpiry returns how long the session cookie lives
func (c *Config) CookieExpiry() time.Duration {
	return time.Duration(c.CookieExpiresDays) * 24 * time.Hour
}

// getEnv reads an environment variable or returns a default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getInt(key string, defaultValue int) int {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	n, err := strconv.Atoi(value)
	if err != nil {
		return defaultValue
	}
	return n
}

func getBool(key string, defaultValue bool) bool {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	b, err := strconv.ParseBool(value)
	if err != nil {
		return defaultValue
	}
	return b
}

// getDuration accepts Go durations ("15m", "24h") and day counts ("90d")
func getDuration(key string, defaultValue time.Duration) (time.Duration, error) {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return defaultValue, nil
	}
	if days, ok := strings.CutSuffix(value, "d"); ok {
		n, err := strconv.Atoi(days)
		if err != nil {
			return 0, fmt.Errorf("invalid %s: %q", key, value)
		}
		return time.Duration(n) * 24 * time.Hour, nil
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return d, nil
}

func generateSecret() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}
