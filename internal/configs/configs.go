/*
Package configs loads the server configuration.

Values come from environment variables, optionally seeded from a .env file in the
working directory. Development gets permissive defaults; production refuses to start
without its secrets.
*/
package configs

import (
	"fmt"
	"strings"
	"time"

	env "github.com/Netflix/go-env"
	"github.com/joho/godotenv"
)

const (
	// EnvDevelopment is the default environment name.
	EnvDevelopment = "development"

	devJWTSecret = "your_default_insecure_secret_key_change_me"
)

// AppConfig contains all configuration parameters required for the application to run.
type AppConfig struct {
	// General Server Settings
	Environment string `env:"ENVIRONMENT,default=development"`
	Port        int    `env:"PORT,default=8080"`
	LogLevel    string `env:"LOG_LEVEL"`

	// Security Settings
	AllowedOriginsRaw string `env:"ALLOWED_ORIGINS"`
	AllowedOrigins    []string
	JWTSecret         string `env:"JWT_SECRET"`

	// Delivery Settings
	PushTimeout time.Duration `env:"PUSH_TIMEOUT,default=2s"`

	// S3 Storage Settings
	S3BucketName      string `env:"S3_BUCKET_NAME"`
	S3Endpoint        string `env:"S3_ENDPOINT"`
	S3AccessKeyID     string `env:"S3_ACCESS_KEY_ID"`
	S3SecretAccessKey string `env:"S3_SECRET_ACCESS_KEY"`
	S3PublicBaseURL   string `env:"S3_PUBLIC_BASE_URL"`
	MaxImageBytes     int    `env:"MAX_IMAGE_BYTES,default=5242880"`

	// Database Settings
	DatabaseDSN string `env:"DATABASE_URL"`
}

// IsDevelopment reports whether the server runs in the development environment.
func (c *AppConfig) IsDevelopment() bool {
	return c.Environment == EnvDevelopment
}

// MediaEnabled reports whether every S3 setting needed for image messages is present.
func (c *AppConfig) MediaEnabled() bool {
	return c.S3BucketName != "" && c.S3Endpoint != "" &&
		c.S3AccessKeyID != "" && c.S3SecretAccessKey != "" &&
		c.S3PublicBaseURL != ""
}

// LoadConfig reads .env (if present) and the process environment into an AppConfig.
func LoadConfig() (*AppConfig, error) {
	_ = godotenv.Load()

	cfg := &AppConfig{}
	if _, err := env.UnmarshalFromEnviron(cfg); err != nil {
		return nil, fmt.Errorf("failed to read environment: %w", err)
	}

	if err := cfg.normalize(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// loadFrom decodes an explicit variable set. Used by tests.
func loadFrom(es env.EnvSet) (*AppConfig, error) {
	cfg := &AppConfig{}
	if err := env.Unmarshal(es, cfg); err != nil {
		return nil, fmt.Errorf("failed to read environment: %w", err)
	}

	if err := cfg.normalize(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// normalize applies derived values and validates the result.
func (c *AppConfig) normalize() error {
	c.Environment = strings.TrimSpace(c.Environment)
	if c.Environment == "" {
		c.Environment = EnvDevelopment
	}

	if c.Port < 1024 || c.Port > 65535 {
		return fmt.Errorf("port number %d is outside the recommended range (%d-%d) to avoid privileged ports", c.Port, 1024, 65535)
	}

	c.AllowedOrigins = []string{}
	for _, origin := range strings.Split(c.AllowedOriginsRaw, ",") {
		if trimmed := strings.TrimSpace(origin); trimmed != "" {
			c.AllowedOrigins = append(c.AllowedOrigins, trimmed)
		}
	}

	if c.JWTSecret == "" {
		if !c.IsDevelopment() {
			return fmt.Errorf("JWT_SECRET environment variable is required in %s environment for security", c.Environment)
		}
		c.JWTSecret = devJWTSecret
	}

	if c.DatabaseDSN == "" && !c.IsDevelopment() {
		return fmt.Errorf("DATABASE_URL environment variable is required in %s environment", c.Environment)
	}

	if c.PushTimeout <= 0 {
		return fmt.Errorf("PUSH_TIMEOUT must be positive, got %s", c.PushTimeout)
	}

	if c.MaxImageBytes <= 0 {
		return fmt.Errorf("MAX_IMAGE_BYTES must be positive, got %d", c.MaxImageBytes)
	}

	c.S3PublicBaseURL = strings.TrimRight(c.S3PublicBaseURL, "/")

	return nil
}
