// Package config loads runtime settings from the environment (and an optional .env file).
package config

import (
	"fmt"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const (
	EnvLocal = "local"
	EnvProd  = "prod"
)

// Config holds every setting the server needs at startup.
type Config struct {
	Env             string
	Port            string
	ShutdownTimeout time.Duration

	DBDriver    string
	DatabaseURL string

	JWTSecret string
	TokenTTL  time.Duration

	RabbitMQURL string

	RedisAddr      string
	RedisPassword  string
	RedisDB        int
	LoginRateLimit int

	Mail MailConfig
}

// MailConfig describes the SMTP relay of the email provider.
// The provider API key doubles as the SMTP password.
type MailConfig struct {
	APIKey   string
	SMTPHost string
	SMTPPort int
	SMTPUser string
	From     string
}

// ListenAddr returns the address Fiber should bind to.
func (c *Config) ListenAddr() string {
	return ":" + c.Port
}

// Load reads configuration from environment variables, applying defaults
// for everything optional.
func Load() (*Config, error) {
	// Load .env file if it exists
	_ = godotenv.Load()

	v := viper.New()
	setDefaults(v)
	v.AutomaticEnv()

	return fromViper(v)
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("ENV", EnvLocal)
	v.SetDefault("PORT", "3000")
	v.SetDefault("SHUTDOWN_TIMEOUT", "10s")
	v.SetDefault("DB_DRIVER", "postgres")
	v.SetDefault("DATABASE_URL", "host=127.0.0.1 user=postgres password=postgres dbname=taskmanager port=5432 sslmode=disable")
	v.SetDefault("JWT_SECRET", "")
	v.SetDefault("TOKEN_TTL", "0s")
	v.SetDefault("RABBITMQ_URL", "")
	v.SetDefault("REDIS_ADDR", "")
	v.SetDefault("REDIS_PASSWORD", "")
	v.SetDefault("REDIS_DB", 0)
	v.SetDefault("LOGIN_RATE_LIMIT", 10)
	v.SetDefault("MAIL_API_KEY", "")
	v.SetDefault("MAIL_SMTP_HOST", "smtp.sendgrid.net")
	v.SetDefault("MAIL_SMTP_PORT", 587)
	v.SetDefault("MAIL_SMTP_USER", "apikey")
	v.SetDefault("MAIL_FROM", "no-reply@taskmanager.local")
}

func fromViper(v *viper.Viper) (*Config, error) {
	cfg := &Config{
		Env:             v.GetString("ENV"),
		Port:            v.GetString("PORT"),
		ShutdownTimeout: v.GetDuration("SHUTDOWN_TIMEOUT"),
		DBDriver:        v.GetString("DB_DRIVER"),
		DatabaseURL:     v.GetString("DATABASE_URL"),
		JWTSecret:       v.GetString("JWT_SECRET"),
		TokenTTL:        v.GetDuration("TOKEN_TTL"),
		RabbitMQURL:     v.GetString("RABBITMQ_URL"),
		RedisAddr:       v.GetString("REDIS_ADDR"),
		RedisPassword:   v.GetString("REDIS_PASSWORD"),
		RedisDB:         v.GetInt("REDIS_DB"),
		LoginRateLimit:  v.GetInt("LOGIN_RATE_LIMIT"),
		Mail: MailConfig{
			APIKey:   v.GetString("MAIL_API_KEY"),
			SMTPHost: v.GetString("MAIL_SMTP_HOST"),
			SMTPPort: v.GetInt("MAIL_SMTP_PORT"),
			SMTPUser: v.GetString("MAIL_SMTP_USER"),
			From:     v.GetString("MAIL_FROM"),
		},
	}

	if cfg.JWTSecret == "" {
		if cfg.Env != EnvLocal {
			return nil, fmt.Errorf("JWT_SECRET must be set when ENV=%s", cfg.Env)
		}
		cfg.JWTSecret = "local-development-secret"
	}

	switch cfg.DBDriver {
	case "postgres", "sqlite", "memory":
	default:
		return nil, fmt.Errorf("unsupported DB_DRIVER %q", cfg.DBDriver)
	}

	if cfg.TokenTTL < 0 {
		return nil, fmt.Errorf("TOKEN_TTL must not be negative, got %s", cfg.TokenTTL)
	}
	if cfg.LoginRateLimit < 0 {
		return nil, fmt.Errorf("LOGIN_RATE_LIMIT must not be negative, got %d", cfg.LoginRateLimit)
	}

	return cfg, nil
}
