// Package config содержит логику чтения конфигурации сервиса продавцов маркетплейса.
package config

import (
	"errors"
	"flag"
	"fmt"
	"io/fs"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

const defaultRunAddress = "localhost:8080"

// Config содержит параметры конфигурации сервиса.
type Config struct {
	RunAddress  string `env:"RUN_ADDRESS"`
	DatabaseURI string `env:"DATABASE_URI"`
	JWTSecret   string `env:"JWT_SECRET"`
	LogLevel    string `env:"LOG_LEVEL" envDefault:"info"`

	AdminEmail    string `env:"ADMIN_EMAIL" envDefault:"admin@example.com"`
	AdminPassword string `env:"ADMIN_PASSWORD"`

	OTPTTL            time.Duration `env:"OTP_TTL" envDefault:"10m"`
	NotificationQueue int           `env:"NOTIFICATION_QUEUE_SIZE" envDefault:"100"`
	MaxUploadSize     int64         `env:"MAX_UPLOAD_SIZE" envDefault:"10485760"`
	CORSOrigins       []string      `env:"CORS_ORIGINS" envSeparator:"," envDefault:"*"`

	Mail      Mail      `envPrefix:"MAIL_"`
	RateLimit RateLimit `envPrefix:"RATE_LIMIT_"`
	Redis     Redis     `envPrefix:"REDIS_"`
	MinIO     MinIO     `envPrefix:"MINIO_"`

	NATSURL string `env:"NATS_URL"`
}

// Mail — параметры отправки писем через OAuth2-провайдера.
type Mail struct {
	ClientID     string        `env:"CLIENT_ID"`
	ClientSecret string        `env:"CLIENT_SECRET"`
	RefreshToken string        `env:"REFRESH_TOKEN"`
	From         string        `env:"FROM"`
	FromName     string        `env:"FROM_NAME" envDefault:"Marketplace"`
	MaxAttempts  int           `env:"MAX_ATTEMPTS" envDefault:"3"`
	BaseDelay    time.Duration `env:"BASE_DELAY" envDefault:"1s"`
	OTPBaseDelay time.Duration `env:"OTP_BASE_DELAY" envDefault:"2s"`
}

// RateLimit — ограничения частоты повторной отправки кода и попыток входа.
type RateLimit struct {
	OTP         int           `env:"OTP" envDefault:"3"`
	OTPWindow   time.Duration `env:"OTP_WINDOW" envDefault:"15m"`
	Login       int           `env:"LOGIN" envDefault:"10"`
	LoginWindow time.Duration `env:"LOGIN_WINDOW" envDefault:"15m"`
}

// Redis — подключение к хранилищу счётчиков ограничителя. Без адреса счётчики хранятся в памяти.
type Redis struct {
	Addr     string `env:"ADDR"`
	Password string `env:"PASSWORD"`
	DB       int    `env:"DB" envDefault:"0"`
}

// MinIO — хранилище сканов удостоверений.
type MinIO struct {
	Endpoint  string `env:"ENDPOINT"`
	AccessKey string `env:"ACCESS_KEY"`
	SecretKey string `env:"SECRET_KEY"`
	Bucket    string `env:"BUCKET" envDefault:"id-documents"`
	UseSSL    bool   `env:"USE_SSL" envDefault:"false"`
}

// Parse считывает конфигурацию из файла .env, переменных окружения и флагов командной строки.
// Переменные окружения имеют приоритет над флагами.
func Parse() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}

	cfg := &Config{}

	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}

	envRunAddress := cfg.RunAddress
	envDatabaseURI := cfg.DatabaseURI
	envJWTSecret := cfg.JWTSecret

	flag.StringVar(&cfg.RunAddress, "a", defaultRunAddress, "address and port for HTTP server")
	flag.StringVar(&cfg.DatabaseURI, "d", "", "database URI")
	flag.StringVar(&cfg.JWTSecret, "k", "", "secret key for session tokens")

	flag.Parse()

	if envRunAddress != "" {
		cfg.RunAddress = envRunAddress
	}
	if envDatabaseURI != "" {
		cfg.DatabaseURI = envDatabaseURI
	}
	if envJWTSecret != "" {
		cfg.JWTSecret = envJWTSecret
	}

	if cfg.RunAddress == "" {
		cfg.RunAddress = defaultRunAddress
	}

	return cfg, nil
}
