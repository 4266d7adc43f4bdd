// Package main запускает HTTP-сервер сервиса продавцов маркетплейса.
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"golang.org/x/sync/errgroup"

	"github.com/mmeshcher/marketplace-sellers/internal/config"
	"github.com/mmeshcher/marketplace-sellers/internal/documents"
	"github.com/mmeshcher/marketplace-sellers/internal/events"
	"github.com/mmeshcher/marketplace-sellers/internal/handler"
	"github.com/mmeshcher/marketplace-sellers/internal/mailer"
	"github.com/mmeshcher/marketplace-sellers/internal/metrics"
	"github.com/mmeshcher/marketplace-sellers/internal/middleware"
	"github.com/mmeshcher/marketplace-sellers/internal/ratelimit"
	"github.com/mmeshcher/marketplace-sellers/internal/repository"
	"github.com/mmeshcher/marketplace-sellers/internal/service"
)

const shutdownTimeout = 5 * time.Second

func newLogger(level string) (*zap.Logger, error) {
	lvl, err := zapcore.ParseLevel(level)
	if err != nil {
		return nil, fmt.Errorf("parse log level: %w", err)
	}
	zcfg := zap.NewProductionConfig()
	zcfg.Level = zap.NewAtomicLevelAt(lvl)
	return zcfg.Build()
}

func main() {
	cfg, err := config.Parse()
	if err != nil {
		fmt.Fprintf(os.Stderr, "configuration error: %v\n", err)
		os.Exit(1)
	}

	logger, err := newLogger(cfg.LogLevel)
	if err != nil {
		fmt.Fprintf(os.Stderr, "logger initialization error: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	sugar := logger.Sugar()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	repo, err := repository.NewPostgresRepository(ctx, cfg.DatabaseURI)
	if err != nil {
		sugar.Fatalw("database initialization error", "error", err.Error())
	}

	m := metrics.New()

	sender := mailer.NewSender(mailer.Config{
		ClientID:     cfg.Mail.ClientID,
		ClientSecret: cfg.Mail.ClientSecret,
		RefreshToken: cfg.Mail.RefreshToken,
		From:         cfg.Mail.From,
		FromName:     cfg.Mail.FromName,
		MaxAttempts:  cfg.Mail.MaxAttempts,
		BaseDelay:    cfg.Mail.BaseDelay,
		OTPBaseDelay: cfg.Mail.OTPBaseDelay,
	}, logger.Named("mailer"), m)

	var otpLimiter, loginLimiter ratelimit.Limiter
	if cfg.Redis.Addr != "" {
		rdb := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		defer rdb.Close()

		otpLimiter = ratelimit.NewRedisLimiter(rdb, cfg.RateLimit.OTP, cfg.RateLimit.OTPWindow, "ratelimit:otp:")
		loginLimiter = ratelimit.NewRedisLimiter(rdb, cfg.RateLimit.Login, cfg.RateLimit.LoginWindow, "ratelimit:login:")
	} else {
		otpLimiter = ratelimit.NewMemory(cfg.RateLimit.OTP, cfg.RateLimit.OTPWindow)
		loginLimiter = ratelimit.NewMemory(cfg.RateLimit.Login, cfg.RateLimit.LoginWindow)
	}

	var publisher events.Publisher = events.Nop{}
	if cfg.NATSURL != "" {
		nc, err := events.Connect(cfg.NATSURL)
		if err != nil {
			sugar.Fatalw("nats connection error", "error", err.Error())
		}
		defer nc.Close()
		publisher = nc
	}

	var docs handler.DocumentStore
	if cfg.MinIO.Endpoint != "" {
		store, err := documents.NewStore(ctx, documents.Config{
			Endpoint:  cfg.MinIO.Endpoint,
			AccessKey: cfg.MinIO.AccessKey,
			SecretKey: cfg.MinIO.SecretKey,
			Bucket:    cfg.MinIO.Bucket,
			UseSSL:    cfg.MinIO.UseSSL,
		}, logger.Named("documents"))
		if err != nil {
			sugar.Fatalw("document storage initialization error", "error", err.Error())
		}
		docs = store
	}

	var adminHash []byte
	if cfg.AdminPassword != "" {
		adminHash, err = service.HashPassword(cfg.AdminPassword)
		if err != nil {
			sugar.Fatalw("admin password hashing error", "error", err.Error())
		}
	} else {
		sugar.Warn("ADMIN_PASSWORD is not set, admin login is disabled")
	}

	svc := service.NewService(repo, sender, service.Options{
		OTPTTL:            cfg.OTPTTL,
		AdminEmail:        cfg.AdminEmail,
		AdminPasswordHash: adminHash,
		QueueSize:         cfg.NotificationQueue,
		Logger:            logger.Named("service"),
		Events:            publisher,
		Observer:          m,
	})
	defer svc.Close()

	if cfg.JWTSecret == "" {
		sugar.Warn("JWT_SECRET is not set, sessions will not survive a restart")
	}
	authMiddleware := middleware.NewAuthMiddleware(cfg.JWTSecret)

	h := handler.NewHandler(svc, logger, authMiddleware, handler.Options{
		OTPLimiter:    otpLimiter,
		LoginLimiter:  loginLimiter,
		Documents:     docs,
		MaxUploadSize: cfg.MaxUploadSize,
		Metrics:       m.Handler(),
		Observer:      m,
		Health:        repo.Ping,
		CORSOrigins:   cfg.CORSOrigins,
	})

	server := &http.Server{
		Addr:              cfg.RunAddress,
		Handler:           h.SetupRouter(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, ctx := errgroup.WithContext(ctx)

	// Отправка писем об одобрении и отклонении
	g.Go(func() error {
		return svc.RunNotifications(ctx)
	})

	g.Go(func() error {
		sugar.Infow("starting marketplace sellers server", "addr", cfg.RunAddress)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	})

	// Graceful shutdown при отмене контекста (сигнал или ошибка в другой горутине)
	g.Go(func() error {
		<-ctx.Done()
		sugar.Info("shutting down server...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()

		if err := server.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("server shutdown error: %w", err)
		}
		sugar.Info("server stopped gracefully")
		return nil
	})

	if err := g.Wait(); err != nil {
		sugar.Fatalw("application terminated with error", "error", err)
	}
}
