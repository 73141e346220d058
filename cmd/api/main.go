package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ecotrajet/ecotrajet/internal/auth"
	"github.com/ecotrajet/ecotrajet/internal/background"
	"github.com/ecotrajet/ecotrajet/internal/config"
	"github.com/ecotrajet/ecotrajet/internal/database"
	"github.com/ecotrajet/ecotrajet/internal/handlers"
	"github.com/ecotrajet/ecotrajet/internal/middleware"
	"github.com/ecotrajet/ecotrajet/internal/repositories"
	"github.com/ecotrajet/ecotrajet/internal/routes"
	"github.com/ecotrajet/ecotrajet/internal/services"
	pkghttp "github.com/ecotrajet/ecotrajet/pkg/http"
	pkglogger "github.com/ecotrajet/ecotrajet/pkg/logger"
)

func main() {
	if err := run(); err != nil {
		slog.Error("ecotrajet api exited", slog.Any("error", err))
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	logger, logCloser := pkglogger.New(pkglogger.Options{
		Level:      cfg.Logging.Level,
		File:       cfg.Logging.File,
		MaxSizeMB:  cfg.Logging.MaxSizeMB,
		MaxBackups: cfg.Logging.MaxBackups,
		MaxAgeDays: cfg.Logging.MaxAgeDays,
	})
	defer logCloser.Close()
	slog.SetDefault(logger)

	logger.Info("configuration loaded", slog.String("env", cfg.Server.Env))

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	db, err := database.NewConnection(ctx, &cfg.Database, logger)
	if err != nil {
		return err
	}
	defer db.Close()

	userRepo := repositories.NewUserRepository(db)
	attemptRepo := repositories.NewLoginAttemptRepository(db)
	revokeRepo := repositories.NewTokenRevocationRepository(db)

	var revocations services.TokenRevocationRepository = revokeRepo
	if cfg.Redis.Addr != "" {
		rdb, err := repositories.NewRedisClient(ctx, cfg.Redis)
		if err != nil {
			logger.Warn("revocation cache disabled", slog.Any("error", err))
		} else {
			defer rdb.Close()
			revocations = repositories.NewCachedRevocationStore(revokeRepo, rdb, logger)
			logger.Info("revocation cache enabled", slog.String("addr", cfg.Redis.Addr))
		}
	}

	var events services.EventPublisher = services.NoopPublisher{}
	if cfg.AMQP.URL != "" {
		publisher, err := services.NewAMQPPublisher(cfg.AMQP.URL, cfg.AMQP.Exchange, logger)
		if err != nil {
			logger.Warn("account events disabled", slog.Any("error", err))
		} else {
			defer publisher.Close()
			events = publisher
		}
	}

	mailer, err := services.NewMailer(ctx, cfg.Email, logger)
	if err != nil {
		return err
	}
	if closer, ok := mailer.(interface{ Close() }); ok {
		defer closer.Close()
	}

	auditLogger := pkglogger.NewAuditLogger(logger)
	tokenManager := auth.NewTokenManager(cfg.Auth.JWTSecret, cfg.Auth.AccessTokenExpiry, cfg.Auth.RefreshTokenExpiry, userRepo)
	timingDelay := auth.NewTimingDelay(auth.TimingConfig{
		BaseDelayMs:   cfg.Auth.TimingBaseDelayMs,
		RandomDelayMs: cfg.Auth.TimingRandomDelayMs,
	})
	guard := services.NewLockoutGuard(attemptRepo, services.LockoutConfig{
		Threshold: cfg.Auth.LockoutThreshold,
		Window:    cfg.Auth.LockoutWindow,
	}, logger)

	accountService := services.NewAccountTokenService(
		userRepo,
		auth.NewEmailVerificationTokens(cfg.Auth.AccountTokenSecret, cfg.Auth.AccountTokenTimeout),
		auth.NewPasswordResetTokens(cfg.Auth.AccountTokenSecret, cfg.Auth.AccountTokenTimeout),
		mailer,
		services.AccountLinks{FrontendURL: cfg.Email.FrontendURL},
		events,
		logger,
		auditLogger,
	)
	authService, err := services.NewAuthService(userRepo, guard, revocations, tokenManager, timingDelay, accountService, events, logger, auditLogger)
	if err != nil {
		return err
	}
	userService := services.NewUserService(userRepo, events, logger, auditLogger)

	router := routes.NewRouter(routes.Dependencies{
		AuthHandler:      handlers.NewAuthHandler(authService, &pkghttp.IPConfig{TrustedProxies: cfg.Server.TrustedProxies}),
		AccountHandler:   handlers.NewAccountHandler(accountService),
		UserHandler:      handlers.NewUserHandler(userService),
		Health:           handlers.Health(db),
		TokenManager:     tokenManager,
		UserRepo:         userRepo,
		Revocations:      revocations,
		RevocationConfig: auth.RevocationConfig{FailClosed: cfg.Auth.RevocationFailClosed},
		SecurityHeaders:  middleware.SecurityHeadersConfig{Env: cfg.Server.Env},
		CORS:             middleware.DefaultCORSConfig(cfg.Server.AllowedOrigins),
		Limits:           middleware.DefaultAuthRateLimits(),
		RequestTimeout:   cfg.Server.RequestTimeout,
		Logger:           logger,
	})

	server := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	cleanup := background.NewCleanupManager(revokeRepo, logger, cfg.Auth.CleanupInterval)
	go cleanup.Start(ctx)
	defer cleanup.Stop()

	serverErr := make(chan error, 1)
	go func() {
		logger.Info("starting server", slog.String("addr", server.Addr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
		close(serverErr)
	}()

	select {
	case err := <-serverErr:
		return err
	case <-ctx.Done():
		logger.Info("shutdown signal received")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		return err
	}

	logger.Info("server stopped gracefully")
	return nil
}
