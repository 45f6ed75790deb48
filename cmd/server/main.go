package main

import (
	"context"
	"errors"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/lmittmann/tint"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/socraticschool/accounts/config"
	"github.com/socraticschool/accounts/internal/email"
	"github.com/socraticschool/accounts/internal/health"
	"github.com/socraticschool/accounts/internal/infrastructure/postgres"
	ctxlog "github.com/socraticschool/accounts/internal/log"
	"github.com/socraticschool/accounts/internal/metrics"
	"github.com/socraticschool/accounts/internal/sweeper"
	httptransport "github.com/socraticschool/accounts/internal/transport/http"
	"github.com/socraticschool/accounts/internal/transport/http/handler"
	"github.com/socraticschool/accounts/internal/usecase"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config error: %v", err)
	}

	logger := newLogger(cfg.Env, cfg.SlogLevel())

	if cfg.Env != "local" {
		gin.SetMode(gin.ReleaseMode)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)

	if err := postgres.RunMigrations(ctx, cfg.DatabaseURL); err != nil {
		stop()
		log.Fatalf("migrations: %v", err)
	}

	pool, err := postgres.NewPool(ctx, cfg.DatabaseURL)
	if err != nil {
		stop()
		log.Fatalf("db: %v", err)
	}
	defer pool.Close()

	userRepo := postgres.NewUserRepository(pool)

	sender := email.NewSender(email.Options{
		Env:          cfg.Env,
		From:         cfg.MailFrom,
		ResendAPIKey: cfg.ResendAPIKey,
		SMTPHost:     cfg.SMTPHost,
		SMTPPort:     cfg.SMTPPort,
		SMTPUser:     cfg.SMTPUser,
		SMTPPass:     cfg.SMTPPass,
	}, logger)

	verificationUsecase := usecase.NewVerificationUsecase(userRepo, sender, logger, usecase.VerificationOptions{
		BaseURL:         cfg.BaseURL,
		VerificationTTL: cfg.VerificationTokenTTL,
		ResetTTL:        cfg.ResetTokenTTL,
		BcryptCost:      cfg.BcryptCost,
	})
	accountUsecase := usecase.NewAccountUsecase(userRepo, verificationUsecase, logger,
		[]byte(cfg.JWTSecret), cfg.SessionTTL, cfg.BcryptCost)

	accountHandler := handler.NewAccountHandler(accountUsecase, logger)
	verificationHandler := handler.NewVerificationHandler(verificationUsecase, logger, cfg.BaseURL)

	metrics.Register()
	checker := health.NewChecker(pool, logger, prometheus.DefaultRegisterer)

	sweep := sweeper.New(userRepo, logger, cfg.TokenSweepInterval)
	if err := sweep.Start(); err != nil {
		stop()
		log.Fatalf("sweeper: %v", err)
	}

	srv := http.Server{
		Addr:    ":" + cfg.Port,
		Handler: httptransport.NewRouter(logger, accountHandler, verificationHandler, []byte(cfg.JWTSecret)),
	}

	metricsSrv := metrics.NewServer(":"+cfg.MetricsPort, checker)

	go func() {
		logger.Info("server started", "port", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("server: %v", err)
		}
	}()

	go func() {
		logger.Info("metrics server started", "port", cfg.MetricsPort)
		if err := metricsSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("metrics server", "error", err)
		}
	}()

	<-ctx.Done()
	stop()
	logger.Info("shutting down...")

	sweep.Stop()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown", "error", err)
	}
	if err := metricsSrv.Shutdown(shutdownCtx); err != nil {
		logger.Error("metrics server shutdown", "error", err)
	}
}

func newLogger(env string, level slog.Level) *slog.Logger {
	var inner slog.Handler
	if env == "local" {
		inner = tint.NewHandler(os.Stdout, &tint.Options{
			Level:      level,
			TimeFormat: time.Kitchen,
		})
	} else {
		inner = slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
			Level: level,
		})
	}
	return slog.New(ctxlog.NewContextHandler(inner))
}
