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

	"secureguard/internal/config"
	"secureguard/internal/observability/logging"
	"secureguard/internal/observability/metrics"
	"secureguard/internal/push"
	"secureguard/internal/service"
	impl "secureguard/internal/service/impl"
	"secureguard/internal/store"
	httpx "secureguard/internal/transport/http"
	"secureguard/pkg/db"

	"github.com/prometheus/client_golang/prometheus"
)

func main() {
	config.LoadDotEnv()

	env := os.Getenv("ENVIRONMENT")
	if env == "" {
		env = "dev"
	}
	logger := logging.NewLogger(logging.Config{
		ServiceName: "secureguard",
		Environment: env,
		Level:       os.Getenv("LOG_LEVEL"),
	})
	slog.SetDefault(logger)

	logger.Info("starting service")

	cfg := config.Load()
	metrics.MustRegister(prometheus.DefaultRegisterer, "secureguard")

	// 1) DB
	gdb, err := db.OpenGorm(db.Config{DSN: cfg.DatabaseURL, LogSQL: cfg.LogSQL})
	if err != nil {
		logger.Error("gorm open", "error", err)
		os.Exit(1)
	}
	if err := store.AutoMigrate(gdb); err != nil {
		logger.Error("automigrate", "error", err)
		os.Exit(1)
	}
	st := store.New(gdb)

	// 2) Push transport
	var notifier service.PushNotifier = push.Disabled{}
	if cfg.PushEnabled() {
		fcm, err := push.NewFCMNotifier(context.Background(), push.FCMConfig{
			ProjectID:       cfg.FCMProjectID,
			CredentialsFile: cfg.FCMCredentialsFile,
		})
		if err != nil {
			logger.Error("fcm init", "error", err)
			os.Exit(1)
		}
		notifier = fcm
	} else {
		logger.Warn("push disabled: FCM_PROJECT_ID / FCM_CREDENTIALS_FILE not set; every dispatch will fail")
	}

	// 3) Services
	pw := impl.NewPasswordServiceArgon2id()
	ts := impl.NewTokenServiceHS256(impl.TokenConfig{
		Issuer:     cfg.Issuer,
		Audience:   cfg.Audience,
		TTL:        cfg.SessionTTL,
		SigningKey: []byte(cfg.SigningKey),
	})
	devices := impl.NewDeviceServiceImpl(st)

	// 4) HTTP router
	router := httpx.NewRouter(httpx.Services{
		Auth:      impl.NewAuthServiceImpl(st, pw, ts),
		Tokens:    ts,
		Devices:   devices,
		Locations: impl.NewLocationServiceImpl(st, devices),
		Commands:  impl.NewCommandServiceImpl(st, notifier, cfg.PushTimeout),
	}, httpx.Options{
		TrustProxy:        cfg.TrustProxy,
		CORSOrigins:       cfg.CORSOrigins,
		PublicRateLimit:   cfg.PublicRateLimit,
		RequestTimeout:    cfg.RequestTimeout,
		LocationListLimit: cfg.LocationListLimit,
	})

	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go func() {
		slog.Info("secureguard listening", "addr", srv.Addr, "issuer", cfg.Issuer, "push_enabled", cfg.PushEnabled())
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	<-ctx.Done()
	logger.Info("received shutdown signal")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("shutdown", "error", err)
	}
	if sqlDB, err := gdb.DB(); err == nil {
		_ = sqlDB.Close()
	}
	logger.Info("shutdown complete")
}
