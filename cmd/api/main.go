package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"kinship.dev/internal/config"
	"kinship.dev/internal/httpapi"
	"kinship.dev/internal/identity"
	"kinship.dev/internal/mail"
	"kinship.dev/internal/obs"
	"kinship.dev/internal/store/pg"
)

var version = "0.3.1"

func main() {
	cfg, err := config.FromEnv()
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	logger, err := obs.NewLogger(cfg.LogLevel)
	if err != nil {
		log.Fatalf("logger: %v", err)
	}
	defer func() { _ = logger.Sync() }()
	obs.SetLogger(logger)
	obs.Init()
	obs.InitBuildInfo(version, "")

	store, err := pg.Open(cfg.PGDSN)
	if err != nil {
		logger.Fatal("open db", zap.Error(err))
	}
	defer store.Close()

	tokens, err := identity.NewTokenService(cfg.AccessSecret, cfg.RefreshSecret,
		identity.WithAccessTTL(cfg.AccessTTL),
		identity.WithRefreshTTL(cfg.RefreshTTL),
	)
	if err != nil {
		logger.Fatal("token service", zap.Error(err))
	}

	var mailer identity.Mailer = mail.Nop{}
	if cfg.SendGridKey != "" {
		sender, err := mail.NewSendGrid(cfg.SendGridKey, cfg.MailFrom,
			mail.WithSendLogger(logger))
		if err != nil {
			logger.Fatal("mail sender", zap.Error(err))
		}
		mailer = sender
	}

	svc, err := identity.NewService(store, tokens,
		identity.WithMailer(mailer),
		identity.WithLogger(logger),
	)
	if err != nil {
		logger.Fatal("identity service", zap.Error(err))
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := svc.EnsureBuiltins(ctx); err != nil {
		logger.Warn("permission catalog seed failed", zap.Error(err))
	}

	// Periodic reap of sessions past their absolute expiry.
	go func() {
		ticker := time.NewTicker(cfg.SessionCleanupEvery)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if _, err := svc.CleanupExpiredSessions(ctx); err != nil {
					logger.Error("session cleanup", zap.Error(err))
				}
			}
		}
	}()

	api := httpapi.New(svc, httpapi.ReadyProbe{DB: store.DB()}, version, logger)

	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           api.Handler(),
		ReadTimeout:       15 * time.Second,
		ReadHeaderTimeout: 15 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	logger.Info("starting kinship-api",
		zap.String("version", version),
		zap.String("addr", srv.Addr),
	)

	// graceful shutdown
	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("listen", zap.Error(err))
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)

	<-stop
	logger.Info("shutting down")
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	_ = srv.Shutdown(shutdownCtx)
	logger.Info("stopped")
}
