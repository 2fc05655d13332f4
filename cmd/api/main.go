package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/examenapp/examen-api/internal/api"
	"github.com/examenapp/examen-api/internal/auth"
	"github.com/examenapp/examen-api/internal/config"
	"github.com/examenapp/examen-api/internal/database"
	"github.com/examenapp/examen-api/internal/idempotency"
	"github.com/examenapp/examen-api/internal/logger"
	"github.com/examenapp/examen-api/internal/notify"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Load config: %v", err)
	}

	zlog, err := logger.New(cfg.Server.Env)
	if err != nil {
		log.Fatalf("Build logger: %v", err)
	}
	defer zlog.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	db, err := database.NewConnection(&cfg.Database)
	if err != nil {
		zlog.Fatal("connect to database", zap.Error(err))
	}
	defer db.Close()
	zlog.Info("connected to database")

	tokens := auth.NewTokenIssuer(cfg.JWT.Secret, cfg.JWT.Expiry)

	var sender notify.Sender = notify.Disabled{}
	if cfg.Firebase.CredentialsFile != "" {
		fcm, err := notify.NewFCM(ctx, cfg.Firebase, zlog)
		if err != nil {
			zlog.Fatal("init FCM", zap.Error(err))
		}
		sender = fcm
		zlog.Info("push messaging enabled", zap.String("project_id", cfg.Firebase.ProjectID))
	} else {
		zlog.Info("push messaging disabled")
	}

	var idem api.IdempotencyStore
	if cfg.Redis.Addr != "" {
		rdb := redis.NewClient(&redis.Options{Addr: cfg.Redis.Addr})
		if err := rdb.Ping(ctx).Err(); err != nil {
			zlog.Fatal("connect to redis", zap.Error(err))
		}
		store := idempotency.NewStore(rdb, cfg.Redis.IdempotencyTTL)
		defer store.Close()
		idem = store
		zlog.Info("idempotency store enabled", zap.String("addr", cfg.Redis.Addr))
	}

	server := api.NewServer(db, zlog, tokens, sender, idem)

	httpServer := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      server.Routes(),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		zlog.Info("server starting", zap.String("port", cfg.Server.Port))
		errCh <- httpServer.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			zlog.Fatal("server error", zap.Error(err))
		}
	case <-ctx.Done():
		zlog.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			zlog.Error("shutdown", zap.Error(err))
		}
	}
}
