package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/votipian/council/backend/internal/config"
	"github.com/votipian/council/backend/internal/database"
	"github.com/votipian/council/backend/internal/handlers"
	"github.com/votipian/council/backend/internal/logger"
	"github.com/votipian/council/backend/internal/server"
	"github.com/votipian/council/backend/internal/verify"
	"github.com/votipian/council/backend/internal/voting"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		os.Stderr.WriteString("config: " + err.Error() + "\n")
		os.Exit(1)
	}

	log := logger.New(logger.Configuration{Level: cfg.LogLevel, JSON: cfg.IsProduction()})
	defer func() { _ = log.Sync() }()

	db, err := database.New(cfg, log.Named("database"))
	if err != nil {
		log.Fatal("failed to initialize database", zap.Error(err))
	}

	svc := voting.NewService(db.GetDB(), log.Named("voting"))
	verifier := verify.New(cfg, log.Named("verify"))
	handler := handlers.NewHandler(db.GetDB(), svc, verifier, cfg, log)

	srv := server.NewServer(cfg, log, db, handler)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	go func() {
		log.Info("server starting", zap.String("addr", srv.Addr), zap.String("env", cfg.Env))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("server failed", zap.Error(err))
		}
	}()

	<-ctx.Done()
	log.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("forced shutdown", zap.Error(err))
	}
	if err := db.Close(); err != nil {
		log.Error("close database", zap.Error(err))
	}
	log.Info("server stopped")
}
