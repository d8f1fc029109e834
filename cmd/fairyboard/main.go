package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/park285/fairyboard/internal/boardbuilder"
	appcfg "github.com/park285/fairyboard/internal/config"
	"github.com/park285/fairyboard/internal/httpapi"
	"github.com/park285/fairyboard/internal/obslog"
	"go.uber.org/zap"
)

func main() {
	if err := obslog.InitFromEnv(); err != nil {
		log.Fatalf("logger error: %v", err)
	}
	logger := obslog.L()
	defer func() { _ = logger.Sync() }()

	cfg, err := appcfg.Load()
	if err != nil {
		logger.Fatal("config_error", zap.Error(err))
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	deps, err := boardbuilder.New(ctx, cfg, logger)
	if err != nil {
		logger.Fatal("init_error", zap.Error(err))
	}

	if path := strings.TrimSpace(cfg.VariantsPath); path != "" {
		if err := deps.Board.LoadVariants(ctx, path); err != nil {
			logger.Warn("variants_load_failed", zap.String("path", path), zap.Error(err))
		}
	}
	// A missing engine is not fatal; one can be loaded over the API.
	if path := strings.TrimSpace(cfg.EnginePath); path != "" {
		if err := deps.Board.LoadEngine(ctx, path); err != nil {
			logger.Warn("engine_load_failed", zap.String("path", path), zap.Error(err))
		}
	}

	feedSrv := &http.Server{
		Addr:              cfg.FeedListen,
		Handler:           deps.Feed.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		logger.Info("feed_listening", zap.String("addr", cfg.FeedListen))
		if err := feedSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("feed_server_failed", zap.Error(err))
			stop()
		}
	}()

	if err := httpapi.Listen(ctx, cfg.HTTPListen, deps.API.Handler(), logger); err != nil {
		logger.Error("http_server_failed", zap.Error(err))
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_ = feedSrv.Shutdown(shutdownCtx)
	if err := deps.Close(shutdownCtx); err != nil {
		logger.Warn("shutdown_incomplete", zap.Error(err))
	}
	logger.Info("stopped")
}
