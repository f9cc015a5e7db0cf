package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/hamed0406/handlecheck/internal/checker"
	"github.com/hamed0406/handlecheck/internal/config"
	"github.com/hamed0406/handlecheck/internal/httpapi"
	apimw "github.com/hamed0406/handlecheck/internal/httpapi/middleware"
	"github.com/hamed0406/handlecheck/internal/logging"
)

func main() {
	cfg := config.FromEnv()
	logger, err := logging.New(cfg.LogDir, logging.Options{Level: cfg.LogLevel, Stderr: cfg.LogToStd})
	if err != nil {
		log.Fatal(err)
	}
	defer logger.Sync()

	svc, err := checker.New(cfg, logger)
	if err != nil {
		logger.Fatal("checker_init_failed", zap.Error(err))
	}
	defer func() {
		if err := svc.Close(); err != nil {
			logger.Warn("checker_close_error", zap.Error(err))
		}
	}()

	api := httpapi.NewServer(logger, svc, svc.Catalog().Version())
	keys := apimw.Keys{Public: cfg.PublicAPIKeys, Admin: cfg.AdminAPIKeys}
	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           api.Router(keys, cfg.AllowedOrigins, cfg.PublicRPM, cfg.PublicBurst),
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	errc := make(chan error, 1)
	go func() {
		logger.Info("api_listen", zap.String("addr", cfg.Addr))
		errc <- srv.ListenAndServe()
	}()

	select {
	case err := <-errc:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("api_listen_failed", zap.Error(err))
		}
	case <-ctx.Done():
		logger.Info("api_shutdown")
		sctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if err := srv.Shutdown(sctx); err != nil {
			logger.Warn("api_shutdown_error", zap.Error(err))
		}
	}
}
