package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/couchcryptid/airquality-dashboard/internal/adapter/filestore"
	httpadapter "github.com/couchcryptid/airquality-dashboard/internal/adapter/http"
	kafkaadapter "github.com/couchcryptid/airquality-dashboard/internal/adapter/kafka"
	"github.com/couchcryptid/airquality-dashboard/internal/config"
	"github.com/couchcryptid/airquality-dashboard/internal/observability"
	"github.com/couchcryptid/airquality-dashboard/internal/pipeline"
	sharedobs "github.com/couchcryptid/storm-data-shared/observability"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger := newLogger(cfg)
	metrics := observability.NewMetrics()

	constants, err := cfg.Constants()
	if err != nil {
		logger.Error("failed to load domain constants", "error", err, "path", cfg.ConstantsFile)
		os.Exit(1)
	}

	loader := filestore.NewLoader(cfg.DataPaths, logger)
	cached := filestore.NewCachedLoader(loader, cfg.CacheSize, metrics)

	// View publishing is feature-flagged via KAFKA_ENABLED / KAFKA_BROKERS.
	var publisher pipeline.ViewPublisher
	var kafkaPublisher *kafkaadapter.Publisher
	if cfg.KafkaEnabled {
		kafkaPublisher = kafkaadapter.NewPublisher(cfg, logger)
		publisher = kafkaPublisher
		logger.Info("view publishing enabled", "brokers", cfg.KafkaBrokers, "topic", cfg.KafkaViewTopic)
	} else {
		logger.Info("view publishing disabled")
	}

	dashboard := pipeline.New(cached, publisher, constants, logger, metrics)
	srv := httpadapter.NewServer(cfg.HTTPAddr, dashboard, metrics, logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Start HTTP server.
	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server error", "error", err)
		}
	}()

	// Warm the dataset cache, retrying until the input files load.
	go func() {
		if err := dashboard.Run(ctx); err != nil {
			logger.Error("dataset warm-up error", "error", err)
		}
	}()

	// Invalidate the cache when input files change.
	var watcher *filestore.Watcher
	if cfg.WatchEnabled {
		watcher, err = filestore.NewWatcher(cfg.DataPaths, cached, logger)
		if err != nil {
			logger.Warn("file watcher disabled", "error", err)
		} else {
			go func() {
				if err := watcher.Run(ctx); err != nil {
					logger.Error("file watcher error", "error", err)
				}
			}()
		}
	}

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("http server shutdown error", "error", err)
	}
	if watcher != nil {
		if err := watcher.Close(); err != nil {
			logger.Error("file watcher close error", "error", err)
		}
	}
	if kafkaPublisher != nil {
		if err := kafkaPublisher.Close(); err != nil {
			logger.Error("kafka publisher close error", "error", err)
		}
	}

	logger.Info("shutdown complete")
}

// newLogger builds the stdout logger from LOG_LEVEL and LOG_FORMAT and makes
// it the slog default.
func newLogger(cfg *config.Config) *slog.Logger {
	return sharedobs.NewLogger(cfg.LogLevel, cfg.LogFormat)
}
