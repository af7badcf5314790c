package main

import (
	"context"
	"errors"
	"flag"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	httpadapter "github.com/couchcryptid/water-level-analysis/internal/adapter/http"
	kafkaadapter "github.com/couchcryptid/water-level-analysis/internal/adapter/kafka"
	"github.com/couchcryptid/water-level-analysis/internal/analysis"
	"github.com/couchcryptid/water-level-analysis/internal/cache"
	"github.com/couchcryptid/water-level-analysis/internal/config"
	"github.com/couchcryptid/water-level-analysis/internal/domain"
	"github.com/couchcryptid/water-level-analysis/internal/observability"
	"github.com/couchcryptid/water-level-analysis/internal/pipeline"
)

// alwaysReady serves readiness when there is no pipeline to wait for.
type alwaysReady struct{}

func (alwaysReady) CheckReadiness(context.Context) error { return nil }

func main() {
	configPath := flag.String("config", "", "optional YAML, TOML, or JSON config file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger := observability.NewLogger(cfg)
	metrics := observability.NewMetrics()

	defaults, err := cfg.Analysis()
	if err != nil {
		logger.Error("invalid analysis defaults", "error", err)
		os.Exit(1)
	}

	// Result cache (disabled with CACHE_SIZE=0).
	var analyzer domain.Analyzer = analysis.NewEngine()
	if cfg.CacheSize > 0 {
		analyzer = cache.NewCachedAnalyzer(analyzer, cfg.CacheSize, metrics)
		logger.Info("analysis cache enabled", "cache_size", cfg.CacheSize)
	} else {
		logger.Info("analysis cache disabled")
	}

	transformer := pipeline.NewTransformer(analyzer, defaults, logger, metrics)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var (
		ready  httpadapter.ReadinessChecker = alwaysReady{}
		reader *kafkaadapter.Reader
		writer *kafkaadapter.Writer
	)
	if cfg.KafkaEnabled {
		reader = kafkaadapter.NewReader(cfg, logger)
		writer = kafkaadapter.NewWriter(cfg, logger)
		p := pipeline.New(reader, transformer, writer, logger, metrics, cfg.BatchSize)
		ready = p
		metrics.KafkaEnabled.Set(1)

		// Start analysis pipeline.
		go func() {
			if err := p.Run(ctx); err != nil {
				logger.Error("pipeline error", "error", err)
			}
		}()
	} else {
		logger.Info("kafka pipeline disabled; serving HTTP analysis only")
	}

	srv := httpadapter.NewServer(cfg.HTTPAddr, ready, transformer, logger)

	// Start HTTP server.
	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server error", "error", err)
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("http server shutdown error", "error", err)
	}
	if reader != nil {
		if err := reader.Close(); err != nil {
			logger.Error("kafka reader close error", "error", err)
		}
	}
	if writer != nil {
		if err := writer.Close(); err != nil {
			logger.Error("kafka writer close error", "error", err)
		}
	}

	logger.Info("shutdown complete")
}
