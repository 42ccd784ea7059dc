package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/google/uuid"

	httpadapter "github.com/oceanobs/imma-etl/internal/adapter/http"
	kafkaadapter "github.com/oceanobs/imma-etl/internal/adapter/kafka"
	"github.com/oceanobs/imma-etl/internal/adapter/sqlite"
	"github.com/oceanobs/imma-etl/internal/config"
	"github.com/oceanobs/imma-etl/internal/observability"
	"github.com/oceanobs/imma-etl/internal/pipeline"
	"github.com/oceanobs/imma-etl/internal/registry"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger := observability.NewLogger(cfg)
	metrics := observability.NewMetrics()

	reg, err := registry.New(cfg.RegistryCacheSize)
	if err != nil {
		logger.Error("failed to create schema registry", "error", err)
		os.Exit(1)
	}
	bundle, err := reg.Load(cfg.SchemaPath, cfg.CodeTableDir)
	if err != nil {
		logger.Error("failed to load schema", "error", err)
		os.Exit(1)
	}
	logger.Info("schema loaded",
		"name", bundle.Schema.Name,
		"version", bundle.Schema.Version,
		"sections", len(bundle.Schema.Sections),
	)

	store, err := sqlite.NewStore(cfg.ProvenanceDB)
	if err != nil {
		logger.Error("failed to open provenance store", "error", err)
		os.Exit(1)
	}

	runID := uuid.NewString()

	var loader pipeline.Loader
	var writer *kafkaadapter.Writer
	if cfg.KafkaEnabled {
		writer = kafkaadapter.NewWriter(cfg, runID, logger)
		loader = writer
		logger.Info("kafka sink enabled", "topic", cfg.KafkaSinkTopic)
	} else {
		logger.Info("kafka sink disabled, recording provenance only")
	}

	p := pipeline.New(
		pipeline.NewGlobLister(cfg.InputDir, cfg.InputPattern),
		bundle.Decoder,
		loader, store,
		logger, metrics,
		pipeline.Options{
			Workers:      cfg.DecodeWorkers,
			PollInterval: cfg.PollInterval,
			RunID:        runID,
		},
	)

	srv := httpadapter.NewServer(cfg.HTTPAddr, p, bundle.Schema, logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Start HTTP server.
	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server error", "error", err)
		}
	}()

	// Start decode pipeline.
	go func() {
		if err := p.Run(ctx); err != nil {
			logger.Error("pipeline error", "error", err)
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("http server shutdown error", "error", err)
	}
	if writer != nil {
		if err := writer.Close(); err != nil {
			logger.Error("kafka writer close error", "error", err)
		}
	}
	if err := store.Close(); err != nil {
		logger.Error("provenance store close error", "error", err)
	}

	logger.Info("shutdown complete")
}
