package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/couchcryptid/climate-map/internal/adapter/climateapi"
	httpadapter "github.com/couchcryptid/climate-map/internal/adapter/http"
	kafkaadapter "github.com/couchcryptid/climate-map/internal/adapter/kafka"
	"github.com/couchcryptid/climate-map/internal/charts"
	"github.com/couchcryptid/climate-map/internal/config"
	"github.com/couchcryptid/climate-map/internal/mapview"
	"github.com/couchcryptid/climate-map/internal/observability"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger := observability.NewLogger(cfg)
	metrics := observability.NewMetrics()

	api := climateapi.NewClient(cfg.APIBaseURL, cfg.APITimeout, metrics, logger)
	topology := climateapi.NewTopologyClient(cfg.TopologyURL, cfg.TopologyFile, cfg.TopologyObject, cfg.APITimeout, metrics, logger)

	svg := mapview.NewSVGSurface()
	surfaces := mapview.Surfaces{svg}

	// Snapshot publishing is feature-flagged via SNAPSHOT_ENABLED.
	var publisher *kafkaadapter.Publisher
	if cfg.SnapshotEnabled {
		publisher = kafkaadapter.NewPublisher(cfg, metrics, logger)
		surfaces = append(surfaces, publisher)
		logger.Info("snapshot publishing enabled", "brokers", cfg.KafkaBrokers, "topic", cfg.KafkaSnapshotTopic)
	} else {
		logger.Info("snapshot publishing disabled")
	}

	ctrl, err := mapview.NewController(api, topology, surfaces, mapview.Options{
		Width:             cfg.MapWidth,
		Height:            cfg.MapHeight,
		DefaultMetric:     cfg.DefaultMetric,
		DefaultYear:       cfg.DefaultYear,
		ResolverCacheSize: cfg.ResolverCacheSize,
	}, metrics, logger)
	if err != nil {
		logger.Error("failed to create map controller", "error", err)
		os.Exit(1)
	}

	renderer := charts.NewRenderer(api, metrics, logger)
	srv := httpadapter.NewServer(cfg.HTTPAddr, ctrl, svg, renderer, logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Start HTTP server.
	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server error", "error", err)
		}
	}()

	// Initial map load. Failures leave the map not ready; /readyz reports it.
	go func() {
		if err := ctrl.Load(ctx); err != nil {
			logger.Error("initial map load failed", "error", err)
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("http server shutdown error", "error", err)
	}
	if publisher != nil {
		if err := publisher.Close(); err != nil {
			logger.Error("kafka publisher close error", "error", err)
		}
	}

	logger.Info("shutdown complete")
}
