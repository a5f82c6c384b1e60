package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/couchcryptid/climate-atlas/internal/adapter/geojson"
	httpadapter "github.com/couchcryptid/climate-atlas/internal/adapter/http"
	"github.com/couchcryptid/climate-atlas/internal/adapter/objectstore"
	"github.com/couchcryptid/climate-atlas/internal/adapter/tables"
	"github.com/couchcryptid/climate-atlas/internal/config"
	"github.com/couchcryptid/climate-atlas/internal/observability"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger := observability.NewLogger(cfg)
	metrics := observability.NewMetrics()

	regions, err := geojson.LoadRegions(os.DirFS(cfg.RegionsDir), logger)
	if err != nil {
		logger.Error("failed to load regions", "dir", cfg.RegionsDir, "error", err)
		os.Exit(1)
	}
	metrics.RegionsLoaded.Set(float64(len(regions.Keys())))

	classifier, err := tables.Load(cfg.ScalesFile)
	if err != nil {
		logger.Error("failed to load classification tables", "file", cfg.ScalesFile, "error", err)
		os.Exit(1)
	}

	client := objectstore.NewClient(cfg.ObjectStoreURL, cfg.ObjectStoreTimeout, logger, metrics)
	client.SetRateLimit(cfg.ObjectStoreRate)
	objects := objectstore.NewCachedFetcher(client, cfg.CSVCacheSize, cfg.CSVCacheTTL, nil, metrics)
	logger.Info("object store configured",
		"url", cfg.ObjectStoreURL,
		"cache_size", cfg.CSVCacheSize,
		"cache_ttl", cfg.CSVCacheTTL,
		"rate", cfg.ObjectStoreRate,
	)

	api := httpadapter.NewAPI(regions, classifier, objects, metrics, logger).WithCORS(cfg.CORSOrigins)
	srv := httpadapter.NewServer(cfg.HTTPAddr, regions, api, logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server error", "error", err)
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("http server shutdown error", "error", err)
	}

	logger.Info("shutdown complete")
}
