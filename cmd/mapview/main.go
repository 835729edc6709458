package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	httpadapter "github.com/Copubah/dirty-nairobi/internal/adapter/http"
	"github.com/Copubah/dirty-nairobi/internal/adapter/imagery"
	kafkaadapter "github.com/Copubah/dirty-nairobi/internal/adapter/kafka"
	"github.com/Copubah/dirty-nairobi/internal/adapter/photoapi"
	"github.com/Copubah/dirty-nairobi/internal/config"
	"github.com/Copubah/dirty-nairobi/internal/geo"
	"github.com/Copubah/dirty-nairobi/internal/mapview"
	"github.com/Copubah/dirty-nairobi/internal/observability"
	"github.com/Copubah/dirty-nairobi/internal/pipeline"
	"github.com/Copubah/dirty-nairobi/internal/selection"
	"github.com/Copubah/dirty-nairobi/internal/surface"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger := observability.NewLogger(cfg)
	metrics := observability.NewMetrics()

	profile, err := config.LoadProfile(cfg.MapProfile)
	if err != nil {
		logger.Error("failed to load map profile", "error", err, "path", cfg.MapProfile)
		os.Exit(1)
	}

	opts := mapview.Options{
		Center:            profile.CenterPoint(),
		InitialZoom:       profile.Zoom.Initial,
		SingleZoom:        profile.Zoom.Single,
		ClusterRadius:     profile.Cluster.Radius,
		FitPadding:        profile.Fit.Padding,
		Viscosity:         profile.Viscosity,
		AnimationDuration: profile.Animation,
		TileURL:           profile.Tiles.URL,
		TileSubdomains:    profile.Tiles.Subdomains,
		Strict:            cfg.MapStrict,
	}

	// Thumbnail checks and tile prefetch are feature-flagged.
	if cfg.ImageCheckEnabled {
		checker := imagery.NewChecker(cfg.ImageCheckTimeout, logger, metrics)
		opts.ImageChecker = imagery.NewCachedChecker(checker, cfg.ImageCheckCacheSize, metrics)
		logger.Info("thumbnail checks enabled", "cache_size", cfg.ImageCheckCacheSize, "timeout", cfg.ImageCheckTimeout)
	}
	if cfg.TilePrefetchEnabled {
		opts.TileFetcher = imagery.NewTileFetcher(cfg.ImageCheckTimeout, "dirty-nairobi-map/1.0")
		logger.Info("tile prefetch enabled", "url", profile.Tiles.URL)
	}

	tracker := selection.NewTracker(logger, metrics)
	engine := mapview.NewEngine(opts, tracker.Select, logger, metrics, nil)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	container := surface.Container{ID: "map", Width: profile.Viewport.Width, Height: profile.Viewport.Height}
	handle, err := engine.Initialize(ctx, container, profile.Boundary(), profile.Zooms())
	if err != nil {
		logger.Error("failed to mount map", "error", err)
		os.Exit(1)
	}
	logger.Info("map mounted",
		"container", handle.Container(),
		"zoom", profile.Zoom.Initial,
		"tile_size", geo.TileSize,
	)

	source, closeSource := newReportSource(cfg, logger)
	p := pipeline.New(source, engine, handle, logger, metrics)

	var publisher selection.Publisher
	var selWriter *kafkaadapter.SelectionWriter
	if cfg.SelectionsPublish {
		selWriter = kafkaadapter.NewSelectionWriter(cfg, logger)
		publisher = selWriter
		logger.Info("publishing selections", "topic", cfg.KafkaSelectionsTopic)
	}

	api, err := httpadapter.NewMapAPI(engine, tracker, logger)
	if err != nil {
		logger.Error("failed to create map API", "error", err)
		os.Exit(1)
	}
	srv := httpadapter.NewServer(cfg.HTTPAddr, p, api, logger)

	// Start HTTP server.
	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server error", "error", err)
		}
	}()

	go tracker.Run(ctx, publisher)

	// Start report pipeline.
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
	if err := engine.Teardown(shutdownCtx, handle); err != nil {
		logger.Error("map teardown error", "error", err)
	}
	if err := engine.Close(); err != nil {
		logger.Error("map engine close error", "error", err)
	}
	if err := closeSource(); err != nil {
		logger.Error("report source close error", "error", err)
	}
	if selWriter != nil {
		if err := selWriter.Close(); err != nil {
			logger.Error("kafka writer close error", "error", err)
		}
	}

	logger.Info("shutdown complete")
}

// newReportSource builds the configured report source and its closer.
func newReportSource(cfg *config.Config, logger *slog.Logger) (pipeline.ReportSource, func() error) {
	if cfg.ReportSource == config.SourceKafka {
		reader := kafkaadapter.NewSnapshotReader(cfg, logger)
		logger.Info("reading report snapshots from kafka", "topic", cfg.KafkaReportsTopic, "group_id", cfg.KafkaGroupID)
		return reader, reader.Close
	}

	client := photoapi.NewClient(cfg.PhotoAPIURL, cfg.PhotoAPITimeout, logger)
	filter := photoapi.Filter{Description: cfg.PhotoAPIDescription, Limit: cfg.PhotoAPILimit}
	logger.Info("polling photo API", "url", cfg.PhotoAPIURL, "interval", cfg.PhotoAPIPollInterval, "limit", cfg.PhotoAPILimit)
	return photoapi.NewPoller(client, filter, cfg.PhotoAPIPollInterval, nil), func() error { return nil }
}
