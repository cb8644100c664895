package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/jmoiron/sqlx"
	"github.com/jonboulle/clockwork"
	_ "github.com/lib/pq"

	"github.com/ticketera/sellout-forecast/internal/adapter/chartmetric"
	httpadapter "github.com/ticketera/sellout-forecast/internal/adapter/http"
	"github.com/ticketera/sellout-forecast/internal/adapter/warehouse"
	"github.com/ticketera/sellout-forecast/internal/artifact"
	"github.com/ticketera/sellout-forecast/internal/config"
	"github.com/ticketera/sellout-forecast/internal/domain"
	"github.com/ticketera/sellout-forecast/internal/observability"
	"github.com/ticketera/sellout-forecast/internal/pipeline"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger := observability.NewLogger(cfg.LogLevel, cfg.LogFormat)
	metrics := observability.NewMetrics()

	db, err := sqlx.Connect("postgres", cfg.WarehouseDSN)
	if err != nil {
		logger.Error("failed to connect to warehouse", "error", err)
		os.Exit(1)
	}
	defer db.Close()
	db.SetMaxOpenConns(cfg.WarehouseMaxConns)

	store := warehouse.NewStore(db, cfg.WarehouseQueryTimeout, logger, metrics)

	// Metrics provider is feature-flagged; without it, artist lookups
	// degrade to absent records.
	var artists domain.ArtistMetricsSource
	if cfg.ChartmetricEnabled {
		client := chartmetric.NewClient(chartmetric.Config{
			BaseURL:             cfg.ChartmetricBaseURL,
			RefreshToken:        cfg.ChartmetricRefreshToken,
			Timeout:             cfg.ChartmetricTimeout,
			RequestsPerSecond:   cfg.ChartmetricRPS,
			RateLimitWaitBudget: cfg.ChartmetricRateLimitBudget,
			TransientRetries:    cfg.ChartmetricRetries,
			RetryDelay:          cfg.ChartmetricRetryDelay,
		}, clockwork.NewRealClock(), logger, metrics)
		artists = chartmetric.NewCachedSource(client, cfg.ChartmetricCacheSize, metrics)
		metrics.ProviderEnabled.Set(1)
		logger.Info("chartmetric provider enabled", "cache_size", cfg.ChartmetricCacheSize, "rps", cfg.ChartmetricRPS)
	} else {
		metrics.ProviderEnabled.Set(0)
		logger.Info("chartmetric provider disabled")
	}

	models, err := loadModels(cfg, logger)
	if err != nil {
		logger.Error("failed to load model artifacts", "error", err)
		os.Exit(1)
	}

	predictor := pipeline.New(pipeline.Sources{
		Venues:       store,
		Demographics: store,
		Genres:       store,
		Events:       store,
		Artists:      artists,
	}, models, logger, metrics)

	srv := httpadapter.NewServer(cfg.HTTPAddr, predictor, httpadapter.ReadinessFunc(store.Ping), logger)

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

// loadModels loads and validates one artifact per schema variant. A bad
// artifact fails startup; serving with a misaligned model is worse than not
// serving.
func loadModels(cfg *config.Config, logger *slog.Logger) (map[domain.Variant]pipeline.ModelSet, error) {
	paths := map[domain.Variant]string{
		domain.VariantFull:    cfg.ModelFullPath,
		domain.VariantCompact: cfg.ModelCompactPath,
	}

	models := make(map[domain.Variant]pipeline.ModelSet, len(paths))
	for variant, path := range paths {
		art, err := artifact.Load(path, variant)
		if err != nil {
			return nil, err
		}

		schema, err := domain.SchemaFor(variant)
		if err != nil {
			return nil, err
		}
		encoder, err := domain.NewEncoder(schema, art.Scaler)
		if err != nil {
			return nil, err
		}

		models[variant] = pipeline.ModelSet{
			Encoder:    encoder,
			Model:      art.Model,
			Convention: art.Convention,
			Version:    art.Version,
			MAE:        art.MAE,
		}
		logger.Info("model artifact loaded",
			"variant", variant, "version", art.Version, "mae", art.MAE, "output", art.Convention)
	}
	return models, nil
}
