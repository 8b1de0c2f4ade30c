package main

import (
	"context"
	"flag"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/patternlens/transaction-pattern-backend/internal/api/rest"
	"github.com/patternlens/transaction-pattern-backend/internal/domain/transaction"
	"github.com/patternlens/transaction-pattern-backend/internal/infrastructure/cache"
	"github.com/patternlens/transaction-pattern-backend/internal/infrastructure/config"
	"github.com/patternlens/transaction-pattern-backend/internal/infrastructure/ingest"
	"github.com/patternlens/transaction-pattern-backend/internal/infrastructure/llm"
	"github.com/patternlens/transaction-pattern-backend/internal/infrastructure/telemetry"
	"github.com/patternlens/transaction-pattern-backend/internal/metrics"
	"github.com/patternlens/transaction-pattern-backend/internal/service/analysis"
	"github.com/patternlens/transaction-pattern-backend/internal/service/mining"
)

func main() {
	var configPath = flag.String("config", "configs/config.yaml", "Path to configuration file")
	flag.Parse()

	cfg, err := config.LoadFromFile(*configPath)
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	logger := telemetry.SetupLogger(cfg.LogLevel)
	slog.SetDefault(logger)

	ctx := context.Background()
	provider, err := telemetry.InitializeTracing(ctx, &telemetry.Config{
		ServiceName:    cfg.Telemetry.ServiceName,
		ServiceVersion: cfg.Version,
		Environment:    cfg.Environment,
		OTLPEndpoint:   cfg.Telemetry.OTLPEndpoint,
		Enabled:        cfg.Telemetry.TracingEnabled,
	})
	if err != nil {
		log.Fatalf("Failed to initialize tracing: %v", err)
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := provider.Shutdown(shutdownCtx); err != nil {
			logger.Error("tracing shutdown failed", slog.String("error", err.Error()))
		}
	}()

	store := transaction.NewStore()
	loader := ingest.NewLoader(cfg.Ingest.MaxTransactions)
	if cfg.Ingest.CSVPath != "" {
		records, err := loader.LoadFile(cfg.Ingest.CSVPath)
		if err != nil {
			log.Fatalf("Failed to load dataset from %s: %v", cfg.Ingest.CSVPath, err)
		}
		if err := store.Replace(records); err != nil {
			log.Fatalf("Failed to load dataset: %v", err)
		}
		metrics.SetDatasetSize(store.Len())
		logger.Info("dataset loaded from csv",
			slog.String("path", cfg.Ingest.CSVPath),
			slog.Int("transactions", store.Len()),
			slog.String("fingerprint", store.Fingerprint()),
		)
	}

	backend := newCacheBackend(cfg, logger)
	defer backend.Close()

	zapLogger, err := zap.NewProduction()
	if err != nil {
		log.Fatalf("Failed to create cache logger: %v", err)
	}
	defer zapLogger.Sync()

	analysisCache := cache.NewAnalysisCache(backend, zapLogger.Named("analysis_cache"))

	miner := mining.NewService(mining.Config{
		FrequentPairMinCount:       cfg.Mining.FrequentPairMinCount,
		RoundAmountUnit:            decimal.NewFromInt(cfg.Mining.RoundAmountUnit),
		HighActivityMinCount:       cfg.Mining.HighActivityMinCount,
		RepeatedAmountMinFrequency: cfg.Mining.RepeatedAmountMinFrequency,
		QuickSuccessionWindow:      cfg.Mining.QuickSuccessionWindow,
		SampleLimit:                cfg.Mining.SampleLimit,
		ActivitySampleLimit:        cfg.Mining.ActivitySampleLimit,
	}, logger)

	model := llm.NewGeminiClient(cfg.LLM, logger)
	if !model.Configured() {
		logger.Warn("no model api key configured, analysis will use rule-based mode")
	}

	analysisSvc := analysis.NewService(miner, model, analysisCache, store, cfg.Analysis, logger)
	handler := rest.NewHandler(store, loader, analysisSvc, cfg.Version, logger)
	server := rest.NewServer(cfg, handler, logger)

	errCh := make(chan error, 1)
	go func() {
		errCh <- server.Start()
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errCh:
		if err != nil {
			log.Fatalf("Server error: %v", err)
		}
	case sig := <-sigCh:
		logger.Info("shutdown signal received", slog.String("signal", sig.String()))
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			logger.Error("shutdown failed", slog.String("error", err.Error()))
		}
	}
}

// newCacheBackend prefers Redis and falls back to the in-process cache when
// Redis is disabled or unreachable.
func newCacheBackend(cfg *config.Config, logger *slog.Logger) cache.Cache {
	if !cfg.Redis.Enabled {
		logger.Info("redis disabled, using in-memory cache")
		return cache.NewMemoryCache()
	}
	zapLogger, err := zap.NewProduction()
	if err != nil {
		logger.Warn("cache logger init failed, using in-memory cache", slog.String("error", err.Error()))
		return cache.NewMemoryCache()
	}
	backend, err := cache.NewRedisCache(&cfg.Redis, zapLogger.Named("redis"))
	if err != nil {
		logger.Warn("redis unavailable, using in-memory cache", slog.String("error", err.Error()))
		return cache.NewMemoryCache()
	}
	return backend
}
