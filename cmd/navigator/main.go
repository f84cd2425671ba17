package main

import (
	"context"
	"errors"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"github.com/kareone/market-navigator/internal/api"
	"github.com/kareone/market-navigator/internal/core/domain"
	"github.com/kareone/market-navigator/internal/core/embeddings"
	"github.com/kareone/market-navigator/internal/notify"
	"github.com/kareone/market-navigator/internal/platform/config"
	"github.com/kareone/market-navigator/internal/platform/observability"
	"github.com/kareone/market-navigator/internal/platform/retry"
	"github.com/kareone/market-navigator/internal/process/acquisition"
	"github.com/kareone/market-navigator/internal/process/cachegate"
	"github.com/kareone/market-navigator/internal/process/fetchpool"
	"github.com/kareone/market-navigator/internal/process/scoring"
	"github.com/kareone/market-navigator/internal/process/tracker"
	"github.com/kareone/market-navigator/internal/session"
	"github.com/kareone/market-navigator/internal/sources"
	"github.com/kareone/market-navigator/internal/status"
	"github.com/kareone/market-navigator/internal/storage"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logger := newLogger(cfg)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	store, err := storage.New(ctx, cfg.PostgresDSN, &logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to connect to database")
	}
	defer store.Close()

	if err := store.Migrate(ctx); err != nil {
		logger.Fatal().Err(err).Msg("failed to run migrations")
	}

	loginRetry := retry.Config{
		MaxAttempts:  cfg.LoginMaxAttempts,
		InitialDelay: cfg.LoginRetryDelay,
	}

	gateway, err := newGateway(cfg, loginRetry, &logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to create session gateway")
	}

	go func() {
		if err := gateway.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
			logger.Error().Err(err).Msg("session gateway stopped")
		}
	}()

	bus := newBus(cfg, &logger)

	go func() {
		if err := bus.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
			logger.Error().Err(err).Msg("status bus stopped")
		}
	}()

	service := newService(cfg, store, gateway, bus, loginRetry, &logger)

	go runCacheJanitor(ctx, store, cfg, &logger)

	health := observability.NewServer(store, cfg.HealthPort, &logger)

	go func() {
		if err := health.Start(ctx); err != nil {
			logger.Error().Err(err).Msg("health check server error")
		}
	}()

	jobAPI := api.NewServer(service, cfg.APIPort, &logger)

	if err := jobAPI.Start(ctx); err != nil {
		logger.Fatal().Err(err).Msg("job api server error")
	}

	logger.Info().Msg("navigator stopped")
}

func newLogger(cfg *config.Config) zerolog.Logger {
	level, err := zerolog.ParseLevel(cfg.LogLevel)
	if err != nil {
		level = zerolog.InfoLevel
	}

	if cfg.AppEnv == "local" {
		return zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339}).
			Level(level).With().Timestamp().Logger()
	}

	return zerolog.New(os.Stderr).Level(level).With().Timestamp().Logger()
}

// newGateway builds the one shared session spanning both platforms and the
// gateway that serializes every search operation on it.
func newGateway(cfg *config.Config, loginRetry retry.Config, logger *zerolog.Logger) (*session.Gateway, error) {
	cbSession, err := session.NewHTTPSession(session.HTTPConfig{
		BaseURL:  cfg.CrunchbaseBaseURL,
		Email:    cfg.CrunchbaseEmail,
		Password: cfg.CrunchbasePassword,
		RPS:      cfg.SessionRPS,
		Timeout:  cfg.SessionTimeout,
	})
	if err != nil {
		return nil, err
	}

	txSession, err := session.NewHTTPSession(session.HTTPConfig{
		BaseURL:  cfg.TracxnBaseURL,
		Email:    cfg.TracxnEmail,
		Password: cfg.TracxnPassword,
		RPS:      cfg.SessionRPS,
		Timeout:  cfg.SessionTimeout,
	})
	if err != nil {
		return nil, err
	}

	shared := session.NewMultiSession([]session.Route{
		{Prefix: cfg.CrunchbaseBaseURL, Session: cbSession},
		{Prefix: cfg.TracxnBaseURL, Session: txSession},
	})

	return session.NewGateway(shared, session.GatewayConfig{LoginRetry: loginRetry}, logger), nil
}

func newBus(cfg *config.Config, logger *zerolog.Logger) *status.Bus {
	sinks := []status.Sink{status.NewLoggerSink(logger)}

	if cfg.NotifyBotToken != "" && cfg.NotifyChatID != 0 {
		sink, err := notify.NewTelegramSink(cfg.NotifyBotToken, cfg.NotifyChatID)
		if err != nil {
			logger.Warn().Err(err).Msg("telegram sink disabled")
		} else {
			sinks = append(sinks, sink)
		}
	}

	return status.NewBus(cfg.StatusBufferSize, logger, sinks...)
}

func newService(cfg *config.Config, store *storage.Store, gateway *session.Gateway, bus *status.Bus, loginRetry retry.Config, logger *zerolog.Logger) *acquisition.Service {
	provider := newProvider(cfg, logger)
	similarity := embeddings.NewService(provider, store, logger)

	cbClient := sources.NewCrunchbaseClient(cfg.CrunchbaseBaseURL)
	txClient := sources.NewTracxnClient(cfg.TracxnBaseURL)

	collector := tracker.New(gateway,
		[]sources.SearchClient{cbClient, txClient},
		tracker.Config{
			NumPerKeyword: cfg.NumPerKeyword,
			EmptyPageStop: cfg.EmptyPageStopCount,
			MaxPages:      cfg.MaxSearchPages,
		}, logger)

	// Fetch workers authenticate independently: a crunchbase route for API
	// details and a catch-all route for public web pages.
	workerFactory := session.NewMultiFactory([]session.FactoryRoute{
		{Prefix: cfg.CrunchbaseBaseURL, Factory: session.NewHTTPFactory(session.HTTPConfig{
			BaseURL:  cfg.CrunchbaseBaseURL,
			Email:    cfg.CrunchbaseEmail,
			Password: cfg.CrunchbasePassword,
			RPS:      cfg.WebFetchRPS,
			Timeout:  cfg.WebFetchTimeout,
		})},
		{Prefix: "", Factory: session.NewHTTPFactory(session.HTTPConfig{
			BaseURL:  cfg.TracxnBaseURL,
			Email:    cfg.TracxnEmail,
			Password: cfg.TracxnPassword,
			RPS:      cfg.WebFetchRPS,
			Timeout:  cfg.WebFetchTimeout,
		})},
	})

	pool := fetchpool.New(workerFactory,
		map[domain.Source]sources.DetailFetcher{
			domain.SourceCrunchbase: cbClient,
			domain.SourceTracxn:     txClient,
		},
		store,
		fetchpool.Config{
			PoolSize:   cfg.FetcherPoolSize,
			ChunkSize:  cfg.FetcherChunkSize,
			LoginRetry: loginRetry,
		}, logger)

	defaults := acquisition.Defaults{
		NumPerKeyword:   cfg.NumPerKeyword,
		TopCount:        cfg.DefaultTopCount,
		FreshnessWindow: cfg.DefaultFreshnessWindow(),
		Weights: domain.Weights{
			Similarity: cfg.DefaultSimilarityWeight,
			Secondary:  cfg.DefaultSecondaryWeight,
		},
	}

	return acquisition.NewService(
		acquisition.NewRegistry(),
		collector,
		scoring.New(similarity, logger),
		cachegate.New(store, logger),
		pool,
		bus,
		defaults,
		logger)
}

// runCacheJanitor drops detail payloads older than the retention window once
// a day. Retention is independent of per-job freshness windows.
func runCacheJanitor(ctx context.Context, store *storage.Store, cfg *config.Config, logger *zerolog.Logger) {
	if cfg.CacheRetentionDays <= 0 {
		return
	}

	ticker := time.NewTicker(24 * time.Hour)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			cutoff := time.Now().AddDate(0, 0, -cfg.CacheRetentionDays)

			deleted, err := store.DeleteCacheRecordsOlderThan(ctx, cutoff)
			if err != nil {
				logger.Warn().Err(err).Msg("cache cleanup failed")

				continue
			}

			if deleted > 0 {
				logger.Info().Int64("deleted", deleted).Msg("stale cache records removed")
			}
		}
	}
}

func newProvider(cfg *config.Config, logger *zerolog.Logger) embeddings.Provider {
	if cfg.EmbeddingAPIKey == "" {
		logger.Warn().Msg("no embedding api key set, using deterministic mock provider")

		return embeddings.NewMockProvider()
	}

	return embeddings.NewOpenAIProvider(embeddings.OpenAIConfig{
		APIKey:     cfg.EmbeddingAPIKey,
		Model:      cfg.EmbeddingModel,
		Dimensions: cfg.EmbeddingDimensions,
		RateLimit:  cfg.EmbeddingRateLimit,
	})
}
