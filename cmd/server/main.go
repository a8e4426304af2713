// Package main runs the price service: scheduled ingestion, the HTTP API
// and Prometheus metrics.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"fuel-price-lab/internal/aggregate"
	"fuel-price-lab/internal/api"
	"fuel-price-lab/internal/cache"
	"fuel-price-lab/internal/config"
	"fuel-price-lab/internal/feed"
	"fuel-price-lab/internal/ingestion"
	"fuel-price-lab/internal/observability"
	"fuel-price-lab/internal/resample"
	"fuel-price-lab/internal/stations"
	"fuel-price-lab/internal/storage/stores"
)

func main() {
	logger := log.New(os.Stdout, "[server] ", log.LstdFlags|log.Lshortfile)

	config.LoadEnv(logger)

	configPath := flag.String("config", os.Getenv("FUEL_CONFIG"), "YAML config file")
	addr := flag.String("addr", "", "HTTP listen address (overrides config)")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		logger.Fatalf("Failed to load config: %v", err)
	}
	if *addr != "" {
		cfg.HTTP.Addr = *addr
	}
	if err := cfg.Validate(); err != nil {
		logger.Fatalf("Invalid config: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := run(ctx, cancel, cfg, logger); err != nil && !errors.Is(err, context.Canceled) {
		logger.Fatalf("Server error: %v", err)
	}
	logger.Println("Shutdown complete")
}

func run(ctx context.Context, cancel context.CancelFunc, cfg *config.Config, logger *log.Logger) error {
	loc, err := cfg.TimeLocation()
	if err != nil {
		return err
	}

	st, cleanup, err := stores.Open(ctx, cfg, logger)
	if err != nil {
		return fmt.Errorf("create stores: %w", err)
	}
	defer cleanup()

	metrics := observability.DefaultMetrics
	if cfg.Metrics.Namespace != "" {
		metrics = observability.NewMetrics(cfg.Metrics.Namespace, nil)
	}

	repo := stations.New(stations.Options{
		Stations:  st.Stations,
		Prices:    st.Prices,
		History:   st.History,
		BatchSize: cfg.Storage.BatchSize,
		Logger:    log.New(os.Stdout, "[stations] ", log.LstdFlags),
	})

	source, stopSource, err := createSource(ctx, cfg, repo, metrics)
	if err != nil {
		return fmt.Errorf("create source: %w", err)
	}
	defer stopSource()

	ingestLogger := log.New(os.Stdout, "[ingestion] ", log.LstdFlags|log.Lshortfile)
	runner := ingestion.NewRunner(ingestion.RunnerOptions{
		Repository:  repo,
		Source:      source,
		Metrics:     metrics,
		Concurrency: cfg.Ingestion.Concurrency,
		Logger:      ingestLogger,
	})

	scheduler := ingestion.NewScheduler(runner, loc, ingestLogger)
	spec := cfg.Ingestion.Schedule
	if spec == "" {
		spec = ingestion.EverySpec(cfg.IngestionDelay())
	}
	if err := scheduler.Schedule(spec); err != nil {
		return err
	}
	logger.Printf("Ingestion schedule: %s (%s source)", spec, source.Name())

	chartCache, err := createCache(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer chartCache.Close()

	apiLogger := log.New(os.Stdout, "[api] ", log.LstdFlags|log.Lshortfile)
	srv := api.New(api.Options{
		Repository: repo,
		Aggregator: aggregate.New(aggregate.Options{
			Resampler: resample.New(loc, resample.WithStepsPerHour(cfg.Resample.StepsPerHour)),
			Logger:    apiLogger,
		}),
		Cache:    chartCache,
		Metrics:  metrics,
		Status:   runner.Status,
		Location: loc,
		Logger:   apiLogger,
	})
	httpServer := &http.Server{
		Addr:              cfg.HTTP.Addr,
		Handler:           srv.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	// Handle shutdown signals
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		select {
		case sig := <-sigCh:
			logger.Printf("Received signal %v, initiating graceful shutdown...", sig)
			cancel()
		case <-ctx.Done():
		}
	}()

	scheduler.Start(ctx)
	if cfg.Ingestion.RunOnStart {
		go func() {
			if _, err := scheduler.RunNow(ctx); err != nil {
				ingestLogger.Printf("initial cycle: %v", err)
			}
		}()
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Printf("Starting HTTP server on %s", cfg.HTTP.Addr)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case <-ctx.Done():
	case err := <-errCh:
		if err != nil {
			cancel()
			return fmt.Errorf("http server: %w", err)
		}
	}

	shutdownCtx, stop := context.WithTimeout(context.Background(), 30*time.Second)
	defer stop()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Printf("HTTP shutdown: %v", err)
	}
	if err := scheduler.Stop(shutdownCtx); err != nil {
		logger.Printf("Scheduler shutdown: %v", err)
	}
	return ctx.Err()
}

// createSource builds the configured price source. The feed source keeps a
// WebSocket subscription for every known station.
func createSource(ctx context.Context, cfg *config.Config, repo *stations.Repository, metrics *observability.Metrics) (ingestion.Source, func(), error) {
	switch cfg.Ingestion.Source {
	case config.SourceStatic:
		return ingestion.NewStaticSource(), func() {}, nil

	case config.SourceHTTP:
		opts := []ingestion.HTTPOption{
			ingestion.WithLogger(log.New(os.Stdout, "[http-source] ", log.LstdFlags)),
		}
		if cfg.Ingestion.UserAgent != "" {
			opts = append(opts, ingestion.WithUserAgent(cfg.Ingestion.UserAgent))
		}
		return ingestion.NewHTTPSource(opts...), func() {}, nil

	case config.SourceFeed:
		feedLogger := log.New(os.Stdout, "[feed] ", log.LstdFlags|log.Lshortfile)
		client, err := feed.Dial(ctx, cfg.Ingestion.FeedEndpoint, nil, feedLogger)
		if err != nil {
			return nil, nil, err
		}

		all, err := repo.All(ctx)
		if err != nil {
			client.Close()
			return nil, nil, err
		}
		quotes, err := client.Subscribe(ctx, ingestion.Stations(all))
		if err != nil {
			client.Close()
			return nil, nil, err
		}

		src := ingestion.NewFeedSource(feedLogger, func(feed.Quote) {
			metrics.FeedQuotesReceived.Inc()
			metrics.FeedReconnects.Set(float64(client.Reconnects()))
		})
		go src.Consume(ctx, quotes)

		return src, func() { client.Close() }, nil
	}
	return nil, nil, fmt.Errorf("unknown source %q", cfg.Ingestion.Source)
}

func createCache(ctx context.Context, cfg *config.Config, logger *log.Logger) (cache.ChartCache, error) {
	if cfg.Cache.RedisURL == "" {
		return cache.Noop{}, nil
	}
	c, err := cache.NewRedisWithURL(cfg.Cache.RedisURL, cache.WithTTL(cfg.CacheTTL()))
	if err != nil {
		return nil, err
	}
	if err := c.Ping(ctx); err != nil {
		c.Close()
		return nil, fmt.Errorf("redis: %w", err)
	}
	logger.Println("Caching charts in redis")
	return c, nil
}
