package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/aangelzurita/calendario-cloudbeds/internal/api"
	"github.com/aangelzurita/calendario-cloudbeds/internal/auth"
	"github.com/aangelzurita/calendario-cloudbeds/internal/cache"
	"github.com/aangelzurita/calendario-cloudbeds/internal/cloudbeds"
	"github.com/aangelzurita/calendario-cloudbeds/internal/config"
	"github.com/aangelzurita/calendario-cloudbeds/internal/metrics"
	"github.com/aangelzurita/calendario-cloudbeds/internal/occupancy"
)

func main() {
	// .env.local carries the per-property Cloudbeds credentials in dev
	_ = godotenv.Load(".env.local")
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		log.Fatal("Failed to load config:", err)
	}

	logger, err := zap.NewProduction()
	if err != nil {
		log.Fatal("Failed to create logger:", err)
	}
	defer logger.Sync()

	collector := metrics.NewCollector()

	tokens := auth.NewTokenCache(auth.Options{
		AuthURL:          cfg.Cloudbeds.AuthURL,
		Credentials:      cfg.Credentials,
		RefreshRateLimit: cfg.Cloudbeds.RefreshRateLimit,
		RefreshBurst:     cfg.Cloudbeds.RefreshBurst,
		Logger:           logger,
		Metrics:          collector,
	})

	client := cloudbeds.NewClient(cloudbeds.ClientOptions{
		APIURL:  cfg.Cloudbeds.APIURL,
		Timeout: cfg.Cloudbeds.Timeout,
		Tokens:  tokens,
		Logger:  logger,
		Metrics: collector,
	})

	service := occupancy.NewService(occupancy.ServiceOptions{
		Properties:  cfg.CanonicalProperties(),
		Fetcher:     cloudbeds.NewFetcher(client, logger),
		Client:      client,
		Cache:       cache.New(),
		CacheTTL:    cfg.Cache.TTL,
		Concurrency: cfg.Fetch.Concurrency,
		Logger:      logger,
		Metrics:     collector,
	})

	server := api.NewServer(cfg, service, logger)

	srv := &http.Server{
		Addr:    ":" + cfg.Server.Port,
		Handler: server.Router,
	}

	// Graceful shutdown
	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("Failed to start server", zap.Error(err))
		}
	}()

	logger.Info("API server started",
		zap.String("port", cfg.Server.Port),
		zap.Int("properties", len(cfg.Properties)),
	)

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.Fatal("Server forced to shutdown", zap.Error(err))
	}

	logger.Info("Server exited")
}
