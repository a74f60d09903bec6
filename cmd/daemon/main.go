// SPDX-License-Identifier: MIT

// The daemon serves the ytsum HTTP API: summary job creation, polling and
// cancellation backed by a Redis or in-memory KV store.
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"github.com/ManuGH/ytsum/internal/api"
	"github.com/ManuGH/ytsum/internal/cache"
	"github.com/ManuGH/ytsum/internal/config"
	"github.com/ManuGH/ytsum/internal/jobs"
	"github.com/ManuGH/ytsum/internal/kv"
	ytlog "github.com/ManuGH/ytsum/internal/log"
	"github.com/ManuGH/ytsum/internal/ratelimit"
	"github.com/ManuGH/ytsum/internal/summarize"
	"github.com/ManuGH/ytsum/internal/transcript"
	"github.com/ManuGH/ytsum/internal/validate"
)

func main() {
	ytlog.Configure(ytlog.Config{Service: "ytsum"})
	logger := ytlog.WithComponent("daemon")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to load configuration")
	}

	// A config that cannot serve requests does not prevent boot: the API
	// reports CONFIGURATION_ERROR per request until credentials arrive.
	configErr := cfg.Validate()
	if configErr != nil {
		logger.Warn().Err(configErr).Msg("configuration incomplete, serving degraded")
	}

	store := selectStore(cfg, logger)
	defer func() {
		if err := store.Close(); err != nil {
			logger.Warn().Err(err).Msg("closing KV store failed")
		}
	}()

	transcripts := transcript.New(cfg.Supadata.BaseURL, cfg.Supadata.APIKey,
		ytlog.WithComponent("transcript"))
	gemini := summarize.NewGemini(cfg.Gemini.BaseURL, cfg.Gemini.APIKey, cfg.Gemini.Model,
		ytlog.WithComponent("summarize"))
	engine := summarize.NewEngine(gemini, cfg, ytlog.WithComponent("summarize"))

	jobStore := jobs.NewStore(store, time.Duration(cfg.TTL.JobSeconds)*time.Second,
		ytlog.WithComponent("jobs"))
	resultCache := cache.New(store, time.Duration(cfg.TTL.CacheSeconds)*time.Second,
		ytlog.WithComponent("cache"))
	driver := jobs.NewDriver(jobStore, resultCache, transcripts, engine)

	limiter := ratelimit.New(store, ratelimit.Config{
		Enabled: cfg.RateLimit.Enabled,
		PostRPM: cfg.RateLimit.PostRPM,
		GetRPM:  cfg.RateLimit.GetRPM,
	}, ytlog.WithComponent("ratelimit"))

	server := api.NewServer(cfg, validate.New(cfg.AllowedHosts), driver, limiter, store,
		ytlog.WithComponent("api"), configErr)

	httpServer := &http.Server{
		Addr:              cfg.Listen,
		Handler:           server.Router(),
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info().Str("listen", cfg.Listen).Msg("http server starting")
		errCh <- httpServer.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		logger.Info().Msg("shutdown signal received")
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error().Err(err).Msg("http server failed")
			os.Exit(1)
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("graceful shutdown failed")
	}
	logger.Info().Msg("server stopped")
}

// selectStore picks the KV backend once at startup: Redis when a URL is
// configured, process memory otherwise. A Redis connection failure falls back
// to memory so development setups keep working.
func selectStore(cfg config.Config, logger zerolog.Logger) kv.Store {
	if cfg.KV.URL == "" {
		logger.Info().Msg("no KV url configured, using in-memory store")
		return kv.NewMemory(time.Minute)
	}

	store, err := kv.NewRedis(kv.RedisConfig{
		Addr:     cfg.KV.URL,
		Password: cfg.KV.Token,
	}, ytlog.WithComponent("kv"))
	if err != nil {
		logger.Warn().Err(err).Msg("redis unreachable, falling back to in-memory store")
		return kv.NewMemory(time.Minute)
	}
	return store
}
