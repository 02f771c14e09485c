package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/fatih/color"

	"github.com/FranksOps/procura/internal/cache"
	"github.com/FranksOps/procura/internal/config"
	"github.com/FranksOps/procura/internal/extract"
	"github.com/FranksOps/procura/internal/metrics"
	"github.com/FranksOps/procura/internal/procurement"
	"github.com/FranksOps/procura/internal/storage"
	"github.com/FranksOps/procura/internal/storage/csvbackend"
	"github.com/FranksOps/procura/internal/storage/jsonbackend"
	"github.com/FranksOps/procura/internal/storage/postgres"
	"github.com/FranksOps/procura/internal/storage/sqlite"
	"github.com/FranksOps/procura/pkg/httpclient"
	"github.com/FranksOps/procura/pkg/proxy"
	"github.com/FranksOps/procura/pkg/ratelimit"
)

// app is everything one command invocation needs.
type app struct {
	cfg     *config.Config
	logger  *slog.Logger
	journal storage.Backend
	manager *procurement.Manager
	metrics *metrics.Server
	closers []func() error
}

// newApp loads configuration and wires the orchestrator. withProvider is
// false for commands that only read the journal.
func newApp(ctx context.Context, withProvider bool) (*app, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}

	a := &app{cfg: cfg, logger: newLogger(cfg.Log, verbose)}
	slog.SetDefault(a.logger)

	if cfg.Metrics.Port > 0 {
		a.metrics = metrics.Start(cfg.Metrics.Port, a.logger)
		a.logger.Info("metrics server started", "port", cfg.Metrics.Port)
	}

	a.journal, err = openJournal(ctx, cfg.Storage)
	if err != nil {
		a.Close()
		return nil, err
	}
	if a.journal != nil {
		a.closers = append(a.closers, a.journal.Close)
	}

	if !withProvider {
		return a, nil
	}

	provider, err := a.newProvider(ctx)
	if err != nil {
		a.Close()
		return nil, err
	}

	a.manager = procurement.New(provider, procurement.Options{
		Concurrency:   cfg.Orchestrator.Concurrency,
		TaskTimeout:   cfg.Orchestrator.TaskTimeout,
		UploadTimeout: cfg.Orchestrator.UploadTimeout,
		MaxWebsites:   cfg.Orchestrator.MaxWebsites,
		Journal:       a.journal,
		Logger:        a.logger,
		Progress:      progress,
	})
	return a, nil
}

// Close releases resources in reverse order of acquisition.
func (a *app) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			a.logger.Warn("close failed", "err", err)
		}
	}
	if err := a.metrics.Stop(context.Background()); err != nil {
		a.logger.Warn("metrics server shutdown failed", "err", err)
	}
}

func (a *app) newProvider(ctx context.Context) (extract.Provider, error) {
	cfg := a.cfg

	pool := proxy.NewPool(proxy.Config{})
	if len(cfg.HTTP.Proxies) > 0 {
		if err := pool.Add(cfg.HTTP.Proxies...); err != nil {
			return nil, fmt.Errorf("http.proxies: %w", err)
		}
	}
	if cfg.HTTP.ProxyFile != "" {
		if err := pool.LoadFile(cfg.HTTP.ProxyFile); err != nil {
			return nil, fmt.Errorf("http.proxy_file: %w", err)
		}
	}

	hc, err := httpclient.New(httpclient.Config{
		Timeout:      cfg.HTTP.Timeout,
		MaxRedirects: cfg.HTTP.MaxRedirects,
		Proxies:      pool,
		OnProxyFailure: func(u *url.URL) {
			metrics.ProxyFailures.WithLabelValues(u.Redacted()).Inc()
			a.logger.Warn("proxy failed", "proxy", u.Redacted())
		},
	})
	if err != nil {
		return nil, err
	}

	var provider extract.Provider
	switch cfg.Provider {
	case config.ProviderAnthropic:
		provider, err = extract.NewAnthropic(extract.AnthropicConfig{
			APIKey:     cfg.Anthropic.APIKey,
			Model:      cfg.Anthropic.Model,
			MaxTokens:  cfg.Anthropic.MaxTokens,
			HTTPClient: hc.Client,
			Logger:     a.logger,
		})
	default:
		provider, err = extract.NewGemini(ctx, extract.GeminiConfig{
			APIKey:     cfg.Gemini.APIKey,
			Model:      cfg.Gemini.Model,
			HTTPClient: hc.Client,
			Logger:     a.logger,
		})
	}
	if err != nil {
		return nil, fmt.Errorf("create %s client: %w", cfg.Provider, err)
	}

	provider = extract.Instrument(provider, extract.Options{
		Limiter: ratelimit.NewLimiter(cfg.RateLimit.RPS, cfg.RateLimit.Burst, cfg.RateLimit.Jitter),
		Logger:  a.logger,
	})

	store, err := openCache(ctx, cfg.Cache)
	if err != nil {
		return nil, err
	}
	if store != nil {
		a.closers = append(a.closers, store.Close)
		provider = extract.WithCache(provider, store, cfg.Cache.TTL, a.logger)
	}
	return provider, nil
}

func openCache(ctx context.Context, cfg config.CacheConfig) (cache.Cache, error) {
	switch cfg.Type {
	case "memory":
		return cache.NewMemoryCache(time.Minute), nil
	case "redis":
		c, err := cache.NewRedisCache(ctx, cfg.RedisURL)
		if err != nil {
			return nil, fmt.Errorf("cache: %w", err)
		}
		return c, nil
	}
	return nil, nil
}

func openJournal(ctx context.Context, cfg config.StorageConfig) (storage.Backend, error) {
	var (
		b   storage.Backend
		err error
	)
	switch cfg.Backend {
	case "sqlite":
		b, err = sqlite.New(cfg.DSN)
	case "postgres":
		b, err = postgres.New(ctx, cfg.DSN)
	case "json":
		b, err = jsonbackend.New(cfg.DSN)
	case "csv":
		b, err = csvbackend.New(cfg.DSN)
	default:
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("open %s journal: %w", cfg.Backend, err)
	}
	return b, nil
}

func newLogger(cfg config.LogConfig, verbose bool) *slog.Logger {
	level := slog.LevelInfo
	switch strings.ToLower(cfg.Level) {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	}
	if verbose {
		level = slog.LevelDebug
	}

	opts := &slog.HandlerOptions{Level: level}
	if strings.EqualFold(cfg.Format, "json") {
		return slog.New(slog.NewJSONHandler(os.Stderr, opts))
	}
	return slog.New(slog.NewTextHandler(os.Stderr, opts))
}

var progressColor = color.New(color.Faint)

// progress reports orchestrator steps on stderr so stdout stays a clean report.
func progress(stage, message string) {
	progressColor.Fprintf(os.Stderr, "[%s] %s\n", stage, message)
}

// isNotReady reports whether err means no compliance document is usable.
func isNotReady(err error) bool {
	var nr *procurement.DocumentNotReadyError
	return errors.As(err, &nr)
}
