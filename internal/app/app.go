// Package app wires configuration into the scrape pipeline shared by the
// HTTP server and the command line tool.
package app

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/maltedev/scholar-scraper/internal/browser"
	"github.com/maltedev/scholar-scraper/internal/config"
	"github.com/maltedev/scholar-scraper/internal/events"
	"github.com/maltedev/scholar-scraper/internal/jobs"
	"github.com/maltedev/scholar-scraper/internal/parser"
	"github.com/maltedev/scholar-scraper/internal/scraper"
	"github.com/maltedev/scholar-scraper/internal/storage"
	"github.com/redis/go-redis/v9"
)

type App struct {
	Runner *jobs.Runner
	Store  *storage.CSVStore

	closers []func() error
}

func New(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*App, error) {
	store, err := storage.NewCSVStore(cfg.Output.Path)
	if err != nil {
		return nil, fmt.Errorf("failed to open output store: %w", err)
	}

	launcher := browser.NewLauncher(BrowserOptions(cfg), logger)
	svc := scraper.NewService(launcher, parser.NewScholarParser(cfg.Scraper.LinkOrigin), ScraperConfig(cfg), logger)

	a := &App{Store: store}

	var notifier events.Notifier = events.NopNotifier{}
	if cfg.Redis.Addr != "" {
		redisClient := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})

		if err := redisClient.Ping(ctx).Err(); err != nil {
			redisClient.Close()
			return nil, fmt.Errorf("failed to connect to Redis: %w", err)
		}

		publisher := events.NewPublisher(redisClient, cfg.Redis.Stream, logger)
		a.closers = append(a.closers, publisher.Close)
		notifier = publisher
		logger.Info("publishing update events", "redis", cfg.Redis.Addr, "stream", cfg.Redis.Stream)
	}

	a.Runner = jobs.NewRunner(svc, store, notifier, logger)
	return a, nil
}

func (a *App) Close() error {
	var errs []error
	for _, c := range a.closers {
		if err := c(); err != nil {
			errs = append(errs, err)
		}
	}
	if len(errs) > 0 {
		return fmt.Errorf("errors during close: %v", errs)
	}
	return nil
}

func BrowserOptions(cfg *config.Config) *browser.Options {
	opts := browser.DefaultOptions()
	opts.Headless = cfg.Browser.Headless
	opts.Timeout = cfg.Scraper.ActionTimeout
	opts.ViewportWidth = cfg.Browser.ViewportWidth
	opts.ViewportHeight = cfg.Browser.ViewportHeight
	opts.Locale = cfg.Browser.Locale
	opts.ProxyServer = cfg.Browser.ProxyServer
	if cfg.Browser.UserAgent != "" {
		opts.UserAgent = cfg.Browser.UserAgent
	}
	return opts
}

func ScraperConfig(cfg *config.Config) scraper.Config {
	return scraper.Config{
		DefaultURL:        cfg.Scraper.DefaultURL,
		NavigationTimeout: cfg.Scraper.NavigationTimeout,
		ReadyTimeout:      cfg.Scraper.ReadyTimeout,
		ActionTimeout:     cfg.Scraper.ActionTimeout,
		ExpandDelay:       cfg.Scraper.ExpandDelay,
		MaxExpandClicks:   cfg.Scraper.MaxExpandClicks,
		MaxExpandDuration: cfg.Scraper.MaxExpandDuration,
	}
}
