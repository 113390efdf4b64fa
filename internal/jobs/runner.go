package jobs

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/maltedev/scholar-scraper/internal/events"
	"github.com/maltedev/scholar-scraper/internal/models"
	"github.com/maltedev/scholar-scraper/internal/scraper"
)

// Store persists the result of a successful run.
type Store interface {
	Save(result *models.ScrapeResult) (*models.Snapshot, error)
}

// Runner executes one update: scrape, overwrite the export, announce it.
// A failed scrape leaves the previous export untouched.
type Runner struct {
	scraper  scraper.Scraper
	store    Store
	notifier events.Notifier
	logger   *slog.Logger
}

func NewRunner(s scraper.Scraper, store Store, notifier events.Notifier, logger *slog.Logger) *Runner {
	if notifier == nil {
		notifier = events.NopNotifier{}
	}
	return &Runner{
		scraper:  s,
		store:    store,
		notifier: notifier,
		logger:   logger.With("component", "job_runner"),
	}
}

func (r *Runner) Run(ctx context.Context, url string) (*models.ScrapeResult, *models.Snapshot, error) {
	start := time.Now()

	result, err := r.scraper.Scrape(ctx, url)
	if err != nil {
		r.logger.Error("scrape failed", "url", url, "error", err, "elapsed", time.Since(start))
		return nil, nil, err
	}

	snap, err := r.store.Save(result)
	if err != nil {
		r.logger.Error("failed to save publications", "run_id", result.RunID, "error", err)
		return nil, nil, fmt.Errorf("failed to save publications: %w", err)
	}

	if err := r.notifier.PublishUpdated(ctx, result, snap); err != nil {
		r.logger.Warn("failed to publish update event", "run_id", result.RunID, "error", err)
	}

	r.logger.Info("update completed",
		"run_id", result.RunID,
		"count", snap.Count,
		"partial", snap.Partial,
		"elapsed", time.Since(start))

	return result, snap, nil
}
