package scraper

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/maltedev/scholar-scraper/internal/browser"
	"github.com/maltedev/scholar-scraper/internal/models"
	"github.com/maltedev/scholar-scraper/internal/parser"
)

const (
	DefaultProfileURL = "https://scholar.google.com/citations?user=-TXOxzIAAAAJ&hl=en"

	ReadySelector    = "#gsc_prf_in"
	ShowMoreSelector = "#gsc_bpf_more"
)

type Config struct {
	DefaultURL        string
	NavigationTimeout time.Duration
	ReadyTimeout      time.Duration
	ActionTimeout     time.Duration
	ExpandDelay       time.Duration
	MaxExpandClicks   int
	MaxExpandDuration time.Duration
}

func DefaultConfig() Config {
	return Config{
		DefaultURL:        DefaultProfileURL,
		NavigationTimeout: 60 * time.Second,
		ReadyTimeout:      30 * time.Second,
		ActionTimeout:     30 * time.Second,
		ExpandDelay:       1500 * time.Millisecond,
		MaxExpandClicks:   100,
		MaxExpandDuration: 3 * time.Minute,
	}
}

type Service struct {
	launcher browser.Launcher
	parser   parser.Parser
	cfg      Config
	logger   *slog.Logger
}

func NewService(launcher browser.Launcher, p parser.Parser, cfg Config, logger *slog.Logger) *Service {
	if cfg.DefaultURL == "" {
		cfg.DefaultURL = DefaultProfileURL
	}
	return &Service{
		launcher: launcher,
		parser:   p,
		cfg:      cfg,
		logger:   logger.With("component", "scraper"),
	}
}

// Scrape loads the profile in a dedicated browser, expands the publication
// list and extracts every row. The browser is released before returning.
func (s *Service) Scrape(ctx context.Context, url string) (*models.ScrapeResult, error) {
	if url == "" {
		url = s.cfg.DefaultURL
	}

	result := models.NewScrapeResult(uuid.New().String(), url)
	logger := s.logger.With("run_id", result.RunID, "url", url)
	logger.Info("scraping profile")

	session, err := s.launcher.Launch(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to launch browser: %w", err)
	}
	defer func() {
		if err := session.Close(); err != nil {
			logger.Warn("failed to release browser", "error", err)
		}
	}()

	if err := session.Goto(url, s.cfg.NavigationTimeout); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrNavigationTimeout, err)
	}

	if err := session.WaitVisible(ReadySelector, s.cfg.ReadyTimeout); err != nil {
		if errors.Is(err, browser.ErrTimeout) {
			return nil, fmt.Errorf("%w: %w", ErrElementNotFound, err)
		}
		return nil, fmt.Errorf("failed waiting for profile: %w", err)
	}

	if err := s.expand(ctx, session, &result.Expansion); err != nil {
		return nil, err
	}
	if result.Expansion.Partial {
		logger.Warn("publication list only partially expanded",
			"reason", result.Expansion.PartialReason,
			"clicks", result.Expansion.Clicks)
	}

	html, err := session.Content()
	if err != nil {
		return nil, fmt.Errorf("failed to read page content: %w", err)
	}

	publications, err := s.parser.ParsePublications(html)
	if err != nil {
		return nil, fmt.Errorf("failed to extract publications: %w", err)
	}

	result.Publications = publications
	result.FinishedAt = time.Now()

	logger.Info("profile scraped",
		"count", result.Count(),
		"clicks", result.Expansion.Clicks,
		"partial", result.Expansion.Partial,
		"elapsed", result.Duration())

	return result, nil
}

// expand clicks the show-more control until it is gone or disabled. Wait
// timeouts and the click/duration caps end the loop early and mark the
// expansion partial instead of failing the run.
func (s *Service) expand(ctx context.Context, session browser.Session, exp *models.Expansion) error {
	var deadline time.Time
	if s.cfg.MaxExpandDuration > 0 {
		deadline = time.Now().Add(s.cfg.MaxExpandDuration)
	}

	for {
		present, disabled, err := session.ControlState(ShowMoreSelector)
		if err != nil {
			return s.stopExpansion(exp, err)
		}
		if !present || disabled {
			return nil
		}

		if s.cfg.MaxExpandClicks > 0 && exp.Clicks >= s.cfg.MaxExpandClicks {
			markPartial(exp, models.PartialMaxClicks)
			return nil
		}
		if !deadline.IsZero() && !time.Now().Before(deadline) {
			markPartial(exp, models.PartialMaxDuration)
			return nil
		}

		if err := session.Click(ShowMoreSelector, s.cfg.ActionTimeout); err != nil {
			return s.stopExpansion(exp, err)
		}
		exp.Clicks++

		if err := pause(ctx, s.cfg.ExpandDelay); err != nil {
			return err
		}
	}
}

func (s *Service) stopExpansion(exp *models.Expansion, err error) error {
	if errors.Is(err, browser.ErrTimeout) {
		markPartial(exp, models.PartialTimeout)
		return nil
	}
	return fmt.Errorf("failed to expand publication list: %w", err)
}

func markPartial(exp *models.Expansion, reason string) {
	exp.Partial = true
	exp.PartialReason = reason
}

func pause(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}

	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
