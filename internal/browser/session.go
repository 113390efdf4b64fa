package browser

import (
	"context"
	"fmt"
	"log/slog"
	"time"
)

// Session is one browser page owned by a single scrape run.
// Close releases the page together with the browser that backs it.
type Session interface {
	Goto(url string, timeout time.Duration) error
	WaitVisible(selector string, timeout time.Duration) error
	ControlState(selector string) (present bool, disabled bool, err error)
	Click(selector string, timeout time.Duration) error
	Content() (string, error)
	Close() error
}

type Launcher interface {
	Launch(ctx context.Context) (Session, error)
}

// PlaywrightLauncher starts a fresh Chromium for every session so that
// concurrent runs never share browser state.
type PlaywrightLauncher struct {
	opts   *Options
	logger *slog.Logger
}

func NewLauncher(opts *Options, logger *slog.Logger) *PlaywrightLauncher {
	if opts == nil {
		opts = DefaultOptions()
	}
	return &PlaywrightLauncher{
		opts:   opts,
		logger: logger.With("component", "browser"),
	}
}

func (l *PlaywrightLauncher) Launch(ctx context.Context) (Session, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	start := time.Now()
	b, err := New(l.opts)
	if err != nil {
		return nil, err
	}

	page, err := b.NewPage()
	if err != nil {
		if closeErr := b.Close(); closeErr != nil {
			l.logger.Warn("failed to release browser", "error", closeErr)
		}
		return nil, err
	}

	l.logger.Debug("browser launched", "elapsed", time.Since(start), "headless", l.opts.Headless)

	return &session{Page: page, browser: b}, nil
}

type session struct {
	*Page
	browser *Browser
}

func (s *session) Close() error {
	var errs []error

	if err := s.Page.Close(); err != nil {
		errs = append(errs, fmt.Errorf("failed to close page: %w", err))
	}

	if err := s.browser.Close(); err != nil {
		errs = append(errs, err)
	}

	if len(errs) > 0 {
		return fmt.Errorf("errors during session close: %v", errs)
	}

	return nil
}
