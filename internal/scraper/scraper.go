package scraper

import (
	"context"
	"errors"

	"github.com/maltedev/scholar-scraper/internal/models"
)

var (
	ErrNavigationTimeout = errors.New("page load timed out")
	ErrElementNotFound   = errors.New("profile element not found")
)

// Scraper turns a profile URL into its publication list.
type Scraper interface {
	Scrape(ctx context.Context, url string) (*models.ScrapeResult, error)
}

// IsTimeout reports whether err is one of the load failures that are
// surfaced to callers as a gateway timeout.
func IsTimeout(err error) bool {
	return errors.Is(err, ErrNavigationTimeout) || errors.Is(err, ErrElementNotFound)
}
