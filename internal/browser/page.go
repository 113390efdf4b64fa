package browser

import (
	"errors"
	"fmt"
	"time"

	"github.com/playwright-community/playwright-go"
)

// ErrTimeout marks a page operation that exceeded its wait bound.
var ErrTimeout = errors.New("browser timeout")

// Page is the subset of page interactions the profile scrape issues.
type Page struct {
	page playwright.Page
}

// Goto navigates and waits until the DOM has been parsed.
func (p *Page) Goto(url string, timeout time.Duration) error {
	_, err := p.page.Goto(url, playwright.PageGotoOptions{
		WaitUntil: playwright.WaitUntilStateDomcontentloaded,
		Timeout:   millis(timeout),
	})
	return wrap("goto", err)
}

// WaitVisible blocks until selector matches a visible element.
func (p *Page) WaitVisible(selector string, timeout time.Duration) error {
	err := p.page.Locator(selector).First().WaitFor(playwright.LocatorWaitForOptions{
		State:   playwright.WaitForSelectorStateVisible,
		Timeout: millis(timeout),
	})
	return wrap("wait for "+selector, err)
}

// ControlState reports whether selector exists and whether it is disabled.
func (p *Page) ControlState(selector string) (present bool, disabled bool, err error) {
	loc := p.page.Locator(selector).First()

	count, err := loc.Count()
	if err != nil {
		return false, false, wrap("count "+selector, err)
	}
	if count == 0 {
		return false, false, nil
	}

	disabled, err = loc.IsDisabled()
	if err != nil {
		return true, false, wrap("inspect "+selector, err)
	}
	return true, disabled, nil
}

// Click scrolls selector into view and clicks it.
func (p *Page) Click(selector string, timeout time.Duration) error {
	loc := p.page.Locator(selector).First()

	if err := loc.ScrollIntoViewIfNeeded(playwright.LocatorScrollIntoViewIfNeededOptions{
		Timeout: millis(timeout),
	}); err != nil {
		return wrap("scroll "+selector, err)
	}

	return wrap("click "+selector, loc.Click(playwright.LocatorClickOptions{
		Timeout: millis(timeout),
	}))
}

// Content returns the serialized DOM of the page as currently rendered.
func (p *Page) Content() (string, error) {
	html, err := p.page.Content()
	if err != nil {
		return "", wrap("content", err)
	}
	return html, nil
}

func (p *Page) Close() error {
	return p.page.Close()
}

func wrap(op string, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, playwright.ErrTimeout) {
		return fmt.Errorf("%s: %w: %w", op, ErrTimeout, err)
	}
	return fmt.Errorf("%s: %w", op, err)
}

func millis(d time.Duration) *float64 {
	if d <= 0 {
		return nil
	}
	return playwright.Float(float64(d.Milliseconds()))
}
