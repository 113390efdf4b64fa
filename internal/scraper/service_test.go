package scraper

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"testing"
	"time"

	"github.com/maltedev/scholar-scraper/internal/browser"
	"github.com/maltedev/scholar-scraper/internal/models"
	"github.com/maltedev/scholar-scraper/internal/parser"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// MockLauncher is a mock for browser.Launcher
type MockLauncher struct {
	mock.Mock
}

func (m *MockLauncher) Launch(ctx context.Context) (browser.Session, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(browser.Session), args.Error(1)
}

type controlState struct {
	present  bool
	disabled bool
	err      error
}

// fakeSession replays control states and counts interactions.
type fakeSession struct {
	gotoErr  error
	waitErr  error
	states   []controlState
	clickErr error
	html     string

	visited   string
	stateCall int
	clicks    int
	closed    int
}

func (f *fakeSession) Goto(url string, _ time.Duration) error {
	f.visited = url
	return f.gotoErr
}

func (f *fakeSession) WaitVisible(_ string, _ time.Duration) error {
	return f.waitErr
}

func (f *fakeSession) ControlState(_ string) (bool, bool, error) {
	if len(f.states) == 0 {
		return false, false, nil
	}
	i := f.stateCall
	if i >= len(f.states) {
		i = len(f.states) - 1
	}
	f.stateCall++
	st := f.states[i]
	return st.present, st.disabled, st.err
}

func (f *fakeSession) Click(_ string, _ time.Duration) error {
	if f.clickErr != nil {
		return f.clickErr
	}
	f.clicks++
	return nil
}

func (f *fakeSession) Content() (string, error) {
	return f.html, nil
}

func (f *fakeSession) Close() error {
	f.closed++
	return nil
}

const threeRows = `<table><tbody id="gsc_a_b">
	<tr class="gsc_a_tr"><td class="gsc_a_t"><a href="/a">A</a></td><td class="gsc_a_c"><a>15</a></td><td class="gsc_a_y"><span>2020</span></td></tr>
	<tr class="gsc_a_tr"><td class="gsc_a_t"><a href="/b">B</a></td><td class="gsc_a_c"></td><td class="gsc_a_y"><span>2021</span></td></tr>
	<tr class="gsc_a_tr"><td class="gsc_a_t"><a href="/c">C</a></td><td class="gsc_a_c"><a>N/A</a></td><td class="gsc_a_y"><span>2022</span></td></tr>
</tbody></table>`

func testConfig() Config {
	cfg := DefaultConfig()
	cfg.ExpandDelay = 0
	return cfg
}

func newTestService(t *testing.T, session *fakeSession, cfg Config) (*Service, *MockLauncher) {
	t.Helper()
	launcher := new(MockLauncher)
	launcher.On("Launch", mock.Anything).Return(session, nil)
	return NewService(launcher, parser.NewScholarParser(""), cfg, slog.Default()), launcher
}

func TestScrape_Success(t *testing.T) {
	session := &fakeSession{
		states: []controlState{{present: true}, {present: true}, {present: true, disabled: true}},
		html:   threeRows,
	}
	svc, launcher := newTestService(t, session, testConfig())

	result, err := svc.Scrape(context.Background(), "https://example.test/profile")
	require.NoError(t, err)

	assert.Equal(t, "https://example.test/profile", session.visited)
	assert.Equal(t, 2, session.clicks)
	assert.Equal(t, 2, result.Expansion.Clicks)
	assert.False(t, result.Expansion.Partial)
	assert.Equal(t, 3, result.Count())
	assert.NotEmpty(t, result.RunID)
	assert.Equal(t, 1, session.closed)

	citations := make([]int, 0, len(result.Publications))
	for _, p := range result.Publications {
		citations = append(citations, p.Citations)
	}
	assert.Equal(t, []int{15, 0, 0}, citations)

	launcher.AssertExpectations(t)
}

func TestScrape_DefaultURL(t *testing.T) {
	session := &fakeSession{html: threeRows}
	svc, _ := newTestService(t, session, testConfig())

	result, err := svc.Scrape(context.Background(), "")
	require.NoError(t, err)
	assert.Equal(t, DefaultProfileURL, session.visited)
	assert.Equal(t, DefaultProfileURL, result.URL)
}

func TestScrape_DisabledControlOnFirstCheck(t *testing.T) {
	session := &fakeSession{
		states: []controlState{{present: true, disabled: true}},
		html:   threeRows,
	}
	svc, _ := newTestService(t, session, testConfig())

	result, err := svc.Scrape(context.Background(), "")
	require.NoError(t, err)
	assert.Equal(t, 0, session.clicks)
	assert.Equal(t, 1, session.stateCall)
	assert.Equal(t, 3, result.Count())
}

func TestScrape_NavigationFailure(t *testing.T) {
	tests := []struct {
		name string
		err  error
	}{
		{"timeout", fmt.Errorf("goto: %w", browser.ErrTimeout)},
		{"unreachable host", errors.New("goto: net::ERR_NAME_NOT_RESOLVED")},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			session := &fakeSession{gotoErr: tt.err}
			svc, _ := newTestService(t, session, testConfig())

			result, err := svc.Scrape(context.Background(), "http://unreachable.invalid")
			assert.Nil(t, result)
			assert.True(t, errors.Is(err, ErrNavigationTimeout))
			assert.True(t, IsTimeout(err))
			assert.Equal(t, 1, session.closed, "browser must be released")
		})
	}
}

func TestScrape_ReadinessElementMissing(t *testing.T) {
	session := &fakeSession{waitErr: fmt.Errorf("wait: %w", browser.ErrTimeout)}
	svc, _ := newTestService(t, session, testConfig())

	_, err := svc.Scrape(context.Background(), "")
	assert.True(t, errors.Is(err, ErrElementNotFound))
	assert.True(t, IsTimeout(err))
	assert.Equal(t, 1, session.closed)
}

func TestScrape_ReadinessOtherError(t *testing.T) {
	session := &fakeSession{waitErr: errors.New("target closed")}
	svc, _ := newTestService(t, session, testConfig())

	_, err := svc.Scrape(context.Background(), "")
	require.Error(t, err)
	assert.False(t, IsTimeout(err))
	assert.Equal(t, 1, session.closed)
}

func TestScrape_LaunchFailure(t *testing.T) {
	launcher := new(MockLauncher)
	launcher.On("Launch", mock.Anything).Return(nil, errors.New("no chromium"))
	svc := NewService(launcher, parser.NewScholarParser(""), testConfig(), slog.Default())

	_, err := svc.Scrape(context.Background(), "")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no chromium")
	assert.False(t, IsTimeout(err))
}

func TestScrape_ExpansionTimeoutIsPartial(t *testing.T) {
	session := &fakeSession{
		states: []controlState{{present: true}, {present: true}},
		html:   threeRows,
	}
	svc, _ := newTestService(t, session, testConfig())

	// second state lookup times out
	session.states[1] = controlState{err: fmt.Errorf("count: %w", browser.ErrTimeout)}

	result, err := svc.Scrape(context.Background(), "")
	require.NoError(t, err)
	assert.Equal(t, 1, result.Expansion.Clicks)
	assert.True(t, result.Expansion.Partial)
	assert.Equal(t, models.PartialTimeout, result.Expansion.PartialReason)
	assert.Equal(t, 3, result.Count())
}

func TestScrape_ClickTimeoutIsPartial(t *testing.T) {
	session := &fakeSession{
		states:   []controlState{{present: true}},
		clickErr: fmt.Errorf("click: %w", browser.ErrTimeout),
		html:     threeRows,
	}
	svc, _ := newTestService(t, session, testConfig())

	result, err := svc.Scrape(context.Background(), "")
	require.NoError(t, err)
	assert.Equal(t, 0, result.Expansion.Clicks)
	assert.Equal(t, models.PartialTimeout, result.Expansion.PartialReason)
}

func TestScrape_ExpansionErrorAborts(t *testing.T) {
	session := &fakeSession{
		states:   []controlState{{present: true}},
		clickErr: errors.New("element is detached"),
		html:     threeRows,
	}
	svc, _ := newTestService(t, session, testConfig())

	result, err := svc.Scrape(context.Background(), "")
	assert.Nil(t, result)
	require.Error(t, err)
	assert.False(t, IsTimeout(err))
	assert.Equal(t, 1, session.closed)
}

func TestScrape_MaxClicksCap(t *testing.T) {
	session := &fakeSession{
		states: []controlState{{present: true}},
		html:   threeRows,
	}
	cfg := testConfig()
	cfg.MaxExpandClicks = 5
	svc, _ := newTestService(t, session, cfg)

	result, err := svc.Scrape(context.Background(), "")
	require.NoError(t, err)
	assert.Equal(t, 5, session.clicks)
	assert.True(t, result.Expansion.Partial)
	assert.Equal(t, models.PartialMaxClicks, result.Expansion.PartialReason)
}

func TestScrape_MaxDurationCap(t *testing.T) {
	session := &fakeSession{
		states: []controlState{{present: true}},
		html:   threeRows,
	}
	cfg := testConfig()
	cfg.MaxExpandClicks = 0
	cfg.MaxExpandDuration = time.Nanosecond
	svc, _ := newTestService(t, session, cfg)

	result, err := svc.Scrape(context.Background(), "")
	require.NoError(t, err)
	assert.True(t, result.Expansion.Partial)
	assert.Equal(t, models.PartialMaxDuration, result.Expansion.PartialReason)
}

func TestScrape_CancelledDuringPause(t *testing.T) {
	session := &fakeSession{
		states: []controlState{{present: true}},
		html:   threeRows,
	}
	cfg := testConfig()
	cfg.ExpandDelay = time.Hour
	svc, _ := newTestService(t, session, cfg)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := svc.Scrape(ctx, "")
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 1, session.closed)
}

func TestPause(t *testing.T) {
	assert.NoError(t, pause(context.Background(), 0))
	assert.NoError(t, pause(context.Background(), time.Millisecond))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, pause(ctx, time.Minute), context.Canceled)
}
