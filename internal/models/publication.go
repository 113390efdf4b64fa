package models

import (
	"strconv"
	"time"
)

// CSVHeader is the column order of the exported publication file.
var CSVHeader = []string{"title", "citations", "year", "link"}

type Publication struct {
	Title     string `json:"title"`
	Link      string `json:"link"`
	Citations int    `json:"citations"`
	Year      string `json:"year"`
}

// Record returns the publication as a CSV row in CSVHeader order.
func (p Publication) Record() []string {
	return []string{p.Title, strconv.Itoa(p.Citations), p.Year, p.Link}
}

const (
	PartialMaxClicks   = "max_clicks"
	PartialMaxDuration = "max_duration"
	PartialTimeout     = "timeout"
)

type Expansion struct {
	Clicks        int    `json:"clicks"`
	Partial       bool   `json:"partial"`
	PartialReason string `json:"partial_reason,omitempty"`
}

type ScrapeResult struct {
	RunID        string        `json:"run_id"`
	URL          string        `json:"url"`
	Publications []Publication `json:"publications"`
	Expansion    Expansion     `json:"expansion"`
	StartedAt    time.Time     `json:"started_at"`
	FinishedAt   time.Time     `json:"finished_at"`
}

func NewScrapeResult(runID, url string) *ScrapeResult {
	return &ScrapeResult{
		RunID:        runID,
		URL:          url,
		Publications: make([]Publication, 0),
		StartedAt:    time.Now(),
	}
}

func (r *ScrapeResult) Count() int {
	return len(r.Publications)
}

func (r *ScrapeResult) Duration() time.Duration {
	if r.FinishedAt.IsZero() {
		return 0
	}
	return r.FinishedAt.Sub(r.StartedAt)
}

// Snapshot describes the file produced by the most recent successful run.
type Snapshot struct {
	RunID     string    `json:"run_id,omitempty"`
	URL       string    `json:"url,omitempty"`
	Count     int       `json:"count"`
	Partial   bool      `json:"partial"`
	Path      string    `json:"path"`
	WrittenAt time.Time `json:"written_at"`
}
