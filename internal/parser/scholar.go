package parser

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/maltedev/scholar-scraper/internal/models"
)

const DefaultOrigin = "https://scholar.google.com"

// Selectors of the Google Scholar author page.
const (
	RowSelector      = "#gsc_a_b .gsc_a_tr"
	TitleSelector    = ".gsc_a_t a"
	CitationSelector = ".gsc_a_c a"
	YearSelector     = ".gsc_a_y span"
)

type ScholarParser struct {
	origin string
}

func NewScholarParser(origin string) *ScholarParser {
	if origin == "" {
		origin = DefaultOrigin
	}
	return &ScholarParser{origin: strings.TrimRight(origin, "/")}
}

// ParsePublications walks the publication table of a rendered profile page.
// Rows are returned in document order; missing fields default independently.
func (p *ScholarParser) ParsePublications(html string) ([]models.Publication, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, fmt.Errorf("failed to parse HTML: %w", err)
	}

	rows := doc.Find(RowSelector)
	publications := make([]models.Publication, 0, rows.Length())

	rows.Each(func(_ int, row *goquery.Selection) {
		publications = append(publications, p.parseRow(row))
	})

	return publications, nil
}

func (p *ScholarParser) parseRow(row *goquery.Selection) models.Publication {
	var pub models.Publication

	if title := row.Find(TitleSelector).First(); title.Length() > 0 {
		pub.Title = strings.TrimSpace(title.Text())
		if href, ok := title.Attr("href"); ok && href != "" {
			pub.Link = p.origin + href
		}
	}

	if cites := row.Find(CitationSelector).First(); cites.Length() > 0 {
		pub.Citations = ParseCitations(cites.Text())
	}

	if year := row.Find(YearSelector).First(); year.Length() > 0 {
		pub.Year = strings.TrimSpace(year.Text())
	}

	return pub
}

// ParseCitations reads the leading integer of a citation label.
// Labels without a leading digit yield 0.
func ParseCitations(text string) int {
	text = strings.TrimSpace(text)

	end := 0
	for end < len(text) && text[end] >= '0' && text[end] <= '9' {
		end++
	}

	n, err := strconv.Atoi(text[:end])
	if err != nil {
		return 0
	}
	return n
}
