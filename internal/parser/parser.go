package parser

import (
	"github.com/maltedev/scholar-scraper/internal/models"
)

type Parser interface {
	ParsePublications(html string) ([]models.Publication, error)
}
