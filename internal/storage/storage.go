package storage

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"sync"
	"time"

	"github.com/maltedev/scholar-scraper/internal/models"
)

var ErrNotFound = errors.New("CSV file not found")

// CSVStore owns the exported publication file and the snapshot of the last
// successful write. Writes replace the file atomically, so readers never see
// a partially written file.
type CSVStore struct {
	mu   sync.RWMutex
	path string
	last *models.Snapshot
}

func NewCSVStore(path string) (*CSVStore, error) {
	if path == "" {
		return nil, fmt.Errorf("output path is required")
	}

	s := &CSVStore{path: path}

	// Pick up a file left by a previous process. An unreadable file is still
	// served by Open and replaced on the next Save; it only yields no snapshot.
	_ = s.load()

	return s, nil
}

func (s *CSVStore) Path() string {
	return s.path
}

// Filename is the name offered to clients downloading the file.
func (s *CSVStore) Filename() string {
	return filepath.Base(s.path)
}

// Save overwrites the file with the result's publications.
func (s *CSVStore) Save(result *models.ScrapeResult) (*models.Snapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if dir := filepath.Dir(s.path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create output directory: %w", err)
		}
	}

	// Write to temp file first for atomicity
	tmpFile := s.path + ".tmp"
	f, err := os.Create(tmpFile)
	if err != nil {
		return nil, fmt.Errorf("failed to create temp file: %w", err)
	}

	if err := WritePublications(f, result.Publications); err != nil {
		f.Close()
		os.Remove(tmpFile)
		return nil, fmt.Errorf("failed to write publications: %w", err)
	}

	if err := f.Close(); err != nil {
		os.Remove(tmpFile)
		return nil, fmt.Errorf("failed to close temp file: %w", err)
	}

	// Rename to actual file
	if err := os.Rename(tmpFile, s.path); err != nil {
		os.Remove(tmpFile)
		return nil, fmt.Errorf("failed to replace output file: %w", err)
	}

	s.last = &models.Snapshot{
		RunID:     result.RunID,
		URL:       result.URL,
		Count:     result.Count(),
		Partial:   result.Expansion.Partial,
		Path:      s.path,
		WrittenAt: time.Now(),
	}

	snap := *s.last
	return &snap, nil
}

// Open returns the current file for reading. The caller closes it.
func (s *CSVStore) Open() (*os.File, os.FileInfo, error) {
	f, err := os.Open(s.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil, ErrNotFound
		}
		return nil, nil, err
	}

	info, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, nil, err
	}

	return f, info, nil
}

// Snapshot returns the last successful write, if any.
func (s *CSVStore) Snapshot() (*models.Snapshot, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.last == nil {
		return nil, false
	}
	snap := *s.last
	return &snap, true
}

func (s *CSVStore) load() error {
	f, info, err := s.Open()
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return os.ErrNotExist
		}
		return err
	}
	defer f.Close()

	records, err := ReadPublications(f)
	if err != nil {
		return fmt.Errorf("failed to read existing output file: %w", err)
	}

	s.last = &models.Snapshot{
		Count:     len(records),
		Path:      s.path,
		WrittenAt: info.ModTime(),
	}
	return nil
}

// WritePublications writes the header row followed by one row per
// publication using standard CSV quoting.
func WritePublications(w io.Writer, pubs []models.Publication) error {
	cw := csv.NewWriter(w)

	if err := cw.Write(models.CSVHeader); err != nil {
		return err
	}
	for _, p := range pubs {
		if err := cw.Write(p.Record()); err != nil {
			return err
		}
	}

	cw.Flush()
	return cw.Error()
}

// ReadPublications parses a file produced by WritePublications.
func ReadPublications(r io.Reader) ([]models.Publication, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = len(models.CSVHeader)

	rows, err := cr.ReadAll()
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return []models.Publication{}, nil
	}

	pubs := make([]models.Publication, 0, len(rows)-1)
	for _, row := range rows[1:] {
		citations, err := strconv.Atoi(row[1])
		if err != nil {
			citations = 0
		}
		pubs = append(pubs, models.Publication{
			Title:     row[0],
			Citations: citations,
			Year:      row[2],
			Link:      row[3],
		})
	}

	return pubs, nil
}
