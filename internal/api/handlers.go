package api

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"mime"
	"net/http"
	"os"

	"github.com/maltedev/scholar-scraper/internal/models"
	"github.com/maltedev/scholar-scraper/internal/scraper"
	"github.com/maltedev/scholar-scraper/internal/storage"
)

type Updater interface {
	Run(ctx context.Context, url string) (*models.ScrapeResult, *models.Snapshot, error)
}

type FileSource interface {
	Open() (*os.File, os.FileInfo, error)
	Filename() string
	Snapshot() (*models.Snapshot, bool)
}

type Handlers struct {
	baseCtx context.Context
	updater Updater
	files   FileSource
	logger  *slog.Logger
}

// NewHandlers creates the HTTP handlers. Updates run on baseCtx rather than
// the request context, so a client hanging up does not abort a scrape.
func NewHandlers(baseCtx context.Context, updater Updater, files FileSource, logger *slog.Logger) *Handlers {
	return &Handlers{
		baseCtx: baseCtx,
		updater: updater,
		files:   files,
		logger:  logger.With("component", "api"),
	}
}

// UpdateResponse is returned by a successful update
type UpdateResponse struct {
	Success bool `json:"success"`
	Count   int  `json:"count"`
	Partial bool `json:"partial,omitempty"`
}

// HealthResponse reports liveness and the last export
type HealthResponse struct {
	Status  string           `json:"status"`
	LastRun *models.Snapshot `json:"last_run,omitempty"`
}

// Update scrapes the profile given by ?url= (or the default) and replaces the export
func (h *Handlers) Update(w http.ResponseWriter, r *http.Request) {
	url := r.URL.Query().Get("url")

	ctx, cancel := context.WithCancel(h.baseCtx)
	defer cancel()

	_, snap, err := h.updater.Run(ctx, url)
	if err != nil {
		if scraper.IsTimeout(err) {
			h.respondError(w, http.StatusGatewayTimeout, "Page load timed out")
			return
		}
		h.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}

	h.respondJSON(w, http.StatusOK, UpdateResponse{
		Success: true,
		Count:   snap.Count,
		Partial: snap.Partial,
	})
}

// Download streams the current export as a CSV attachment
func (h *Handlers) Download(w http.ResponseWriter, r *http.Request) {
	f, info, err := h.files.Open()
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			h.respondError(w, http.StatusNotFound, "CSV file not found")
			return
		}
		h.logger.Error("failed to open export", "error", err)
		h.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	defer f.Close()

	name := h.files.Filename()
	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", mime.FormatMediaType("attachment", map[string]string{"filename": name}))

	http.ServeContent(w, r, name, info.ModTime(), f)
}

func (h *Handlers) Health(w http.ResponseWriter, r *http.Request) {
	resp := HealthResponse{Status: "ok"}
	if snap, ok := h.files.Snapshot(); ok {
		resp.LastRun = snap
	}
	h.respondJSON(w, http.StatusOK, resp)
}

// Helper methods
func (h *Handlers) respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.logger.Error("failed to encode response", "error", err)
	}
}

func (h *Handlers) respondError(w http.ResponseWriter, status int, message string) {
	h.respondJSON(w, status, map[string]string{"detail": message})
}
