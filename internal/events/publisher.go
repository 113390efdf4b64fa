package events

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/maltedev/scholar-scraper/internal/models"
	"github.com/redis/go-redis/v9"
)

// EventType represents the type of event
type EventType string

const (
	// EventTypePublicationsUpdated is published after the export file was replaced
	EventTypePublicationsUpdated EventType = "PUBLICATIONS_UPDATED"

	DefaultStream = "stream:scholar_publications"
)

// PublicationsUpdatedPayload is the JSON body of a PUBLICATIONS_UPDATED event
type PublicationsUpdatedPayload struct {
	EventID       string    `json:"event_id"`
	EventType     string    `json:"event_type"`
	Timestamp     time.Time `json:"timestamp"`
	RunID         string    `json:"run_id"`
	URL           string    `json:"url"`
	Count         int       `json:"count"`
	Partial       bool      `json:"partial"`
	PartialReason string    `json:"partial_reason,omitempty"`
	OutputPath    string    `json:"output_path"`
	Source        string    `json:"source"`
}

// Notifier announces completed runs.
type Notifier interface {
	PublishUpdated(ctx context.Context, result *models.ScrapeResult, snap *models.Snapshot) error
}

// RedisClient interface for Redis operations (for testing)
type RedisClient interface {
	XAdd(ctx context.Context, args *redis.XAddArgs) *redis.StringCmd
	Close() error
}

// Publisher writes events onto a Redis stream
type Publisher struct {
	redis  RedisClient
	stream string
	logger *slog.Logger
}

func NewPublisher(client RedisClient, stream string, logger *slog.Logger) *Publisher {
	if stream == "" {
		stream = DefaultStream
	}
	return &Publisher{
		redis:  client,
		stream: stream,
		logger: logger.With("component", "event_publisher"),
	}
}

// PublishUpdated appends a PUBLICATIONS_UPDATED entry to the stream
func (p *Publisher) PublishUpdated(ctx context.Context, result *models.ScrapeResult, snap *models.Snapshot) error {
	payload := PublicationsUpdatedPayload{
		EventID:       uuid.New().String(),
		EventType:     string(EventTypePublicationsUpdated),
		Timestamp:     snap.WrittenAt,
		RunID:         result.RunID,
		URL:           result.URL,
		Count:         snap.Count,
		Partial:       result.Expansion.Partial,
		PartialReason: result.Expansion.PartialReason,
		OutputPath:    snap.Path,
		Source:        "scholar-scraper",
	}

	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal payload: %w", err)
	}

	args := &redis.XAddArgs{
		Stream: p.stream,
		Values: map[string]interface{}{
			"data":      string(data),
			"type":      payload.EventType,
			"run_id":    payload.RunID,
			"timestamp": fmt.Sprintf("%d", payload.Timestamp.UnixNano()),
		},
	}

	id, err := p.redis.XAdd(ctx, args).Result()
	if err != nil {
		return fmt.Errorf("failed to publish to redis: %w", err)
	}

	p.logger.Info("event published",
		"event_id", payload.EventID,
		"stream_id", id,
		"run_id", payload.RunID,
		"count", payload.Count)

	return nil
}

func (p *Publisher) Close() error {
	return p.redis.Close()
}

// NopNotifier is used when no stream is configured
type NopNotifier struct{}

func (NopNotifier) PublishUpdated(context.Context, *models.ScrapeResult, *models.Snapshot) error {
	return nil
}
