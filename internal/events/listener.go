package events

import (
	"context"
	"encoding/json"
	"time"

	"github.com/rs/zerolog"
	"github.com/segmentio/kafka-go"

	"github.com/helixir/paper-enrichment-service/internal/domain"
)

// RefreshRequest asks the service to refresh the metrics of a stored paper.
type RefreshRequest struct {
	DOI         string `json:"doi"`
	RequestedBy string `json:"requested_by,omitempty"`
}

// Refresher is implemented by *enrichment.Service.
type Refresher interface {
	RefreshMetrics(ctx context.Context, doi string) (*domain.Paper, error)
}

// MessageReader is the subset of *kafka.Reader used by the listener.
type MessageReader interface {
	ReadMessage(ctx context.Context) (kafka.Message, error)
	Close() error
}

// ListenerConfig holds configuration for the refresh listener.
type ListenerConfig struct {
	Brokers []string
	Topic   string
	GroupID string
}

// RefreshListener consumes refresh requests and re-enriches the named papers.
type RefreshListener struct {
	reader    MessageReader
	refresher Refresher
	logger    zerolog.Logger
}

// NewRefreshListener creates a listener backed by a kafka.Reader.
func NewRefreshListener(cfg ListenerConfig, refresher Refresher, logger zerolog.Logger) *RefreshListener {
	reader := kafka.NewReader(kafka.ReaderConfig{
		Brokers:  cfg.Brokers,
		Topic:    cfg.Topic,
		GroupID:  cfg.GroupID,
		MinBytes: 1,
		MaxBytes: 10e6,
		MaxWait:  3 * time.Second,
	})
	return NewRefreshListenerWithReader(reader, refresher, logger)
}

// NewRefreshListenerWithReader creates a listener around an existing reader.
func NewRefreshListenerWithReader(reader MessageReader, refresher Refresher, logger zerolog.Logger) *RefreshListener {
	return &RefreshListener{
		reader:    reader,
		refresher: refresher,
		logger:    logger.With().Str("component", "refresh_listener").Logger(),
	}
}

// Run consumes messages until ctx is cancelled. Malformed messages and failed
// refreshes are logged and skipped.
func (l *RefreshListener) Run(ctx context.Context) error {
	l.logger.Info().Msg("starting refresh listener")

	for {
		msg, err := l.reader.ReadMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				l.logger.Info().Msg("refresh listener stopped via context cancellation")
				return ctx.Err()
			}
			l.logger.Error().Err(err).Msg("failed to read message from Kafka")
			continue
		}

		l.handle(ctx, msg)
	}
}

func (l *RefreshListener) handle(ctx context.Context, msg kafka.Message) {
	l.logger.Debug().
		Int("partition", msg.Partition).
		Int64("offset", msg.Offset).
		Msg("received refresh request")

	var req RefreshRequest
	if err := json.Unmarshal(msg.Value, &req); err != nil {
		l.logger.Error().Err(err).
			Str("raw_value", string(msg.Value)).
			Msg("failed to unmarshal refresh request")
		return
	}
	if req.DOI == "" {
		l.logger.Warn().Msg("refresh request without doi, skipping")
		return
	}

	paper, err := l.refresher.RefreshMetrics(ctx, req.DOI)
	if err != nil {
		l.logger.Error().Err(err).
			Str("doi", req.DOI).
			Str("requested_by", req.RequestedBy).
			Msg("failed to refresh paper")
		return
	}

	l.logger.Info().
		Str("doi", paper.DOI).
		Int("citation_count", paper.CitationCount).
		Msg("refreshed paper metrics")
}

// Close closes the Kafka reader.
func (l *RefreshListener) Close() error {
	l.logger.Info().Msg("closing refresh listener")
	return l.reader.Close()
}
