// Package events publishes paper lifecycle events to Kafka and consumes
// refresh requests addressed to the enrichment service.
package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"github.com/segmentio/kafka-go"

	"github.com/helixir/paper-enrichment-service/internal/domain"
)

// Publish statuses reported to the Recorder.
const (
	StatusPublished = "published"
	StatusFailed    = "failed"
)

// Header keys set on every message.
const (
	HeaderEventType = "event_type"
	HeaderEventID   = "event_id"
	HeaderSource    = "source"
)

// ServiceName is written to the source header.
const ServiceName = "paper-enrichment-service"

// Recorder receives publish outcomes. observability.Metrics implements it.
type Recorder interface {
	RecordEventPublished(status string)
}

// MessageWriter is the subset of *kafka.Writer used by the publisher.
type MessageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// Config holds Kafka publisher settings.
type Config struct {
	Brokers      []string
	Topic        string
	BatchSize    int
	BatchTimeout time.Duration
}

// KafkaPublisher writes paper.enriched events as JSON keyed by DOI, so all
// events for one paper land on the same partition.
type KafkaPublisher struct {
	writer  MessageWriter
	logger  zerolog.Logger
	metrics Recorder
}

// NewKafkaPublisher creates a publisher backed by a kafka.Writer.
func NewKafkaPublisher(cfg Config, logger zerolog.Logger, metrics Recorder) *KafkaPublisher {
	writer := &kafka.Writer{
		Addr:         kafka.TCP(cfg.Brokers...),
		Topic:        cfg.Topic,
		Balancer:     &kafka.Hash{},
		BatchSize:    cfg.BatchSize,
		BatchTimeout: cfg.BatchTimeout,
		RequiredAcks: kafka.RequireOne,
	}
	return NewPublisherWithWriter(writer, logger, metrics)
}

// NewPublisherWithWriter creates a publisher around an existing writer.
func NewPublisherWithWriter(writer MessageWriter, logger zerolog.Logger, metrics Recorder) *KafkaPublisher {
	return &KafkaPublisher{
		writer:  writer,
		logger:  logger.With().Str("component", "event_publisher").Logger(),
		metrics: metrics,
	}
}

// PublishPaperEnriched writes one event. Callers treat failures as best effort.
func (p *KafkaPublisher) PublishPaperEnriched(ctx context.Context, event domain.PaperEnrichedEvent) error {
	msg, err := EncodePaperEnriched(event)
	if err != nil {
		p.record(StatusFailed)
		return err
	}

	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		p.record(StatusFailed)
		return fmt.Errorf("write %s event: %w", event.EventType, err)
	}

	p.record(StatusPublished)
	p.logger.Debug().
		Str("event_id", event.EventID).
		Str("doi", event.DOI).
		Bool("refreshed", event.Refreshed).
		Msg("published paper event")
	return nil
}

// Close flushes pending messages and closes the writer.
func (p *KafkaPublisher) Close() error {
	p.logger.Info().Msg("closing event publisher")
	return p.writer.Close()
}

func (p *KafkaPublisher) record(status string) {
	if p.metrics != nil {
		p.metrics.RecordEventPublished(status)
	}
}

// EncodePaperEnriched builds the Kafka message for an event.
func EncodePaperEnriched(event domain.PaperEnrichedEvent) (kafka.Message, error) {
	value, err := json.Marshal(event)
	if err != nil {
		return kafka.Message{}, fmt.Errorf("marshal %s event: %w", event.EventType, err)
	}
	return kafka.Message{
		Key:   []byte(event.DOI),
		Value: value,
		Time:  event.OccurredAt,
		Headers: []kafka.Header{
			{Key: HeaderEventType, Value: []byte(event.EventType)},
			{Key: HeaderEventID, Value: []byte(event.EventID)},
			{Key: HeaderSource, Value: []byte(ServiceName)},
		},
	}, nil
}

// NoopPublisher drops every event. It is used when Kafka is disabled.
type NoopPublisher struct{}

// PublishPaperEnriched implements enrichment.EventPublisher.
func (NoopPublisher) PublishPaperEnriched(context.Context, domain.PaperEnrichedEvent) error {
	return nil
}
