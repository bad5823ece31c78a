// Package redpanda publishes interview lifecycle events to a Kafka-compatible
// broker (Redpanda in the compose setup).
package redpanda

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/twmb/franz-go/pkg/kgo"
	"github.com/twmb/franz-go/plugin/kotel"
	"go.opentelemetry.io/otel"

	"github.com/fairyhunter13/ai-interview-coach/internal/domain"
	obsctx "github.com/fairyhunter13/ai-interview-coach/internal/observability"
)

const (
	// DefaultTopic receives interview.created and interview.completed events.
	DefaultTopic = "interview-events"

	publishTimeout = 5 * time.Second
)

type producer interface {
	ProduceSync(ctx context.Context, rs ...*kgo.Record) kgo.ProduceResults
	Close()
}

// Publisher implements domain.EventPublisher on franz-go.
type Publisher struct {
	client producer
	topic  string
}

var _ domain.EventPublisher = (*Publisher)(nil)

// NewPublisher connects to brokers, ensures topic exists and returns a
// Publisher. Records carry trace context through kotel hooks.
func NewPublisher(ctx context.Context, brokers []string, topic string) (*Publisher, error) {
	if len(brokers) == 0 {
		return nil, fmt.Errorf("op=redpanda.NewPublisher: no seed brokers provided")
	}
	if topic == "" {
		topic = DefaultTopic
	}

	kt := kotel.NewKotel(kotel.WithTracer(kotel.NewTracer(kotel.TracerProvider(otel.GetTracerProvider()))))
	client, err := kgo.NewClient(
		kgo.SeedBrokers(brokers...),
		kgo.DefaultProduceTopic(topic),
		kgo.RequiredAcks(kgo.AllISRAcks()),
		kgo.RequestRetries(5),
		kgo.ProducerBatchMaxBytes(1_000_000),
		kgo.WithHooks(kt.Hooks()...),
	)
	if err != nil {
		return nil, fmt.Errorf("op=redpanda.NewPublisher: %w", err)
	}

	if err := createTopicIfNotExists(ctx, client, topic, 1, 1); err != nil {
		// the broker may auto-create topics or deny admin requests; producing can still work
		slog.Warn("topic bootstrap failed", slog.String("topic", topic), slog.Any("error", err))
	}
	slog.Info("event publisher ready", slog.Any("brokers", brokers), slog.String("topic", topic))
	return &Publisher{client: client, topic: topic}, nil
}

// PublishInterviewEvent writes ev keyed by interview id and waits for the ack.
func (p *Publisher) PublishInterviewEvent(ctx domain.Context, ev domain.InterviewEvent) error {
	rec, err := buildRecord(ctx, p.topic, ev)
	if err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(ctx, publishTimeout)
	defer cancel()
	if err := p.client.ProduceSync(ctx, rec).FirstErr(); err != nil {
		return fmt.Errorf("op=redpanda.publish: %w", err)
	}
	obsctx.LoggerFromContext(ctx).Debug("interview event published",
		slog.String("type", ev.Type),
		slog.String("interview_id", ev.InterviewID),
		slog.String("topic", p.topic))
	return nil
}

// Close flushes and closes the client.
func (p *Publisher) Close() {
	if p != nil && p.client != nil {
		p.client.Close()
	}
}

func buildRecord(ctx context.Context, topic string, ev domain.InterviewEvent) (*kgo.Record, error) {
	if ev.InterviewID == "" || ev.Type == "" {
		return nil, fmt.Errorf("op=redpanda.publish: %w: event type and interview id required", domain.ErrInvalidArgument)
	}
	if ev.OccurredAt.IsZero() {
		ev.OccurredAt = time.Now().UTC()
	}
	b, err := json.Marshal(ev)
	if err != nil {
		return nil, fmt.Errorf("op=redpanda.publish: marshal: %w", err)
	}
	headers := []kgo.RecordHeader{
		{Key: "event_type", Value: []byte(ev.Type)},
		{Key: "interview_id", Value: []byte(ev.InterviewID)},
	}
	if rid := obsctx.RequestIDFromContext(ctx); rid != "" {
		headers = append(headers, kgo.RecordHeader{Key: "request_id", Value: []byte(rid)})
	}
	return &kgo.Record{
		Topic:   topic,
		Key:     []byte(ev.InterviewID),
		Value:   b,
		Headers: headers,
	}, nil
}

// NoopPublisher drops events; used when no brokers are configured.
type NoopPublisher struct{}

// PublishInterviewEvent does nothing.
func (NoopPublisher) PublishInterviewEvent(domain.Context, domain.InterviewEvent) error { return nil }
