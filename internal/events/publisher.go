// Package events publishes snapshots and raw transcript events to Kafka.
package events

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/segmentio/kafka-go"

	"live-caption-service/internal/models"
	"live-caption-service/internal/observability/metrics"
)

const sinkName = "kafka"

// messageWriter is the subset of *kafka.Writer the publisher uses.
type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// Publisher writes caption snapshots and transcript events to separate Kafka topics.
type Publisher struct {
	writerSnapshot   messageWriter
	writerTranscript messageWriter
	principal        string
	key              string
	topicSnapshot    string
	topicTranscript  string
	enabled          bool
	metrics          *metrics.Metrics
}

// Config holds Kafka publisher configuration.
type Config struct {
	Brokers         []string
	TopicSnapshot   string
	TopicTranscript string
	Principal       string
	// Key is the message key, normally the session id.
	Key     string
	Enabled bool
}

// New creates a Kafka publisher. A nil or disabled config gives a log-only publisher.
func New(cfg *Config) *Publisher {
	m := metrics.DefaultMetrics

	if cfg == nil {
		log.Info().Msg("Kafka disabled (nil config), using log-only mode")
		return &Publisher{metrics: m}
	}

	p := &Publisher{
		principal:       cfg.Principal,
		key:             cfg.Key,
		topicSnapshot:   cfg.TopicSnapshot,
		topicTranscript: cfg.TopicTranscript,
		metrics:         m,
	}

	if !cfg.Enabled || len(cfg.Brokers) == 0 {
		log.Info().Msg("Kafka disabled, using log-only mode")
		return p
	}

	dialer := &kafka.Dialer{
		Timeout:   10 * time.Second,
		DualStack: true,
	}
	transport := &kafka.Transport{
		Dial: dialer.DialFunc,
	}

	p.writerSnapshot = newWriter(cfg.Brokers, cfg.TopicSnapshot, transport)
	if cfg.TopicTranscript != "" {
		p.writerTranscript = newWriter(cfg.Brokers, cfg.TopicTranscript, transport)
	}
	p.enabled = true

	log.Info().
		Strs("brokers", cfg.Brokers).
		Str("topicSnapshot", cfg.TopicSnapshot).
		Str("topicTranscript", cfg.TopicTranscript).
		Str("principal", cfg.Principal).
		Msg("Kafka publisher initialized")
	return p
}

func newWriter(brokers []string, topic string, transport *kafka.Transport) *kafka.Writer {
	return &kafka.Writer{
		Addr:         kafka.TCP(brokers...),
		Topic:        topic,
		Balancer:     &kafka.Hash{},
		BatchTimeout: 10 * time.Millisecond,
		WriteTimeout: 10 * time.Second,
		RequiredAcks: kafka.RequireOne,
		Transport:    transport,
	}
}

// Name identifies the publisher as a snapshot sink.
func (p *Publisher) Name() string {
	return sinkName
}

// Publish writes a snapshot to the snapshot topic.
func (p *Publisher) Publish(ctx context.Context, snap models.Snapshot) error {
	return p.publish(ctx, p.writerSnapshot, p.topicSnapshot, "snapshot", snap)
}

// PublishTranscript writes a raw transcript event to the transcript topic.
func (p *Publisher) PublishTranscript(ctx context.Context, ev models.TranscriptEvent) error {
	return p.publish(ctx, p.writerTranscript, p.topicTranscript, ev.Kind(), ev)
}

func (p *Publisher) publish(ctx context.Context, writer messageWriter, topic, eventType string, event any) error {
	start := time.Now()

	payload, err := json.Marshal(event)
	if err != nil {
		log.Error().Err(err).Str("topic", topic).Msg("Failed to marshal event")
		return err
	}

	log.Debug().
		Str("principal", p.principal).
		Str("topic", topic).
		Str("key", p.key).
		RawJSON("payload", payload).
		Msg("Publishing event")

	if !p.enabled || writer == nil {
		p.metrics.RecordSinkPublish(sinkName, eventType, nil, time.Since(start).Seconds())
		return nil
	}

	msg := kafka.Message{
		Key:   []byte(p.key),
		Value: payload,
		Headers: []kafka.Header{
			{Key: "eventType", Value: []byte(eventType)},
			{Key: "principal", Value: []byte(p.principal)},
		},
	}

	if err := writer.WriteMessages(ctx, msg); err != nil {
		log.Error().
			Err(err).
			Str("topic", topic).
			Str("key", p.key).
			Msg("Failed to write to Kafka")
		p.metrics.RecordSinkPublish(sinkName, eventType, err, time.Since(start).Seconds())
		return err
	}

	p.metrics.RecordSinkPublish(sinkName, eventType, nil, time.Since(start).Seconds())
	return nil
}

// Close closes both Kafka writers.
func (p *Publisher) Close() error {
	var errs []error
	for _, w := range []messageWriter{p.writerSnapshot, p.writerTranscript} {
		if w == nil {
			continue
		}
		if err := w.Close(); err != nil {
			log.Error().Err(err).Msg("Error closing Kafka writer")
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
