package events

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/segmentio/kafka-go"

	"live-caption-service/internal/models"
	"live-caption-service/internal/observability/metrics"
)

type fakeWriter struct {
	msgs   []kafka.Message
	err    error
	closed bool
}

func (f *fakeWriter) WriteMessages(_ context.Context, msgs ...kafka.Message) error {
	if f.err != nil {
		return f.err
	}
	f.msgs = append(f.msgs, msgs...)
	return nil
}

func (f *fakeWriter) Close() error {
	f.closed = true
	return nil
}

func TestNew_DisabledMode(t *testing.T) {
	tests := []struct {
		name string
		cfg  *Config
	}{
		{"nil config", nil},
		{"disabled", &Config{Enabled: false, Brokers: []string{"localhost:9092"}}},
		{"no brokers", &Config{Enabled: true, Brokers: []string{}}},
		{"empty brokers", &Config{Enabled: true, Brokers: nil}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := New(tt.cfg)
			if p == nil {
				t.Fatal("expected non-nil publisher")
			}
			if p.enabled {
				t.Error("expected publisher to be disabled")
			}
			if p.writerSnapshot != nil || p.writerTranscript != nil {
				t.Error("expected nil writers when disabled")
			}
		})
	}
}

func TestNew_ConfigValues(t *testing.T) {
	p := New(&Config{
		Enabled:         false,
		Brokers:         []string{"localhost:9092"},
		TopicSnapshot:   "captions.snapshot",
		TopicTranscript: "captions.transcript",
		Principal:       "live-caption-service",
		Key:             "session-1",
	})

	if p.principal != "live-caption-service" {
		t.Errorf("expected principal 'live-caption-service', got %s", p.principal)
	}
	if p.topicSnapshot != "captions.snapshot" || p.topicTranscript != "captions.transcript" {
		t.Errorf("unexpected topics %s, %s", p.topicSnapshot, p.topicTranscript)
	}
	if p.key != "session-1" {
		t.Errorf("expected key 'session-1', got %s", p.key)
	}
	if p.Name() != "kafka" {
		t.Errorf("expected sink name 'kafka', got %s", p.Name())
	}
}

func TestPublisher_Disabled(t *testing.T) {
	p := New(&Config{Enabled: false})

	if err := p.Publish(context.Background(), models.EmptySnapshot()); err != nil {
		t.Errorf("expected no error when disabled, got %v", err)
	}
	if err := p.PublishTranscript(context.Background(), models.TranscriptEvent{Transcript: "hi"}); err != nil {
		t.Errorf("expected no error when disabled, got %v", err)
	}
	if err := p.Close(); err != nil {
		t.Errorf("expected no error closing disabled publisher, got %v", err)
	}
}

func TestPublisher_WritesSnapshot(t *testing.T) {
	w := &fakeWriter{}
	p := &Publisher{
		writerSnapshot: w,
		topicSnapshot:  "captions.snapshot",
		principal:      "svc",
		key:            "session-1",
		enabled:        true,
		metrics:        metrics.DefaultMetrics,
	}

	snap := models.EmptySnapshot()
	snap.Sentences = append(snap.Sentences, models.SentenceView{Sentence: "Hello."})
	if err := p.Publish(context.Background(), snap); err != nil {
		t.Fatalf("Publish: %v", err)
	}

	if len(w.msgs) != 1 {
		t.Fatalf("expected 1 message, got %d", len(w.msgs))
	}
	msg := w.msgs[0]
	if string(msg.Key) != "session-1" {
		t.Errorf("key = %s", msg.Key)
	}
	var got models.Snapshot
	if err := json.Unmarshal(msg.Value, &got); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if len(got.Sentences) != 1 || got.Sentences[0].Sentence != "Hello." {
		t.Errorf("payload = %s", msg.Value)
	}
	headers := map[string]string{}
	for _, h := range msg.Headers {
		headers[h.Key] = string(h.Value)
	}
	if headers["eventType"] != "snapshot" || headers["principal"] != "svc" {
		t.Errorf("headers = %v", headers)
	}
}

func TestPublisher_WriteError(t *testing.T) {
	w := &fakeWriter{err: errors.New("broker down")}
	p := &Publisher{writerTranscript: w, enabled: true, metrics: metrics.DefaultMetrics}

	err := p.PublishTranscript(context.Background(), models.TranscriptEvent{Transcript: "hi", IsFinal: true})
	if err == nil {
		t.Fatal("expected write error")
	}
}

func TestPublisher_Close(t *testing.T) {
	a, b := &fakeWriter{}, &fakeWriter{}
	p := &Publisher{writerSnapshot: a, writerTranscript: b}

	if err := p.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if !a.closed || !b.closed {
		t.Error("expected both writers closed")
	}
}
