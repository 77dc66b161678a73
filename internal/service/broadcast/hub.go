// Package broadcast fans snapshots out to connected subscribers.
package broadcast

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/rs/zerolog"

	"live-caption-service/internal/models"
	"live-caption-service/internal/observability/logging"
	"live-caption-service/internal/observability/metrics"
)

// Subscriber receives serialized snapshots.
type Subscriber interface {
	Send(payload []byte) error
	Close() error
}

// Hub tracks subscribers and remembers the last snapshot sent.
// A subscriber whose Send fails is removed and closed.
type Hub struct {
	mu     sync.Mutex
	subs   map[uint64]Subscriber
	nextID uint64
	latest []byte

	log     zerolog.Logger
	metrics *metrics.Metrics
}

func NewHub() *Hub {
	return &Hub{
		subs:    make(map[uint64]Subscriber),
		log:     logging.WithComponent("broadcast"),
		metrics: metrics.DefaultMetrics,
	}
}

// Name identifies the hub as a snapshot sink.
func (h *Hub) Name() string {
	return "websocket"
}

// Subscribe registers sub and immediately sends it the current state.
func (h *Hub) Subscribe(sub Subscriber) (uint64, error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	payload := h.latest
	if payload == nil {
		var err error
		if payload, err = json.Marshal(models.EmptySnapshot()); err != nil {
			return 0, fmt.Errorf("marshal empty snapshot: %w", err)
		}
	}
	if err := sub.Send(payload); err != nil {
		_ = sub.Close()
		return 0, fmt.Errorf("send initial snapshot: %w", err)
	}

	h.nextID++
	id := h.nextID
	h.subs[id] = sub
	h.metrics.SetSubscribers(len(h.subs))
	h.log.Info().Uint64("subscriberId", id).Int("total", len(h.subs)).Msg("Subscriber connected")
	return id, nil
}

// Unsubscribe removes and closes a subscriber. Unknown ids are ignored.
func (h *Hub) Unsubscribe(id uint64) {
	h.mu.Lock()
	defer h.mu.Unlock()

	sub, ok := h.subs[id]
	if !ok {
		return
	}
	delete(h.subs, id)
	_ = sub.Close()
	h.metrics.SetSubscribers(len(h.subs))
	h.log.Info().Uint64("subscriberId", id).Int("total", len(h.subs)).Msg("Subscriber disconnected")
}

// Publish sends snap to every subscriber. Failed subscribers are pruned.
func (h *Hub) Publish(_ context.Context, snap models.Snapshot) error {
	payload, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("marshal snapshot: %w", err)
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	h.latest = payload
	for id, sub := range h.subs {
		if err := sub.Send(payload); err != nil {
			h.log.Warn().Err(err).Uint64("subscriberId", id).Msg("Dropping subscriber")
			delete(h.subs, id)
			_ = sub.Close()
			h.metrics.RecordSubscriberPruned()
		}
	}
	h.metrics.SetSubscribers(len(h.subs))
	return nil
}

// Latest returns the last published payload, or nil before the first publish.
func (h *Hub) Latest() []byte {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.latest
}

func (h *Hub) Len() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.subs)
}

// Close disconnects every subscriber. Upgraded connections are not tracked by
// http.Server.Shutdown, so they have to be closed here.
func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()

	for id, sub := range h.subs {
		_ = sub.Close()
		delete(h.subs, id)
	}
	h.metrics.SetSubscribers(0)
}
