// Transcript viewer replays caption snapshots from Kafka to browser overlays.
// It serves the same subscriber channel as the service, fed from the snapshot topic.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"net/http"
	"os/signal"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/segmentio/kafka-go"

	httpapi "live-caption-service/internal/http"
	"live-caption-service/internal/models"
	"live-caption-service/internal/observability/logging"
	"live-caption-service/internal/service/broadcast"
)

type messageReader interface {
	ReadMessage(ctx context.Context) (kafka.Message, error)
}

// latest remembers the last snapshot consumed.
type latest struct {
	mu   sync.Mutex
	snap models.Snapshot
}

func (l *latest) set(snap models.Snapshot) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.snap = snap
}

func (l *latest) Snapshot(context.Context) (models.Snapshot, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.snap.Type == "" {
		return models.EmptySnapshot(), nil
	}
	return l.snap, nil
}

// consume forwards snapshots from r to hub until ctx is cancelled.
func consume(ctx context.Context, r messageReader, hub *broadcast.Hub, state *latest) {
	for {
		msg, err := r.ReadMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			log.Warn().Err(err).Msg("Kafka read error")
			select {
			case <-ctx.Done():
				return
			case <-time.After(time.Second):
			}
			continue
		}

		var snap models.Snapshot
		if err := json.Unmarshal(msg.Value, &snap); err != nil || snap.Type != models.SnapshotType {
			log.Warn().Err(err).Str("key", string(msg.Key)).Msg("Skipping message that is not a snapshot")
			continue
		}

		state.set(snap)
		if err := hub.Publish(ctx, snap); err != nil {
			log.Warn().Err(err).Msg("Broadcast failed")
			continue
		}
		log.Debug().
			Str("session", string(msg.Key)).
			Int("sentences", len(snap.Sentences)).
			Int("interim", len(snap.Interim)).
			Msg("Snapshot relayed")
	}
}

func main() {
	addr := flag.String("addr", ":8081", "HTTP listen address")
	brokers := flag.String("brokers", "localhost:9092", "Kafka brokers (comma-separated)")
	topic := flag.String("topic", "captions.snapshot", "Snapshot topic")
	since := flag.Duration("since", time.Hour, "Replay snapshots newer than this")
	flag.Parse()

	cfg := logging.DefaultConfig()
	cfg.Format = "console"
	logging.Init(cfg)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Partition reader without a consumer group works through port-forwards.
	reader := kafka.NewReader(kafka.ReaderConfig{
		Brokers:   strings.Split(*brokers, ","),
		Topic:     *topic,
		Partition: 0,
		MinBytes:  1,
		MaxBytes:  10e6,
	})
	defer reader.Close()

	if err := reader.SetOffsetAt(ctx, time.Now().Add(-*since)); err != nil {
		log.Warn().Err(err).Msg("Could not seek; reading from the committed offset")
	}

	hub := broadcast.NewHub()
	state := &latest{}
	go consume(ctx, reader, hub, state)

	server := &http.Server{
		Addr:              *addr,
		Handler:           httpapi.NewRouter(httpapi.Deps{Hub: hub, Snapshots: state}),
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		<-ctx.Done()
		hub.Close()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = server.Shutdown(shutdownCtx)
	}()

	log.Info().Str("addr", *addr).Str("brokers", *brokers).Str("topic", *topic).Msg("Transcript viewer starting")
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Fatal().Err(err).Msg("Server error")
	}
}
