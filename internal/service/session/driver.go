// Package session drives one live captioning session: it streams audio frames to
// the STT adapter and forwards validated transcript events to the reconciler.
package session

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"live-caption-service/internal/models"
	"live-caption-service/internal/observability/logging"
	"live-caption-service/internal/observability/metrics"
	"live-caption-service/internal/schema"
	"live-caption-service/internal/service/audio"
	"live-caption-service/internal/service/stt"
)

const (
	submitTimeout = 5 * time.Second
	// pumpDrainTimeout bounds the wait for an in-flight source Read at teardown.
	pumpDrainTimeout = 2 * time.Second
	recordQueueSize  = 256
)

// Submitter accepts transcript events in order.
type Submitter interface {
	Submit(ctx context.Context, ev models.TranscriptEvent) error
}

// TranscriptRecorder receives every accepted transcript event.
type TranscriptRecorder interface {
	PublishTranscript(ctx context.Context, ev models.TranscriptEvent) error
}

// Config identifies a session and the audio format the provider expects.
type Config struct {
	// ID defaults to a random UUID.
	ID string
	// Format is checked against the source; the zero value skips the check.
	Format audio.Format
}

// Driver manages a transcription session.
// It implements stt.Callback to receive provider results.
type Driver struct {
	adapter   stt.Adapter
	source    audio.Source
	sink      Submitter
	recorder  TranscriptRecorder
	validator *schema.Validator
	format    audio.Format

	lifecycle *Lifecycle
	log       zerolog.Logger
	metrics   *metrics.Metrics

	closed    chan struct{}
	closeOnce sync.Once

	records chan models.TranscriptEvent

	mu          sync.RWMutex
	frames      int
	audioBytes  int64
	transcripts int
	utterances  int
}

// NewDriver creates a driver for one session.
func NewDriver(cfg Config, adapter stt.Adapter, source audio.Source, sink Submitter) *Driver {
	id := cfg.ID
	if id == "" {
		id = uuid.NewString()
	}
	return &Driver{
		adapter:   adapter,
		source:    source,
		sink:      sink,
		validator: schema.New(),
		format:    cfg.Format,
		lifecycle: NewLifecycle(id),
		log:       logging.WithSession(id),
		metrics:   metrics.DefaultMetrics,
		closed:    make(chan struct{}),
		records:   make(chan models.TranscriptEvent, recordQueueSize),
	}
}

// SetRecorder sets an optional recorder for raw transcript events.
func (d *Driver) SetRecorder(rec TranscriptRecorder) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.recorder = rec
}

func (d *Driver) ID() string {
	return d.lifecycle.SessionId()
}

func (d *Driver) State() State {
	return d.lifecycle.State()
}

// Run streams audio until the source is exhausted, the provider closes the
// session or ctx is cancelled. The adapter and source are closed on return.
func (d *Driver) Run(ctx context.Context) error {
	if err := d.lifecycle.Start(); err != nil {
		return err
	}
	if d.format != (audio.Format{}) && d.source.Format() != d.format {
		d.lifecycle.Close()
		_ = d.source.Close()
		return fmt.Errorf("%w: source is %s, provider expects %s", audio.ErrUnsupportedFormat, d.source.Format(), d.format)
	}

	start := time.Now()
	d.metrics.RecordSessionStart()
	d.log.Info().Str("format", d.source.Format().String()).Msg("Session started")

	if err := d.adapter.Start(ctx, d); err != nil {
		d.lifecycle.Close()
		_ = d.source.Close()
		d.metrics.RecordSessionEnd(time.Since(start).Seconds())
		return fmt.Errorf("start stt: %w", err)
	}
	d.mu.RLock()
	rec := d.recorder
	d.mu.RUnlock()
	recordStop, recordDone := make(chan struct{}), make(chan struct{})
	if rec != nil {
		go d.recordLoop(rec, recordStop, recordDone)
	} else {
		close(recordDone)
	}
	defer func() {
		close(recordStop)
		<-recordDone
	}()

	ctx, cancel := context.WithCancel(ctx)
	frames := make(chan []byte)
	readErr := make(chan error, 1)
	pumpDone := make(chan struct{})
	go func() {
		defer close(pumpDone)
		d.pump(ctx, frames, readErr)
	}()
	defer d.teardown(start, cancel, pumpDone)

	for {
		select {
		case <-ctx.Done():
			d.log.Info().Msg("Session cancelled")
			return nil
		case <-d.closed:
			d.log.Info().Msg("Provider closed the session")
			return nil
		case err := <-readErr:
			if errors.Is(err, io.EOF) {
				d.log.Info().Msg("Audio source exhausted")
				return nil
			}
			if ctx.Err() != nil {
				return nil
			}
			return fmt.Errorf("read audio: %w", err)
		case frame := <-frames:
			if err := d.adapter.SendAudio(ctx, frame); err != nil {
				return fmt.Errorf("send audio: %w", err)
			}
			d.mu.Lock()
			d.frames++
			d.audioBytes += int64(len(frame))
			d.mu.Unlock()
		}
	}
}

// pump reads frames off the source until it fails or ctx ends.
func (d *Driver) pump(ctx context.Context, frames chan<- []byte, readErr chan<- error) {
	for {
		frame, err := d.source.Read(ctx)
		if err != nil {
			readErr <- err
			return
		}
		select {
		case frames <- frame:
		case <-ctx.Done():
			return
		}
	}
}

// teardown stops the pump, closes the adapter and then the source. The source is
// only closed once no Read is in flight, unless the read outlasts pumpDrainTimeout.
func (d *Driver) teardown(start time.Time, stopPump context.CancelFunc, pumpDone <-chan struct{}) {
	d.lifecycle.Stop()
	stopPump()

	if err := d.adapter.Close(); err != nil {
		d.log.Warn().Err(err).Msg("Error closing STT adapter")
	}

	select {
	case <-pumpDone:
	case <-time.After(pumpDrainTimeout):
		d.log.Warn().Dur("timeout", pumpDrainTimeout).Msg("Audio read still blocked; closing source anyway")
	}
	if err := d.source.Close(); err != nil {
		d.log.Warn().Err(err).Msg("Error closing audio source")
	}
	d.lifecycle.Close()

	duration := time.Since(start)
	d.metrics.RecordSessionEnd(duration.Seconds())

	stats := d.Stats()
	d.log.Info().
		Int("frames", stats.Frames).
		Int64("audioBytes", stats.AudioBytes).
		Int("transcripts", stats.Transcripts).
		Int("utterances", stats.Utterances).
		Dur("duration", duration.Round(time.Millisecond)).
		Msg("Session closed")
}

// Stats holds session counters for observability.
type Stats struct {
	Frames      int
	AudioBytes  int64
	Transcripts int
	Utterances  int
}

func (d *Driver) Stats() Stats {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return Stats{
		Frames:      d.frames,
		AudioBytes:  d.audioBytes,
		Transcripts: d.transcripts,
		Utterances:  d.utterances,
	}
}

// --- stt.Callback implementation ---

// OnTranscript validates the event and hands it to the reconciler.
func (d *Driver) OnTranscript(ev models.TranscriptEvent) {
	if !d.lifecycle.AcceptsResults() {
		d.metrics.RecordTranscriptIgnored("closed")
		return
	}
	ev, err := d.validator.Validate(ev)
	if err != nil {
		d.metrics.RecordTranscriptIgnored(schema.Reason(err))
		return
	}

	d.mu.Lock()
	d.transcripts++
	rec := d.recorder
	d.mu.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), submitTimeout)
	defer cancel()

	if err := d.sink.Submit(ctx, ev); err != nil {
		d.log.Warn().Err(err).Str("kind", ev.Kind()).Msg("Transcript dropped")
	}
	if rec != nil {
		d.recordAsync(ev)
	}
}

// recordAsync queues the event for the recorder so that a slow recorder never
// holds up the provider's callback goroutine.
func (d *Driver) recordAsync(ev models.TranscriptEvent) {
	select {
	case d.records <- ev:
	default:
		d.metrics.RecordTranscriptIgnored("record_backlog")
		d.log.Warn().Str("kind", ev.Kind()).Msg("Transcript recorder backlogged; record dropped")
	}
}

// recordLoop writes queued events in order until stop is closed, then flushes what is left.
func (d *Driver) recordLoop(rec TranscriptRecorder, stop <-chan struct{}, done chan<- struct{}) {
	defer close(done)
	write := func(ev models.TranscriptEvent) {
		ctx, cancel := context.WithTimeout(context.Background(), submitTimeout)
		defer cancel()
		if err := rec.PublishTranscript(ctx, ev); err != nil {
			d.log.Warn().Err(err).Msg("Failed to record transcript")
		}
	}
	for {
		select {
		case ev := <-d.records:
			write(ev)
		case <-stop:
			for {
				select {
				case ev := <-d.records:
					write(ev)
				default:
					return
				}
			}
		}
	}
}

// OnUtteranceEnd counts speech boundaries. Sentence assembly does not depend on them.
func (d *Driver) OnUtteranceEnd() {
	d.mu.Lock()
	d.utterances++
	n := d.utterances
	d.mu.Unlock()
	d.log.Debug().Int("utterance", n).Msg("End of utterance")
}

// OnError logs a provider error. The session keeps running until the provider closes it.
func (d *Driver) OnError(err error) {
	d.log.Error().Err(err).Str("state", d.lifecycle.State().String()).Msg("STT error")
}

// OnClose ends Run.
func (d *Driver) OnClose() {
	d.closeOnce.Do(func() { close(d.closed) })
}
