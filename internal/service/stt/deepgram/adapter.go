// Package deepgram provides a Deepgram live transcription adapter.
package deepgram

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	api "github.com/deepgram/deepgram-go-sdk/v3/pkg/api/listen/v1/websocket/interfaces"
	"github.com/deepgram/deepgram-go-sdk/v3/pkg/client/interfaces"
	"github.com/deepgram/deepgram-go-sdk/v3/pkg/client/listen"
	"github.com/rs/zerolog"

	"live-caption-service/internal/models"
	"live-caption-service/internal/observability/logging"
	"live-caption-service/internal/observability/metrics"
	"live-caption-service/internal/service/stt"
)

const providerName = "deepgram"

// ErrConnect is returned when the websocket to Deepgram cannot be opened.
var ErrConnect = errors.New("deepgram: connect failed")

// wsClient is the part of the SDK websocket client the adapter uses.
type wsClient interface {
	Connect() bool
	WriteBinary(data []byte) error
	Stop()
}

type dialFunc func(ctx context.Context, apiKey string, opts *interfaces.LiveTranscriptionOptions, cb *handler) (wsClient, error)

func dialSDK(ctx context.Context, apiKey string, opts *interfaces.LiveTranscriptionOptions, cb *handler) (wsClient, error) {
	return listen.NewWSUsingCallback(ctx, apiKey, &interfaces.ClientOptions{EnableKeepAlive: true}, opts, cb)
}

// Adapter implements stt.Adapter over the Deepgram live websocket API.
type Adapter struct {
	apiKey string
	opts   stt.Options
	dial   dialFunc

	mu     sync.Mutex
	client wsClient
	closed bool
}

// New creates a Deepgram adapter. Start opens the connection.
func New(apiKey string, opts stt.Options) *Adapter {
	return &Adapter{apiKey: apiKey, opts: opts, dial: dialSDK}
}

// Start opens the websocket and routes provider messages to cb. The connection
// is not tied to ctx cancellation; Close ends it so trailing results still arrive.
func (a *Adapter) Start(ctx context.Context, cb stt.Callback) error {
	h := &handler{cb: cb, log: logging.WithProvider(providerName)}
	client, err := a.dial(context.WithoutCancel(ctx), a.apiKey, LiveOptions(a.opts), h)
	if err != nil {
		return fmt.Errorf("create deepgram client: %w", err)
	}
	if !client.Connect() {
		metrics.DefaultMetrics.RecordSTTError(providerName, "connect")
		return ErrConnect
	}

	a.mu.Lock()
	a.client = client
	a.mu.Unlock()

	h.log.Info().
		Str("model", a.opts.Model).
		Str("language", a.opts.LanguageCode).
		Int("sampleRate", a.opts.SampleRateHz).
		Msg("Deepgram session started")
	return nil
}

// SendAudio writes one binary frame.
func (a *Adapter) SendAudio(_ context.Context, audio []byte) error {
	a.mu.Lock()
	client, closed := a.client, a.closed
	a.mu.Unlock()

	if client == nil || closed {
		return stt.ErrNotStarted
	}
	if err := client.WriteBinary(audio); err != nil {
		metrics.DefaultMetrics.RecordSTTError(providerName, "write")
		return fmt.Errorf("write audio: %w", err)
	}
	metrics.DefaultMetrics.RecordAudioSent(len(audio))
	return nil
}

// Close stops the websocket. Idempotent.
func (a *Adapter) Close() error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.closed {
		return nil
	}
	a.closed = true
	if a.client != nil {
		a.client.Stop()
	}
	return nil
}

// LiveOptions maps the shared recognition options onto Deepgram's query options.
func LiveOptions(o stt.Options) *interfaces.LiveTranscriptionOptions {
	opts := &interfaces.LiveTranscriptionOptions{
		Model:          o.Model,
		Language:       o.LanguageCode,
		Encoding:       o.Encoding,
		SampleRate:     o.SampleRateHz,
		Channels:       o.Channels,
		Punctuate:      o.Punctuate,
		SmartFormat:    o.SmartFormat,
		InterimResults: o.InterimResults,
		VadEvents:      o.VADEvents,
		FillerWords:    o.FillerWords,
		Numerals:       o.Numerals,
	}
	if o.EndpointingMs > 0 {
		opts.Endpointing = strconv.Itoa(o.EndpointingMs)
	}
	if o.UtteranceEndMs > 0 {
		opts.UtteranceEndMs = strconv.Itoa(o.UtteranceEndMs)
	}
	if o.Tag != "" {
		opts.Tag = []string{o.Tag}
	}
	return opts
}

// handler receives SDK callbacks on the SDK's reader goroutine.
type handler struct {
	cb  stt.Callback
	log zerolog.Logger

	closeOnce sync.Once
}

// toEvent converts a Deepgram message. ok is false when it carries no alternative.
func toEvent(mr *api.MessageResponse) (models.TranscriptEvent, bool) {
	if mr == nil || len(mr.Channel.Alternatives) == 0 {
		return models.TranscriptEvent{}, false
	}
	return models.TranscriptEvent{
		Transcript:  strings.TrimSpace(mr.Channel.Alternatives[0].Transcript),
		IsFinal:     mr.IsFinal,
		SpeechFinal: mr.SpeechFinal,
		ReceivedAt:  time.Now().UnixMilli(),
	}, true
}

func (h *handler) Open(*api.OpenResponse) error {
	h.log.Debug().Msg("Deepgram connection open")
	return nil
}

func (h *handler) Message(mr *api.MessageResponse) error {
	ev, ok := toEvent(mr)
	if !ok {
		return nil
	}
	h.cb.OnTranscript(ev)
	return nil
}

func (h *handler) Metadata(*api.MetadataResponse) error {
	h.log.Debug().Msg("Deepgram metadata received")
	return nil
}

func (h *handler) SpeechStarted(*api.SpeechStartedResponse) error {
	return nil
}

func (h *handler) UtteranceEnd(*api.UtteranceEndResponse) error {
	metrics.DefaultMetrics.RecordUtterance()
	h.cb.OnUtteranceEnd()
	return nil
}

func (h *handler) Close(*api.CloseResponse) error {
	h.closeOnce.Do(h.cb.OnClose)
	return nil
}

func (h *handler) Error(er *api.ErrorResponse) error {
	metrics.DefaultMetrics.RecordSTTError(providerName, er.Type)
	h.cb.OnError(fmt.Errorf("deepgram %s: %s", er.Type, er.Description))
	return nil
}

func (h *handler) UnhandledEvent(data []byte) error {
	h.log.Warn().Bytes("data", data).Msg("Unhandled Deepgram event")
	return nil
}
