// Package google provides a Google Cloud Speech-to-Text adapter.
package google

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	speech "cloud.google.com/go/speech/apiv1"
	"cloud.google.com/go/speech/apiv1/speechpb"
	"github.com/rs/zerolog"

	"live-caption-service/internal/models"
	"live-caption-service/internal/observability/logging"
	"live-caption-service/internal/observability/metrics"
	"live-caption-service/internal/service/stt"
)

const providerName = "google"

// Config holds Google STT configuration.
type Config struct {
	LanguageCode   string
	SampleRateHz   int32
	InterimResults bool
	AudioEncoding  string
	Model          string
}

// DefaultConfig returns the Google equivalent of stt.DefaultOptions.
func DefaultConfig() Config {
	return ConfigFromOptions(stt.DefaultOptions())
}

// ConfigFromOptions maps shared options onto Google settings. Deepgram model
// names have no Google equivalent, so the provider default model is used.
func ConfigFromOptions(o stt.Options) Config {
	return Config{
		LanguageCode:   o.LanguageCode,
		SampleRateHz:   int32(o.SampleRateHz),
		InterimResults: o.InterimResults,
		AudioEncoding:  strings.ToUpper(o.Encoding),
	}
}

// drainTimeout bounds how long Close waits for the results of audio already sent.
const drainTimeout = 3 * time.Second

// recognizeStream is the part of the streaming client the adapter uses.
type recognizeStream interface {
	Send(*speechpb.StreamingRecognizeRequest) error
	Recv() (*speechpb.StreamingRecognizeResponse, error)
	CloseSend() error
}

// Adapter implements stt.Adapter using Google Cloud Speech-to-Text.
type Adapter struct {
	open        func(ctx context.Context) (recognizeStream, error)
	closeClient func() error
	cfg         Config
	log         zerolog.Logger

	mu         sync.Mutex
	stream     recognizeStream
	cancel     context.CancelFunc
	listenDone chan struct{}
	closed     bool
}

// New creates a new Google STT adapter.
// Requires GOOGLE_APPLICATION_CREDENTIALS environment variable to be set.
func New(ctx context.Context, cfg Config) (*Adapter, error) {
	c, err := speech.NewClient(ctx)
	if err != nil {
		return nil, fmt.Errorf("create speech client: %w", err)
	}
	return &Adapter{
		open: func(ctx context.Context) (recognizeStream, error) {
			return c.StreamingRecognize(ctx)
		},
		closeClient: c.Close,
		cfg:         cfg,
		log:         logging.WithProvider(providerName),
	}, nil
}

// Start opens a streaming recognition session, sends the config and starts receiving.
// The stream outlives ctx cancellation so that Close can still collect final results.
func (a *Adapter) Start(ctx context.Context, cb stt.Callback) error {
	streamCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	stream, err := a.open(streamCtx)
	if err != nil {
		cancel()
		metrics.DefaultMetrics.RecordSTTError(providerName, "connect")
		return fmt.Errorf("open stream: %w", err)
	}

	if err := stream.Send(streamingConfig(a.cfg)); err != nil {
		cancel()
		return fmt.Errorf("send streaming config: %w", err)
	}

	done := make(chan struct{})
	a.mu.Lock()
	a.stream = stream
	a.cancel = cancel
	a.listenDone = done
	a.mu.Unlock()

	a.log.Info().
		Str("language", a.cfg.LanguageCode).
		Int32("sampleRate", a.cfg.SampleRateHz).
		Msg("Google STT session started")

	go func() {
		defer close(done)
		a.listen(stream, cb)
	}()
	return nil
}

// SendAudio sends audio bytes to Google Speech-to-Text.
func (a *Adapter) SendAudio(_ context.Context, audio []byte) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.stream == nil || a.closed {
		return stt.ErrNotStarted
	}
	err := a.stream.Send(&speechpb.StreamingRecognizeRequest{
		StreamingRequest: &speechpb.StreamingRecognizeRequest_AudioContent{
			AudioContent: audio,
		},
	})
	if err != nil {
		metrics.DefaultMetrics.RecordSTTError(providerName, "write")
		return fmt.Errorf("send audio: %w", err)
	}
	metrics.DefaultMetrics.RecordAudioSent(len(audio))
	return nil
}

// Close half-closes the stream, waits up to drainTimeout for the remaining
// results and releases the client. Idempotent.
func (a *Adapter) Close() error {
	a.mu.Lock()
	if a.closed {
		a.mu.Unlock()
		return nil
	}
	a.closed = true
	stream, cancel, done := a.stream, a.cancel, a.listenDone
	a.mu.Unlock()

	var errs []error
	if stream != nil {
		errs = append(errs, stream.CloseSend())
		select {
		case <-done:
		case <-time.After(drainTimeout):
			a.log.Warn().Dur("timeout", drainTimeout).Msg("Gave up waiting for final results")
		}
	}
	if cancel != nil {
		cancel()
	}
	if a.closeClient != nil {
		errs = append(errs, a.closeClient())
	}
	return errors.Join(errs...)
}

// listen receives responses until the stream ends, then reports OnClose.
func (a *Adapter) listen(stream recognizeStream, cb stt.Callback) {
	defer cb.OnClose()
	for {
		resp, err := stream.Recv()
		if err == io.EOF {
			return
		}
		if err != nil {
			a.mu.Lock()
			closed := a.closed
			a.mu.Unlock()
			if !closed {
				metrics.DefaultMetrics.RecordSTTError(providerName, "recv")
				cb.OnError(err)
			}
			return
		}
		dispatch(resp, cb)
	}
}

// dispatch forwards the first alternative of each result.
func dispatch(resp *speechpb.StreamingRecognizeResponse, cb stt.Callback) {
	now := time.Now().UnixMilli()
	for _, r := range resp.GetResults() {
		if len(r.GetAlternatives()) == 0 {
			continue
		}
		cb.OnTranscript(models.TranscriptEvent{
			Transcript:  strings.TrimSpace(r.GetAlternatives()[0].GetTranscript()),
			IsFinal:     r.GetIsFinal(),
			SpeechFinal: r.GetIsFinal(),
			ReceivedAt:  now,
		})
	}
	if resp.GetSpeechEventType() == speechpb.StreamingRecognizeResponse_END_OF_SINGLE_UTTERANCE {
		metrics.DefaultMetrics.RecordUtterance()
		cb.OnUtteranceEnd()
	}
}

func streamingConfig(cfg Config) *speechpb.StreamingRecognizeRequest {
	return &speechpb.StreamingRecognizeRequest{
		StreamingRequest: &speechpb.StreamingRecognizeRequest_StreamingConfig{
			StreamingConfig: &speechpb.StreamingRecognitionConfig{
				Config: &speechpb.RecognitionConfig{
					Encoding:                   parseAudioEncoding(cfg.AudioEncoding),
					SampleRateHertz:            cfg.SampleRateHz,
					LanguageCode:               cfg.LanguageCode,
					Model:                      cfg.Model,
					EnableAutomaticPunctuation: true,
				},
				InterimResults: cfg.InterimResults,
			},
		},
	}
}

// parseAudioEncoding maps an encoding name to the protobuf enum. Unknown names
// fall back to LINEAR16.
func parseAudioEncoding(name string) speechpb.RecognitionConfig_AudioEncoding {
	if v, ok := speechpb.RecognitionConfig_AudioEncoding_value[name]; ok && v != 0 {
		return speechpb.RecognitionConfig_AudioEncoding(v)
	}
	return speechpb.RecognitionConfig_LINEAR16
}
