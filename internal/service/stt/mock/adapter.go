// Package mock provides a scripted STT adapter for running without provider credentials.
// Each audio frame advances the script by one step: the interim transcripts of an
// utterance, then its final transcript, then the utterance end.
package mock

import (
	"context"
	"sync"
	"time"

	"live-caption-service/internal/models"
	"live-caption-service/internal/service/stt"
)

// Utterance is one scripted stretch of speech.
type Utterance struct {
	Interims []string // progressively longer interim transcripts
	Final    string
}

// DefaultUtterances is a short talk that exercises merging and splitting.
var DefaultUtterances = []Utterance{
	{
		Interims: []string{"Good", "Good morning", "Good morning everyone"},
		Final:    "Good morning everyone.",
	},
	{
		Interims: []string{"Today", "Today we will", "Today we will look at"},
		Final:    "Today we will look at",
	},
	{
		Interims: []string{"how the", "how the captions are"},
		Final:    "how the captions are built. Let's begin",
	},
	{
		Interims: []string{"I think", "I think so"},
		Final:    "I think so. Yes",
	},
	{
		Interims: []string{"Thank you"},
		Final:    "Thank you very much!",
	},
}

type step int

const (
	stepInterim step = iota
	stepFinal
	stepEnd
)

// Adapter implements stt.Adapter. Callbacks run on the goroutine calling SendAudio or Close.
type Adapter struct {
	mu     sync.Mutex
	cb     stt.Callback
	script []Utterance
	loop   bool

	utterance int
	interim   int
	next      step
	closed    bool
}

// New creates an adapter that plays DefaultUtterances in a loop.
func New() *Adapter {
	return &Adapter{script: DefaultUtterances, loop: true}
}

// NewScript creates an adapter that plays utterances once and then closes the session.
func NewScript(utterances ...Utterance) *Adapter {
	return &Adapter{script: utterances}
}

// Start begins a mock transcription session.
func (a *Adapter) Start(_ context.Context, cb stt.Callback) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.cb = cb
	return nil
}

// SendAudio advances the script by one step.
func (a *Adapter) SendAudio(_ context.Context, _ []byte) error {
	a.mu.Lock()
	if a.closed || a.cb == nil {
		a.mu.Unlock()
		return nil
	}
	emit := a.advance()
	a.mu.Unlock()

	emit()
	return nil
}

// advance moves the script forward and returns the callback to run outside the lock.
func (a *Adapter) advance() func() {
	cb := a.cb
	if a.utterance >= len(a.script) {
		a.closed = true
		return cb.OnClose
	}
	utt := a.script[a.utterance]

	switch a.next {
	case stepInterim:
		if a.interim < len(utt.Interims) {
			text := utt.Interims[a.interim]
			a.interim++
			return func() { cb.OnTranscript(event(text, false)) }
		}
		a.next = stepFinal
		return a.advance()
	case stepFinal:
		a.next = stepEnd
		return func() { cb.OnTranscript(event(utt.Final, true)) }
	default:
		a.next = stepInterim
		a.interim = 0
		a.utterance++
		if a.loop && a.utterance >= len(a.script) {
			a.utterance = 0
		}
		return cb.OnUtteranceEnd
	}
}

// Close ends the session. A started utterance is finalized first.
func (a *Adapter) Close() error {
	a.mu.Lock()
	if a.closed {
		a.mu.Unlock()
		return nil
	}
	a.closed = true
	cb := a.cb
	var pending string
	if a.utterance < len(a.script) && (a.interim > 0 || a.next == stepFinal) {
		pending = a.script[a.utterance].Final
	}
	a.mu.Unlock()

	if cb == nil {
		return nil
	}
	if pending != "" {
		cb.OnTranscript(event(pending, true))
	}
	cb.OnClose()
	return nil
}

func event(text string, final bool) models.TranscriptEvent {
	return models.TranscriptEvent{
		Transcript:  text,
		IsFinal:     final,
		SpeechFinal: final,
		ReceivedAt:  time.Now().UnixMilli(),
	}
}
