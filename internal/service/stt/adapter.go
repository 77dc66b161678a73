// Package stt defines the interface for Speech-to-Text adapters.
package stt

import (
	"context"
	"errors"

	"live-caption-service/internal/models"
)

// ErrNotStarted is returned when audio is sent before Start.
var ErrNotStarted = errors.New("stt session not started")

// Callback receives results from the STT provider.
type Callback interface {
	// OnTranscript is called for every interim or final transcript.
	OnTranscript(ev models.TranscriptEvent)

	// OnUtteranceEnd is called when the provider detects the end of speech.
	OnUtteranceEnd()

	// OnError is called when the provider reports an error. The session may continue.
	OnError(err error)

	// OnClose is called once when the provider session ends.
	OnClose()
}

// Adapter defines the interface for STT providers (Deepgram, Google, mock).
type Adapter interface {
	// Start begins a streaming transcription session.
	Start(ctx context.Context, cb Callback) error

	// SendAudio sends audio bytes to the STT provider.
	SendAudio(ctx context.Context, audio []byte) error

	// Close ends the session and releases resources.
	Close() error
}

// Options is the recognition configuration shared by providers.
type Options struct {
	Model          string
	LanguageCode   string
	Encoding       string
	SampleRateHz   int
	Channels       int
	Punctuate      bool
	SmartFormat    bool
	InterimResults bool
	VADEvents      bool
	FillerWords    bool
	Numerals       bool
	EndpointingMs  int
	UtteranceEndMs int
	Tag            string
}

// DefaultOptions returns the session configuration used for live captions.
func DefaultOptions() Options {
	return Options{
		Model:          "nova-3",
		LanguageCode:   "en-GB",
		Encoding:       "linear16",
		SampleRateHz:   16000,
		Channels:       1,
		Punctuate:      true,
		SmartFormat:    true,
		InterimResults: true,
		VADEvents:      true,
		FillerWords:    true,
		Numerals:       true,
		EndpointingMs:  1500,
		UtteranceEndMs: 5000,
		Tag:            "accuracy",
	}
}
