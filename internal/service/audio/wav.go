package audio

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	goaudio "github.com/go-audio/audio"
	"github.com/go-audio/wav"
)

// WAVSource reads 16-bit PCM frames from a WAV file, downmixed to mono.
type WAVSource struct {
	file    io.ReadSeekCloser
	decoder *wav.Decoder
	format  Format
	buf     *goaudio.IntBuffer

	realtime bool
	interval time.Duration
	next     time.Time
}

// OpenWAV opens path. With realtime set, Read paces frames at playback speed.
func OpenWAV(path string, frameSamples int, realtime bool) (*WAVSource, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open wav: %w", err)
	}
	src, err := NewWAVSource(f, frameSamples, realtime)
	if err != nil {
		f.Close()
		return nil, err
	}
	return src, nil
}

// NewWAVSource decodes from an already open file.
func NewWAVSource(f io.ReadSeekCloser, frameSamples int, realtime bool) (*WAVSource, error) {
	d := wav.NewDecoder(f)
	if !d.IsValidFile() {
		return nil, fmt.Errorf("%w: not a valid wav file", ErrUnsupportedFormat)
	}
	if d.BitDepth != 16 || d.WavAudioFormat != 1 {
		return nil, fmt.Errorf("%w: want 16-bit PCM, got %d-bit format %d", ErrUnsupportedFormat, d.BitDepth, d.WavAudioFormat)
	}
	if err := d.FwdToPCM(); err != nil {
		return nil, fmt.Errorf("seek to pcm: %w", err)
	}

	channels := int(d.NumChans)
	rate := int(d.SampleRate)
	return &WAVSource{
		file:    f,
		decoder: d,
		format:  Format{SampleRateHz: rate, Channels: 1},
		buf: &goaudio.IntBuffer{
			Format:         &goaudio.Format{NumChannels: channels, SampleRate: rate},
			Data:           make([]int, frameSamples*channels),
			SourceBitDepth: 16,
		},
		realtime: realtime,
		interval: time.Duration(frameSamples) * time.Second / time.Duration(rate),
	}, nil
}

// Read returns the next frame, or io.EOF at the end of the data chunk.
func (s *WAVSource) Read(ctx context.Context) ([]byte, error) {
	if s.realtime {
		if err := s.pace(ctx); err != nil {
			return nil, err
		}
	} else if err := ctx.Err(); err != nil {
		return nil, err
	}

	n, err := s.decoder.PCMBuffer(s.buf)
	if err != nil && err != io.EOF {
		return nil, fmt.Errorf("decode wav: %w", err)
	}
	if n == 0 {
		return nil, io.EOF
	}
	return PCM16LE(downmix(s.buf.Data[:n], s.buf.Format.NumChannels)), nil
}

func (s *WAVSource) pace(ctx context.Context) error {
	now := time.Now()
	if s.next.IsZero() {
		s.next = now
	}
	if wait := s.next.Sub(now); wait > 0 {
		t := time.NewTimer(wait)
		defer t.Stop()
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-t.C:
		}
	}
	s.next = s.next.Add(s.interval)
	return nil
}

func (s *WAVSource) Format() Format {
	return s.format
}

func (s *WAVSource) Close() error {
	return s.file.Close()
}
