// Package mic captures microphone audio through PortAudio.
package mic

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/gordonklaus/portaudio"

	"live-caption-service/internal/service/audio"
)

// Config selects the capture device and framing.
type Config struct {
	// DeviceIndex picks an entry from portaudio.Devices; negative means the default input.
	DeviceIndex  int
	SampleRateHz int
	FrameSamples int
}

// ErrClosed is returned by Read after Close.
var ErrClosed = errors.New("microphone closed")

// Source reads mono 16-bit frames from an input device.
// mu is held for the whole of a Read, so Close never tears the stream down
// under a blocking read on another thread.
type Source struct {
	mu     sync.Mutex
	stream *portaudio.Stream
	buf    []int16
	format audio.Format

	closed   bool
	closeErr error
}

// Open initializes PortAudio and starts capturing. Close releases both.
func Open(cfg Config) (*Source, error) {
	if err := portaudio.Initialize(); err != nil {
		return nil, fmt.Errorf("initialize portaudio: %w", err)
	}

	device, err := inputDevice(cfg.DeviceIndex)
	if err != nil {
		portaudio.Terminate()
		return nil, err
	}

	params := portaudio.LowLatencyParameters(device, nil)
	params.Input.Channels = 1
	params.SampleRate = float64(cfg.SampleRateHz)
	params.FramesPerBuffer = cfg.FrameSamples

	buf := make([]int16, cfg.FrameSamples)
	stream, err := portaudio.OpenStream(params, buf)
	if err != nil {
		portaudio.Terminate()
		return nil, fmt.Errorf("open stream on %s: %w", device.Name, err)
	}
	if err := stream.Start(); err != nil {
		stream.Close()
		portaudio.Terminate()
		return nil, fmt.Errorf("start stream: %w", err)
	}

	return &Source{
		stream: stream,
		buf:    buf,
		format: audio.Format{SampleRateHz: cfg.SampleRateHz, Channels: 1},
	}, nil
}

func inputDevice(index int) (*portaudio.DeviceInfo, error) {
	if index < 0 {
		device, err := portaudio.DefaultInputDevice()
		if err != nil {
			return nil, fmt.Errorf("default input device: %w", err)
		}
		return device, nil
	}
	devices, err := portaudio.Devices()
	if err != nil {
		return nil, fmt.Errorf("list devices: %w", err)
	}
	if index >= len(devices) {
		return nil, fmt.Errorf("device index %d out of range (%d devices)", index, len(devices))
	}
	return devices[index], nil
}

// Read blocks until a full frame has been captured.
func (s *Source) Read(ctx context.Context) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil, ErrClosed
	}
	if err := s.stream.Read(); err != nil {
		// Overflow only means frames were dropped while we were busy.
		if err != portaudio.InputOverflowed {
			return nil, fmt.Errorf("read microphone: %w", err)
		}
	}
	return audio.PCM16LE(s.buf), nil
}

func (s *Source) Format() audio.Format {
	return s.format
}

// Close waits for an in-flight Read, stops capture and terminates PortAudio. Idempotent.
func (s *Source) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return s.closeErr
	}
	s.closed = true
	s.closeErr = errors.Join(s.stream.Stop(), s.stream.Close(), portaudio.Terminate())
	return s.closeErr
}

// Devices lists input-capable devices as "index: name" for the CLI.
func Devices() ([]string, error) {
	if err := portaudio.Initialize(); err != nil {
		return nil, fmt.Errorf("initialize portaudio: %w", err)
	}
	defer portaudio.Terminate()

	devices, err := portaudio.Devices()
	if err != nil {
		return nil, fmt.Errorf("list devices: %w", err)
	}
	var out []string
	for i, d := range devices {
		if d.MaxInputChannels > 0 {
			out = append(out, fmt.Sprintf("%d: %s", i, d.Name))
		}
	}
	return out, nil
}
