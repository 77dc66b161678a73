// Package audio provides the audio sources that feed a transcription session.
package audio

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
)

// ErrUnsupportedFormat is returned for audio that is not 16-bit PCM.
var ErrUnsupportedFormat = errors.New("unsupported audio format")

// Format describes little-endian signed 16-bit PCM.
type Format struct {
	SampleRateHz int
	Channels     int
}

// FrameBytes returns the byte size of a frame holding samples per channel.
func (f Format) FrameBytes(samples int) int {
	return samples * f.Channels * 2
}

func (f Format) String() string {
	return fmt.Sprintf("%dHz/%dch/s16le", f.SampleRateHz, f.Channels)
}

// Source yields fixed-size frames of PCM audio. Read returns io.EOF after the
// last frame. Implementations need not be safe for concurrent Read calls.
type Source interface {
	Read(ctx context.Context) ([]byte, error)
	Format() Format
	Close() error
}

// PCM16LE encodes samples as little-endian bytes.
func PCM16LE(samples []int16) []byte {
	out := make([]byte, len(samples)*2)
	for i, s := range samples {
		binary.LittleEndian.PutUint16(out[i*2:], uint16(s))
	}
	return out
}

// downmix averages interleaved channels into mono 16-bit samples.
func downmix(data []int, channels int) []int16 {
	if channels <= 1 {
		out := make([]int16, len(data))
		for i, v := range data {
			out[i] = int16(v)
		}
		return out
	}
	out := make([]int16, len(data)/channels)
	for i := range out {
		sum := 0
		for c := 0; c < channels; c++ {
			sum += data[i*channels+c]
		}
		out[i] = int16(sum / channels)
	}
	return out
}
