package audio

import (
	"context"
	"errors"
	"io"
)

// ReaderSource frames raw PCM read from an io.Reader such as stdin.
type ReaderSource struct {
	r      io.Reader
	format Format
	frame  int
}

// NewReaderSource reads frames of frameSamples samples per channel from r.
func NewReaderSource(r io.Reader, format Format, frameSamples int) *ReaderSource {
	return &ReaderSource{r: r, format: format, frame: format.FrameBytes(frameSamples)}
}

// Read returns the next frame. The last frame may be short.
func (s *ReaderSource) Read(ctx context.Context) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	buf := make([]byte, s.frame)
	n, err := io.ReadFull(s.r, buf)
	if n > 0 && (err == nil || errors.Is(err, io.ErrUnexpectedEOF)) {
		return buf[:n], nil
	}
	if errors.Is(err, io.ErrUnexpectedEOF) {
		return nil, io.EOF
	}
	return nil, err
}

func (s *ReaderSource) Format() Format {
	return s.format
}

// Close closes the reader if it is an io.Closer.
func (s *ReaderSource) Close() error {
	if c, ok := s.r.(io.Closer); ok {
		return c.Close()
	}
	return nil
}
