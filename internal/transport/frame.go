package transport

import (
	"context"
	"io"
	"time"
)

// Encoding is taken from the channel a frame arrived on, never from its content.
type Encoding uint8

const (
	_encoding_beg Encoding = iota
	EncodingBinary
	EncodingText
	_encoding_end
)

func (e Encoding) IsAvailable() bool {
	return e > _encoding_beg && e < _encoding_end
}

func (e Encoding) String() string {
	switch e {
	case EncodingBinary:
		return "binary"
	case EncodingText:
		return "text"
	default:
		return "unknown"
	}
}

// ParseEncoding accepts "binary" (alias "msgpack") and "text".
func ParseEncoding(s string) (Encoding, bool) {
	switch s {
	case "binary", "msgpack":
		return EncodingBinary, true
	case "text":
		return EncodingText, true
	default:
		return _encoding_beg, false
	}
}

// Frame is one unit of wire data holding exactly one event.
type Frame struct {
	Encoding   Encoding
	Channel    string
	Seq        uint64
	Payload    []byte
	ReceivedAt time.Time
}

// Source yields frames in delivery order. Next returns io.EOF once exhausted.
type Source interface {
	Next(ctx context.Context) (Frame, error)
}

// SliceSource replays a fixed list of frames.
type SliceSource struct {
	frames []Frame
	pos    int
}

func NewSliceSource(frames ...Frame) *SliceSource {
	return &SliceSource{frames: frames}
}

func (s *SliceSource) Next(ctx context.Context) (Frame, error) {
	if err := ctx.Err(); err != nil {
		return Frame{}, err
	}
	if s.pos >= len(s.frames) {
		return Frame{}, io.EOF
	}
	f := s.frames[s.pos]
	s.pos++
	return f, nil
}
