package recorder

import (
	"bufio"
	"encoding/binary"
	"errors"
	"io"

	"execgate/internal/transport"
)

var ErrChecksumMismatch = errors.New("recorder: checksum mismatch")

// ReaderOptions controls record decoding.
type ReaderOptions struct {
	DisableChecksum bool
	MaxPayloadSize  int
}

// Reader decodes recorded frames sequentially.
type Reader struct {
	r         *bufio.Reader
	opts      ReaderOptions
	headerBuf []byte
	channel   []byte
	payload   []byte
}

// NewReader wraps an io.Reader with record decoding.
func NewReader(r io.Reader, opts ReaderOptions) *Reader {
	return &Reader{
		r:         bufio.NewReader(r),
		opts:      opts,
		headerBuf: make([]byte, recordHeaderSize),
	}
}

// Next returns the next recorded frame.
// The frame payload is only valid until the next call to Next.
func (r *Reader) Next() (transport.Frame, error) {
	n, err := io.ReadFull(r.r, r.headerBuf)
	if err != nil {
		if err == io.EOF && n == 0 {
			return transport.Frame{}, io.EOF
		}
		return transport.Frame{}, err
	}

	header, err := decodeRecordHeader(r.headerBuf)
	if err != nil {
		return transport.Frame{}, err
	}
	if r.opts.MaxPayloadSize > 0 && header.payloadLen > uint32(r.opts.MaxPayloadSize) {
		return transport.Frame{}, ErrPayloadTooLarge
	}

	r.channel = grow(r.channel, header.channelLen)
	if _, err := io.ReadFull(r.r, r.channel); err != nil {
		return transport.Frame{}, err
	}
	r.payload = grow(r.payload, int(header.payloadLen))
	if _, err := io.ReadFull(r.r, r.payload); err != nil {
		return transport.Frame{}, err
	}

	var checksumBuf [recordChecksumSize]byte
	if _, err := io.ReadFull(r.r, checksumBuf[:]); err != nil {
		return transport.Frame{}, err
	}

	if !r.opts.DisableChecksum {
		expected := binary.LittleEndian.Uint32(checksumBuf[:])
		if checksum(r.headerBuf, r.channel, r.payload) != expected {
			return transport.Frame{}, ErrChecksumMismatch
		}
	}

	return header.frame(string(r.channel), r.payload), nil
}

func grow(buf []byte, n int) []byte {
	if cap(buf) < n {
		return make([]byte, n)
	}
	return buf[:n]
}
