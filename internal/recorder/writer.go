package recorder

import (
	"bufio"
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	"execgate/internal/transport"
)

var (
	ErrQueueFull       = errors.New("recorder: queue full")
	ErrClosed          = errors.New("recorder: writer closed")
	ErrNotStarted      = errors.New("recorder: writer not started")
	ErrAlreadyStarted  = errors.New("recorder: writer already started")
	ErrPayloadTooLarge = errors.New("recorder: payload too large")
)

const maxPayloadLen = uint64(^uint32(0))

// Stats counts what the writer has persisted so far.
type Stats struct {
	Frames   uint64
	Bytes    uint64
	Segments uint64
}

// Writer appends frames to rotating segment files. TryAppend never blocks; a single
// goroutine started by Start owns the files.
type Writer struct {
	cfg   Config
	queue chan transport.Frame
	wg    sync.WaitGroup
	err   atomic.Pointer[error]

	started atomic.Bool
	closed  atomic.Bool

	frames   atomic.Uint64
	bytes    atomic.Uint64
	segments atomic.Uint64
}

// NewWriter validates cfg and creates the target directory.
func NewWriter(cfg Config) (*Writer, error) {
	cfg = cfg.withDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if err := os.MkdirAll(cfg.Dir, 0o755); err != nil {
		return nil, err
	}
	return &Writer{
		cfg:   cfg,
		queue: make(chan transport.Frame, cfg.QueueSize),
	}, nil
}

// Start launches the writer goroutine. After ctx ends, frames already queued are
// written and later ones are discarded.
func (w *Writer) Start(ctx context.Context) error {
	if !w.started.CompareAndSwap(false, true) {
		return ErrAlreadyStarted
	}
	w.wg.Add(1)
	go func() {
		defer w.wg.Done()
		w.loop(ctx)
	}()
	return nil
}

// Close flushes, syncs and closes the open segment and returns the first write error.
func (w *Writer) Close() error {
	if w.closed.CompareAndSwap(false, true) {
		close(w.queue)
	}
	w.wg.Wait()
	return w.Err()
}

func (w *Writer) Err() error {
	if p := w.err.Load(); p != nil {
		return *p
	}
	return nil
}

func (w *Writer) Stats() Stats {
	return Stats{
		Frames:   w.frames.Load(),
		Bytes:    w.bytes.Load(),
		Segments: w.segments.Load(),
	}
}

// TryAppend queues a copy of f.
func (w *Writer) TryAppend(f transport.Frame) error {
	switch {
	case w.closed.Load():
		return ErrClosed
	case !w.started.Load():
		return ErrNotStarted
	case uint64(len(f.Payload)) > maxPayloadLen:
		return ErrPayloadTooLarge
	case len(f.Channel) > maxChannelLen:
		return ErrChannelTooLong
	}
	if err := w.Err(); err != nil {
		return err
	}
	if len(f.Payload) > 0 {
		f.Payload = append([]byte(nil), f.Payload...)
	}
	select {
	case w.queue <- f:
		return nil
	default:
		return ErrQueueFull
	}
}

func (w *Writer) loop(ctx context.Context) {
	var (
		seg    *segment
		nextID uint64
		flushC <-chan time.Time
		syncC  <-chan time.Time
	)
	if w.cfg.FlushInterval > 0 {
		t := time.NewTicker(w.cfg.FlushInterval)
		defer t.Stop()
		flushC = t.C
	}
	if w.cfg.SyncInterval > 0 {
		t := time.NewTicker(w.cfg.SyncInterval)
		defer t.Stop()
		syncC = t.C
	}
	defer func() {
		if err := seg.close(); err != nil {
			w.fail(err)
		}
	}()

	write := func(f transport.Frame) bool {
		now := time.Now().UTC()
		size := recordSize(f)
		if seg.full(w.cfg, now, size) {
			if err := seg.close(); err != nil {
				w.fail(err)
				return false
			}
			opened, err := w.open(&nextID, now)
			if err != nil {
				w.fail(err)
				return false
			}
			seg = opened
		}
		if err := seg.write(f); err != nil {
			w.fail(err)
			return false
		}
		w.frames.Add(1)
		w.bytes.Add(uint64(size))
		return true
	}

	for {
		select {
		case <-ctx.Done():
			for {
				select {
				case f, ok := <-w.queue:
					if !ok || !write(f) {
						return
					}
				default:
					return
				}
			}
		case f, ok := <-w.queue:
			if !ok || !write(f) {
				return
			}
		case <-flushC:
			if err := seg.flush(); err != nil {
				w.fail(err)
				return
			}
		case <-syncC:
			if err := seg.sync(); err != nil {
				w.fail(err)
				return
			}
		}
	}
}

// open creates the next segment file, skipping names that already exist.
func (w *Writer) open(nextID *uint64, now time.Time) (*segment, error) {
	stamp := now.Format("20060102-150405")
	for {
		*nextID++
		name := fmt.Sprintf("%s-%s-%06d%s", w.cfg.FilePrefix, stamp, *nextID, segmentSuffix)
		file, err := os.OpenFile(filepath.Join(w.cfg.Dir, name), os.O_CREATE|os.O_WRONLY|os.O_EXCL, 0o644)
		if errors.Is(err, os.ErrExist) {
			continue
		}
		if err != nil {
			return nil, err
		}
		w.segments.Add(1)
		return &segment{
			file:     file,
			buf:      bufio.NewWriterSize(file, w.cfg.BufferSize),
			openedAt: now,
			header:   make([]byte, recordHeaderSize),
		}, nil
	}
}

func (w *Writer) fail(err error) {
	w.err.CompareAndSwap(nil, &err)
}

func recordSize(f transport.Frame) int64 {
	return int64(recordHeaderSize + len(f.Channel) + len(f.Payload) + recordChecksumSize)
}

// segment is one open file. Methods on a nil segment are no-ops.
type segment struct {
	file     *os.File
	buf      *bufio.Writer
	size     int64
	openedAt time.Time
	header   []byte
	sum      [recordChecksumSize]byte
}

func (s *segment) full(cfg Config, now time.Time, next int64) bool {
	if s == nil {
		return true
	}
	if cfg.SegmentMaxBytes > 0 && s.size > 0 && s.size+next > cfg.SegmentMaxBytes {
		return true
	}
	return cfg.SegmentMaxDuration > 0 && now.Sub(s.openedAt) >= cfg.SegmentMaxDuration
}

func (s *segment) write(f transport.Frame) error {
	channel := []byte(f.Channel)
	encodeHeader(s.header, f)
	binary.LittleEndian.PutUint32(s.sum[:], checksum(s.header, channel, f.Payload))
	for _, part := range [][]byte{s.header, channel, f.Payload, s.sum[:]} {
		if _, err := s.buf.Write(part); err != nil {
			return err
		}
	}
	s.size += recordSize(f)
	return nil
}

func (s *segment) flush() error {
	if s == nil {
		return nil
	}
	return s.buf.Flush()
}

func (s *segment) sync() error {
	if err := s.flush(); err != nil || s == nil {
		return err
	}
	return s.file.Sync()
}

func (s *segment) close() error {
	if s == nil {
		return nil
	}
	if err := s.sync(); err != nil {
		_ = s.file.Close()
		return err
	}
	return s.file.Close()
}
