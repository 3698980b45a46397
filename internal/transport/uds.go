package transport

import (
	"context"
	"encoding/binary"
	"errors"
	"io"
	"net"
	"os"
	"sync"
	"sync/atomic"
	"time"

	"execgate/pkg/exception"

	errs "github.com/yanun0323/errors"
	"github.com/yanun0323/logs"
)

const (
	unixNetwork = "unix"

	// MaxFrameSize bounds a single length-prefixed frame.
	MaxFrameSize = 1 << 20
)

// WriteFrame writes payload with a 4-byte big-endian length prefix.
func WriteFrame(w io.Writer, payload []byte) error {
	if len(payload) > MaxFrameSize {
		return exception.ErrFrameTooLarge
	}
	var head [4]byte
	binary.BigEndian.PutUint32(head[:], uint32(len(payload)))
	if _, err := w.Write(head[:]); err != nil {
		return err
	}
	_, err := w.Write(payload)
	return err
}

// ReadFrame reads one length-prefixed frame. io.EOF is returned only on a clean
// boundary; a frame cut short yields io.ErrUnexpectedEOF.
func ReadFrame(r io.Reader, limit int) ([]byte, error) {
	var head [4]byte
	if _, err := io.ReadFull(r, head[:]); err != nil {
		return nil, err
	}
	size := binary.BigEndian.Uint32(head[:])
	if int64(size) > int64(limit) {
		return nil, exception.ErrFrameTooLarge
	}
	buf := make([]byte, size)
	if _, err := io.ReadFull(r, buf); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, io.ErrUnexpectedEOF
		}
		return nil, err
	}
	return buf, nil
}

// DialUDS opens a connection to a listener at path.
func DialUDS(path string) (*net.UnixConn, error) {
	if path == "" {
		return nil, exception.ErrEmptyPathUDS
	}
	return net.DialUnix(unixNetwork, nil, &net.UnixAddr{Name: path, Net: unixNetwork})
}

// UDSListener accepts publisher connections on one socket path. Every frame read
// from the path carries the listener's encoding.
type UDSListener struct {
	addr     net.UnixAddr
	encoding Encoding
	seq      atomic.Uint64

	mu sync.Mutex
	ln *net.UnixListener
}

// NewUDSListener creates a listener for path bound to encoding.
func NewUDSListener(path string, encoding Encoding) (*UDSListener, error) {
	if path == "" {
		return nil, exception.ErrEmptyPathUDS
	}
	if !encoding.IsAvailable() {
		return nil, exception.ErrUnknownEncoding
	}
	return &UDSListener{
		addr:     net.UnixAddr{Name: path, Net: unixNetwork},
		encoding: encoding,
	}, nil
}

// Path returns the configured socket path.
func (l *UDSListener) Path() string {
	if l == nil {
		return ""
	}
	return l.addr.Name
}

func (l *UDSListener) Encoding() Encoding {
	return l.encoding
}

// Listen binds the socket path, replacing a stale socket file.
func (l *UDSListener) Listen() error {
	if l == nil {
		return exception.ErrNilListenerUDS
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.ln != nil {
		return exception.ErrAlreadyListeningUDS
	}
	if err := removeIfSocket(l.addr.Name); err != nil {
		return err
	}
	ln, err := net.ListenUnix(unixNetwork, &l.addr)
	if err != nil {
		return errs.Wrapf(err, "listen %s", l.addr.Name)
	}
	ln.SetUnlinkOnClose(true)
	l.ln = ln
	return nil
}

// Serve accepts connections until ctx is done or the listener is closed, passing
// each frame to sink. A sink error drops that connection only.
func (l *UDSListener) Serve(ctx context.Context, sink func(Frame) error) error {
	if l == nil {
		return exception.ErrNilListenerUDS
	}
	l.mu.Lock()
	ln := l.ln
	l.mu.Unlock()
	if ln == nil {
		return exception.ErrNotListeningUDS
	}

	stop := context.AfterFunc(ctx, func() { _ = l.Close() })
	defer stop()

	var wg sync.WaitGroup
	defer wg.Wait()
	for {
		conn, err := ln.AcceptUnix()
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, net.ErrClosed) {
				return nil
			}
			return errs.Wrapf(err, "accept %s", l.addr.Name)
		}
		wg.Add(1)
		go func() {
			defer wg.Done()
			l.serveConn(ctx, conn, sink)
		}()
	}
}

func (l *UDSListener) serveConn(ctx context.Context, conn *net.UnixConn, sink func(Frame) error) {
	stop := context.AfterFunc(ctx, func() { _ = conn.Close() })
	defer stop()
	defer conn.Close()

	for {
		payload, err := ReadFrame(conn, MaxFrameSize)
		if err != nil {
			if !errors.Is(err, io.EOF) && ctx.Err() == nil && !errors.Is(err, net.ErrClosed) {
				logs.Errorf("uds %s: read frame, err: %+v", l.addr.Name, err)
			}
			return
		}
		frame := Frame{
			Encoding:   l.encoding,
			Channel:    l.addr.Name,
			Seq:        l.seq.Add(1),
			Payload:    payload,
			ReceivedAt: time.Now().UTC(),
		}
		if err := sink(frame); err != nil {
			logs.Errorf("uds %s: sink rejected frame %d, err: %+v", l.addr.Name, frame.Seq, err)
			return
		}
	}
}

// Close stops the listener and unlinks the socket.
func (l *UDSListener) Close() error {
	if l == nil {
		return exception.ErrNilListenerUDS
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.ln == nil {
		return nil
	}
	err := l.ln.Close()
	l.ln = nil
	return err
}

func removeIfSocket(path string) error {
	info, err := os.Lstat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}
	if info.Mode()&os.ModeSocket == 0 {
		return exception.ErrPathNotSocketUDS
	}
	return os.Remove(path)
}

// UDSSource merges frames from several listeners into one ordered stream.
type UDSSource struct {
	listeners []*UDSListener
	frames    chan Frame
	done      chan struct{}
	once      sync.Once
	err       atomic.Pointer[error]
}

func NewUDSSource(capacity int, listeners ...*UDSListener) *UDSSource {
	if capacity <= 0 {
		capacity = 1024
	}
	return &UDSSource{
		listeners: listeners,
		frames:    make(chan Frame, capacity),
		done:      make(chan struct{}),
	}
}

// Start listens on every path and serves them in the background. Publishers block
// when the buffer is full.
func (s *UDSSource) Start(ctx context.Context) error {
	for i, l := range s.listeners {
		if err := l.Listen(); err != nil {
			for _, opened := range s.listeners[:i] {
				_ = opened.Close()
			}
			return err
		}
	}

	var wg sync.WaitGroup
	for _, l := range s.listeners {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := l.Serve(ctx, s.push(ctx)); err != nil {
				s.err.CompareAndSwap(nil, &err)
			}
		}()
	}
	go func() {
		wg.Wait()
		s.once.Do(func() { close(s.done) })
	}()
	return nil
}

func (s *UDSSource) push(ctx context.Context) func(Frame) error {
	return func(f Frame) error {
		select {
		case s.frames <- f:
			return nil
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

// Next returns buffered frames first, then io.EOF once every listener has stopped.
func (s *UDSSource) Next(ctx context.Context) (Frame, error) {
	select {
	case f := <-s.frames:
		return f, nil
	default:
	}
	select {
	case f := <-s.frames:
		return f, nil
	case <-s.done:
		select {
		case f := <-s.frames:
			return f, nil
		default:
		}
		if p := s.err.Load(); p != nil {
			return Frame{}, *p
		}
		return Frame{}, io.EOF
	case <-ctx.Done():
		return Frame{}, ctx.Err()
	}
}

// Close stops every listener.
func (s *UDSSource) Close() error {
	var first error
	for _, l := range s.listeners {
		if err := l.Close(); err != nil && first == nil {
			first = err
		}
	}
	return first
}
