package transport

import (
	"context"
	"io"
	"math/rand"
	"sync"
	"sync/atomic"
	"time"

	"execgate/pkg/exception"

	"github.com/gorilla/websocket"
	"github.com/yanun0323/errors"
	"github.com/yanun0323/logs"
)

const defaultWebSocketCapacity = 1024

// Backoff defines reconnect backoff behavior.
type Backoff struct {
	// Min is the minimum backoff duration.
	Min time.Duration
	// Max is the maximum backoff duration.
	Max time.Duration
	// Factor multiplies the delay for each retry attempt.
	Factor float64
	// Jitter adds randomization as a fraction of the delay (0-1).
	Jitter float64
}

// DefaultBackoff provides conservative reconnect defaults.
func DefaultBackoff() Backoff {
	return Backoff{
		Min:    250 * time.Millisecond,
		Max:    5 * time.Second,
		Factor: 2.0,
		Jitter: 0.2,
	}
}

// Next returns the backoff duration for the given attempt (1-based).
func (b Backoff) Next(attempt int) time.Duration {
	if attempt <= 0 {
		attempt = 1
	}
	lo := b.Min
	if lo <= 0 {
		lo = 100 * time.Millisecond
	}
	hi := b.Max
	if hi <= 0 {
		hi = 5 * time.Second
	}
	factor := b.Factor
	if factor <= 1 {
		factor = 2.0
	}

	wait := lo
	for i := 1; i < attempt; i++ {
		next := time.Duration(float64(wait) * factor)
		if next > hi {
			wait = hi
			break
		}
		wait = next
	}

	if b.Jitter <= 0 {
		return wait
	}
	jitter := min(b.Jitter, 1)
	delta := float64(wait) * jitter
	return wait - time.Duration(delta) + time.Duration(rand.Float64()*2*delta)
}

// WebSocketConfig points at a gateway that pushes one event per message.
// Text messages carry the delimited text encoding, binary messages carry msgpack.
type WebSocketConfig struct {
	URL         string
	Backoff     Backoff
	MaxAttempts int // consecutive failed dials before giving up, 0 retries forever
	ReadLimit   int64
	Capacity    int
}

type wsConn interface {
	ReadMessage() (int, []byte, error)
	Close() error
}

type wsDialFunc func(ctx context.Context, url string) (wsConn, error)

func dialGorilla(ctx context.Context, url string) (wsConn, error) {
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, url, nil)
	if err != nil {
		return nil, err
	}
	return conn, nil
}

// WebSocketSource reads frames from a gateway websocket and redials with backoff
// when the connection drops.
type WebSocketSource struct {
	cfg    WebSocketConfig
	dial   wsDialFunc
	frames chan Frame
	done   chan struct{}
	seq    atomic.Uint64

	started   atomic.Bool
	closeOnce sync.Once
	mu        sync.Mutex
	conn      wsConn
	err       error
}

func NewWebSocketSource(cfg WebSocketConfig) (*WebSocketSource, error) {
	if cfg.URL == "" {
		return nil, exception.ErrInvalidArgument
	}
	return newWebSocketSource(cfg, dialGorilla), nil
}

func newWebSocketSource(cfg WebSocketConfig, dial wsDialFunc) *WebSocketSource {
	if cfg.Capacity <= 0 {
		cfg.Capacity = defaultWebSocketCapacity
	}
	if cfg.ReadLimit <= 0 {
		cfg.ReadLimit = MaxFrameSize
	}
	return &WebSocketSource{
		cfg:    cfg,
		dial:   dial,
		frames: make(chan Frame, cfg.Capacity),
		done:   make(chan struct{}),
	}
}

// Start connects in the background. Next reports io.EOF after ctx ends or Close is called.
func (s *WebSocketSource) Start(ctx context.Context) error {
	if !s.started.CompareAndSwap(false, true) {
		return errors.New("websocket source already started")
	}
	go s.run(ctx)
	return nil
}

func (s *WebSocketSource) Next(ctx context.Context) (Frame, error) {
	select {
	case f, ok := <-s.frames:
		if !ok {
			s.mu.Lock()
			defer s.mu.Unlock()
			if s.err != nil {
				return Frame{}, s.err
			}
			return Frame{}, io.EOF
		}
		return f, nil
	case <-ctx.Done():
		return Frame{}, ctx.Err()
	}
}

func (s *WebSocketSource) Close() error {
	s.closeOnce.Do(func() {
		close(s.done)
		s.mu.Lock()
		if s.conn != nil {
			_ = s.conn.Close()
		}
		s.mu.Unlock()
	})
	return nil
}

func (s *WebSocketSource) stopped(ctx context.Context) bool {
	select {
	case <-ctx.Done():
		return true
	case <-s.done:
		return true
	default:
		return false
	}
}

func (s *WebSocketSource) run(ctx context.Context) {
	defer close(s.frames)
	stop := context.AfterFunc(ctx, func() { _ = s.Close() })
	defer stop()

	attempt := 0
	for !s.stopped(ctx) {
		conn, err := s.dial(ctx, s.cfg.URL)
		if err != nil {
			attempt++
			if s.cfg.MaxAttempts > 0 && attempt >= s.cfg.MaxAttempts {
				s.fail(errors.Wrapf(err, "dial %s after %d attempts", s.cfg.URL, attempt))
				return
			}
			logs.Errorf("websocket dial %s, attempt %d, err: %+v", s.cfg.URL, attempt, err)
			if !s.sleep(ctx, s.cfg.Backoff.Next(attempt)) {
				return
			}
			continue
		}
		attempt = 0
		if limited, ok := conn.(interface{ SetReadLimit(int64) }); ok {
			limited.SetReadLimit(s.cfg.ReadLimit)
		}
		if !s.setConn(conn) {
			_ = conn.Close()
			return
		}
		logs.Infof("websocket connected: %s", s.cfg.URL)

		err = s.readLoop(ctx, conn)
		s.setConn(nil)
		_ = conn.Close()
		if s.stopped(ctx) {
			return
		}
		logs.Errorf("websocket %s disconnected, err: %+v", s.cfg.URL, err)
		attempt++
		if !s.sleep(ctx, s.cfg.Backoff.Next(attempt)) {
			return
		}
	}
}

func (s *WebSocketSource) readLoop(ctx context.Context, conn wsConn) error {
	channel := "ws:" + s.cfg.URL
	for {
		msgType, payload, err := conn.ReadMessage()
		if err != nil {
			return err
		}
		var enc Encoding
		switch msgType {
		case websocket.TextMessage:
			enc = EncodingText
		case websocket.BinaryMessage:
			enc = EncodingBinary
		default:
			continue
		}
		f := Frame{
			Encoding:   enc,
			Channel:    channel,
			Seq:        s.seq.Add(1),
			Payload:    payload,
			ReceivedAt: time.Now().UTC(),
		}
		select {
		case s.frames <- f:
		case <-s.done:
			return nil
		case <-ctx.Done():
			return nil
		}
	}
}

// setConn reports false when the source was closed before conn could be kept.
func (s *WebSocketSource) setConn(conn wsConn) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if conn != nil && s.stoppedLocked() {
		return false
	}
	s.conn = conn
	return true
}

func (s *WebSocketSource) stoppedLocked() bool {
	select {
	case <-s.done:
		return true
	default:
		return false
	}
}

func (s *WebSocketSource) fail(err error) {
	s.mu.Lock()
	s.err = err
	s.mu.Unlock()
}

func (s *WebSocketSource) sleep(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return true
	case <-s.done:
		return false
	case <-ctx.Done():
		return false
	}
}
