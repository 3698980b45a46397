package recorder

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"execgate/internal/transport"

	"github.com/yanun0323/errors"
)

// PlaybackConfig selects and paces recorded frames. A zero Speed replays as fast as
// possible; otherwise gaps between received times are divided by Speed.
// From and To bound ReceivedAt inclusively when set. Encoding keeps only frames of
// that encoding when set.
type PlaybackConfig struct {
	Dir             string
	FilePrefix      string
	Speed           float64
	From            time.Time
	To              time.Time
	Encoding        transport.Encoding
	DisableChecksum bool
	MaxPayloadSize  int
}

func (c PlaybackConfig) Validate() error {
	switch {
	case c.Dir == "":
		return errors.New("playback dir is empty")
	case c.Speed < 0:
		return errors.Errorf("playback speed must be >= 0, got %v", c.Speed)
	case c.MaxPayloadSize < 0:
		return errors.Errorf("playback max payload size must be >= 0, got %d", c.MaxPayloadSize)
	case !c.From.IsZero() && !c.To.IsZero() && c.To.Before(c.From):
		return errors.New("playback window ends before it starts")
	case c.Encoding != 0 && !c.Encoding.IsAvailable():
		return errors.Errorf("playback encoding %d is unknown", c.Encoding)
	}
	return nil
}

func (c PlaybackConfig) keep(f transport.Frame) bool {
	if c.Encoding != 0 && f.Encoding != c.Encoding {
		return false
	}
	if !c.From.IsZero() && f.ReceivedAt.Before(c.From) {
		return false
	}
	return c.To.IsZero() || !f.ReceivedAt.After(c.To)
}

// Clock paces playback.
type Clock interface {
	Sleep(ctx context.Context, d time.Duration) error
}

type realClock struct{}

func (realClock) Sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// Playback reads segments in name order, which is recording order.
type Playback struct {
	cfg   PlaybackConfig
	clock Clock
}

func NewPlayback(cfg PlaybackConfig) (*Playback, error) {
	if cfg.FilePrefix == "" {
		cfg.FilePrefix = defaultFilePrefix
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &Playback{cfg: cfg, clock: realClock{}}, nil
}

func (p *Playback) WithClock(clock Clock) *Playback {
	if clock != nil {
		p.clock = clock
	}
	return p
}

// Segments lists the segment files playback would read.
func (p *Playback) Segments() ([]string, error) {
	entries, err := os.ReadDir(p.cfg.Dir)
	if err != nil {
		return nil, errors.Wrap(err, "read playback dir")
	}
	var files []string
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || !strings.HasPrefix(name, p.cfg.FilePrefix+"-") || !strings.HasSuffix(name, segmentSuffix) {
			continue
		}
		files = append(files, filepath.Join(p.cfg.Dir, name))
	}
	slices.Sort(files)
	return files, nil
}

// Run calls handler for every selected frame. The payload is only valid during the call.
// A handler error stops playback and is returned as is.
func (p *Playback) Run(ctx context.Context, handler func(transport.Frame) error) error {
	if handler == nil {
		return errors.New("playback handler is nil")
	}
	files, err := p.Segments()
	if err != nil {
		return err
	}
	var last time.Time
	for _, path := range files {
		if err := p.runFile(ctx, path, handler, &last); err != nil {
			return err
		}
	}
	return nil
}

func (p *Playback) runFile(ctx context.Context, path string, handler func(transport.Frame) error, last *time.Time) error {
	file, err := os.Open(path)
	if err != nil {
		return err
	}
	defer file.Close()

	r := NewReader(file, ReaderOptions{
		DisableChecksum: p.cfg.DisableChecksum,
		MaxPayloadSize:  p.cfg.MaxPayloadSize,
	})
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		f, err := r.Next()
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return errors.Wrapf(err, "read %s", filepath.Base(path))
		}
		if !p.cfg.keep(f) {
			continue
		}
		if err := p.pace(ctx, f.ReceivedAt, last); err != nil {
			return err
		}
		if err := handler(f); err != nil {
			return err
		}
	}
}

func (p *Playback) pace(ctx context.Context, at time.Time, last *time.Time) error {
	if p.cfg.Speed <= 0 || at.IsZero() {
		return nil
	}
	if !last.IsZero() && at.After(*last) {
		if err := p.clock.Sleep(ctx, time.Duration(float64(at.Sub(*last))/p.cfg.Speed)); err != nil {
			return err
		}
	}
	*last = at
	return nil
}

// Source replays in the background and serves frames through the transport.Source
// interface. Next returns io.EOF at the end of the recording, or the playback error.
func (p *Playback) Source(ctx context.Context) transport.Source {
	ctx, cancel := context.WithCancel(ctx)
	s := &playbackSource{frames: make(chan transport.Frame), cancel: cancel}
	go func() {
		defer close(s.frames)
		s.err = p.Run(ctx, func(f transport.Frame) error {
			f.Payload = append([]byte(nil), f.Payload...)
			select {
			case s.frames <- f:
				return nil
			case <-ctx.Done():
				return ctx.Err()
			}
		})
	}()
	return s
}

type playbackSource struct {
	frames chan transport.Frame
	cancel context.CancelFunc
	err    error
}

func (s *playbackSource) Next(ctx context.Context) (transport.Frame, error) {
	select {
	case f, ok := <-s.frames:
		if !ok {
			s.cancel()
			if s.err != nil {
				return transport.Frame{}, s.err
			}
			return transport.Frame{}, io.EOF
		}
		return f, nil
	case <-ctx.Done():
		s.cancel()
		return transport.Frame{}, ctx.Err()
	}
}
