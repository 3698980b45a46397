package chaos

import (
	"fmt"
	"math/rand"
	"time"

	"execgate/internal/transport"
)

// Config controls fault injection. Rates are probabilities in [0, 1].
type Config struct {
	Seed          int64
	DropRate      float64
	DuplicateRate float64
	CorruptRate   float64
	ReorderWindow int
	MaxDelay      time.Duration
}

// Engine drops, duplicates, corrupts, delays and reorders frames.
// It is not safe for concurrent use.
type Engine struct {
	cfg     Config
	rng     *rand.Rand
	pending []transport.Frame
}

// NewEngine creates a chaos engine with validation.
func NewEngine(cfg Config) (*Engine, error) {
	if cfg.ReorderWindow <= 0 {
		cfg.ReorderWindow = 1
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if cfg.Seed == 0 {
		cfg.Seed = time.Now().UTC().UnixNano()
	}
	return &Engine{
		cfg: cfg,
		rng: rand.New(rand.NewSource(cfg.Seed)),
	}, nil
}

// Validate ensures the config is within supported ranges.
func (c Config) Validate() error {
	for name, rate := range map[string]float64{
		"dropRate":      c.DropRate,
		"duplicateRate": c.DuplicateRate,
		"corruptRate":   c.CorruptRate,
	} {
		if rate < 0 || rate > 1 {
			return fmt.Errorf("%s must be between 0 and 1", name)
		}
	}
	if c.ReorderWindow <= 0 {
		return fmt.Errorf("reorderWindow must be >= 1")
	}
	if c.MaxDelay < 0 {
		return fmt.Errorf("maxDelay must be >= 0")
	}
	return nil
}

// Process applies chaos to one frame and returns the frames to emit now.
// The frame payload must not be reused by the caller afterwards.
func (e *Engine) Process(f transport.Frame) []transport.Frame {
	if e == nil {
		return []transport.Frame{f}
	}
	if e.shouldDrop() {
		return nil
	}
	f = e.applyCorrupt(e.applyDelay(f))
	if e.cfg.ReorderWindow <= 1 {
		return e.applyDuplicate(f)
	}
	e.pending = append(e.pending, f)
	if len(e.pending) < e.cfg.ReorderWindow {
		return nil
	}
	return e.applyDuplicate(e.takePending())
}

// Flush returns any buffered frames after processing completes.
func (e *Engine) Flush() []transport.Frame {
	if e == nil || len(e.pending) == 0 {
		return nil
	}
	out := make([]transport.Frame, 0, len(e.pending))
	for len(e.pending) > 0 {
		out = append(out, e.applyDuplicate(e.takePending())...)
	}
	return out
}

func (e *Engine) takePending() transport.Frame {
	idx := e.rng.Intn(len(e.pending))
	f := e.pending[idx]
	e.pending = append(e.pending[:idx], e.pending[idx+1:]...)
	return f
}

func (e *Engine) shouldDrop() bool {
	return e.cfg.DropRate > 0 && e.rng.Float64() < e.cfg.DropRate
}

func (e *Engine) applyDuplicate(f transport.Frame) []transport.Frame {
	out := []transport.Frame{f}
	if e.cfg.DuplicateRate > 0 && e.rng.Float64() < e.cfg.DuplicateRate {
		out = append(out, f)
	}
	return out
}

// applyCorrupt flips one payload byte on a private copy.
func (e *Engine) applyCorrupt(f transport.Frame) transport.Frame {
	if e.cfg.CorruptRate <= 0 || len(f.Payload) == 0 || e.rng.Float64() >= e.cfg.CorruptRate {
		return f
	}
	cp := make([]byte, len(f.Payload))
	copy(cp, f.Payload)
	cp[e.rng.Intn(len(cp))] ^= 0xff
	f.Payload = cp
	return f
}

func (e *Engine) applyDelay(f transport.Frame) transport.Frame {
	if e.cfg.MaxDelay <= 0 || f.ReceivedAt.IsZero() {
		return f
	}
	delay := time.Duration(e.rng.Int63n(e.cfg.MaxDelay.Nanoseconds() + 1))
	f.ReceivedAt = f.ReceivedAt.Add(delay)
	return f
}
