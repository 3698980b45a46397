package main

import (
	"context"
	"fmt"
	"math/rand"
	"time"

	"execgate/internal/codec"
	"execgate/internal/execution"
	"execgate/internal/model"
	"execgate/internal/model/enum"
	"execgate/internal/transport"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/yanun0323/errors"
)

type sessionConfig struct {
	Seed       int64
	Orders     int
	Symbol     model.Symbol
	BasePrice  decimal.Decimal
	Encoding   string // binary, text or mixed
	FillRate   float64
	CancelRate float64
	ModifyRate float64
	Start      time.Time
	Step       time.Duration
}

// session drives a simulated venue and turns every published event into a frame.
type session struct {
	cfg   sessionConfig
	rng   *rand.Rand
	venue *execution.SimulatedVenue
	clock time.Time
	emit  func(transport.Frame) error
	seq   uint64
	err   error

	submitted []model.Order
}

func newSession(cfg sessionConfig, emit func(transport.Frame) error) (*session, error) {
	switch cfg.Encoding {
	case "binary", "text", "mixed":
	default:
		return nil, errors.Errorf("unknown encoding %q", cfg.Encoding)
	}
	if cfg.FillRate+cfg.CancelRate > 1 || cfg.FillRate < 0 || cfg.CancelRate < 0 {
		return nil, errors.New("fill rate and cancel rate must be >= 0 and sum to at most 1")
	}
	if cfg.Step <= 0 {
		cfg.Step = time.Millisecond
	}
	s := &session{
		cfg:   cfg,
		rng:   rand.New(rand.NewSource(cfg.Seed)),
		clock: cfg.Start,
		emit:  emit,
	}
	s.venue = execution.NewSimulatedVenue(execution.VenueConfig{Session: "PAPER"}, s.tick)
	s.venue.Attach(s.deliver)
	return s, nil
}

func (s *session) tick() time.Time {
	s.clock = s.clock.Add(s.cfg.Step)
	return s.clock
}

func (s *session) deliver(ctx context.Context, e model.Event) bool {
	if s.err != nil {
		return false
	}
	f, err := s.frame(e)
	if err == nil {
		err = s.emit(f)
	}
	if err != nil {
		s.err = errors.Wrapf(err, "emit %s for %s", e.Kind(), e.Header().OrderID)
		return false
	}
	return true
}

func (s *session) frame(e model.Event) (transport.Frame, error) {
	s.seq++
	f := transport.Frame{Seq: s.seq, ReceivedAt: s.clock}
	useText := s.cfg.Encoding == "text" || (s.cfg.Encoding == "mixed" && s.rng.Intn(2) == 0)
	if useText {
		line, err := codec.EncodeText(e)
		if err != nil {
			return f, err
		}
		f.Encoding, f.Channel, f.Payload = transport.EncodingText, "paper:text", []byte(line)
		return f, nil
	}
	payload, err := codec.EncodeBinary(e)
	if err != nil {
		return f, err
	}
	f.Encoding, f.Channel, f.Payload = transport.EncodingBinary, "paper:binary", payload
	return f, nil
}

// Run submits cfg.Orders orders and settles each one by fill, cancel or expiry.
func (s *session) Run(ctx context.Context) error {
	for i := 0; i < s.cfg.Orders && s.err == nil; i++ {
		if err := ctx.Err(); err != nil {
			return err
		}
		o := s.order(i)
		if err := s.send(ctx, enum.CommandKindSubmitOrder, o, decimal.Zero); err != nil {
			return err
		}
		s.submitted = append(s.submitted, o)
		if s.rng.Float64() < s.cfg.ModifyRate {
			o.Price = o.Price.Add(decimal.New(int64(s.rng.Intn(5)-2), -5))
			if err := s.send(ctx, enum.CommandKindModifyOrder, o, o.Price); err != nil {
				return err
			}
		}
		if err := s.settle(ctx, o); err != nil {
			return err
		}
	}
	return s.err
}

func (s *session) order(i int) model.Order {
	side := enum.OrderSideBuy
	if s.rng.Intn(2) == 1 {
		side = enum.OrderSideSell
	}
	ticks := int64(s.rng.Intn(21) - 10)
	return model.Order{
		ID:          fmt.Sprintf("P%06d", i+1),
		Symbol:      s.cfg.Symbol,
		Label:       "PAPER",
		Side:        side,
		Type:        enum.OrderTypeLimit,
		Quantity:    int64(1+s.rng.Intn(10)) * 10000,
		Price:       s.cfg.BasePrice.Add(decimal.New(ticks, -5)),
		TimeInForce: enum.TimeInForceGTC,
	}
}

func (s *session) settle(ctx context.Context, o model.Order) error {
	r := s.rng.Float64()
	switch {
	case r < s.cfg.FillRate:
		remaining := o.Quantity
		for remaining > 0 {
			qty := remaining
			if remaining > 10000 && s.rng.Intn(2) == 0 {
				qty = remaining / 2
			}
			if err := s.venue.Fill(ctx, o.ID, qty, o.Price); err != nil {
				return err
			}
			remaining -= qty
		}
		return nil
	case r < s.cfg.FillRate+s.cfg.CancelRate:
		return s.send(ctx, enum.CommandKindCancelOrder, o, decimal.Zero)
	default:
		return s.venue.Expire(ctx, o.ID)
	}
}

func (s *session) send(ctx context.Context, kind enum.CommandKind, o model.Order, price decimal.Decimal) error {
	id, err := uuid.NewRandomFromReader(s.rng)
	if err != nil {
		return err
	}
	cmd := model.Command{
		ID:          id,
		Kind:        kind,
		StrategyID:  "paper",
		Order:       o,
		ModifyPrice: price,
		Timestamp:   s.clock,
	}
	if kind == enum.CommandKindCancelOrder {
		cmd.CancelReason = "paper session"
	}
	return s.venue.Send(ctx, cmd)
}
