package execution

import (
	"context"
	"sync"
	"time"

	"execgate/internal/model"
	"execgate/internal/model/enum"

	"github.com/google/uuid"
)

var unixEpoch = time.Date(1970, 1, 1, 0, 0, 0, 0, time.UTC)

func fixedClock() time.Time { return unixEpoch }

var gbpusdFXCM = model.NewSymbol("GBPUSD", enum.VenueFXCM)

func testOrder(id string) model.Order {
	return model.Order{
		ID:          id,
		Symbol:      gbpusdFXCM,
		Label:       "TEST",
		Side:        enum.OrderSideBuy,
		Type:        enum.OrderTypeMarket,
		Quantity:    100000,
		TimeInForce: enum.TimeInForceDay,
	}
}

func accepted(orderID string) model.OrderAccepted {
	return model.OrderAccepted{
		EventHeader: model.EventHeader{
			EventID:        uuid.New(),
			EventTimestamp: unixEpoch,
			Symbol:         gbpusdFXCM,
			OrderID:        orderID,
		},
		AcceptedTime: unixEpoch,
	}
}

type recordingStrategy struct {
	Base

	mu      sync.Mutex
	events  []model.Event
	onEvent func(s *recordingStrategy, e model.Event)
}

func newRecordingStrategy(id string) *recordingStrategy {
	return &recordingStrategy{Base: NewBase(id)}
}

func (s *recordingStrategy) OnEvent(e model.Event) {
	s.mu.Lock()
	s.events = append(s.events, e)
	s.mu.Unlock()
	if s.onEvent != nil {
		s.onEvent(s, e)
	}
}

func (s *recordingStrategy) Events() []model.Event {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]model.Event(nil), s.events...)
}

func (s *recordingStrategy) Kinds() []enum.EventKind {
	events := s.Events()
	out := make([]enum.EventKind, 0, len(events))
	for _, e := range events {
		out = append(out, e.Kind())
	}
	return out
}

type recordingDiagnostics struct {
	mu    sync.Mutex
	diags []Diagnostic
}

func (r *recordingDiagnostics) Report(d Diagnostic) {
	r.mu.Lock()
	r.diags = append(r.diags, d)
	r.mu.Unlock()
}

func (r *recordingDiagnostics) All() []Diagnostic {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Diagnostic(nil), r.diags...)
}

type recordingSender struct {
	mu   sync.Mutex
	cmds []model.Command
	err  error
}

func (r *recordingSender) Send(ctx context.Context, cmd model.Command) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.cmds = append(r.cmds, cmd)
	return r.err
}

func (r *recordingSender) Commands() []model.Command {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]model.Command(nil), r.cmds...)
}

type recordingJournal struct {
	mu      sync.Mutex
	entries []string
	err     error
}

func (j *recordingJournal) Record(ctx context.Context, strategyID string, e model.Event) error {
	j.mu.Lock()
	defer j.mu.Unlock()
	if j.err != nil {
		return j.err
	}
	j.entries = append(j.entries, strategyID+"/"+e.Header().OrderID+"/"+e.Kind().String())
	return nil
}
