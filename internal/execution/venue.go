package execution

import (
	"context"
	"fmt"
	"sync"
	"time"

	"execgate/internal/model"
	"execgate/internal/model/enum"
	"execgate/pkg/exception"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// VenueConfig controls the simulated venue.
type VenueConfig struct {
	Session           string
	ResendOnReconnect bool
}

type venueOrder struct {
	order    model.Order
	brokerID string
	filled   int64
	notional decimal.Decimal
}

// averagePrice is the volume weighted price over every fill so far.
func (wo *venueOrder) averagePrice() decimal.Decimal {
	if wo.filled == 0 {
		return decimal.Zero
	}
	return wo.notional.Div(decimal.NewFromInt(wo.filled))
}

// SimulatedVenue is an in-process Sender that answers commands with the events a
// venue would publish. Submitted orders go straight to working.
type SimulatedVenue struct {
	cfg VenueConfig
	now func() time.Time

	mu        sync.Mutex
	deliver   func(ctx context.Context, e model.Event) bool
	working   map[string]*venueOrder
	backlog   []model.Command
	connected bool
	brokerSeq uint64
	execSeq   uint64
}

func NewSimulatedVenue(cfg VenueConfig, now func() time.Time) *SimulatedVenue {
	if cfg.Session == "" {
		cfg.Session = "SIM"
	}
	if now == nil {
		now = func() time.Time { return time.Now().UTC() }
	}
	return &SimulatedVenue{
		cfg:       cfg,
		now:       now,
		working:   make(map[string]*venueOrder),
		connected: true,
	}
}

// Attach sets where events are delivered, usually Client.Dispatch.
func (v *SimulatedVenue) Attach(deliver func(ctx context.Context, e model.Event) bool) {
	v.mu.Lock()
	v.deliver = deliver
	v.mu.Unlock()
}

// Send applies cmd and delivers the resulting events synchronously.
// While disconnected the command is kept for Reconnect and ErrVenueDisconnected is returned.
func (v *SimulatedVenue) Send(ctx context.Context, cmd model.Command) error {
	v.mu.Lock()
	if !v.connected {
		v.backlog = append(v.backlog, cmd)
		v.mu.Unlock()
		return exception.ErrVenueDisconnected
	}
	events := v.apply(cmd)
	deliver := v.deliver
	v.mu.Unlock()

	v.publish(ctx, deliver, events)
	return nil
}

func (v *SimulatedVenue) apply(cmd model.Command) []model.Event {
	o := cmd.Order
	now := v.now()
	switch cmd.Kind {
	case enum.CommandKindSubmitOrder:
		if _, ok := v.working[o.ID]; ok {
			return []model.Event{model.OrderRejected{
				EventHeader:    v.header(o, now),
				RejectedTime:   now,
				RejectedReason: "duplicate order id",
			}}
		}
		v.brokerSeq++
		wo := &venueOrder{order: o, brokerID: fmt.Sprintf("%s-%d", v.cfg.Session, v.brokerSeq)}
		v.working[o.ID] = wo
		return []model.Event{
			model.OrderSubmitted{EventHeader: v.header(o, now), SubmittedTime: now},
			model.OrderAccepted{EventHeader: v.header(o, now), AcceptedTime: now},
			model.OrderWorking{
				EventHeader:   v.header(o, now),
				BrokerOrderID: wo.brokerID,
				WorkingTime:   now,
			},
		}
	case enum.CommandKindCancelOrder:
		if _, ok := v.working[o.ID]; !ok {
			return []model.Event{v.cancelReject(o, now, "order not working")}
		}
		delete(v.working, o.ID)
		return []model.Event{model.OrderCancelled{EventHeader: v.header(o, now), CancelledTime: now}}
	case enum.CommandKindModifyOrder:
		wo, ok := v.working[o.ID]
		if !ok {
			return []model.Event{v.cancelReject(o, now, "order not working")}
		}
		wo.order.Price = cmd.ModifyPrice
		return []model.Event{model.OrderModified{
			EventHeader:   v.header(o, now),
			BrokerOrderID: wo.brokerID,
			ModifiedPrice: cmd.ModifyPrice,
			ModifiedTime:  now,
		}}
	default:
		return nil
	}
}

// Fill executes qty of a working order at price and publishes the cumulative filled
// quantity with the average price over all fills. The order leaves the book once fully filled.
func (v *SimulatedVenue) Fill(ctx context.Context, orderID string, qty int64, price decimal.Decimal) error {
	v.mu.Lock()
	wo, ok := v.working[orderID]
	if !ok {
		v.mu.Unlock()
		return exception.ErrUnknownOrder
	}
	leaves := wo.order.Quantity - wo.filled - qty
	if qty <= 0 || leaves < 0 {
		v.mu.Unlock()
		return exception.ErrInvalidFill
	}
	wo.filled += qty
	wo.notional = wo.notional.Add(price.Mul(decimal.NewFromInt(qty)))
	avg := wo.averagePrice()
	v.execSeq++
	now := v.now()
	execID := fmt.Sprintf("E-%s-%d", v.cfg.Session, v.execSeq)
	ticket := fmt.Sprintf("T-%s-%d", v.cfg.Session, v.execSeq)

	var e model.Event
	if leaves == 0 {
		delete(v.working, orderID)
		e = model.OrderFilled{
			EventHeader:     v.header(wo.order, now),
			ExecutionID:     execID,
			ExecutionTicket: ticket,
			OrderSide:       wo.order.Side,
			FilledQuantity:  wo.filled,
			AveragePrice:    avg,
			ExecutionTime:   now,
		}
	} else {
		e = model.OrderPartiallyFilled{
			EventHeader:     v.header(wo.order, now),
			ExecutionID:     execID,
			ExecutionTicket: ticket,
			OrderSide:       wo.order.Side,
			FilledQuantity:  wo.filled,
			LeavesQuantity:  leaves,
			AveragePrice:    avg,
			ExecutionTime:   now,
		}
	}
	deliver := v.deliver
	v.mu.Unlock()

	v.publish(ctx, deliver, []model.Event{e})
	return nil
}

// Expire removes a working order and publishes OrderExpired.
func (v *SimulatedVenue) Expire(ctx context.Context, orderID string) error {
	v.mu.Lock()
	wo, ok := v.working[orderID]
	if !ok {
		v.mu.Unlock()
		return exception.ErrUnknownOrder
	}
	delete(v.working, orderID)
	now := v.now()
	e := model.OrderExpired{EventHeader: v.header(wo.order, now), ExpiredTime: now}
	deliver := v.deliver
	v.mu.Unlock()

	v.publish(ctx, deliver, []model.Event{e})
	return nil
}

// Working returns how many orders rest at the venue.
func (v *SimulatedVenue) Working() int {
	v.mu.Lock()
	defer v.mu.Unlock()
	return len(v.working)
}

// Disconnect makes Send hold commands instead of applying them.
func (v *SimulatedVenue) Disconnect() {
	v.mu.Lock()
	v.connected = false
	v.mu.Unlock()
}

// Reconnect resumes Send. Held commands are replayed when ResendOnReconnect is set,
// otherwise dropped. It returns the number of commands replayed.
func (v *SimulatedVenue) Reconnect(ctx context.Context) (int, error) {
	v.mu.Lock()
	v.connected = true
	backlog := v.backlog
	v.backlog = nil
	v.mu.Unlock()

	if !v.cfg.ResendOnReconnect {
		return 0, nil
	}
	for i, cmd := range backlog {
		if err := v.Send(ctx, cmd); err != nil {
			return i, err
		}
	}
	return len(backlog), nil
}

func (v *SimulatedVenue) header(o model.Order, now time.Time) model.EventHeader {
	return model.EventHeader{
		EventID:        uuid.New(),
		EventTimestamp: now,
		Symbol:         o.Symbol,
		OrderID:        o.ID,
	}
}

func (v *SimulatedVenue) cancelReject(o model.Order, now time.Time, reason string) model.Event {
	return model.OrderCancelReject{
		EventHeader:        v.header(o, now),
		CancelRejectTime:   now,
		CancelRejectReason: reason,
	}
}

func (v *SimulatedVenue) publish(ctx context.Context, deliver func(context.Context, model.Event) bool, events []model.Event) {
	if deliver == nil {
		return
	}
	for _, e := range events {
		deliver(ctx, e)
	}
}
