package lifecycle

import (
	"sync"
	"time"

	"execgate/internal/model"
	"execgate/pkg/exception"

	"github.com/shopspring/decimal"
)

// State tracks the lifecycle of an order.
type State uint8

const (
	_state_beg State = iota
	StateInitialized
	StateSubmitted
	StateAccepted
	StateRejected
	StateWorking
	StateCancelled
	StateExpired
	StatePartiallyFilled
	StateFilled
	_state_end
)

func (s State) IsAvailable() bool {
	return s > _state_beg && s < _state_end
}

// IsTerminal reports whether no further transition is allowed.
func (s State) IsTerminal() bool {
	switch s {
	case StateRejected, StateCancelled, StateExpired, StateFilled:
		return true
	default:
		return false
	}
}

func (s State) String() string {
	switch s {
	case StateInitialized:
		return "INITIALIZED"
	case StateSubmitted:
		return "SUBMITTED"
	case StateAccepted:
		return "ACCEPTED"
	case StateRejected:
		return "REJECTED"
	case StateWorking:
		return "WORKING"
	case StateCancelled:
		return "CANCELLED"
	case StateExpired:
		return "EXPIRED"
	case StatePartiallyFilled:
		return "PARTIALLY_FILLED"
	case StateFilled:
		return "FILLED"
	default:
		return "UNKNOWN"
	}
}

// Order holds the tracked view of an order.
type Order struct {
	model.Order
	BrokerOrderID  string
	State          State
	FilledQuantity int64
	LeavesQuantity int64
	AveragePrice   decimal.Decimal
	LastEventTime  time.Time
}

// Tracker applies order events to tracked orders and rejects impossible sequences,
// such as a fill before the order was accepted.
type Tracker struct {
	mu     sync.Mutex
	orders map[string]*Order
}

func NewTracker() *Tracker {
	return &Tracker{orders: make(map[string]*Order)}
}

// Track starts tracking o in StateInitialized.
func (t *Tracker) Track(o model.Order) error {
	if o.ID == "" {
		return exception.ErrUnknownOrder
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	if _, ok := t.orders[o.ID]; ok {
		return exception.ErrDuplicateOrder
	}
	t.orders[o.ID] = &Order{
		Order:          o,
		State:          StateInitialized,
		LeavesQuantity: o.Quantity,
	}
	return nil
}

// Order returns a copy of the tracked order.
func (t *Tracker) Order(id string) (Order, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	o, ok := t.orders[id]
	if !ok {
		return Order{}, false
	}
	return *o, true
}

// Len returns the number of tracked orders.
func (t *Tracker) Len() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.orders)
}

// Forget stops tracking a terminal order.
func (t *Tracker) Forget(id string) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	o, ok := t.orders[id]
	if !ok || !o.State.IsTerminal() {
		return false
	}
	delete(t.orders, id)
	return true
}

// Apply moves the order of e to its next state. On error the order is unchanged
// and its current view is returned.
func (t *Tracker) Apply(e model.Event) (Order, error) {
	if e == nil {
		return Order{}, exception.ErrNilInstance
	}
	t.mu.Lock()
	defer t.mu.Unlock()

	o, ok := t.orders[e.Header().OrderID]
	if !ok {
		return Order{}, exception.ErrUnknownOrder
	}
	if o.State.IsTerminal() {
		return *o, exception.ErrInvalidTransition
	}

	next := *o
	tr := transition{o: &next}
	model.Visit(e, &tr)
	if tr.err != nil {
		return *o, tr.err
	}
	next.LastEventTime = e.Time()
	*o = next
	return next, nil
}

type transition struct {
	o   *Order
	err error
}

func (tr *transition) move(to State, from ...State) bool {
	for _, s := range from {
		if tr.o.State == s {
			tr.o.State = to
			return true
		}
	}
	tr.err = exception.ErrInvalidTransition
	return false
}

// fill applies a cumulative filled quantity and average price reported by the venue.
func (tr *transition) fill(cum, leaves int64, avg decimal.Decimal) bool {
	if cum <= tr.o.FilledQuantity || cum > tr.o.Quantity || leaves != tr.o.Quantity-cum {
		tr.err = exception.ErrInvalidFill
		return false
	}
	tr.o.FilledQuantity = cum
	tr.o.LeavesQuantity = leaves
	tr.o.AveragePrice = avg
	return true
}

func (tr *transition) OrderSubmitted(model.OrderSubmitted) {
	tr.move(StateSubmitted, StateInitialized)
}

func (tr *transition) OrderAccepted(model.OrderAccepted) {
	tr.move(StateAccepted, StateSubmitted)
}

func (tr *transition) OrderRejected(model.OrderRejected) {
	tr.move(StateRejected, StateInitialized, StateSubmitted, StateAccepted)
}

func (tr *transition) OrderWorking(e model.OrderWorking) {
	if tr.move(StateWorking, StateSubmitted, StateAccepted) {
		tr.o.BrokerOrderID = e.BrokerOrderID
	}
}

func (tr *transition) OrderCancelled(model.OrderCancelled) {
	tr.move(StateCancelled, StateAccepted, StateWorking, StatePartiallyFilled)
}

// A rejected cancel leaves the order where it was.
func (tr *transition) OrderCancelReject(model.OrderCancelReject) {}

func (tr *transition) OrderModified(e model.OrderModified) {
	if tr.o.State != StateWorking && tr.o.State != StatePartiallyFilled {
		tr.err = exception.ErrInvalidTransition
		return
	}
	tr.o.Price = e.ModifiedPrice
	if e.BrokerOrderID != "" {
		tr.o.BrokerOrderID = e.BrokerOrderID
	}
}

func (tr *transition) OrderExpired(model.OrderExpired) {
	tr.move(StateExpired, StateAccepted, StateWorking, StatePartiallyFilled)
}

// OrderFilled carries no leaves quantity; the order is done at its cumulative fill.
func (tr *transition) OrderFilled(e model.OrderFilled) {
	if !tr.canFill() || !tr.fill(e.FilledQuantity, tr.o.Quantity-e.FilledQuantity, e.AveragePrice) {
		return
	}
	tr.o.State = StateFilled
	tr.o.LeavesQuantity = 0
}

func (tr *transition) OrderPartiallyFilled(e model.OrderPartiallyFilled) {
	if !tr.canFill() || !tr.fill(e.FilledQuantity, e.LeavesQuantity, e.AveragePrice) {
		return
	}
	if tr.o.LeavesQuantity == 0 {
		tr.err = exception.ErrInvalidFill
		return
	}
	tr.o.State = StatePartiallyFilled
}

func (tr *transition) canFill() bool {
	switch tr.o.State {
	case StateAccepted, StateWorking, StatePartiallyFilled:
		return true
	default:
		tr.err = exception.ErrInvalidTransition
		return false
	}
}
