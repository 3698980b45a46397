package model

import (
	"time"

	"execgate/internal/model/enum"
	"execgate/pkg/exception"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// EventHeader is shared by every order event.
// EventTimestamp is when the event object was created, not the venue time of the event.
type EventHeader struct {
	EventID        uuid.UUID
	EventTimestamp time.Time
	Symbol         Symbol
	OrderID        string
}

// Header returns the shared fields of the event.
func (h EventHeader) Header() EventHeader {
	return h
}

// Validate rejects headers without a symbol or an order id.
func (h EventHeader) Validate() error {
	if h.Symbol.IsZero() || h.OrderID == "" {
		return exception.ErrMalformedEvent
	}
	return nil
}

// Event is one of the ten order event variants. The set is closed.
type Event interface {
	Header() EventHeader
	Kind() enum.EventKind
	// Time is the venue timestamp carried by the variant.
	Time() time.Time

	accept(Visitor)
}

// Visitor handles every event variant. Adding a variant breaks every implementation
// until it handles the new case.
type Visitor interface {
	OrderSubmitted(OrderSubmitted)
	OrderAccepted(OrderAccepted)
	OrderRejected(OrderRejected)
	OrderWorking(OrderWorking)
	OrderCancelled(OrderCancelled)
	OrderCancelReject(OrderCancelReject)
	OrderModified(OrderModified)
	OrderExpired(OrderExpired)
	OrderFilled(OrderFilled)
	OrderPartiallyFilled(OrderPartiallyFilled)
}

// Visit calls the visitor method matching the event variant.
func Visit(e Event, v Visitor) {
	if e == nil || v == nil {
		return
	}
	e.accept(v)
}

type OrderSubmitted struct {
	EventHeader
	SubmittedTime time.Time
}

func (OrderSubmitted) Kind() enum.EventKind { return enum.EventKindOrderSubmitted }
func (e OrderSubmitted) Time() time.Time    { return e.SubmittedTime }
func (e OrderSubmitted) accept(v Visitor)   { v.OrderSubmitted(e) }

type OrderAccepted struct {
	EventHeader
	AcceptedTime time.Time
}

func (OrderAccepted) Kind() enum.EventKind { return enum.EventKindOrderAccepted }
func (e OrderAccepted) Time() time.Time    { return e.AcceptedTime }
func (e OrderAccepted) accept(v Visitor)   { v.OrderAccepted(e) }

type OrderRejected struct {
	EventHeader
	RejectedTime   time.Time
	RejectedReason string
}

func (OrderRejected) Kind() enum.EventKind { return enum.EventKindOrderRejected }
func (e OrderRejected) Time() time.Time    { return e.RejectedTime }
func (e OrderRejected) accept(v Visitor)   { v.OrderRejected(e) }

type OrderWorking struct {
	EventHeader
	BrokerOrderID string
	WorkingTime   time.Time
}

func (OrderWorking) Kind() enum.EventKind { return enum.EventKindOrderWorking }
func (e OrderWorking) Time() time.Time    { return e.WorkingTime }
func (e OrderWorking) accept(v Visitor)   { v.OrderWorking(e) }

type OrderCancelled struct {
	EventHeader
	CancelledTime time.Time
}

func (OrderCancelled) Kind() enum.EventKind { return enum.EventKindOrderCancelled }
func (e OrderCancelled) Time() time.Time    { return e.CancelledTime }
func (e OrderCancelled) accept(v Visitor)   { v.OrderCancelled(e) }

type OrderCancelReject struct {
	EventHeader
	CancelRejectTime   time.Time
	CancelRejectReason string
}

func (OrderCancelReject) Kind() enum.EventKind { return enum.EventKindOrderCancelReject }
func (e OrderCancelReject) Time() time.Time    { return e.CancelRejectTime }
func (e OrderCancelReject) accept(v Visitor)   { v.OrderCancelReject(e) }

type OrderModified struct {
	EventHeader
	BrokerOrderID string
	ModifiedPrice decimal.Decimal
	ModifiedTime  time.Time
}

func (OrderModified) Kind() enum.EventKind { return enum.EventKindOrderModified }
func (e OrderModified) Time() time.Time    { return e.ModifiedTime }
func (e OrderModified) accept(v Visitor)   { v.OrderModified(e) }

type OrderExpired struct {
	EventHeader
	ExpiredTime time.Time
}

func (OrderExpired) Kind() enum.EventKind { return enum.EventKindOrderExpired }
func (e OrderExpired) Time() time.Time    { return e.ExpiredTime }
func (e OrderExpired) accept(v Visitor)   { v.OrderExpired(e) }

type OrderFilled struct {
	EventHeader
	ExecutionID     string
	ExecutionTicket string
	OrderSide       enum.OrderSide
	FilledQuantity  int64
	AveragePrice    decimal.Decimal
	ExecutionTime   time.Time
}

func (OrderFilled) Kind() enum.EventKind { return enum.EventKindOrderFilled }
func (e OrderFilled) Time() time.Time    { return e.ExecutionTime }
func (e OrderFilled) accept(v Visitor)   { v.OrderFilled(e) }

// OrderPartiallyFilled carries LeavesQuantity, the size still open at the venue.
// FilledQuantity+LeavesQuantity is reconciled by the strategy, not here.
type OrderPartiallyFilled struct {
	EventHeader
	ExecutionID     string
	ExecutionTicket string
	OrderSide       enum.OrderSide
	FilledQuantity  int64
	LeavesQuantity  int64
	AveragePrice    decimal.Decimal
	ExecutionTime   time.Time
}

func (OrderPartiallyFilled) Kind() enum.EventKind { return enum.EventKindOrderPartiallyFilled }
func (e OrderPartiallyFilled) Time() time.Time    { return e.ExecutionTime }
func (e OrderPartiallyFilled) accept(v Visitor)   { v.OrderPartiallyFilled(e) }

var (
	_ Event = OrderSubmitted{}
	_ Event = OrderAccepted{}
	_ Event = OrderRejected{}
	_ Event = OrderWorking{}
	_ Event = OrderCancelled{}
	_ Event = OrderCancelReject{}
	_ Event = OrderModified{}
	_ Event = OrderExpired{}
	_ Event = OrderFilled{}
	_ Event = OrderPartiallyFilled{}
)

// IsTerminal reports whether the event closes the order at the venue.
func IsTerminal(e Event) bool {
	switch e.Kind() {
	case enum.EventKindOrderRejected, enum.EventKindOrderCancelled,
		enum.EventKindOrderExpired, enum.EventKindOrderFilled:
		return true
	default:
		return false
	}
}
