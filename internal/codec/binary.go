package codec

import (
	"bytes"

	"execgate/internal/model"
	"execgate/internal/model/enum"
	"execgate/pkg/exception"

	"github.com/vmihailenco/msgpack/v5"
)

// DecodeBinary decodes a msgpack map frame into one order event.
// It holds no state: the same frame always yields the same event or the same error.
func DecodeBinary(frame []byte) (model.Event, error) {
	var raw map[string]any
	if err := msgpack.Unmarshal(frame, &raw); err != nil {
		return nil, &FieldError{Field: "frame", Value: err.Error(), Err: exception.ErrMalformedEvent}
	}
	if raw == nil {
		return nil, &FieldError{Field: "frame", Err: exception.ErrMalformedEvent}
	}

	for _, key := range headerKeys {
		if v, ok := raw[key]; !ok || v == nil {
			return nil, &FieldError{Field: key, Err: exception.ErrMissingField}
		}
	}

	f := &fields{raw: raw}
	tag := f.str(keyEventType)
	if f.err != nil {
		return nil, f.err
	}
	kind, ok := enum.ParseEventKind(tag)
	if !ok {
		return nil, &FieldError{Field: keyEventType, Value: tag, Err: exception.ErrUnknownEventType}
	}

	for _, key := range layoutOf(kind) {
		if v, ok := raw[key]; !ok || v == nil {
			return nil, &FieldError{Field: key, Err: exception.ErrMissingField}
		}
	}

	h := model.EventHeader{
		Symbol:         f.symbol(keySymbol),
		OrderID:        f.str(keyOrderID),
		EventID:        f.eventID(keyEventID),
		EventTimestamp: f.time(keyEventTimestamp),
	}
	if f.err != nil {
		return nil, f.err
	}
	if err := h.Validate(); err != nil {
		return nil, &FieldError{Field: keyOrderID, Value: h.OrderID, Err: err}
	}

	return build(kind, h, f)
}

// EncodeBinary writes the canonical msgpack frame of e with sorted keys.
func EncodeBinary(e model.Event) ([]byte, error) {
	if e == nil {
		return nil, exception.ErrNilInstance
	}
	h := e.Header()
	m := map[string]any{
		keySymbol:         h.Symbol.String(),
		keyOrderID:        h.OrderID,
		keyEventID:        h.EventID.String(),
		keyEventTimestamp: FormatTimestamp(h.EventTimestamp),
		keyEventType:      e.Kind().String(),
	}
	model.Visit(e, binaryFields(m))

	var buf bytes.Buffer
	enc := msgpack.NewEncoder(&buf)
	enc.SetSortMapKeys(true)
	if err := enc.Encode(m); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// binaryFields fills the variant keys of an outgoing frame.
type binaryFields map[string]any

func (m binaryFields) OrderSubmitted(e model.OrderSubmitted) {
	m[keySubmittedTime] = FormatTimestamp(e.SubmittedTime)
}

func (m binaryFields) OrderAccepted(e model.OrderAccepted) {
	m[keyAcceptedTime] = FormatTimestamp(e.AcceptedTime)
}

func (m binaryFields) OrderRejected(e model.OrderRejected) {
	m[keyRejectedTime] = FormatTimestamp(e.RejectedTime)
	m[keyRejectedReason] = e.RejectedReason
}

func (m binaryFields) OrderWorking(e model.OrderWorking) {
	m[keyBrokerOrderID] = e.BrokerOrderID
	m[keyWorkingTime] = FormatTimestamp(e.WorkingTime)
}

func (m binaryFields) OrderCancelled(e model.OrderCancelled) {
	m[keyCancelledTime] = FormatTimestamp(e.CancelledTime)
}

func (m binaryFields) OrderCancelReject(e model.OrderCancelReject) {
	m[keyCancelRejectTime] = FormatTimestamp(e.CancelRejectTime)
	m[keyCancelRejectReason] = e.CancelRejectReason
}

func (m binaryFields) OrderModified(e model.OrderModified) {
	m[keyBrokerOrderID] = e.BrokerOrderID
	m[keyModifiedPrice] = e.ModifiedPrice.String()
	m[keyModifiedTime] = FormatTimestamp(e.ModifiedTime)
}

func (m binaryFields) OrderExpired(e model.OrderExpired) {
	m[keyExpiredTime] = FormatTimestamp(e.ExpiredTime)
}

func (m binaryFields) OrderFilled(e model.OrderFilled) {
	m[keyExecutionID] = e.ExecutionID
	m[keyExecutionTicket] = e.ExecutionTicket
	m[keyOrderSide] = e.OrderSide.String()
	m[keyFilledQuantity] = e.FilledQuantity
	m[keyAveragePrice] = e.AveragePrice.String()
	m[keyExecutionTime] = FormatTimestamp(e.ExecutionTime)
}

func (m binaryFields) OrderPartiallyFilled(e model.OrderPartiallyFilled) {
	m[keyExecutionID] = e.ExecutionID
	m[keyExecutionTicket] = e.ExecutionTicket
	m[keyOrderSide] = e.OrderSide.String()
	m[keyFilledQuantity] = e.FilledQuantity
	m[keyLeavesQuantity] = e.LeavesQuantity
	m[keyAveragePrice] = e.AveragePrice.String()
	m[keyExecutionTime] = FormatTimestamp(e.ExecutionTime)
}
