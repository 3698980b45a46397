package codec

import (
	"strconv"
	"time"

	"execgate/internal/model"
	"execgate/internal/model/enum"
	"execgate/pkg/exception"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// fields reads typed values out of a decoded frame and keeps the first error.
type fields struct {
	raw map[string]any
	err error
}

func (f *fields) fail(name, value string, sentinel error) {
	if f.err == nil {
		f.err = &FieldError{Field: name, Value: value, Err: sentinel}
	}
}

// scalar returns the value as text. Missing and nil values fail with ErrMissingField.
func (f *fields) scalar(name string, onBad error) (string, bool) {
	if f.err != nil {
		return "", false
	}
	v, ok := f.raw[name]
	if !ok || v == nil {
		f.fail(name, "", exception.ErrMissingField)
		return "", false
	}
	s, ok := scalarString(v)
	if !ok {
		f.fail(name, "", onBad)
		return "", false
	}
	return s, true
}

func (f *fields) str(name string) string {
	s, _ := f.scalar(name, exception.ErrMalformedEvent)
	return s
}

func (f *fields) time(name string) time.Time {
	if f.err == nil {
		if t, ok := f.raw[name].(time.Time); ok {
			return t.UTC()
		}
	}
	s, ok := f.scalar(name, exception.ErrMalformedTimestamp)
	if !ok {
		return time.Time{}
	}
	t, err := parseTimestamp(s)
	if err != nil {
		f.fail(name, s, exception.ErrMalformedTimestamp)
		return time.Time{}
	}
	return t
}

func (f *fields) decimal(name string) decimal.Decimal {
	s, ok := f.scalar(name, exception.ErrMalformedDecimal)
	if !ok {
		return decimal.Zero
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		f.fail(name, s, exception.ErrMalformedDecimal)
		return decimal.Zero
	}
	return d
}

func (f *fields) quantity(name string) int64 {
	s, ok := f.scalar(name, exception.ErrMalformedDecimal)
	if !ok {
		return 0
	}
	q, err := strconv.ParseInt(s, 10, 64)
	if err != nil || q < 0 {
		f.fail(name, s, exception.ErrMalformedDecimal)
		return 0
	}
	return q
}

func (f *fields) side(name string) enum.OrderSide {
	s, ok := f.scalar(name, exception.ErrInvalidEnumValue)
	if !ok {
		return 0
	}
	side, ok := enum.ParseOrderSide(s)
	if !ok {
		f.fail(name, s, exception.ErrInvalidEnumValue)
		return 0
	}
	return side
}

func (f *fields) symbol(name string) model.Symbol {
	s, ok := f.scalar(name, exception.ErrMalformedEvent)
	if !ok {
		return model.Symbol{}
	}
	sym, err := model.ParseSymbol(s)
	if err != nil {
		f.fail(name, s, err)
		return model.Symbol{}
	}
	return sym
}

func (f *fields) eventID(name string) uuid.UUID {
	s, ok := f.scalar(name, exception.ErrMalformedEvent)
	if !ok {
		return uuid.Nil
	}
	id, err := uuid.Parse(s)
	if err != nil {
		f.fail(name, s, exception.ErrMalformedEvent)
		return uuid.Nil
	}
	return id
}

func parseTimestamp(s string) (time.Time, error) {
	t, err := time.Parse(TimestampLayout, s)
	if err != nil {
		return time.Time{}, err
	}
	return t.UTC(), nil
}

// FormatTimestamp renders t in the wire layout.
func FormatTimestamp(t time.Time) string {
	return t.UTC().Format(TimestampLayout)
}

// scalarString converts wire scalars to text. Floats are refused so prices never pass
// through binary floating point.
func scalarString(v any) (string, bool) {
	switch x := v.(type) {
	case string:
		return x, true
	case []byte:
		return string(x), true
	case int8:
		return strconv.FormatInt(int64(x), 10), true
	case int16:
		return strconv.FormatInt(int64(x), 10), true
	case int32:
		return strconv.FormatInt(int64(x), 10), true
	case int64:
		return strconv.FormatInt(x, 10), true
	case int:
		return strconv.FormatInt(int64(x), 10), true
	case uint8:
		return strconv.FormatUint(uint64(x), 10), true
	case uint16:
		return strconv.FormatUint(uint64(x), 10), true
	case uint32:
		return strconv.FormatUint(uint64(x), 10), true
	case uint64:
		return strconv.FormatUint(x, 10), true
	case uint:
		return strconv.FormatUint(uint64(x), 10), true
	default:
		return "", false
	}
}

// build assembles the variant for kind. The header must already be validated.
func build(kind enum.EventKind, h model.EventHeader, f *fields) (model.Event, error) {
	var e model.Event
	switch kind {
	case enum.EventKindOrderSubmitted:
		e = model.OrderSubmitted{
			EventHeader:   h,
			SubmittedTime: f.time(keySubmittedTime),
		}
	case enum.EventKindOrderAccepted:
		e = model.OrderAccepted{
			EventHeader:  h,
			AcceptedTime: f.time(keyAcceptedTime),
		}
	case enum.EventKindOrderRejected:
		e = model.OrderRejected{
			EventHeader:    h,
			RejectedTime:   f.time(keyRejectedTime),
			RejectedReason: f.str(keyRejectedReason),
		}
	case enum.EventKindOrderWorking:
		e = model.OrderWorking{
			EventHeader:   h,
			BrokerOrderID: f.str(keyBrokerOrderID),
			WorkingTime:   f.time(keyWorkingTime),
		}
	case enum.EventKindOrderCancelled:
		e = model.OrderCancelled{
			EventHeader:   h,
			CancelledTime: f.time(keyCancelledTime),
		}
	case enum.EventKindOrderCancelReject:
		e = model.OrderCancelReject{
			EventHeader:        h,
			CancelRejectTime:   f.time(keyCancelRejectTime),
			CancelRejectReason: f.str(keyCancelRejectReason),
		}
	case enum.EventKindOrderModified:
		e = model.OrderModified{
			EventHeader:   h,
			BrokerOrderID: f.str(keyBrokerOrderID),
			ModifiedPrice: f.decimal(keyModifiedPrice),
			ModifiedTime:  f.time(keyModifiedTime),
		}
	case enum.EventKindOrderExpired:
		e = model.OrderExpired{
			EventHeader: h,
			ExpiredTime: f.time(keyExpiredTime),
		}
	case enum.EventKindOrderFilled:
		e = model.OrderFilled{
			EventHeader:     h,
			ExecutionID:     f.str(keyExecutionID),
			ExecutionTicket: f.str(keyExecutionTicket),
			OrderSide:       f.side(keyOrderSide),
			FilledQuantity:  f.quantity(keyFilledQuantity),
			AveragePrice:    f.decimal(keyAveragePrice),
			ExecutionTime:   f.time(keyExecutionTime),
		}
	case enum.EventKindOrderPartiallyFilled:
		e = model.OrderPartiallyFilled{
			EventHeader:     h,
			ExecutionID:     f.str(keyExecutionID),
			ExecutionTicket: f.str(keyExecutionTicket),
			OrderSide:       f.side(keyOrderSide),
			FilledQuantity:  f.quantity(keyFilledQuantity),
			LeavesQuantity:  f.quantity(keyLeavesQuantity),
			AveragePrice:    f.decimal(keyAveragePrice),
			ExecutionTime:   f.time(keyExecutionTime),
		}
	default:
		return nil, &FieldError{Field: keyEventType, Value: kind.String(), Err: exception.ErrUnknownEventType}
	}

	if f.err != nil {
		return nil, f.err
	}
	return e, nil
}
