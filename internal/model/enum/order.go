package enum

import "strings"

// OrderSide buy, sell
type OrderSide uint8

const (
	_order_side_beg OrderSide = iota
	OrderSideBuy
	OrderSideSell
	_order_side_end
)

func (s OrderSide) IsAvailable() bool {
	return s > _order_side_beg && s < _order_side_end
}

func (s OrderSide) String() string {
	switch s {
	case OrderSideBuy:
		return "BUY"
	case OrderSideSell:
		return "SELL"
	default:
		return "UNKNOWN"
	}
}

// ParseOrderSide accepts only the literal wire tokens BUY and SELL.
func ParseOrderSide(s string) (OrderSide, bool) {
	switch s {
	case "BUY":
		return OrderSideBuy, true
	case "SELL":
		return OrderSideSell, true
	default:
		return _order_side_beg, false
	}
}

// OrderType market, limit, stop
type OrderType uint8

const (
	_order_type_beg OrderType = iota
	OrderTypeMarket
	OrderTypeLimit
	OrderTypeStopMarket
	OrderTypeStopLimit
	_order_type_end
)

func (t OrderType) IsAvailable() bool {
	return t > _order_type_beg && t < _order_type_end
}

func (t OrderType) String() string {
	switch t {
	case OrderTypeMarket:
		return "MARKET"
	case OrderTypeLimit:
		return "LIMIT"
	case OrderTypeStopMarket:
		return "STOP_MARKET"
	case OrderTypeStopLimit:
		return "STOP_LIMIT"
	default:
		return "UNKNOWN"
	}
}

// ParseOrderType accepts the String form, case-insensitive.
func ParseOrderType(s string) (OrderType, bool) {
	for t := _order_type_beg + 1; t < _order_type_end; t++ {
		if strings.EqualFold(s, t.String()) {
			return t, true
		}
	}
	return _order_type_beg, false
}

// RequiresPrice reports whether orders of this type carry a price.
func (t OrderType) RequiresPrice() bool {
	return t == OrderTypeLimit || t == OrderTypeStopMarket || t == OrderTypeStopLimit
}

// TimeInForce DAY, GTC, IOC, FOK
type TimeInForce uint8

const (
	_time_in_force_beg TimeInForce = iota
	TimeInForceDay
	TimeInForceGTC
	TimeInForceIOC
	TimeInForceFOK
	_time_in_force_end
)

func (t TimeInForce) IsAvailable() bool {
	return t > _time_in_force_beg && t < _time_in_force_end
}

func (t TimeInForce) String() string {
	switch t {
	case TimeInForceDay:
		return "DAY"
	case TimeInForceGTC:
		return "GTC"
	case TimeInForceIOC:
		return "IOC"
	case TimeInForceFOK:
		return "FOK"
	default:
		return "UNKNOWN"
	}
}

// ParseTimeInForce accepts the String form, case-insensitive.
func ParseTimeInForce(s string) (TimeInForce, bool) {
	for t := _time_in_force_beg + 1; t < _time_in_force_end; t++ {
		if strings.EqualFold(s, t.String()) {
			return t, true
		}
	}
	return _time_in_force_beg, false
}
