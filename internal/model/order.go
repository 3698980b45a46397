package model

import (
	"time"

	"execgate/internal/model/enum"
	"execgate/pkg/exception"

	"github.com/shopspring/decimal"
)

// Order is the command payload a strategy submits. Its ID is client assigned and opaque.
type Order struct {
	ID          string
	Symbol      Symbol
	Label       string
	Side        enum.OrderSide
	Type        enum.OrderType
	Quantity    int64
	Price       decimal.Decimal
	TimeInForce enum.TimeInForce
	ExpireTime  time.Time
}

// Validate checks the fields the execution client relies on.
func (o Order) Validate() error {
	if o.ID == "" || o.Symbol.IsZero() {
		return exception.ErrInvalidOrder
	}
	if !o.Side.IsAvailable() || !o.Type.IsAvailable() {
		return exception.ErrInvalidOrder
	}
	if o.Quantity <= 0 {
		return exception.ErrInvalidOrder
	}
	if o.Type.RequiresPrice() && !o.Price.IsPositive() {
		return exception.ErrInvalidOrder
	}
	return nil
}
