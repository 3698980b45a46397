package model

import (
	"time"

	"execgate/internal/model/enum"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Command is an order instruction on its way to the venue gateway.
// ModifyPrice is set for modify commands, CancelReason for cancel commands.
type Command struct {
	ID           uuid.UUID
	Kind         enum.CommandKind
	StrategyID   string
	Order        Order
	ModifyPrice  decimal.Decimal
	CancelReason string
	Timestamp    time.Time
}
