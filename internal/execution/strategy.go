package execution

import (
	"context"
	"sync"

	"execgate/internal/model"
	"execgate/pkg/exception"

	"github.com/shopspring/decimal"
)

// Commander is the command side of the execution client as seen by a strategy.
type Commander interface {
	SubmitOrder(ctx context.Context, strategyID string, order model.Order) error
	CancelOrder(ctx context.Context, strategyID string, order model.Order, reason string) error
	ModifyOrder(ctx context.Context, strategyID string, order model.Order, price decimal.Decimal) error
}

// Strategy receives the events of the orders it submitted.
// OnEvent is called synchronously from dispatch; a slow handler holds up the stream.
type Strategy interface {
	ID() string
	OnEvent(e model.Event)
	// Bind is called once on registration with the client the strategy commands through.
	Bind(c Commander)
}

// Base is embedded by strategies to keep the client back-reference and issue commands under their own id.
type Base struct {
	id string

	mu   sync.RWMutex
	exec Commander
}

func NewBase(id string) Base {
	return Base{id: id}
}

func (b *Base) ID() string {
	return b.id
}

func (b *Base) Bind(c Commander) {
	b.mu.Lock()
	b.exec = c
	b.mu.Unlock()
}

// ExecutionClient returns the bound client, nil before registration.
func (b *Base) ExecutionClient() Commander {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.exec
}

func (b *Base) SubmitOrder(ctx context.Context, order model.Order) error {
	c := b.ExecutionClient()
	if c == nil {
		return exception.ErrNilInstance
	}
	return c.SubmitOrder(ctx, b.id, order)
}

func (b *Base) CancelOrder(ctx context.Context, order model.Order, reason string) error {
	c := b.ExecutionClient()
	if c == nil {
		return exception.ErrNilInstance
	}
	return c.CancelOrder(ctx, b.id, order, reason)
}

func (b *Base) ModifyOrder(ctx context.Context, order model.Order, price decimal.Decimal) error {
	c := b.ExecutionClient()
	if c == nil {
		return exception.ErrNilInstance
	}
	return c.ModifyOrder(ctx, b.id, order, price)
}
