package execution

import (
	"context"
	"fmt"
	"slices"
	"sync"
	"time"

	"execgate/internal/model"
	"execgate/internal/model/enum"
	"execgate/internal/obs"
	"execgate/pkg/exception"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/yanun0323/errors"
)

// RoutingError reports an event whose order has no registered owner.
type RoutingError struct {
	OrderID    string
	StrategyID string
}

func (e *RoutingError) Error() string {
	if e.StrategyID != "" {
		return fmt.Sprintf("%v: order %q owned by deregistered strategy %q", exception.ErrUnroutableEvent, e.OrderID, e.StrategyID)
	}
	return fmt.Sprintf("%v: order %q", exception.ErrUnroutableEvent, e.OrderID)
}

func (e *RoutingError) Unwrap() error {
	return exception.ErrUnroutableEvent
}

type Option func(*Client)

// WithSender sets where commands go. Without one, commands fail with ErrNilSender
// after ownership is recorded.
func WithSender(s Sender) Option {
	return func(c *Client) { c.sender = s }
}

func WithDiagnostics(d Diagnostics) Option {
	return func(c *Client) {
		if d != nil {
			c.diag = d
		}
	}
}

func WithJournal(j Journal) Option {
	return func(c *Client) { c.journal = j }
}

// WithRecorder keeps raw inbound frames. Only the live client records.
func WithRecorder(r Recorder) Option {
	return func(c *Client) { c.recorder = r }
}

func WithMetrics(m *obs.Metrics) Option {
	return func(c *Client) {
		if m != nil {
			c.metrics = m
		}
	}
}

func WithClock(now func() time.Time) Option {
	return func(c *Client) {
		if now != nil {
			c.now = now
		}
	}
}

// WithQueueCapacity sizes the frame queue of a live client.
func WithQueueCapacity(n int) Option {
	return func(c *Client) { c.queueCapacity = n }
}

// Client routes order events to the strategy that submitted the order.
// The registry and ownership table share one mutex; strategy handlers run outside it
// so they may issue commands from OnEvent.
type Client struct {
	mu         sync.Mutex
	strategies map[string]Strategy
	owners     map[string]string

	sender        Sender
	diag          Diagnostics
	journal       Journal
	recorder      Recorder
	metrics       *obs.Metrics
	now           func() time.Time
	queueCapacity int
}

func NewClient(opts ...Option) *Client {
	c := &Client{
		strategies: make(map[string]Strategy),
		owners:     make(map[string]string),
		diag:       LogDiagnostics{},
		metrics:    obs.NewMetrics(),
		now:        func() time.Time { return time.Now().UTC() },
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *Client) Metrics() *obs.Metrics {
	return c.metrics
}

// RegisterStrategy adds s to the registry and binds it to the client.
// A second registration under the same id fails and leaves the registry untouched.
func (c *Client) RegisterStrategy(s Strategy) error {
	if s == nil {
		return exception.ErrNilStrategy
	}
	id := s.ID()
	if id == "" {
		return exception.ErrEmptyStrategyID
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.strategies[id]; ok {
		return exception.ErrDuplicateRegistration
	}
	c.strategies[id] = s
	s.Bind(c)
	return nil
}

// Deregister removes a strategy. Its ownership entries stay, so later events for its
// orders are reported as unroutable.
func (c *Client) Deregister(strategyID string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.strategies[strategyID]; !ok {
		return exception.ErrUnknownStrategy
	}
	delete(c.strategies, strategyID)
	return nil
}

// SubmitOrder records strategyID as the owner of order.ID, then forwards the command.
// Resubmitting an order id moves ownership to the latest submitter. The entry is kept
// when the sender fails.
func (c *Client) SubmitOrder(ctx context.Context, strategyID string, order model.Order) error {
	if err := order.Validate(); err != nil {
		return err
	}

	c.mu.Lock()
	if _, ok := c.strategies[strategyID]; !ok {
		c.mu.Unlock()
		return exception.ErrUnknownStrategy
	}
	c.owners[order.ID] = strategyID
	c.mu.Unlock()

	return c.send(ctx, model.Command{
		Kind:       enum.CommandKindSubmitOrder,
		StrategyID: strategyID,
		Order:      order,
	})
}

// CancelOrder asks the venue to cancel an order owned by strategyID.
func (c *Client) CancelOrder(ctx context.Context, strategyID string, order model.Order, reason string) error {
	if err := c.checkOwner(strategyID, order.ID); err != nil {
		return err
	}
	return c.send(ctx, model.Command{
		Kind:         enum.CommandKindCancelOrder,
		StrategyID:   strategyID,
		Order:        order,
		CancelReason: reason,
	})
}

// ModifyOrder asks the venue to reprice an order owned by strategyID.
func (c *Client) ModifyOrder(ctx context.Context, strategyID string, order model.Order, price decimal.Decimal) error {
	if !price.IsPositive() {
		return exception.ErrInvalidArgument
	}
	if err := c.checkOwner(strategyID, order.ID); err != nil {
		return err
	}
	return c.send(ctx, model.Command{
		Kind:        enum.CommandKindModifyOrder,
		StrategyID:  strategyID,
		Order:       order,
		ModifyPrice: price,
	})
}

func (c *Client) checkOwner(strategyID, orderID string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.strategies[strategyID]; !ok {
		return exception.ErrUnknownStrategy
	}
	owner, ok := c.owners[orderID]
	if !ok {
		return exception.ErrUnknownOrder
	}
	if owner != strategyID {
		return exception.ErrNotOwner
	}
	return nil
}

func (c *Client) send(ctx context.Context, cmd model.Command) error {
	if c.sender == nil {
		return exception.ErrNilSender
	}
	cmd.ID = uuid.New()
	cmd.Timestamp = c.now()
	if err := c.sender.Send(ctx, cmd); err != nil {
		return errors.Wrapf(err, "send %s for order %s", cmd.Kind, cmd.Order.ID)
	}
	return nil
}

// Dispatch hands e to the strategy owning its order and reports whether it was routed.
// Events for unknown orders are reported as DiagnosticUnroutable and dropped.
func (c *Client) Dispatch(ctx context.Context, e model.Event) bool {
	if e == nil {
		return false
	}
	orderID := e.Header().OrderID

	c.mu.Lock()
	strategyID, owned := c.owners[orderID]
	s := c.strategies[strategyID]
	c.mu.Unlock()

	if s == nil {
		err := &RoutingError{OrderID: orderID}
		if owned {
			err.StrategyID = strategyID
		}
		c.metrics.IncUnroutable()
		c.diag.Report(Diagnostic{Kind: DiagnosticUnroutable, Err: err, Event: e})
		return false
	}

	start := time.Now()
	s.OnEvent(e)
	c.metrics.ObserveDispatch(time.Since(start))

	if c.journal != nil {
		if err := c.journal.Record(ctx, strategyID, e); err != nil {
			c.metrics.IncJournalError()
			c.diag.Report(Diagnostic{Kind: DiagnosticJournalFailure, Err: err, Event: e})
		}
	}
	return true
}

// Owner returns the strategy that last submitted orderID.
func (c *Client) Owner(orderID string) (string, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	id, ok := c.owners[orderID]
	return id, ok
}

// OwnedOrders lists the order ids currently owned by strategyID, sorted.
func (c *Client) OwnedOrders(strategyID string) []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	var out []string
	for orderID, owner := range c.owners {
		if owner == strategyID {
			out = append(out, orderID)
		}
	}
	slices.Sort(out)
	return out
}

// Strategies lists registered strategy ids, sorted.
func (c *Client) Strategies() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]string, 0, len(c.strategies))
	for id := range c.strategies {
		out = append(out, id)
	}
	slices.Sort(out)
	return out
}

// Evict drops the ownership entry of orderID. The client never evicts on its own.
func (c *Client) Evict(orderID string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.owners[orderID]; !ok {
		return false
	}
	delete(c.owners, orderID)
	return true
}
