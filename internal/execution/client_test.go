package execution

import (
	"context"
	"errors"
	"strconv"
	"sync"
	"testing"

	"execgate/internal/model"
	"execgate/internal/model/enum"
	"execgate/pkg/exception"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegisterStrategyBindsClient(t *testing.T) {
	c := NewClient()
	s := newRecordingStrategy("S1")

	require.NoError(t, c.RegisterStrategy(s))
	assert.Same(t, c, s.ExecutionClient())
	assert.Equal(t, []string{"S1"}, c.Strategies())
}

func TestRegisterStrategyTwice(t *testing.T) {
	c := NewClient(WithSender(&recordingSender{}))
	first := newRecordingStrategy("S1")
	require.NoError(t, c.RegisterStrategy(first))

	require.ErrorIs(t, c.RegisterStrategy(first), exception.ErrDuplicateRegistration)

	impostor := newRecordingStrategy("S1")
	require.ErrorIs(t, c.RegisterStrategy(impostor), exception.ErrDuplicateRegistration)
	assert.Nil(t, impostor.ExecutionClient())
	assert.Equal(t, []string{"S1"}, c.Strategies())

	c2 := NewClient(WithSender(&recordingSender{}))
	require.NoError(t, c2.RegisterStrategy(newRecordingStrategy("S1")))
	require.NoError(t, first.SubmitOrder(context.Background(), testOrder("O1")))
	_, ok := c2.Owner("O1")
	assert.False(t, ok, "clients are independent")
}

func TestRegisterStrategyInvalid(t *testing.T) {
	c := NewClient()
	require.ErrorIs(t, c.RegisterStrategy(nil), exception.ErrNilStrategy)
	require.ErrorIs(t, c.RegisterStrategy(newRecordingStrategy("")), exception.ErrEmptyStrategyID)
	assert.Empty(t, c.Strategies())
}

func TestUnboundStrategyCannotCommand(t *testing.T) {
	s := newRecordingStrategy("S1")
	ctx := context.Background()
	require.ErrorIs(t, s.SubmitOrder(ctx, testOrder("O1")), exception.ErrNilInstance)
	require.ErrorIs(t, s.CancelOrder(ctx, testOrder("O1"), "x"), exception.ErrNilInstance)
	require.ErrorIs(t, s.ModifyOrder(ctx, testOrder("O1"), decimal.RequireFromString("1.1")), exception.ErrNilInstance)
}

func TestSubmitOrder(t *testing.T) {
	ctx := context.Background()

	t.Run("unknown strategy", func(t *testing.T) {
		sender := &recordingSender{}
		c := NewClient(WithSender(sender))
		require.ErrorIs(t, c.SubmitOrder(ctx, "nobody", testOrder("O1")), exception.ErrUnknownStrategy)
		_, ok := c.Owner("O1")
		assert.False(t, ok)
		assert.Empty(t, sender.Commands())
	})

	t.Run("invalid order", func(t *testing.T) {
		c := NewClient(WithSender(&recordingSender{}))
		require.NoError(t, c.RegisterStrategy(newRecordingStrategy("S1")))
		o := testOrder("O1")
		o.Quantity = 0
		require.ErrorIs(t, c.SubmitOrder(ctx, "S1", o), exception.ErrInvalidOrder)
	})

	t.Run("ownership recorded before send", func(t *testing.T) {
		var c *Client
		var ownerAtSend string
		c = NewClient(WithClock(fixedClock), WithSender(SenderFunc(func(ctx context.Context, cmd model.Command) error {
			ownerAtSend, _ = c.Owner(cmd.Order.ID)
			return nil
		})))
		require.NoError(t, c.RegisterStrategy(newRecordingStrategy("S1")))
		require.NoError(t, c.SubmitOrder(ctx, "S1", testOrder("O1")))
		assert.Equal(t, "S1", ownerAtSend)
	})

	t.Run("command fields", func(t *testing.T) {
		sender := &recordingSender{}
		c := NewClient(WithClock(fixedClock), WithSender(sender))
		s := newRecordingStrategy("S1")
		require.NoError(t, c.RegisterStrategy(s))
		require.NoError(t, s.SubmitOrder(ctx, testOrder("O1")))

		cmds := sender.Commands()
		require.Len(t, cmds, 1)
		assert.Equal(t, enum.CommandKindSubmitOrder, cmds[0].Kind)
		assert.Equal(t, "S1", cmds[0].StrategyID)
		assert.Equal(t, testOrder("O1"), cmds[0].Order)
		assert.Equal(t, unixEpoch, cmds[0].Timestamp)
		assert.NotZero(t, cmds[0].ID)
	})

	t.Run("sender failure keeps ownership", func(t *testing.T) {
		boom := errors.New("gateway down")
		c := NewClient(WithSender(&recordingSender{err: boom}))
		require.NoError(t, c.RegisterStrategy(newRecordingStrategy("S1")))
		require.Error(t, c.SubmitOrder(ctx, "S1", testOrder("O1")))
		owner, ok := c.Owner("O1")
		assert.True(t, ok)
		assert.Equal(t, "S1", owner)
	})

	t.Run("no sender", func(t *testing.T) {
		c := NewClient()
		require.NoError(t, c.RegisterStrategy(newRecordingStrategy("S1")))
		require.ErrorIs(t, c.SubmitOrder(ctx, "S1", testOrder("O1")), exception.ErrNilSender)
		_, ok := c.Owner("O1")
		assert.True(t, ok)
	})
}

func TestCancelAndModifyRequireOwnership(t *testing.T) {
	ctx := context.Background()
	sender := &recordingSender{}
	c := NewClient(WithSender(sender))
	s1 := newRecordingStrategy("S1")
	s2 := newRecordingStrategy("S2")
	require.NoError(t, c.RegisterStrategy(s1))
	require.NoError(t, c.RegisterStrategy(s2))
	require.NoError(t, s1.SubmitOrder(ctx, testOrder("O1")))

	price := decimal.RequireFromString("1.30001")

	require.ErrorIs(t, c.CancelOrder(ctx, "nobody", testOrder("O1"), "x"), exception.ErrUnknownStrategy)
	require.ErrorIs(t, s1.CancelOrder(ctx, testOrder("O9"), "x"), exception.ErrUnknownOrder)
	require.ErrorIs(t, s2.CancelOrder(ctx, testOrder("O1"), "x"), exception.ErrNotOwner)
	require.ErrorIs(t, s2.ModifyOrder(ctx, testOrder("O1"), price), exception.ErrNotOwner)
	require.ErrorIs(t, s1.ModifyOrder(ctx, testOrder("O1"), decimal.Zero), exception.ErrInvalidArgument)

	require.NoError(t, s1.ModifyOrder(ctx, testOrder("O1"), price))
	require.NoError(t, s1.CancelOrder(ctx, testOrder("O1"), "done"))

	cmds := sender.Commands()
	require.Len(t, cmds, 3)
	assert.Equal(t, enum.CommandKindModifyOrder, cmds[1].Kind)
	assert.True(t, price.Equal(cmds[1].ModifyPrice))
	assert.Equal(t, enum.CommandKindCancelOrder, cmds[2].Kind)
	assert.Equal(t, "done", cmds[2].CancelReason)
}

func TestDispatchRoutesToMostRecentSubmitter(t *testing.T) {
	ctx := context.Background()
	c := NewClient(WithSender(&recordingSender{}))
	s1 := newRecordingStrategy("S1")
	s2 := newRecordingStrategy("S2")
	s3 := newRecordingStrategy("S3")
	for _, s := range []Strategy{s1, s2, s3} {
		require.NoError(t, c.RegisterStrategy(s))
	}

	require.NoError(t, s1.SubmitOrder(ctx, testOrder("O1")))
	require.NoError(t, s2.SubmitOrder(ctx, testOrder("O1")))
	require.NoError(t, s3.SubmitOrder(ctx, testOrder("O3")))

	e := accepted("O1")
	assert.True(t, c.Dispatch(ctx, e))

	assert.Empty(t, s1.Events())
	require.Len(t, s2.Events(), 1)
	assert.Equal(t, e, s2.Events()[0])
	assert.Empty(t, s3.Events())
	assert.Equal(t, []string{"O1"}, c.OwnedOrders("S2"))
	assert.Empty(t, c.OwnedOrders("S1"))
}

func TestDispatchUnroutable(t *testing.T) {
	ctx := context.Background()
	diags := &recordingDiagnostics{}
	c := NewClient(WithSender(&recordingSender{}), WithDiagnostics(diags))
	s := newRecordingStrategy("S1")
	require.NoError(t, c.RegisterStrategy(s))
	require.NoError(t, s.SubmitOrder(ctx, testOrder("O1")))

	e := accepted("NEVER-SUBMITTED")
	assert.NotPanics(t, func() {
		assert.False(t, c.Dispatch(ctx, e))
	})
	assert.False(t, c.Dispatch(ctx, nil))

	assert.Empty(t, s.Events())
	got := diags.All()
	require.Len(t, got, 1)
	assert.Equal(t, DiagnosticUnroutable, got[0].Kind)
	assert.Equal(t, e, got[0].Event)
	require.ErrorIs(t, got[0].Err, exception.ErrUnroutableEvent)
	assert.Equal(t, uint64(1), c.Metrics().Snapshot().Unroutable)

	assert.True(t, c.Dispatch(ctx, accepted("O1")), "the client keeps routing after an unroutable event")
}

func TestDispatchAfterDeregister(t *testing.T) {
	ctx := context.Background()
	diags := &recordingDiagnostics{}
	c := NewClient(WithSender(&recordingSender{}), WithDiagnostics(diags))
	s := newRecordingStrategy("S1")
	require.NoError(t, c.RegisterStrategy(s))
	require.NoError(t, s.SubmitOrder(ctx, testOrder("O1")))

	require.NoError(t, c.Deregister("S1"))
	require.ErrorIs(t, c.Deregister("S1"), exception.ErrUnknownStrategy)

	assert.False(t, c.Dispatch(ctx, accepted("O1")))
	got := diags.All()
	require.Len(t, got, 1)
	var routing *RoutingError
	require.ErrorAs(t, got[0].Err, &routing)
	assert.Equal(t, "O1", routing.OrderID)
	assert.Equal(t, "S1", routing.StrategyID)
}

func TestEvict(t *testing.T) {
	ctx := context.Background()
	c := NewClient(WithSender(&recordingSender{}), WithDiagnostics(&recordingDiagnostics{}))
	s := newRecordingStrategy("S1")
	require.NoError(t, c.RegisterStrategy(s))
	require.NoError(t, s.SubmitOrder(ctx, testOrder("O1")))
	require.NoError(t, s.SubmitOrder(ctx, testOrder("O2")))
	assert.Equal(t, []string{"O1", "O2"}, c.OwnedOrders("S1"))

	assert.True(t, c.Evict("O1"))
	assert.False(t, c.Evict("O1"))
	assert.Equal(t, []string{"O2"}, c.OwnedOrders("S1"))
	assert.False(t, c.Dispatch(ctx, accepted("O1")))
}

func TestDispatchJournal(t *testing.T) {
	ctx := context.Background()
	journal := &recordingJournal{}
	diags := &recordingDiagnostics{}
	c := NewClient(WithSender(&recordingSender{}), WithJournal(journal), WithDiagnostics(diags))
	s := newRecordingStrategy("S1")
	require.NoError(t, c.RegisterStrategy(s))
	require.NoError(t, s.SubmitOrder(ctx, testOrder("O1")))

	require.True(t, c.Dispatch(ctx, accepted("O1")))
	assert.Equal(t, []string{"S1/O1/order_accepted"}, journal.entries)

	journal.err = errors.New("db down")
	require.True(t, c.Dispatch(ctx, accepted("O1")), "journal failure does not undo delivery")
	got := diags.All()
	require.Len(t, got, 1)
	assert.Equal(t, DiagnosticJournalFailure, got[0].Kind)
	assert.Equal(t, uint64(1), c.Metrics().Snapshot().JournalErrors)
	assert.Len(t, s.Events(), 2)
}

func TestHandlerMayCommandFromOnEvent(t *testing.T) {
	ctx := context.Background()
	venue := NewSimulatedVenue(VenueConfig{}, fixedClock)
	c := NewClient(WithSender(venue), WithClock(fixedClock))
	venue.Attach(c.Dispatch)

	s := newRecordingStrategy("S1")
	s.onEvent = func(s *recordingStrategy, e model.Event) {
		if _, ok := e.(model.OrderWorking); ok && e.Header().OrderID == "O1" {
			require.NoError(t, s.CancelOrder(ctx, testOrder("O1"), "flip"))
		}
	}
	require.NoError(t, c.RegisterStrategy(s))
	require.NoError(t, s.SubmitOrder(ctx, testOrder("O1")))

	assert.Equal(t, []enum.EventKind{
		enum.EventKindOrderSubmitted,
		enum.EventKindOrderAccepted,
		enum.EventKindOrderWorking,
		enum.EventKindOrderCancelled,
	}, s.Kinds())
}

func TestConcurrentRegisterSubmitDispatch(t *testing.T) {
	const (
		strategies = 8
		orders     = 50
	)
	ctx := context.Background()
	diags := &recordingDiagnostics{}
	c := NewClient(WithSender(&recordingSender{}), WithDiagnostics(diags))

	orderID := func(i, j int) string {
		return "S" + strconv.Itoa(i) + "-O" + strconv.Itoa(j)
	}

	ss := make([]*recordingStrategy, strategies)
	for i := range ss {
		ss[i] = newRecordingStrategy("S" + strconv.Itoa(i))
	}

	var wg sync.WaitGroup
	for i := range ss {
		wg.Add(1)
		go func() {
			defer wg.Done()
			s := ss[i]
			if !assert.NoError(t, c.RegisterStrategy(s)) {
				return
			}
			for j := 0; j < orders; j++ {
				id := orderID(i, j)
				if !assert.NoError(t, s.SubmitOrder(ctx, testOrder(id))) {
					return
				}
				assert.True(t, c.Dispatch(ctx, accepted(id)))
			}
		}()
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < orders; j++ {
				_ = c.Strategies()
				_ = c.OwnedOrders("S" + strconv.Itoa(i))
				_, _ = c.Owner(orderID(i, j))
			}
		}()
	}
	wg.Wait()

	// every order is now owned; dispatch them again from goroutines that did not submit them
	for i := range ss {
		wg.Add(1)
		go func() {
			defer wg.Done()
			peer := (i + 1) % strategies
			for j := 0; j < orders; j++ {
				assert.True(t, c.Dispatch(ctx, accepted(orderID(peer, j))))
			}
		}()
	}
	wg.Wait()

	assert.Empty(t, diags.All())
	for i, s := range ss {
		events := s.Events()
		require.Len(t, events, 2*orders, s.ID())
		seen := make(map[string]int, orders)
		for _, e := range events {
			seen[e.Header().OrderID]++
		}
		require.Len(t, seen, orders, s.ID())
		for j := 0; j < orders; j++ {
			assert.Equal(t, 2, seen[orderID(i, j)], orderID(i, j))
		}
		assert.Len(t, c.OwnedOrders(s.ID()), orders)
	}
}
