package main

import (
	"context"

	"execgate/internal/execution"
	"execgate/internal/lifecycle"
	"execgate/internal/model"

	"github.com/yanun0323/logs"
)

// desk logs the events of its own orders and, when tracking, checks them against the
// order lifecycle.
type desk struct {
	execution.Base

	tracker *lifecycle.Tracker
}

func newDesk(id string, track bool) *desk {
	d := &desk{Base: execution.NewBase(id)}
	if track {
		d.tracker = lifecycle.NewTracker()
	}
	return d
}

func (d *desk) OnEvent(e model.Event) {
	h := e.Header()
	if d.tracker == nil {
		logs.Infof("%s: %s %s at %s", d.ID(), e.Kind(), h.OrderID, e.Time())
		return
	}

	o, err := d.tracker.Apply(e)
	if err != nil {
		logs.Errorf("%s: %s for order %s rejected by lifecycle (state %s), err: %+v", d.ID(), e.Kind(), h.OrderID, o.State, err)
		return
	}
	logs.Infof("%s: order %s %s, filled %d, leaves %d", d.ID(), h.OrderID, o.State, o.FilledQuantity, o.LeavesQuantity)
	if o.State.IsTerminal() {
		d.tracker.Forget(h.OrderID)
	}
}

// Submit tracks o before sending so synchronous venue replies find it.
func (d *desk) Submit(ctx context.Context, o model.Order) error {
	if d.tracker != nil {
		if err := d.tracker.Track(o); err != nil {
			return err
		}
	}
	return d.SubmitOrder(ctx, o)
}
