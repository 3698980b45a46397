package main

import (
	"context"
	"time"

	"execgate/internal/codec"
	"execgate/internal/execution"
	"execgate/internal/model"
	"execgate/internal/transport"

	"github.com/yanun0323/logs"
)

// venueFeed encodes simulated venue events as binary frames and enqueues them on
// live, so they reach strategies through RunQueue like frames from any other source.
func venueFeed(live *execution.LiveClient, channel string, now func() time.Time) func(context.Context, model.Event) bool {
	if now == nil {
		now = func() time.Time { return time.Now().UTC() }
	}
	return func(_ context.Context, e model.Event) bool {
		payload, err := codec.EncodeBinary(e)
		if err != nil {
			logs.Errorf("encode venue event %s for order %s, err: %+v", e.Kind(), e.Header().OrderID, err)
			return false
		}
		return live.Enqueue(transport.Frame{
			Encoding:   transport.EncodingBinary,
			Channel:    channel,
			Payload:    payload,
			ReceivedAt: now(),
		}) == nil
	}
}
