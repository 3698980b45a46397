package main

import (
	"context"
	"testing"
	"time"

	"execgate/internal/codec"
	"execgate/internal/execution"
	"execgate/internal/model"
	"execgate/internal/recorder"
	"execgate/internal/transport"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecordedSessionReplaysIntoFreshClient(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	dir := t.TempDir()

	rec, err := recorder.NewWriter(recorder.DefaultConfig(dir))
	require.NoError(t, err)
	require.NoError(t, rec.Start(ctx))

	venue := execution.NewSimulatedVenue(execution.VenueConfig{}, nil)
	live := execution.NewLiveClient(execution.WithSender(venue), execution.WithRecorder(rec))
	venue.Attach(func(ctx context.Context, e model.Event) bool {
		payload, err := codec.EncodeBinary(e)
		require.NoError(t, err)
		return live.Handle(ctx, transport.Frame{Encoding: transport.EncodingBinary, Channel: "venue", Payload: payload})
	})

	d := newDesk("desk", true)
	require.NoError(t, live.RegisterStrategy(d))
	require.NoError(t, d.Submit(ctx, deskOrder("O1")))
	require.NoError(t, venue.Fill(ctx, "O1", 40000, decimal.RequireFromString("0.66")))
	require.NoError(t, rec.Close())
	assert.Equal(t, uint64(4), rec.Stats().Frames)

	// A fresh client learns ownership through its own submit, then rebuilds the
	// order from the recording.
	replayed := execution.NewLiveClient(execution.WithSender(execution.SenderFunc(
		func(context.Context, model.Command) error { return nil })))
	d2 := newDesk("desk", true)
	require.NoError(t, replayed.RegisterStrategy(d2))
	require.NoError(t, d2.Submit(ctx, deskOrder("O1")))

	pb, err := recorder.NewPlayback(recorder.PlaybackConfig{Dir: dir})
	require.NoError(t, err)
	require.NoError(t, replayed.Run(ctx, pb.Source(ctx)))

	o, ok := d2.tracker.Order("O1")
	require.True(t, ok)
	assert.Equal(t, int64(40000), o.FilledQuantity)
	assert.Equal(t, int64(60000), o.LeavesQuantity)
	assert.Zero(t, replayed.Metrics().Snapshot().Unroutable)
}
