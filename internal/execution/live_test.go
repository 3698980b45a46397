package execution

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"execgate/internal/codec"
	"execgate/internal/model"
	"execgate/internal/model/enum"
	"execgate/internal/transport"
	"execgate/pkg/exception"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newLiveClient(t *testing.T, opts ...Option) (*LiveClient, *recordingStrategy, *recordingDiagnostics) {
	t.Helper()
	diags := &recordingDiagnostics{}
	opts = append([]Option{WithSender(&recordingSender{}), WithClock(fixedClock), WithDiagnostics(diags)}, opts...)
	l := NewLiveClient(opts...)
	s := newRecordingStrategy("S1")
	require.NoError(t, l.RegisterStrategy(s))
	require.NoError(t, s.SubmitOrder(context.Background(), testOrder("O123456")))
	return l, s, diags
}

func textFrame(line string) transport.Frame {
	return transport.Frame{Encoding: transport.EncodingText, Channel: "text", Payload: []byte(line)}
}

func binaryFrame(t *testing.T, e model.Event) transport.Frame {
	t.Helper()
	payload, err := codec.EncodeBinary(e)
	require.NoError(t, err)
	return transport.Frame{Encoding: transport.EncodingBinary, Channel: "binary", Payload: payload}
}

func TestLiveClientHandleText(t *testing.T) {
	l, s, diags := newLiveClient(t)

	ok := l.Handle(context.Background(), textFrame(
		"order_filled:gbpusd.fxcm,O123456,EX123456,P123456,BUY,100000,1.50001,1970-01-01T00:00:00.000Z"))
	require.True(t, ok)
	assert.Empty(t, diags.All())

	events := s.Events()
	require.Len(t, events, 1)
	filled, isFilled := events[0].(model.OrderFilled)
	require.True(t, isFilled)
	assert.Equal(t, enum.OrderSideBuy, filled.OrderSide)
	assert.Equal(t, int64(100000), filled.FilledQuantity)
	assert.Equal(t, "1.50001", filled.AveragePrice.String())
	assert.Equal(t, unixEpoch, filled.EventTimestamp)
	assert.Equal(t, uint64(1), l.Metrics().Snapshot().Decoded[enum.EventKindOrderFilled])
}

func TestLiveClientHandleBinary(t *testing.T) {
	l, s, _ := newLiveClient(t)
	e := model.OrderModified{
		EventHeader: model.EventHeader{
			EventID:        uuid.New(),
			EventTimestamp: unixEpoch,
			Symbol:         gbpusdFXCM,
			OrderID:        "O123456",
		},
		BrokerOrderID: "BO123456",
		ModifiedPrice: decimal.RequireFromString("1.00001"),
		ModifiedTime:  unixEpoch,
	}

	require.True(t, l.Handle(context.Background(), binaryFrame(t, e)))
	events := s.Events()
	require.Len(t, events, 1)
	got, ok := events[0].(model.OrderModified)
	require.True(t, ok)
	assert.Equal(t, e.EventID, got.EventID)
	assert.Equal(t, "BO123456", got.BrokerOrderID)
	assert.True(t, e.ModifiedPrice.Equal(got.ModifiedPrice))
}

func TestLiveClientDecodeFailureDoesNotStopStream(t *testing.T) {
	l, s, diags := newLiveClient(t)
	src := transport.NewSliceSource(
		textFrame("order_accepted:gbpusd.fxcm,O123456,1970-01-01T00:00:00.000Z"),
		textFrame("order_teleported:gbpusd.fxcm,O123456,1970-01-01T00:00:00.000Z"),
		transport.Frame{Encoding: transport.EncodingBinary, Payload: []byte{0xc1}},
		transport.Frame{Payload: []byte("no encoding")},
		textFrame("order_accepted:gbpusd.fxcm,UNKNOWN,1970-01-01T00:00:00.000Z"),
		textFrame("order_working:gbpusd.fxcm,O123456,BO1,1970-01-01T00:00:00.000Z"),
	)

	require.NoError(t, l.Run(context.Background(), src))

	assert.Equal(t, []enum.EventKind{enum.EventKindOrderAccepted, enum.EventKindOrderWorking}, s.Kinds())

	got := diags.All()
	require.Len(t, got, 4)
	assert.Equal(t, DiagnosticDecodeFailure, got[0].Kind)
	require.ErrorIs(t, got[0].Err, exception.ErrUnknownEventType)
	assert.Equal(t, DiagnosticDecodeFailure, got[1].Kind)
	assert.Equal(t, DiagnosticDecodeFailure, got[2].Kind)
	require.ErrorIs(t, got[2].Err, exception.ErrUnknownEncoding)
	assert.Equal(t, DiagnosticUnroutable, got[3].Kind)

	snap := l.Metrics().Snapshot()
	assert.Equal(t, uint64(3), snap.DecodeFailures)
	assert.Equal(t, uint64(1), snap.Unroutable)
	assert.NotZero(t, got[0].Frame.Seq)
}

type failingSource struct{ err error }

func (f failingSource) Next(ctx context.Context) (transport.Frame, error) {
	return transport.Frame{}, f.err
}

func TestLiveClientRunStops(t *testing.T) {
	l, _, _ := newLiveClient(t)

	require.ErrorIs(t, l.Run(context.Background(), nil), exception.ErrNilInstance)
	require.Error(t, l.Run(context.Background(), failingSource{err: errors.New("broker gone")}))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	require.NoError(t, l.Run(ctx, failingSource{err: context.Canceled}))
}

func TestLiveClientQueue(t *testing.T) {
	l, s, diags := newLiveClient(t, WithQueueCapacity(2))

	require.NoError(t, l.Enqueue(textFrame("order_accepted:gbpusd.fxcm,O123456,1970-01-01T00:00:00.000Z")))
	require.NoError(t, l.Enqueue(textFrame("order_working:gbpusd.fxcm,O123456,BO1,1970-01-01T00:00:00.000Z")))
	require.ErrorIs(t, l.Enqueue(textFrame("order_expired:gbpusd.fxcm,O123456,1970-01-01T00:00:00.000Z")), exception.ErrQueueFull)

	got := diags.All()
	require.Len(t, got, 1)
	assert.Equal(t, DiagnosticDropped, got[0].Kind)
	assert.Equal(t, uint64(1), l.Metrics().Snapshot().QueueDrops)

	l.Close()
	require.ErrorIs(t, l.Enqueue(textFrame("order_expired:gbpusd.fxcm,O123456,1970-01-01T00:00:00.000Z")), exception.ErrQueueClosed)

	done := make(chan struct{})
	go func() {
		l.RunQueue(context.Background())
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("RunQueue did not return after Close")
	}

	assert.Equal(t, []enum.EventKind{enum.EventKindOrderAccepted, enum.EventKindOrderWorking}, s.Kinds())
}

type frameRecorder struct {
	mu     sync.Mutex
	frames []transport.Frame
	err    error
}

func (r *frameRecorder) TryAppend(f transport.Frame) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return r.err
	}
	r.frames = append(r.frames, f)
	return nil
}

func TestLiveClientRecordsEveryFrame(t *testing.T) {
	rec := &frameRecorder{}
	l, s, _ := newLiveClient(t, WithRecorder(rec))

	l.Handle(context.Background(), textFrame("order_accepted:gbpusd.fxcm,O123456,1970-01-01T00:00:00.000Z"))
	l.Handle(context.Background(), textFrame("garbage"))

	require.Len(t, rec.frames, 2)
	assert.Equal(t, "garbage", string(rec.frames[1].Payload))
	assert.NotZero(t, rec.frames[0].Seq)
	assert.Len(t, s.Events(), 1)
}

func TestLiveClientRecordFailureStillDispatches(t *testing.T) {
	rec := &frameRecorder{err: errors.New("disk full")}
	l, s, diags := newLiveClient(t, WithRecorder(rec))

	require.True(t, l.Handle(context.Background(), textFrame("order_accepted:gbpusd.fxcm,O123456,1970-01-01T00:00:00.000Z")))
	assert.Len(t, s.Events(), 1)

	got := diags.All()
	require.Len(t, got, 1)
	assert.Equal(t, DiagnosticRecordFailure, got[0].Kind)
	assert.Equal(t, uint64(1), l.Metrics().Snapshot().RecordErrors)
}
