package execution

import (
	"context"
	"errors"
	"io"
	"time"

	"execgate/internal/bus"
	"execgate/internal/codec"
	"execgate/internal/model"
	"execgate/internal/obs"
	"execgate/internal/transport"
	"execgate/pkg/exception"

	errs "github.com/yanun0323/errors"
	"github.com/yanun0323/logs"
)

const defaultQueueCapacity = 4096

// LiveClient decodes inbound frames and dispatches the events they carry.
// Frames are handled one at a time in arrival order.
type LiveClient struct {
	*Client

	text  *codec.TextDecoder
	queue *bus.Queue
	seq   *obs.Sequence
}

func NewLiveClient(opts ...Option) *LiveClient {
	c := NewClient(opts...)
	capacity := c.queueCapacity
	if capacity <= 0 {
		capacity = defaultQueueCapacity
	}
	return &LiveClient{
		Client: c,
		text:   codec.NewTextDecoder(c.now),
		queue:  bus.NewQueue(capacity),
		seq:    obs.NewSequence(0),
	}
}

// Handle decodes f with the decoder for its encoding and dispatches the result.
// A frame that fails to decode is reported and dropped. With a recorder attached the
// frame is recorded first, and a recording failure never stops delivery.
func (l *LiveClient) Handle(ctx context.Context, f transport.Frame) bool {
	if f.Seq == 0 {
		f.Seq = l.seq.Next()
	}
	if l.recorder != nil {
		if err := l.recorder.TryAppend(f); err != nil {
			l.metrics.IncRecordError()
			l.diag.Report(Diagnostic{Kind: DiagnosticRecordFailure, Err: err, Frame: f})
		}
	}
	e, err := l.decode(f)
	if err != nil {
		l.metrics.IncDecodeFailure()
		l.diag.Report(Diagnostic{Kind: DiagnosticDecodeFailure, Err: err, Frame: f})
		return false
	}
	l.metrics.ObserveDecoded(e.Kind(), e.Time(), f.ReceivedAt)
	return l.Dispatch(ctx, e)
}

func (l *LiveClient) decode(f transport.Frame) (model.Event, error) {
	switch f.Encoding {
	case transport.EncodingBinary:
		return codec.DecodeBinary(f.Payload)
	case transport.EncodingText:
		return l.text.Decode(string(f.Payload))
	default:
		return nil, exception.ErrUnknownEncoding
	}
}

// Run pulls frames from src until it is exhausted or ctx ends. Only a source failure
// is returned as an error.
func (l *LiveClient) Run(ctx context.Context, src transport.Source) error {
	if src == nil {
		return exception.ErrNilInstance
	}
	start := time.Now()
	var handled uint64
	defer func() {
		logs.Infof("live client stopped, frames: %d, elapsed: %s", handled, time.Since(start))
	}()

	for {
		f, err := src.Next(ctx)
		if err != nil {
			if errors.Is(err, io.EOF) || ctx.Err() != nil {
				return nil
			}
			return errs.Wrap(err, "next frame")
		}
		l.Handle(ctx, f)
		handled++
	}
}

// Enqueue hands a frame to RunQueue without blocking. A refused frame is reported
// as DiagnosticDropped.
func (l *LiveClient) Enqueue(f transport.Frame) error {
	if f.Seq == 0 {
		f.Seq = l.seq.Next()
	}
	if err := l.queue.TryPublish(f); err != nil {
		l.metrics.IncQueueDrop()
		l.diag.Report(Diagnostic{Kind: DiagnosticDropped, Err: err, Frame: f})
		return err
	}
	return nil
}

// RunQueue handles enqueued frames until ctx ends or Close has been called and the
// queue is drained.
func (l *LiveClient) RunQueue(ctx context.Context) {
	l.queue.Run(ctx, func(f transport.Frame) {
		l.Handle(ctx, f)
	})
}

// Close stops accepting enqueued frames.
func (l *LiveClient) Close() {
	l.queue.Close()
}
