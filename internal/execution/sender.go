package execution

import (
	"context"

	"execgate/internal/model"
	"execgate/internal/transport"
)

// Sender forwards commands to the venue gateway.
type Sender interface {
	Send(ctx context.Context, cmd model.Command) error
}

type SenderFunc func(ctx context.Context, cmd model.Command) error

func (f SenderFunc) Send(ctx context.Context, cmd model.Command) error {
	return f(ctx, cmd)
}

// Journal persists routed events.
type Journal interface {
	Record(ctx context.Context, strategyID string, e model.Event) error
}

// Recorder keeps a copy of every inbound frame, decodable or not.
type Recorder interface {
	TryAppend(f transport.Frame) error
}
