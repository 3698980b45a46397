package main

import (
	"context"
	"testing"
	"time"

	"execgate/internal/codec"
	"execgate/internal/lifecycle"
	"execgate/internal/model"
	"execgate/internal/model/enum"
	"execgate/internal/transport"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func paperConfig(encoding string) sessionConfig {
	return sessionConfig{
		Seed:       11,
		Orders:     25,
		Symbol:     model.NewSymbol("GBPUSD", enum.VenueFXCM),
		BasePrice:  decimal.RequireFromString("1.27000"),
		Encoding:   encoding,
		FillRate:   0.5,
		CancelRate: 0.3,
		ModifyRate: 0.3,
		Start:      time.Date(2024, 3, 1, 9, 30, 0, 0, time.UTC),
		Step:       time.Millisecond,
	}
}

func decodeFrame(t *testing.T, f transport.Frame) model.Event {
	t.Helper()
	var (
		e   model.Event
		err error
	)
	switch f.Encoding {
	case transport.EncodingBinary:
		e, err = codec.DecodeBinary(f.Payload)
	case transport.EncodingText:
		e, err = codec.DecodeText(string(f.Payload))
	default:
		t.Fatalf("unexpected encoding %s", f.Encoding)
	}
	require.NoError(t, err)
	return e
}

func TestSessionProducesValidLifecycles(t *testing.T) {
	for _, encoding := range []string{"binary", "text", "mixed"} {
		t.Run(encoding, func(t *testing.T) {
			var frames []transport.Frame
			sess, err := newSession(paperConfig(encoding), func(f transport.Frame) error {
				frames = append(frames, f)
				return nil
			})
			require.NoError(t, err)
			require.NoError(t, sess.Run(context.Background()))
			require.Len(t, sess.submitted, 25)

			tracker := lifecycle.NewTracker()
			for _, o := range sess.submitted {
				require.NoError(t, tracker.Track(o))
			}
			for i, f := range frames {
				assert.Equal(t, uint64(i+1), f.Seq)
				if encoding != "mixed" {
					assert.Equal(t, encoding, f.Encoding.String())
				}
				_, err := tracker.Apply(decodeFrame(t, f))
				require.NoError(t, err)
			}
			for _, o := range sess.submitted {
				got, ok := tracker.Order(o.ID)
				require.True(t, ok)
				assert.True(t, got.State.IsTerminal(), "order %s ended in %s", o.ID, got.State)
			}
			assert.Zero(t, sess.venue.Working())
		})
	}
}

func TestNewSessionValidates(t *testing.T) {
	emit := func(transport.Frame) error { return nil }
	cfg := paperConfig("yaml")
	_, err := newSession(cfg, emit)
	require.Error(t, err)

	cfg = paperConfig("binary")
	cfg.FillRate, cfg.CancelRate = 0.8, 0.5
	_, err = newSession(cfg, emit)
	require.Error(t, err)
}
