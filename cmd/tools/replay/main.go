package main

import (
	"context"
	"flag"
	"fmt"
	"net"
	"os"
	"os/signal"
	"syscall"
	"time"

	"execgate/internal/codec"
	"execgate/internal/model"
	"execgate/internal/recorder"
	"execgate/internal/transport"

	"github.com/yanun0323/errors"
	"github.com/yanun0323/logs"
)

func main() {
	dir := flag.String("dir", "testdata/frames", "recorded frame directory")
	prefix := flag.String("prefix", "", "segment file prefix (default: frames)")
	speed := flag.Float64("speed", 0, "playback speed (1=real-time, 0=no pacing)")
	noChecksum := flag.Bool("no-checksum", false, "disable checksum validation")
	maxPayload := flag.Int("max-payload", 0, "max payload size in bytes (0=unlimited)")
	decode := flag.Bool("decode", false, "decode each frame and print the event")
	only := flag.String("encoding", "", "replay only binary or text frames")
	from := flag.String("from", "", "skip frames received before this RFC3339 time")
	to := flag.String("to", "", "skip frames received after this RFC3339 time")
	binarySock := flag.String("uds-binary", "", "forward binary frames to this socket")
	textSock := flag.String("uds-text", "", "forward text frames to this socket")
	flag.Parse()

	pbCfg := recorder.PlaybackConfig{
		Dir:             *dir,
		FilePrefix:      *prefix,
		Speed:           *speed,
		DisableChecksum: *noChecksum,
		MaxPayloadSize:  *maxPayload,
	}
	if err := applyFilters(&pbCfg, *only, *from, *to); err != nil {
		logs.Errorf("replay: %+v", err)
		os.Exit(1)
	}

	if err := run(replayOptions{
		playback:   pbCfg,
		decode:     *decode,
		binarySock: *binarySock,
		textSock:   *textSock,
	}); err != nil {
		logs.Errorf("replay: %+v", err)
		os.Exit(1)
	}
}

func applyFilters(cfg *recorder.PlaybackConfig, only, from, to string) error {
	if only != "" {
		enc, ok := transport.ParseEncoding(only)
		if !ok {
			return errors.Errorf("unknown encoding %q", only)
		}
		cfg.Encoding = enc
	}
	for _, b := range []struct {
		raw string
		dst *time.Time
	}{{from, &cfg.From}, {to, &cfg.To}} {
		if b.raw == "" {
			continue
		}
		t, err := time.Parse(time.RFC3339Nano, b.raw)
		if err != nil {
			return errors.Wrapf(err, "parse time %q", b.raw)
		}
		*b.dst = t
	}
	return nil
}

type replayOptions struct {
	playback   recorder.PlaybackConfig
	decode     bool
	binarySock string
	textSock   string
}

func run(opt replayOptions) error {
	pb, err := recorder.NewPlayback(opt.playback)
	if err != nil {
		return err
	}

	conns := make(map[transport.Encoding]net.Conn)
	defer func() {
		for _, c := range conns {
			_ = c.Close()
		}
	}()
	for enc, path := range map[transport.Encoding]string{
		transport.EncodingBinary: opt.binarySock,
		transport.EncodingText:   opt.textSock,
	} {
		if path == "" {
			continue
		}
		c, err := transport.DialUDS(path)
		if err != nil {
			return errors.Wrapf(err, "dial %s", path)
		}
		conns[enc] = c
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	text := codec.NewTextDecoder(func() time.Time { return time.Now().UTC() })
	var index, forwarded int
	err = pb.Run(ctx, func(f transport.Frame) error {
		index++
		fmt.Printf("%06d seq=%d enc=%s channel=%s recv=%s len=%d\n",
			index, f.Seq, f.Encoding, f.Channel, f.ReceivedAt.Format(time.RFC3339Nano), len(f.Payload))
		if opt.decode {
			printDecoded(text, f)
		}
		if c, ok := conns[f.Encoding]; ok {
			if err := transport.WriteFrame(c, f.Payload); err != nil {
				return errors.Wrapf(err, "forward frame %d", f.Seq)
			}
			forwarded++
		}
		return nil
	})
	logs.Infof("replayed %d frames, forwarded %d", index, forwarded)
	return err
}

func printDecoded(text *codec.TextDecoder, f transport.Frame) {
	var (
		e   model.Event
		err error
	)
	switch f.Encoding {
	case transport.EncodingBinary:
		e, err = codec.DecodeBinary(f.Payload)
	case transport.EncodingText:
		e, err = text.Decode(string(f.Payload))
	default:
		fmt.Printf("  unknown encoding %d\n", f.Encoding)
		return
	}
	if err != nil {
		fmt.Printf("  decode failed: %v\n", err)
		return
	}
	h := e.Header()
	fmt.Printf("  %s order=%s symbol=%s event=%s ts=%s\n",
		e.Kind(), h.OrderID, h.Symbol, h.EventID, h.EventTimestamp.Format(time.RFC3339Nano))
}
