package main

import (
	"context"
	"errors"
	"flag"
	"os"
	"time"

	"execgate/internal/chaos"
	"execgate/internal/recorder"
	"execgate/internal/transport"

	"github.com/yanun0323/logs"
)

func main() {
	inputDir := flag.String("input-dir", "testdata/frames", "input recording directory")
	inputPrefix := flag.String("input-prefix", "", "input segment prefix (default: frames)")
	outputDir := flag.String("output-dir", "testdata/frames_chaos", "output recording directory")
	outputPrefix := flag.String("output-prefix", "chaos", "output segment prefix")
	seed := flag.Int64("seed", 0, "RNG seed (0=now)")
	dropRate := flag.Float64("drop-rate", 0, "drop probability [0-1]")
	dupRate := flag.Float64("dup-rate", 0, "duplicate probability [0-1]")
	corruptRate := flag.Float64("corrupt-rate", 0, "payload corruption probability [0-1]")
	reorderWindow := flag.Int("reorder-window", 1, "reorder window (>=1)")
	maxDelay := flag.Duration("max-delay", 0, "max receive delay")
	noChecksum := flag.Bool("no-checksum", false, "disable checksum validation")
	flag.Parse()

	err := run(
		recorder.PlaybackConfig{Dir: *inputDir, FilePrefix: *inputPrefix, DisableChecksum: *noChecksum},
		chaos.Config{
			Seed:          *seed,
			DropRate:      *dropRate,
			DuplicateRate: *dupRate,
			CorruptRate:   *corruptRate,
			ReorderWindow: *reorderWindow,
			MaxDelay:      *maxDelay,
		},
		*outputDir, *outputPrefix,
	)
	if err != nil {
		logs.Errorf("chaos: %+v", err)
		os.Exit(1)
	}
}

func run(in recorder.PlaybackConfig, cfg chaos.Config, outputDir, outputPrefix string) error {
	pb, err := recorder.NewPlayback(in)
	if err != nil {
		return err
	}
	engine, err := chaos.NewEngine(cfg)
	if err != nil {
		return err
	}

	outCfg := recorder.DefaultConfig(outputDir)
	outCfg.FilePrefix = outputPrefix
	writer, err := recorder.NewWriter(outCfg)
	if err != nil {
		return err
	}
	ctx := context.Background()
	if err := writer.Start(ctx); err != nil {
		return err
	}

	var seq, read uint64
	err = pb.Run(ctx, func(f transport.Frame) error {
		read++
		f.Payload = append([]byte(nil), f.Payload...)
		for _, out := range engine.Process(f) {
			if err := appendFrame(ctx, writer, &seq, out); err != nil {
				return err
			}
		}
		return nil
	})
	if err == nil {
		for _, out := range engine.Flush() {
			if err = appendFrame(ctx, writer, &seq, out); err != nil {
				break
			}
		}
	}
	if cerr := writer.Close(); err == nil {
		err = cerr
	}
	logs.Infof("chaos: read %d frames, wrote %d", read, seq)
	return err
}

// appendFrame resequences f and waits out a full writer queue.
func appendFrame(ctx context.Context, writer *recorder.Writer, seq *uint64, f transport.Frame) error {
	*seq++
	f.Seq = *seq
	for {
		err := writer.TryAppend(f)
		if !errors.Is(err, recorder.ErrQueueFull) {
			return err
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(time.Millisecond):
		}
	}
}
