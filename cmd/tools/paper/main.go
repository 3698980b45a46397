package main

import (
	"context"
	"errors"
	"flag"
	"os"
	"os/signal"
	"syscall"
	"time"

	"execgate/internal/model"
	"execgate/internal/recorder"
	"execgate/internal/transport"

	"github.com/shopspring/decimal"
	"github.com/yanun0323/logs"
)

func main() {
	outputDir := flag.String("output-dir", "testdata/frames_paper", "output recording directory")
	outputPrefix := flag.String("output-prefix", "paper", "output segment prefix")
	orders := flag.Int("orders", 100, "number of orders to simulate")
	symbol := flag.String("symbol", "GBPUSD.FXCM", "instrument as CODE.VENUE")
	basePrice := flag.String("base-price", "1.27000", "reference limit price")
	encoding := flag.String("encoding", "mixed", "frame encoding: binary, text or mixed")
	fillRate := flag.Float64("fill-rate", 0.6, "share of orders that fill")
	cancelRate := flag.Float64("cancel-rate", 0.3, "share of orders that are cancelled, the rest expire")
	modifyRate := flag.Float64("modify-rate", 0.2, "share of orders modified before settling")
	seed := flag.Int64("seed", 1, "RNG seed")
	step := flag.Duration("step", time.Millisecond, "venue clock step per event")
	flag.Parse()

	if err := run(*outputDir, *outputPrefix, *orders, *symbol, *basePrice, *encoding, *fillRate, *cancelRate, *modifyRate, *seed, *step); err != nil {
		logs.Errorf("paper: %+v", err)
		os.Exit(1)
	}
}

func run(outputDir, outputPrefix string, orders int, symbol, basePrice, encoding string,
	fillRate, cancelRate, modifyRate float64, seed int64, step time.Duration) error {
	sym, err := model.ParseSymbol(symbol)
	if err != nil {
		return err
	}
	price, err := decimal.NewFromString(basePrice)
	if err != nil {
		return err
	}

	cfg := recorder.DefaultConfig(outputDir)
	cfg.FilePrefix = outputPrefix
	writer, err := recorder.NewWriter(cfg)
	if err != nil {
		return err
	}
	if err := writer.Start(context.Background()); err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var written int
	sess, err := newSession(sessionConfig{
		Seed:       seed,
		Orders:     orders,
		Symbol:     sym,
		BasePrice:  price,
		Encoding:   encoding,
		FillRate:   fillRate,
		CancelRate: cancelRate,
		ModifyRate: modifyRate,
		Start:      time.Now().UTC(),
		Step:       step,
	}, func(f transport.Frame) error {
		if err := appendFrame(ctx, writer, f); err != nil {
			return err
		}
		written++
		return nil
	})
	if err != nil {
		_ = writer.Close()
		return err
	}

	err = sess.Run(ctx)
	if cerr := writer.Close(); err == nil {
		err = cerr
	}
	logs.Infof("paper: %d orders, %d frames written to %s", orders, written, outputDir)
	return err
}

func appendFrame(ctx context.Context, writer *recorder.Writer, f transport.Frame) error {
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
