package main

import (
	"context"
	"errors"
	"flag"
	"io"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"execgate/internal/config"
	"execgate/internal/execution"
	"execgate/internal/journal"
	"execgate/internal/obs"
	"execgate/internal/recorder"
	"execgate/internal/transport"
	"execgate/pkg/conn"

	pyroscope "github.com/grafana/pyroscope-go"
	"github.com/yanun0323/logs"
	"github.com/yanun0323/pkg/sys"
)

func main() {
	if err := run(); err != nil {
		logs.Errorf("execgate: %+v", err)
		os.Exit(1)
	}
}

func run() error {
	configPath := flag.String("config", "config.yaml", "YAML config path")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	go func() {
		select {
		case <-sys.Shutdown():
			stop()
		case <-ctx.Done():
		}
	}()

	if cfg.Profiling.Enabled {
		profiler, err := pyroscope.Start(pyroscope.Config{
			ApplicationName: cfg.App.Name,
			ServerAddress:   cfg.Profiling.ServerAddress,
			Logger:          profilerLogger{},
			ProfileTypes: []pyroscope.ProfileType{
				pyroscope.ProfileCPU,
				pyroscope.ProfileAllocObjects,
				pyroscope.ProfileAllocSpace,
				pyroscope.ProfileInuseObjects,
				pyroscope.ProfileInuseSpace,
			},
		})
		if err != nil {
			return err
		}
		defer func() {
			_ = profiler.Stop()
		}()
	}

	metrics := obs.NewMetrics()
	opts := []execution.Option{
		execution.WithMetrics(metrics),
		execution.WithQueueCapacity(cfg.App.QueueCapacity),
	}
	if !cfg.Features.LogDiagnostics {
		opts = append(opts, execution.WithDiagnostics(execution.DiagnosticsFunc(func(execution.Diagnostic) {})))
	}

	if cfg.Journal != nil {
		pg, err := conn.New(ctx, *cfg.Journal)
		if err != nil {
			return err
		}
		defer pg.Close()
		store, err := journal.NewStore(pg.DB())
		if err != nil {
			return err
		}
		if err := store.Migrate(ctx); err != nil {
			return err
		}
		opts = append(opts, execution.WithJournal(store))
		logs.Info("journal enabled")
	}

	if cfg.Recorder != nil {
		rec, err := recorder.NewWriter(*cfg.Recorder)
		if err != nil {
			return err
		}
		if err := rec.Start(context.Background()); err != nil {
			return err
		}
		defer func() {
			if err := rec.Close(); err != nil {
				logs.Errorf("close recorder, err: %+v", err)
			}
		}()
		opts = append(opts, execution.WithRecorder(rec))
		logs.Infof("recording frames to %s", cfg.Recorder.Dir)
	}

	var venue *execution.SimulatedVenue
	if cfg.Venue.Simulated {
		venue = execution.NewSimulatedVenue(execution.VenueConfig{
			Session:           cfg.Venue.Session,
			ResendOnReconnect: cfg.Venue.ResendOnReconnect,
		}, nil)
		opts = append(opts, execution.WithSender(venue))
	} else {
		sender, err := transport.NewKafkaSender(cfg.Kafka)
		if err != nil {
			return err
		}
		defer sender.Close()
		opts = append(opts, execution.WithSender(sender))
	}

	live := execution.NewLiveClient(opts...)
	if venue != nil {
		venue.Attach(venueFeed(live, "sim:"+cfg.Venue.Session, nil))
	}

	sources, closeSources, err := openSources(ctx, cfg)
	if err != nil {
		return err
	}
	defer closeSources()

	strategyID := "desk"
	if cfg.Order != nil {
		strategyID = cfg.Order.StrategyID
	}
	d := newDesk(strategyID, cfg.Features.TrackLifecycle)
	if err := live.RegisterStrategy(d); err != nil {
		return err
	}

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		live.RunQueue(ctx)
	}()
	for _, src := range sources {
		wg.Add(1)
		go func() {
			defer wg.Done()
			pump(ctx, src, live)
		}()
	}
	wg.Add(1)
	go func() {
		defer wg.Done()
		reportStats(ctx, metrics, cfg.App.StatsInterval)
	}()

	if cfg.Order != nil {
		if err := d.Submit(ctx, cfg.Order.Order); err != nil {
			logs.Errorf("submit start-up order %s, err: %+v", cfg.Order.Order.ID, err)
		}
	}

	logs.Infof("%s running, sources: %d, simulated venue: %v", cfg.App.Name, len(sources), venue != nil)
	<-ctx.Done()
	live.Close()
	wg.Wait()
	return nil
}

func openSources(ctx context.Context, cfg config.Loaded) ([]transport.Source, func(), error) {
	var (
		sources []transport.Source
		closers []func() error
	)
	closeAll := func() {
		for _, c := range closers {
			_ = c()
		}
	}

	if cfg.KafkaEnabled() {
		ks, err := transport.NewKafkaSource(cfg.Kafka)
		if err != nil {
			return nil, closeAll, err
		}
		sources = append(sources, ks)
		closers = append(closers, ks.Close)
	}

	if cfg.WebSocket != nil {
		ws, err := transport.NewWebSocketSource(*cfg.WebSocket)
		if err != nil {
			closeAll()
			return nil, func() {}, err
		}
		if err := ws.Start(ctx); err != nil {
			closeAll()
			return nil, func() {}, err
		}
		sources = append(sources, ws)
		closers = append(closers, ws.Close)
	}

	var listeners []*transport.UDSListener
	for _, b := range []struct {
		path     string
		encoding transport.Encoding
	}{
		{cfg.UDS.BinaryPath, transport.EncodingBinary},
		{cfg.UDS.TextPath, transport.EncodingText},
	} {
		if b.path == "" {
			continue
		}
		l, err := transport.NewUDSListener(b.path, b.encoding)
		if err != nil {
			closeAll()
			return nil, func() {}, err
		}
		listeners = append(listeners, l)
	}
	if len(listeners) > 0 {
		us := transport.NewUDSSource(cfg.App.QueueCapacity, listeners...)
		if err := us.Start(ctx); err != nil {
			closeAll()
			return nil, func() {}, err
		}
		for _, l := range listeners {
			logs.Infof("uds listening: %s (%s)", l.Path(), l.Encoding())
		}
		sources = append(sources, us)
		closers = append(closers, us.Close)
	}
	return sources, closeAll, nil
}

// pump moves frames from src into the live client queue until src is exhausted.
func pump(ctx context.Context, src transport.Source, live *execution.LiveClient) {
	for {
		f, err := src.Next(ctx)
		if err != nil {
			if !errors.Is(err, io.EOF) && ctx.Err() == nil {
				logs.Errorf("source stopped, err: %+v", err)
			}
			return
		}
		_ = live.Enqueue(f)
	}
}

func reportStats(ctx context.Context, m *obs.Metrics, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s := m.Snapshot()
			logs.Infof("stats: decoded %v, decode failures %d, unroutable %d, dropped %d, journal errors %d, record errors %d, dispatch avg %s max %s",
				s.Decoded, s.DecodeFailures, s.Unroutable, s.QueueDrops, s.JournalErrors, s.RecordErrors, s.DispatchLatency.Avg, s.DispatchLatency.Max)
		}
	}
}

type profilerLogger struct{}

func (profilerLogger) Infof(string, ...interface{})  {}
func (profilerLogger) Debugf(string, ...interface{}) {}
func (profilerLogger) Errorf(format string, args ...interface{}) {
	logs.Errorf("pyroscope: "+format, args...)
}
