package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"vessel-track-lab/internal/aisstream"
	"vessel-track-lab/internal/config"
	"vessel-track-lab/internal/ingestion"
	"vessel-track-lab/internal/logging"
	"vessel-track-lab/internal/ops"
	"vessel-track-lab/internal/snapshot"
	"vessel-track-lab/internal/storage/memory"
)

const shutdownTimeout = 30 * time.Second

func main() {
	// Parse flags
	configPath := flag.String("config", "", "Path to YAML config file (optional)")
	output := flag.String("output", "", "Output path for the file or sqlite sink (overrides "+config.EnvOutputFile+")")
	sinkKind := flag.String("sink", "", "Snapshot sink: file, postgres, clickhouse, sqlite")
	sinkDSN := flag.String("sink-dsn", "", "Database DSN for the postgres or clickhouse sink")
	metricsAddr := flag.String("metrics-addr", "", "Ops HTTP address for /metrics and /health (\"off\" to disable)")
	logLevel := flag.String("log-level", "", "Log level: trace, debug, info, warn, error")
	interval := flag.Duration("interval", -1, "Minimum time between snapshot writes (0 writes on every change)")

	flag.Parse()

	cfg, err := config.Read(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "load config: %v\n", err)
		os.Exit(1)
	}

	// Flags take precedence over file and environment.
	if *output != "" {
		cfg.Sink.Path = *output
	}
	if *sinkKind != "" {
		cfg.Sink.Kind = *sinkKind
	}
	if *sinkDSN != "" {
		cfg.Sink.DSN = *sinkDSN
	}
	if *metricsAddr == "off" {
		cfg.MetricsAddr = ""
	} else if *metricsAddr != "" {
		cfg.MetricsAddr = *metricsAddr
	}
	if *logLevel != "" {
		cfg.Log.Level = *logLevel
	}
	if *interval >= 0 {
		cfg.Snapshot.Interval = *interval
	}
	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "%v\n", err)
		os.Exit(1)
	}

	logger, err := logging.New(cfg.Log.Level, cfg.Log.Format, os.Stderr)
	if err != nil {
		fmt.Fprintf(os.Stderr, "setup logger: %v\n", err)
		os.Exit(1)
	}

	// Create context with cancellation
	ctx, cancel := context.WithCancel(context.Background())

	// Handle shutdown signals with graceful timeout
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	// Channel to signal main goroutine completion
	done := make(chan error, 1)

	go func() {
		sig := <-sigCh
		logger.Info().Str("signal", sig.String()).Msg("initiating graceful shutdown")
		cancel()

		// Wait for second signal for immediate shutdown
		select {
		case sig := <-sigCh:
			logger.Warn().Str("signal", sig.String()).Msg("second signal, forcing immediate shutdown")
			os.Exit(1)
		case <-time.After(shutdownTimeout):
			logger.Error().Dur("timeout", shutdownTimeout).Msg("graceful shutdown timed out, forcing exit")
			os.Exit(1)
		case <-done:
			// Normal shutdown completed
		}
	}()

	err = run(ctx, cfg, logger)

	// Signal completion to shutdown handler
	done <- err
	cancel()

	if err != nil && !errors.Is(err, context.Canceled) {
		logger.Fatal().Err(err).Msg("tracker failed")
	}

	logger.Info().Msg("shutdown complete")
}

// run wires the components and blocks until the runner stops.
func run(ctx context.Context, cfg config.Config, logger zerolog.Logger) error {
	boxes, err := cfg.BoundingBoxes()
	if err != nil {
		return err
	}

	if path := cfg.BoundaryPath(); path != "" {
		if err := snapshot.WriteBoundary(path, boxes[0]); err != nil {
			return err
		}
		logger.Info().Str("path", path).Msg("wrote bounding box")
	}

	sink, closeSink, err := openSink(ctx, cfg.Sink, logger)
	if err != nil {
		return err
	}
	defer closeSink()

	store := memory.NewTrackStore(memory.TrackStoreOptions{
		MaxPositions: cfg.Snapshot.MaxPositions,
	})

	writer := snapshot.NewWriter(snapshot.WriterOptions{
		Store:    store,
		Sink:     sink,
		Interval: cfg.Snapshot.Interval,
		Logger:   &logger,
	})

	dialer := aisstream.NewDialer(aisstream.Config{
		Endpoint:         cfg.Feed.Endpoint,
		APIKey:           cfg.Feed.APIKey,
		BoundingBoxes:    boxes,
		ShipMMSI:         cfg.Feed.ShipMMSI,
		HandshakeTimeout: cfg.Feed.HandshakeTimeout,
		ReadTimeout:      cfg.Feed.ReadTimeout,
		WriteTimeout:     cfg.Feed.WriteTimeout,
		PingInterval:     cfg.Feed.PingInterval,
	}, &logger)

	runner := ingestion.NewRunner(ingestion.RunnerOptions{
		Source:       feedSource(dialer),
		Store:        store,
		Notifier:     writer,
		Reconnect:    cfg.Reconnect.Enabled,
		InitialDelay: cfg.Reconnect.InitialDelay,
		MaxDelay:     cfg.Reconnect.MaxDelay,
		MaxRetries:   cfg.Reconnect.MaxRetries,
		Logger:       &logger,
	})

	if cfg.MetricsAddr != "" {
		server := ops.NewServer(ops.ServerOptions{
			Addr: cfg.MetricsAddr,
			Status: func() ops.Status {
				return ops.Status{
					State:        string(runner.State()),
					Vessels:      store.Len(),
					LastSnapshot: writer.LastSuccess(),
					LastError:    writer.LastError(),
				}
			},
			Logger: &logger,
		})
		go func() {
			if err := server.ListenAndServe(); err != nil {
				logger.Error().Err(err).Msg("ops server stopped")
			}
		}()
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			server.Shutdown(shutdownCtx)
		}()
	}

	// The writer outlives the runner so the final state is flushed.
	writerCtx, stopWriter := context.WithCancel(context.Background())
	writerDone := make(chan error, 1)
	go func() { writerDone <- writer.Run(writerCtx) }()

	runCtx, stopRunner := context.WithCancel(ctx)
	defer stopRunner()

	runnerDone := make(chan error, 1)
	go func() { runnerDone <- runner.Run(runCtx) }()

	logger.Info().
		Str("sink", cfg.Sink.Kind).
		Int("bounding_boxes", len(boxes)).
		Dur("interval", cfg.Snapshot.Interval).
		Msg("tracker started")

	var runErr error
	select {
	case runErr = <-runnerDone:
		stopWriter()
		if err := <-writerDone; err != nil {
			return err
		}
	case err := <-writerDone:
		// Unencodable state; nothing further can be published.
		stopRunner()
		<-runnerDone
		stopWriter()
		return err
	}

	return runErr
}

// feedSource adapts the dialer to the ingestion loop.
func feedSource(d *aisstream.Dialer) ingestion.Source {
	return ingestion.SourceFunc(func(ctx context.Context) (ingestion.Stream, error) {
		conn, err := d.Dial(ctx)
		if err != nil {
			return nil, err
		}
		return conn, nil
	})
}
