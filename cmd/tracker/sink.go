package main

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"vessel-track-lab/internal/config"
	"vessel-track-lab/internal/storage"
	chstore "vessel-track-lab/internal/storage/clickhouse"
	"vessel-track-lab/internal/storage/file"
	"vessel-track-lab/internal/storage/migrations"
	pgstore "vessel-track-lab/internal/storage/postgres"
	"vessel-track-lab/internal/storage/sqlite"
)

// openSink builds the configured snapshot sink. The returned func releases
// its resources.
func openSink(ctx context.Context, cfg config.SinkConfig, logger zerolog.Logger) (storage.SnapshotSink, func(), error) {
	noop := func() {}

	switch cfg.Kind {
	case config.SinkFile, "":
		logger.Info().Str("path", cfg.Path).Msg("writing snapshots to file")
		return file.NewSink(cfg.Path), noop, nil

	case config.SinkPostgres:
		pool, err := pgstore.NewPool(ctx, cfg.DSN)
		if err != nil {
			return nil, noop, err
		}
		if err := migrations.RunPostgresMigrations(ctx, pool); err != nil {
			pool.Close()
			return nil, noop, fmt.Errorf("migrate postgres: %w", err)
		}
		logger.Info().Str("name", cfg.Name).Msg("writing snapshots to postgres")
		return pgstore.NewSnapshotSink(pool, cfg.Name), pool.Close, nil

	case config.SinkClickhouse:
		conn, err := migrations.RunClickhouseMigrations(ctx, cfg.DSN)
		if err != nil {
			return nil, noop, fmt.Errorf("migrate clickhouse: %w", err)
		}
		logger.Info().Str("name", cfg.Name).Msg("writing snapshots to clickhouse")
		return chstore.NewSnapshotSink(conn, cfg.Name), func() { conn.Close() }, nil

	case config.SinkSQLite:
		sink, err := sqlite.Open(ctx, cfg.Path, cfg.Name)
		if err != nil {
			return nil, noop, err
		}
		logger.Info().Str("path", cfg.Path).Str("name", cfg.Name).Msg("writing snapshots to sqlite")
		return sink, func() { sink.Close() }, nil

	default:
		return nil, noop, fmt.Errorf("unknown sink kind: %s", cfg.Kind)
	}
}
