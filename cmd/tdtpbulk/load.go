package main

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/ruslano69/tdtp-bulk/pkg/adapters/mssql"
	"github.com/ruslano69/tdtp-bulk/pkg/bulk"
	"github.com/ruslano69/tdtp-bulk/pkg/config"
	"github.com/ruslano69/tdtp-bulk/pkg/resultlog"
	"github.com/ruslano69/tdtp-bulk/pkg/source"
)

// runLoad reads the source file and bulk-loads it into the target table.
// The outcome is published to the result log when one is configured.
func runLoad(ctx context.Context, cfg *config.Config, dryRun bool, logger zerolog.Logger) (err error) {
	started := time.Now()
	target := cfg.TargetTable()
	var res bulk.Result

	if cfg.ResultLog.Type == "redis" && !dryRun {
		publisher := resultlog.NewRedisPublisher(cfg.ResultLog)
		defer publisher.Close()
		defer func() {
			if res.Table == "" {
				res.Table = target
			}
			result := resultlog.NewLoadResult(cfg.ResultLog.Name, cfg.Source.Path, started, res, err)
			// the load outcome stands even if publishing fails
			if pubErr := publisher.Publish(context.WithoutCancel(ctx), result); pubErr != nil {
				logger.Warn().Err(pubErr).Str("key", publisher.StateKey()).Msg("failed to publish result")
			}
		}()
	}

	if timeout := cfg.Load.TimeoutDuration(); timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	adapter, err := mssql.Open(ctx, cfg.Database.AdapterConfig())
	if err != nil {
		return err
	}
	defer adapter.Close()

	logger.Info().
		Str("server", adapter.ServerVersion()).
		Str("table", target).
		Str("file", cfg.Source.Path).
		Msg("connected")

	columns, err := adapter.Columns(ctx, target)
	if err != nil {
		return err
	}

	tbl, err := source.Read(cfg.Source, target, columns)
	if err != nil {
		return fmt.Errorf("failed to read %s: %w", cfg.Source.Path, err)
	}

	if dryRun {
		logger.Info().
			Int("rows", tbl.Len()).
			Strs("columns", tbl.ColumnNames()).
			Str("checksum", tbl.Checksum()).
			Msg("dry run, nothing loaded")
		return nil
	}
	if tbl.Len() == 0 {
		logger.Warn().Str("file", cfg.Source.Path).Msg("file has no data rows")
	}

	opts := append(cfg.Load.Options(), bulk.WithLogger(logger))
	res, err = bulk.Load(ctx, adapter.DB(), tbl, opts...)
	return err
}

// writeTemplate writes an xlsx workbook whose header matches the target table.
func writeTemplate(ctx context.Context, cfg *config.Config, path string, logger zerolog.Logger) error {
	adapter, err := mssql.Open(ctx, cfg.Database.AdapterConfig())
	if err != nil {
		return err
	}
	defer adapter.Close()

	target := cfg.TargetTable()
	columns, err := adapter.Columns(ctx, target)
	if err != nil {
		return err
	}

	_, sheet := mssql.SplitTableName(target)
	if err := source.WriteTemplate(path, sheet, columns); err != nil {
		return fmt.Errorf("failed to write template: %w", err)
	}

	logger.Info().Str("table", target).Str("file", path).Msg("template written")
	return nil
}
