package bulk

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/ruslano69/tdtp-bulk/pkg/adapters/mssql"
	"github.com/ruslano69/tdtp-bulk/pkg/model"
	"github.com/ruslano69/tdtp-bulk/pkg/table"
)

// Loader moves a materialized table into the database inside tx and returns
// the number of rows written. mssql.Copier is the default.
type Loader interface {
	Copy(ctx context.Context, tx *sql.Tx, t *table.Table, opts mssql.BulkOptions) (int64, error)
}

// Result describes a finished load.
type Result struct {
	// Table is the destination, "schema.table".
	Table   string
	Columns []string
	// Rows is the count reported by the loader.
	Rows int64
	// Checksum is the xxh3 fingerprint of the materialized rows.
	Checksum string
	Duration time.Duration
}

// Insert bulk-copies entities into the table T is mapped to, inside its own transaction.
//
// An empty collection is a no-op. The transaction is committed when the copy
// succeeds and rolled back otherwise; the copy error is returned.
//
// Example:
//
//	res, err := bulk.Insert(ctx, db, m, orders, bulk.WithBatchSize(10000))
func Insert[T any](ctx context.Context, db *sql.DB, m *model.Model, entities []T, opts ...Option) (Result, error) {
	if len(entities) == 0 {
		return Result{}, nil
	}

	o, err := newOptions(opts)
	if err != nil {
		return Result{}, err
	}

	tbl, err := Materialize(m, entities, o.includeKeys)
	if err != nil {
		return Result{}, err
	}

	return load(ctx, db, tbl, o)
}

// InsertTx is like Insert but runs inside a transaction owned by the caller.
// It never commits or rolls back tx.
//
// A *sql.Tx does not expose its driver, so InsertTx cannot report
// ErrUnsupportedDriver up front. On a non-SQL Server transaction the default
// loader fails to prepare the copy statement and InsertTx returns a
// "bulk copy into" error; the caller's transaction is left usable for rollback.
func InsertTx[T any](ctx context.Context, tx *sql.Tx, m *model.Model, entities []T, opts ...Option) (Result, error) {
	if len(entities) == 0 {
		return Result{}, nil
	}

	o, err := newOptions(opts)
	if err != nil {
		return Result{}, err
	}

	tbl, err := Materialize(m, entities, o.includeKeys)
	if err != nil {
		return Result{}, err
	}

	loader := o.loader
	if loader == nil {
		loader = mssql.Copier{}
	}

	res := newResult(tbl)
	start := time.Now()
	n, err := loader.Copy(ctx, tx, tbl, o.bulk)
	res.Duration = time.Since(start)
	if err != nil {
		return res, fmt.Errorf("bulk copy into %s failed: %w", tbl.Name, err)
	}
	res.Rows = n

	o.logger.Debug().
		Str("table", res.Table).
		Int64("rows", res.Rows).
		Dur("duration", res.Duration).
		Msg("bulk copy done in caller transaction")

	return res, nil
}

// Load bulk-copies an already materialized table inside its own transaction.
// A table without rows is a no-op.
func Load(ctx context.Context, db *sql.DB, t *table.Table, opts ...Option) (Result, error) {
	if t == nil || t.Len() == 0 {
		var res Result
		if t != nil {
			res.Table = t.Name
			res.Columns = t.ColumnNames()
		}
		return res, nil
	}

	o, err := newOptions(opts)
	if err != nil {
		return Result{}, err
	}

	return load(ctx, db, t, o)
}

func newResult(t *table.Table) Result {
	return Result{
		Table:    t.Name,
		Columns:  t.ColumnNames(),
		Checksum: t.Checksum(),
	}
}

// load opens a transaction, runs the loader and finalizes the transaction.
func load(ctx context.Context, db *sql.DB, t *table.Table, o *options) (Result, error) {
	if db == nil {
		return Result{}, fmt.Errorf("database handle is nil")
	}

	loader := o.loader
	if loader == nil {
		if !mssql.IsSQLServer(db) {
			return Result{}, fmt.Errorf("%w: current driver is %T", ErrUnsupportedDriver, db.Driver())
		}
		loader = mssql.Copier{}
	}

	res := newResult(t)
	logger := o.logger.With().
		Str("table", res.Table).
		Int("batch_size", o.bulk.BatchSize).
		Int("rows_in", t.Len()).
		Logger()

	start := time.Now()
	tx, err := db.BeginTx(ctx, o.txOptions)
	if err != nil {
		return res, fmt.Errorf("failed to begin transaction: %w", err)
	}

	finished := false
	defer func() {
		// panic inside the loader
		if !finished {
			tx.Rollback()
		}
	}()

	n, err := loader.Copy(ctx, tx, t, o.bulk)
	if err != nil {
		finished = true
		err = fmt.Errorf("bulk copy into %s failed: %w", t.Name, err)
		if rbErr := tx.Rollback(); rbErr != nil && !errors.Is(rbErr, sql.ErrTxDone) {
			err = errors.Join(err, fmt.Errorf("rollback failed: %w", rbErr))
		}
		res.Duration = time.Since(start)
		logger.Error().Err(err).Dur("duration", res.Duration).Msg("bulk insert rolled back")
		return res, err
	}

	finished = true
	if err := tx.Commit(); err != nil {
		res.Duration = time.Since(start)
		logger.Error().Err(err).Msg("bulk insert commit failed")
		return res, fmt.Errorf("failed to commit transaction: %w", err)
	}

	res.Rows = n
	res.Duration = time.Since(start)
	logger.Info().
		Int64("rows", res.Rows).
		Str("checksum", res.Checksum).
		Dur("duration", res.Duration).
		Msg("bulk insert committed")

	return res, nil
}
