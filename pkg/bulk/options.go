package bulk

import (
	"database/sql"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/ruslano69/tdtp-bulk/pkg/adapters/mssql"
)

// DefaultBatchSize is the rows-per-batch hint used when none is given.
const DefaultBatchSize = 5000

// Option configures a bulk insert.
type Option func(*options)

type options struct {
	bulk        mssql.BulkOptions
	includeKeys bool
	loader      Loader
	logger      zerolog.Logger
	txOptions   *sql.TxOptions
	err         error
}

func newOptions(opts []Option) (*options, error) {
	o := &options{
		bulk:   mssql.BulkOptions{BatchSize: DefaultBatchSize},
		logger: zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(o)
	}
	if o.err != nil {
		return nil, o.err
	}
	return o, nil
}

// WithBatchSize sets the number of rows per batch sent to the server.
func WithBatchSize(n int) Option {
	return func(o *options) {
		if n <= 0 {
			o.err = fmt.Errorf("%w: got %d", ErrInvalidBatchSize, n)
			return
		}
		o.bulk.BatchSize = n
	}
}

// WithKilobytesPerBatch sets the KILOBYTES_PER_BATCH hint.
func WithKilobytesPerBatch(kb int) Option {
	return func(o *options) { o.bulk.KilobytesPerBatch = kb }
}

// WithCheckConstraints makes the server check constraints during the load.
func WithCheckConstraints() Option {
	return func(o *options) { o.bulk.CheckConstraints = true }
}

// WithFireTriggers makes the server run insert triggers.
func WithFireTriggers() Option {
	return func(o *options) { o.bulk.FireTriggers = true }
}

// WithKeepNulls keeps NULLs instead of applying column defaults.
func WithKeepNulls() Option {
	return func(o *options) { o.bulk.KeepNulls = true }
}

// WithTablock takes a table lock for the duration of the load.
func WithTablock() Option {
	return func(o *options) { o.bulk.Tablock = true }
}

// WithOrder declares the columns the rows are already sorted by.
func WithOrder(columns ...string) Option {
	return func(o *options) { o.bulk.Order = columns }
}

// WithKeys includes primary key columns that are not server generated.
// Identity and computed columns are never sent.
func WithKeys() Option {
	return func(o *options) { o.includeKeys = true }
}

// WithLoader replaces the SQL Server bulk copy. The driver check is skipped.
func WithLoader(l Loader) Option {
	return func(o *options) { o.loader = l }
}

// WithLogger sets the logger. The default discards everything.
func WithLogger(l zerolog.Logger) Option {
	return func(o *options) { o.logger = l }
}

// WithTxOptions sets isolation level and read-only flag of the transaction.
func WithTxOptions(txOpts *sql.TxOptions) Option {
	return func(o *options) { o.txOptions = txOpts }
}
