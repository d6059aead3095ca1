package bulk

import "errors"

var (
	// ErrEntityNotFound - the element type is not registered in the model.
	ErrEntityNotFound = errors.New("entity type not found in the model")

	// ErrNoTableName - the entity type has no table name.
	ErrNoTableName = errors.New("table name could not be determined")

	// ErrUnsupportedDriver - the pool is not backed by the SQL Server driver.
	ErrUnsupportedDriver = errors.New("bulk insert only supports SQL Server")

	// ErrInvalidBatchSize - batch size must be positive.
	ErrInvalidBatchSize = errors.New("batch size must be greater than zero")

	// ErrNilEntity - the collection contains a nil pointer.
	ErrNilEntity = errors.New("nil entity in collection")
)
