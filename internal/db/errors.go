package db

import "errors"

// Sentinel errors for database operations.
var (
	ErrKeyNotFound   = errors.New("db: key not found")
	ErrKeyExists     = errors.New("db: key already exists")
	ErrIndexNotFound = errors.New("db: index not found")
	ErrIndexExists   = errors.New("db: index already exists")
	ErrInvalidCursor = errors.New("db: invalid continuation token")
	ErrUnsupported   = errors.New("db: unsupported query")
	// ErrTransient marks errors worth retrying by the caller.
	ErrTransient = errors.New("db: transient error")
)

// Op names used for error context.
const (
	OpCreate      = "CREATE"
	OpBatchGet    = "BATCH_GET"
	OpQuery       = "QUERY"
	OpCount       = "COUNT"
	OpFacets      = "FACETS"
	OpCreateIndex = "CREATE_INDEX"
	OpDropIndex   = "DROP_INDEX"
	OpIndexInfo   = "INDEX_INFO"
	OpMigrate     = "MIGRATE"
	OpPing        = "PING"
)

// Error wraps an underlying error with the operation name for diagnostics.
// Transient errors also match ErrTransient.
type Error struct {
	Op        string
	Err       error
	Transient bool
}

func (e *Error) Error() string { return e.Op + ": " + e.Err.Error() }
func (e *Error) Unwrap() error { return e.Err }

// Is reports ErrTransient for transient errors.
func (e *Error) Is(target error) bool {
	return target == ErrTransient && e.Transient
}

// IsTransient reports whether err was classified as retryable.
func IsTransient(err error) bool {
	return errors.Is(err, ErrTransient)
}
