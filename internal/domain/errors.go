package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound signals a missing resource.
	ErrNotFound = errors.New("not found")
	// ErrAlreadyExists signals a duplicate resource.
	ErrAlreadyExists = errors.New("already exists")
	// ErrInvalidRequest signals a malformed or out-of-range request.
	ErrInvalidRequest = errors.New("invalid request")
	// ErrUnsupportedOperation signals a filter variant/operation pair the
	// compiler or backend cannot express.
	ErrUnsupportedOperation = errors.New("unsupported operation")
	// ErrUnknownField signals a filter or sort field outside the entity schema.
	ErrUnknownField = errors.New("unknown field")
	// ErrUnknownEntityType signals a request for an unconfigured entity kind.
	ErrUnknownEntityType = errors.New("unknown entity type")
	// ErrInvalidContinuationToken signals a token the store could not resume from.
	ErrInvalidContinuationToken = errors.New("invalid continuation token")
	// ErrStoreUnavailable signals a transient storage failure.
	ErrStoreUnavailable = errors.New("store unavailable")
	// ErrNotImplemented signals an unimplemented feature.
	ErrNotImplemented = errors.New("not implemented")
)

// UnsupportedOperationError names the rejected variant/operation pair.
type UnsupportedOperationError struct {
	ParamType string
	Operation string
}

func (e *UnsupportedOperationError) Error() string {
	if e.Operation == "" {
		return fmt.Sprintf("%s: %s", ErrUnsupportedOperation.Error(), e.ParamType)
	}
	return fmt.Sprintf("%s: %s.%s", ErrUnsupportedOperation.Error(), e.ParamType, e.Operation)
}

func (e *UnsupportedOperationError) Unwrap() error { return ErrUnsupportedOperation }

// NewUnsupportedOperation creates an unsupported operation error.
func NewUnsupportedOperation(paramType, operation string) error {
	return &UnsupportedOperationError{ParamType: paramType, Operation: operation}
}

// IsCallerError reports whether err was caused by the request itself
// rather than by the system.
func IsCallerError(err error) bool {
	return errors.Is(err, ErrInvalidRequest) ||
		errors.Is(err, ErrUnsupportedOperation) ||
		errors.Is(err, ErrUnknownField) ||
		errors.Is(err, ErrUnknownEntityType) ||
		errors.Is(err, ErrInvalidContinuationToken)
}
