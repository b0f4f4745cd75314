package entidex

import "github.com/kailas-cloud/entidex/internal/domain"

// Sentinel errors re-exported from the domain layer.
// Use errors.Is() to check.
var (
	ErrNotFound                 = domain.ErrNotFound
	ErrAlreadyExists            = domain.ErrAlreadyExists
	ErrInvalidRequest           = domain.ErrInvalidRequest
	ErrUnsupportedOperation     = domain.ErrUnsupportedOperation
	ErrUnknownField             = domain.ErrUnknownField
	ErrUnknownEntityType        = domain.ErrUnknownEntityType
	ErrInvalidContinuationToken = domain.ErrInvalidContinuationToken
	ErrStoreUnavailable         = domain.ErrStoreUnavailable
	ErrNotImplemented           = domain.ErrNotImplemented
)
