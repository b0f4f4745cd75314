// Package dberr maps storage errors onto domain sentinels.
package dberr

import (
	"errors"
	"fmt"

	"github.com/kailas-cloud/entidex/internal/db"
	"github.com/kailas-cloud/entidex/internal/domain"
)

// Translate wraps err with the domain sentinel matching its storage cause.
// The original error stays in the chain. Errors without a mapping, and
// errors that already carry a domain sentinel, are returned unchanged.
func Translate(err error) error {
	switch {
	case err == nil:
		return nil
	case domain.IsCallerError(err):
		return err
	case errors.Is(err, db.ErrKeyExists), errors.Is(err, db.ErrIndexExists):
		return fmt.Errorf("%w: %w", domain.ErrAlreadyExists, err)
	case errors.Is(err, db.ErrKeyNotFound), errors.Is(err, db.ErrIndexNotFound):
		return fmt.Errorf("%w: %w", domain.ErrNotFound, err)
	case errors.Is(err, db.ErrInvalidCursor):
		return fmt.Errorf("%w: %w", domain.ErrInvalidContinuationToken, err)
	case errors.Is(err, db.ErrUnsupported):
		return fmt.Errorf("%w: %w", domain.ErrUnsupportedOperation, err)
	case db.IsTransient(err):
		return fmt.Errorf("%w: %w", domain.ErrStoreUnavailable, err)
	}
	return err
}
