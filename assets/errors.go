package assets

import (
	"errors"
	"server/models"
)

// ErrNotFound is returned for unknown asset ids and type mismatches.
var ErrNotFound = models.ErrAssetNotFound

// ErrStorage covers blob or metadata backend failures. Not retried here;
// callers retry the idempotent operations themselves.
var ErrStorage = errors.New("storage error")

// ValidationError rejects an upload before any storage I/O happens.
type ValidationError struct {
	Reason string
}

func (e *ValidationError) Error() string {
	return e.Reason
}

func IsValidationError(err error) bool {
	var v *ValidationError
	return errors.As(err, &v)
}
