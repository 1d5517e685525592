package domain

import (
	"errors"
	"fmt"
)

// ErrNotFound signals a lookup miss in storage.
var ErrNotFound = errors.New("not found")

// ErrListingNotFound signals that the provider returned no listing for the
// requested query or place ID.
var ErrListingNotFound = errors.New("listing not found")

// AcquisitionError means the provider payload could not be turned into a
// usable BusinessRecord. It is terminal for the run: the caller reports it,
// nothing downstream retries it.
type AcquisitionError struct {
	Reason string
	Err    error
}

func (e *AcquisitionError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("acquisition failed: %s: %v", e.Reason, e.Err)
	}
	return fmt.Sprintf("acquisition failed: %s", e.Reason)
}

func (e *AcquisitionError) Unwrap() error { return e.Err }

// NewAcquisitionError wraps a provider or normalization failure.
func NewAcquisitionError(reason string, err error) *AcquisitionError {
	return &AcquisitionError{Reason: reason, Err: err}
}
