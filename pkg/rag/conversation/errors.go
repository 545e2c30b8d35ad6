package conversation

import (
	"context"
	"errors"
	"fmt"
)

// Capability names used in errors and traces.
const (
	CapabilityExtraction = "extraction"
	CapabilityRetrieval  = "retrieval"
	CapabilityComposer   = "composer"
)

// CapabilityError wraps a failed or timed-out capability call. The turn that
// hit it is answered with an apology and leaves the session unchanged.
type CapabilityError struct {
	Capability string
	Timeout    bool
	Err        error
}

func (e *CapabilityError) Error() string {
	if e.Timeout {
		return fmt.Sprintf("%s capability timed out: %v", e.Capability, e.Err)
	}
	return fmt.Sprintf("%s capability failed: %v", e.Capability, e.Err)
}

func (e *CapabilityError) Unwrap() error {
	return e.Err
}

func newCapabilityError(name string, err error) *CapabilityError {
	return &CapabilityError{
		Capability: name,
		Timeout:    errors.Is(err, context.DeadlineExceeded),
		Err:        err,
	}
}
