package domain

import (
	"errors"
	"fmt"
)

// ErrNotFound is the typed absence for lookup operations. Callbacks
// reached from the gateway tolerate it; API lookups map it to 404.
var ErrNotFound = errors.New("not found")

// ValidationError marks bad input (empty recipient set, foreign group).
type ValidationError struct {
	Reason string
}

func (e *ValidationError) Error() string {
	return "validation: " + e.Reason
}

func NewValidationError(format string, v ...any) *ValidationError {
	return &ValidationError{Reason: fmt.Sprintf(format, v...)}
}

// InvalidStateError marks an illegal campaign status transition,
// e.g. dispatching a campaign that is already completed.
type InvalidStateError struct {
	CampaignID int64
	Status     CampaignStatus
	Wanted     CampaignStatus
}

func (e *InvalidStateError) Error() string {
	return fmt.Sprintf("campaign %d is %s, cannot transition to %s", e.CampaignID, e.Status, e.Wanted)
}

// IsValidation reports whether err is (or wraps) a ValidationError.
func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}

// IsInvalidState reports whether err is (or wraps) an InvalidStateError.
func IsInvalidState(err error) bool {
	var se *InvalidStateError
	return errors.As(err, &se)
}
