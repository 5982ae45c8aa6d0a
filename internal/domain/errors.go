package domain

import (
	"errors"
	"fmt"
)

var (
	ErrQuotaExceeded    = errors.New("active booking limit reached")
	ErrInvalidOTP       = errors.New("invalid otp")
	ErrNotFound         = errors.New("booking not found")
	ErrInvalidInput     = errors.New("invalid input")
	ErrStoreUnavailable = errors.New("store unavailable")
)

// InvalidTransitionError reports an attempted transition that is not legal
// from the booking's current status. The current status is surfaced verbatim
// so the caller can explain why.
type InvalidTransitionError struct {
	Current MissionStatus
}

func (e *InvalidTransitionError) Error() string {
	return fmt.Sprintf("invalid transition from %s", e.Current)
}
