package workflow

import "errors"

var (
	// ErrInvalidTransition is returned when no transition is configured for the trigger
	ErrInvalidTransition = errors.New("invalid state transition")

	// ErrGuardFailed is returned when every configured transition was vetoed by its guard
	ErrGuardFailed = errors.New("guard condition failed")
)
