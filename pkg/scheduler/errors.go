package scheduler

import (
	"errors"
	"fmt"
)

// Validation errors. Any of them aborts a run before scheduling starts.
var (
	ErrEmptyEmail        = errors.New("leader email is required")
	ErrDuplicateLeader   = errors.New("duplicate leader email")
	ErrEmptyEventName    = errors.New("event name is required")
	ErrDuplicateEvent    = errors.New("duplicate event name")
	ErrNegativeHeadcount = errors.New("leaders_needed must not be negative")
)

// EventError names the event record that failed validation.
type EventError struct {
	Event string
	Err   error
}

func (e *EventError) Error() string {
	return fmt.Sprintf("event %q: %v", e.Event, e.Err)
}

func (e *EventError) Unwrap() error { return e.Err }

// LeaderError names the leader record that failed validation.
type LeaderError struct {
	Email string
	Err   error
}

func (e *LeaderError) Error() string {
	return fmt.Sprintf("leader %q: %v", e.Email, e.Err)
}

func (e *LeaderError) Unwrap() error { return e.Err }
