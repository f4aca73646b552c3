package domain

import "errors"

var (
	// ErrAlreadyRunning is returned when a live daemon already owns the PID file.
	ErrAlreadyRunning = errors.New("daemon is already running")

	// ErrNotRunning is returned when no daemon owns the PID file.
	ErrNotRunning = errors.New("daemon is not running")

	// ErrEndOfDay is returned by the scheduler when the end-of-day cutoff is reached.
	ErrEndOfDay = errors.New("end of day cutoff reached")

	// ErrUnknownActivity is returned for names missing from the catalog.
	ErrUnknownActivity = errors.New("unknown activity")

	// ErrWindowNotEditable is returned by typing activities outside editor windows.
	ErrWindowNotEditable = errors.New("active window is not an editor")
)
