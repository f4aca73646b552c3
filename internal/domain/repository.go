package domain

import (
	"context"
	"time"
)

// MouseButton names a pointer button.
type MouseButton string

const (
	ButtonLeft  MouseButton = "left"
	ButtonRight MouseButton = "right"
)

// InputInjector synthesizes OS-level input.
// Implementation: robotgo. Failures are returned, never panicked.
type InputInjector interface {
	// MoveTo places the cursor at absolute screen coordinates.
	MoveTo(x, y int) error

	// CursorPosition returns the current cursor coordinates.
	CursorPosition() (x, y int, err error)

	// Click presses and releases a mouse button.
	Click(button MouseButton) error

	// Scroll turns the wheel; positive is down, negative is up.
	Scroll(amount int) error

	// PressKey taps a named key, optionally with held modifiers ("ctrl", "shift").
	PressKey(key string, modifiers ...string) error

	// TypeChar types a single character, then waits delay.
	TypeChar(ch rune, delay time.Duration) error

	// ScreenSize returns the primary display dimensions.
	ScreenSize() (width, height int)
}

// WindowDetector inspects the foreground window.
type WindowDetector interface {
	// ActiveWindowTitle returns the title of the focused window ("" if unknown).
	ActiveWindowTitle() string

	// DetectFileType guesses the extension of the file being edited, e.g. ".go".
	// Returns "" when no extension can be inferred.
	DetectFileType() string
}

// LoadDetector reports whether the host is busy enough to slow down.
type LoadDetector interface {
	// Scan samples the host once and updates adaptive mode.
	Scan(ctx context.Context) ScanResult

	// IsAdaptiveMode returns the mode set by the last scan.
	IsAdaptiveMode() bool
}

// InputObserver streams genuine input events to a sink.
// Implementation: gohook global hook.
type InputObserver interface {
	// Start begins observation. It returns an error if the hook cannot be installed.
	Start(sink InputSink) error

	// Stop releases the hook. Safe to call more than once.
	Stop()
}

// InputSink receives observed input events.
type InputSink interface {
	// OnInput is called for every mouse or keyboard event.
	OnInput(at time.Time)

	// OnManualPause is called when the pause hotkey combination is pressed.
	OnManualPause(at time.Time)
}

// Activity is a single named synthetic action.
type Activity interface {
	// Name returns the configuration key of the activity.
	Name() string

	// Execute performs the action. It blocks until the action completes.
	Execute(ctx context.Context) error
}

// ActivityCatalog resolves activities by name.
type ActivityCatalog interface {
	// Get returns the activity registered under name.
	Get(name string) (Activity, bool)

	// List returns all registered activity names.
	List() []string
}

// ProcessManager handles OS process operations.
// Implementation: uses gopsutil for cross-platform support.
type ProcessManager interface {
	// IsRunning checks if a PID exists and is running.
	IsRunning(pid int) bool

	// Terminate asks a process to exit.
	Terminate(pid int) error

	// GetCurrentPID returns the current process PID.
	GetCurrentPID() int
}

// PIDStore persists the PID record used to detect "already running".
type PIDStore interface {
	// Acquire writes the record, failing with ErrAlreadyRunning if a live daemon owns it.
	Acquire(rec PIDRecord) error

	// Get returns the stored record or nil when there is none.
	Get() (*PIDRecord, error)

	// IsRunning reports whether the stored PID is alive.
	IsRunning() bool

	// Release removes the record.
	Release() error

	// Path returns the record location.
	Path() string
}
