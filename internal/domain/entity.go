// Package domain contains core business entities and interfaces.
// This is the innermost layer - no external dependencies.
package domain

import "time"

// BehavioralState labels what the synthetic user is "doing".
type BehavioralState string

const (
	StateWork     BehavioralState = "work"
	StateBreak    BehavioralState = "break"
	StateReading  BehavioralState = "reading"
	StateTyping   BehavioralState = "typing"
	StateBrowsing BehavioralState = "browsing"
)

// AllStates lists every behavioral state in matrix order.
var AllStates = []BehavioralState{StateWork, StateBreak, StateReading, StateTyping, StateBrowsing}

// Valid reports whether s is one of the known states.
func (s BehavioralState) Valid() bool {
	for _, known := range AllStates {
		if s == known {
			return true
		}
	}
	return false
}

// Activity names as they appear in configuration.
const (
	ActivityMouseMovement      = "mouse_movement"
	ActivityMouseScroll        = "mouse_scroll"
	ActivityKeyboardNavigation = "keyboard_navigation"
	ActivityKeyboardTyping     = "keyboard_typing"
	ActivityTabSwitching       = "tab_switching"
	ActivityCompositeWorkflows = "composite_workflows"
)

// AllActivities lists the built-in activity names.
var AllActivities = []string{
	ActivityMouseMovement,
	ActivityMouseScroll,
	ActivityKeyboardNavigation,
	ActivityKeyboardTyping,
	ActivityTabSwitching,
	ActivityCompositeWorkflows,
}

// Decision tells the scheduler what to do with a computed interval.
type Decision int

const (
	// Proceed schedules the next activity normally.
	Proceed Decision = iota
	// Skip means no activity should fire in the current time window.
	Skip
	// Terminate asks the scheduler to stop (end-of-day cutoff).
	Terminate
)

func (d Decision) String() string {
	switch d {
	case Proceed:
		return "proceed"
	case Skip:
		return "skip"
	case Terminate:
		return "terminate"
	default:
		return "unknown"
	}
}

// ScanResult is the outcome of one host-load scan.
type ScanResult struct {
	Detected     bool
	Reasons      []string // Human-readable causes, e.g. "cpu 92.1% >= 85%"
	AdaptiveMode bool
}

// ActivityResult captures one activity execution.
type ActivityResult struct {
	Name       string
	State      BehavioralState
	Err        error
	ExecutedAt time.Time
	DurationMs int64
}

// Succeeded reports whether the activity completed without error.
func (r ActivityResult) Succeeded() bool {
	return r.Err == nil
}

// PIDRecord marks a running daemon. Persisted as JSON next to the config.
type PIDRecord struct {
	PID        int       `json:"pid"`
	StartedAt  time.Time `json:"started_at"`
	AppVersion string    `json:"app_version,omitempty"`
}
