package daemon

import (
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/misua/watah/internal/domain"
)

// SharedState is the only state touched by both the scheduler goroutine and
// the input observer goroutine.
//
// Writers: the observer writes paused (set), lastUserInput and
// manualPauseUntil; the scheduler writes simulating, simulationEnd and
// paused (clear).
type SharedState struct {
	paused           atomic.Bool
	simulating       atomic.Bool
	lastUserInput    atomic.Int64 // unix nanos
	simulationEnd    atomic.Int64 // unix nanos
	manualPauseUntil atomic.Int64 // unix nanos, 0 when inactive
}

// Paused reports whether activity is suspended.
func (s *SharedState) Paused() bool { return s.paused.Load() }

// Simulating reports whether an activity is executing.
func (s *SharedState) Simulating() bool { return s.simulating.Load() }

// LastUserInput returns the time of the last genuine input (zero if none).
func (s *SharedState) LastUserInput() time.Time { return fromNanos(s.lastUserInput.Load()) }

// GateConfig configures an InputGate.
type GateConfig struct {
	Enabled             bool
	PauseDuration       time.Duration
	ManualPauseDuration time.Duration
	// SelfInputGrace ignores events arriving shortly after a simulation ends;
	// hook delivery lags the injected input.
	SelfInputGrace time.Duration
}

// InputGate decides when genuine input pauses the scheduler and when it resumes.
// It implements domain.InputSink for the observer.
type InputGate struct {
	config GateConfig
	state  *SharedState
	logger *zap.Logger
}

// NewInputGate creates a gate over state.
func NewInputGate(config GateConfig, state *SharedState, logger *zap.Logger) *InputGate {
	return &InputGate{config: config, state: state, logger: logger}
}

// State returns the shared state the gate operates on.
func (g *InputGate) State() *SharedState { return g.state }

// OnInput records genuine input and pauses. Self-generated input is ignored.
func (g *InputGate) OnInput(at time.Time) {
	if !g.config.Enabled {
		return
	}
	if g.state.simulating.Load() {
		return
	}
	if end := g.state.simulationEnd.Load(); end != 0 && at.Sub(fromNanos(end)) < g.config.SelfInputGrace {
		return
	}

	g.state.lastUserInput.Store(at.UnixNano())
	if g.state.paused.CompareAndSwap(false, true) {
		g.logger.Info("user input detected, pausing simulation")
	}
}

// OnManualPause starts an extended pause regardless of the simulating flag.
func (g *InputGate) OnManualPause(at time.Time) {
	until := at.Add(g.config.ManualPauseDuration)
	g.state.manualPauseUntil.Store(until.UnixNano())
	g.state.paused.Store(true)
	g.logger.Info("manual pause requested", zap.Duration("duration", g.config.ManualPauseDuration))
}

// BeginSimulation marks the start of self-generated input.
func (g *InputGate) BeginSimulation() {
	g.state.simulating.Store(true)
}

// EndSimulation marks the end of self-generated input.
func (g *InputGate) EndSimulation(at time.Time) {
	g.state.simulationEnd.Store(at.UnixNano())
	g.state.simulating.Store(false)
}

// CheckResume clears the pause once it has run its course and reports
// whether the scheduler is still paused at now.
func (g *InputGate) CheckResume(now time.Time) bool {
	if !g.state.paused.Load() {
		return false
	}

	if until := g.state.manualPauseUntil.Load(); until != 0 {
		if now.Before(fromNanos(until)) {
			return true
		}
		g.state.manualPauseUntil.Store(0)
		g.logger.Info("manual pause ended")
	}

	last := g.state.LastUserInput()
	if !last.IsZero() && now.Sub(last) < g.config.PauseDuration {
		return true
	}

	g.state.paused.Store(false)
	g.logger.Info("resuming simulation", zap.Duration("idle", now.Sub(last)))
	return false
}

// Ensure InputGate implements domain.InputSink.
var _ domain.InputSink = (*InputGate)(nil)

func fromNanos(n int64) time.Time {
	if n == 0 {
		return time.Time{}
	}
	return time.Unix(0, n)
}
