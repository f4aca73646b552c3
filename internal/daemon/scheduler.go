// Package daemon implements the scheduler loop that paces synthetic activity.
package daemon

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/misua/watah/internal/behavior"
	"github.com/misua/watah/internal/domain"
	"github.com/misua/watah/internal/timing"
)

// noSelectionRetry is the wait before retrying when nothing can be selected.
const noSelectionRetry = 5 * time.Second

// SchedulerConfig holds scheduler loop configuration.
type SchedulerConfig struct {
	Tick            time.Duration // Poll period of the loop
	ErrorBackoff    time.Duration // Sleep after an unexpected panic in a tick
	MonitorInterval time.Duration // How often to scan host load (0 disables)
	PauseOnInput    bool          // Install the input observer
}

// DefaultSchedulerConfig returns default scheduler configuration.
func DefaultSchedulerConfig() SchedulerConfig {
	return SchedulerConfig{
		Tick:            time.Second,
		ErrorBackoff:    5 * time.Second,
		MonitorInterval: 5 * time.Minute,
		PauseOnInput:    true,
	}
}

// Stats counts activity outcomes over the scheduler's lifetime.
type Stats struct {
	Executed  int
	Succeeded int
	Failed    int
}

// Scheduler decides whether to act, what to act and how long to wait.
// Run executes on a single goroutine; only the InputGate's SharedState is
// touched from the observer goroutine.
type Scheduler struct {
	config   SchedulerConfig
	catalog  domain.ActivityCatalog
	weights  WeightTable
	timing   *timing.Model
	behavior *behavior.Model
	detector domain.LoadDetector
	observer domain.InputObserver
	gate     *InputGate
	rng      *rand.Rand
	logger   *zap.Logger

	clock func() time.Time
	sleep func(time.Duration)

	lastTick     time.Time
	lastActivity time.Time
	lastMonitor  time.Time
	nextInterval time.Duration
	deferred     bool
	stats        Stats
	onResult     func(domain.ActivityResult)

	running atomic.Bool
	mu      sync.Mutex
	cancel  context.CancelFunc
}

// Deps are the collaborators of a Scheduler. Detector and Observer may be nil.
type Deps struct {
	Catalog  domain.ActivityCatalog
	Weights  map[string]float64
	Timing   *timing.Model
	Behavior *behavior.Model
	Detector domain.LoadDetector
	Observer domain.InputObserver
	Gate     *InputGate
	Rand     *rand.Rand
	Logger   *zap.Logger
}

// Option customizes a Scheduler.
type Option func(*Scheduler)

// WithClock replaces time.Now (for testing).
func WithClock(clock func() time.Time) Option {
	return func(s *Scheduler) { s.clock = clock }
}

// WithSleep replaces time.Sleep for post-activity pauses and backoff (for testing).
func WithSleep(sleep func(time.Duration)) Option {
	return func(s *Scheduler) { s.sleep = sleep }
}

// WithResultHook is called after every activity execution.
func WithResultHook(fn func(domain.ActivityResult)) Option {
	return func(s *Scheduler) { s.onResult = fn }
}

// NewScheduler builds a scheduler. Activities with a weight but no catalog
// entry are dropped from the table with a warning.
func NewScheduler(config SchedulerConfig, deps Deps, opts ...Option) (*Scheduler, error) {
	if deps.Catalog == nil || deps.Timing == nil || deps.Behavior == nil || deps.Gate == nil {
		return nil, errors.New("scheduler requires catalog, timing, behavior and gate")
	}
	if config.Tick <= 0 {
		return nil, fmt.Errorf("tick must be positive, got %s", config.Tick)
	}
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	rng := deps.Rand
	if rng == nil {
		rng = rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
	}

	known := make(map[string]float64, len(deps.Weights))
	for name, w := range deps.Weights {
		if _, ok := deps.Catalog.Get(name); !ok {
			logger.Warn("ignoring unknown activity in configuration", zap.String("activity", name))
			continue
		}
		known[name] = w
	}

	s := &Scheduler{
		config:   config,
		catalog:  deps.Catalog,
		weights:  NewWeightTable(known),
		timing:   deps.Timing,
		behavior: deps.Behavior,
		detector: deps.Detector,
		observer: deps.Observer,
		gate:     deps.Gate,
		rng:      rng,
		logger:   logger,
		clock:    time.Now,
		sleep:    time.Sleep,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.weights.Len() == 0 {
		logger.Warn("no activities enabled; scheduler will idle")
	}
	return s, nil
}

// Run starts the scheduler loop.
// This blocks until the context is canceled, Stop is called, or the
// end-of-day cutoff is reached (ErrEndOfDay).
func (s *Scheduler) Run(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	s.mu.Lock()
	s.cancel = cancel
	s.mu.Unlock()
	s.running.Store(true)
	defer s.running.Store(false)

	if s.config.PauseOnInput && s.observer != nil {
		if err := s.observer.Start(s.gate); err != nil {
			s.logger.Error("input observer unavailable, running without pause protection", zap.Error(err))
		} else {
			defer s.observer.Stop()
		}
	}

	if err := s.prime(s.clock()); err != nil {
		return err
	}
	s.logger.Info("scheduler started",
		zap.Duration("first_activity_in", s.nextInterval),
		zap.Any("weights", s.weights.Probabilities()))

	ticker := time.NewTicker(s.config.Tick)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.logger.Info("scheduler stopping")
			return nil

		case <-ticker.C:
			if err := s.safeTick(ctx); err != nil {
				if errors.Is(err, domain.ErrEndOfDay) {
					s.logger.Info("end of day reached, stopping")
				}
				return err
			}
		}
	}
}

// Stop clears the running flag and ends Run after the current tick.
func (s *Scheduler) Stop() {
	s.running.Store(false)
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cancel != nil {
		s.cancel()
	}
}

// Running reports whether Run is active.
func (s *Scheduler) Running() bool { return s.running.Load() }

// NextInterval returns the currently scheduled wait.
func (s *Scheduler) NextInterval() time.Duration { return s.nextInterval }

// Stats returns activity counters.
func (s *Scheduler) Stats() Stats { return s.stats }

// Weights returns the normalized activity table.
func (s *Scheduler) Weights() WeightTable { return s.weights }

// prime initializes the timers and draws the first interval.
func (s *Scheduler) prime(now time.Time) error {
	s.lastTick = now
	s.lastActivity = now
	s.lastMonitor = now
	return s.reschedule(now)
}

// safeTick runs one tick and contains panics.
func (s *Scheduler) safeTick(ctx context.Context) (err error) {
	defer func() {
		if r := recover(); r != nil {
			s.logger.Error("error in scheduler loop", zap.Any("panic", r), zap.Stack("stack"))
			s.sleep(s.config.ErrorBackoff)
			err = nil
		}
	}()
	return s.tick(ctx)
}

// tick is one pass of the loop: resume check, load check, interval check,
// selection, execution, state transition and rescheduling.
func (s *Scheduler) tick(ctx context.Context) error {
	now := s.clock()
	elapsed := now.Sub(s.lastTick)
	s.lastTick = now
	s.behavior.Update(elapsed)

	if s.gate.CheckResume(now) {
		return nil
	}

	s.checkLoad(ctx, now)

	if s.deferred {
		if err := s.reschedule(now); err != nil {
			return err
		}
		if s.deferred {
			return nil
		}
		s.lastActivity = now
	}

	waited := now.Sub(s.lastActivity)
	if waited < s.nextInterval {
		return nil
	}

	state := s.behavior.CurrentState()
	name, ok := s.weights.Select(s.rng, state)
	if !ok {
		s.logger.Error("no activity selected")
		s.lastActivity = now
		s.nextInterval = noSelectionRetry
		return nil
	}

	s.logger.Info("executing activity",
		zap.String("activity", name),
		zap.String("state", string(state)),
		zap.Duration("waited", waited))

	result := s.execute(ctx, name, state)
	if result.Succeeded() {
		s.sleep(s.timing.PauseDuration(name))
	}

	newState := s.behavior.Transition()
	s.logger.Debug("behavioral state", zap.String("state", string(newState)))

	s.lastActivity = s.clock()
	if err := s.reschedule(s.lastActivity); err != nil {
		return err
	}
	if !s.deferred {
		s.logger.Info("next activity scheduled", zap.Duration("in", s.nextInterval))
	}
	return nil
}

// execute runs one activity with the simulating flag set. Errors and panics
// are contained and reported in the result.
func (s *Scheduler) execute(ctx context.Context, name string, state domain.BehavioralState) domain.ActivityResult {
	start := s.clock()
	result := domain.ActivityResult{Name: name, State: state, ExecutedAt: start}

	act, ok := s.catalog.Get(name)
	if !ok {
		result.Err = fmt.Errorf("%w: %s", domain.ErrUnknownActivity, name)
	} else {
		s.gate.BeginSimulation()
		result.Err = runContained(ctx, act)
		s.gate.EndSimulation(s.clock())
	}
	result.DurationMs = s.clock().Sub(start).Milliseconds()

	s.stats.Executed++
	if result.Succeeded() {
		s.stats.Succeeded++
		s.logger.Info("activity completed", zap.String("activity", name), zap.Int64("duration_ms", result.DurationMs))
	} else {
		s.stats.Failed++
		s.logger.Warn("activity failed", zap.String("activity", name), zap.Error(result.Err))
	}

	if s.onResult != nil {
		s.onResult(result)
	}
	return result
}

func runContained(ctx context.Context, act domain.Activity) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("activity %s panicked: %v", act.Name(), r)
		}
	}()
	return act.Execute(ctx)
}

// checkLoad scans host load every MonitorInterval.
func (s *Scheduler) checkLoad(ctx context.Context, now time.Time) {
	if s.detector == nil || s.config.MonitorInterval <= 0 {
		return
	}
	if now.Sub(s.lastMonitor) < s.config.MonitorInterval {
		return
	}
	s.lastMonitor = now

	result := s.detector.Scan(ctx)
	s.logger.Debug("load check",
		zap.Bool("detected", result.Detected),
		zap.Strings("reasons", result.Reasons),
		zap.Bool("adaptive_mode", result.AdaptiveMode))
}

// reschedule draws the next interval and interprets the timing decision.
func (s *Scheduler) reschedule(now time.Time) error {
	adaptive := s.detector != nil && s.detector.IsAdaptiveMode()
	interval, decision := s.timing.Schedule(s.behavior.CurrentState(), adaptive, now)

	switch decision {
	case domain.Terminate:
		return domain.ErrEndOfDay
	case domain.Skip:
		if !s.deferred {
			s.logger.Info("outside activity window, holding")
		}
		s.deferred = true
	default:
		s.deferred = false
		s.nextInterval = interval
	}
	return nil
}
