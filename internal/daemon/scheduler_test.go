package daemon

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/misua/watah/internal/activity"
	"github.com/misua/watah/internal/behavior"
	"github.com/misua/watah/internal/domain"
	"github.com/misua/watah/internal/timing"
)

// fakeClock is advanced by the test and by the scheduler's sleeps.
type fakeClock struct {
	now time.Time
}

func (c *fakeClock) Now() time.Time          { return c.now }
func (c *fakeClock) Advance(d time.Duration) { c.now = c.now.Add(d) }

// fakeActivity counts calls and can fail or panic.
type fakeActivity struct {
	name     string
	err      error
	panicMsg string
	during   func()
	calls    int
}

func (a *fakeActivity) Name() string { return a.name }

func (a *fakeActivity) Execute(ctx context.Context) error {
	a.calls++
	if a.during != nil {
		a.during()
	}
	if a.panicMsg != "" {
		panic(a.panicMsg)
	}
	return a.err
}

// fakeDetector reports a fixed adaptive mode.
type fakeDetector struct {
	adaptive bool
	panics   bool
	scans    int
}

func (d *fakeDetector) Scan(ctx context.Context) domain.ScanResult {
	d.scans++
	if d.panics {
		panic("scan failed")
	}
	return domain.ScanResult{Detected: d.adaptive, AdaptiveMode: d.adaptive}
}

func (d *fakeDetector) IsAdaptiveMode() bool { return d.adaptive }

// fakeObserver records Start/Stop.
type fakeObserver struct {
	startErr error
	started  bool
	stopped  bool
}

func (o *fakeObserver) Start(sink domain.InputSink) error {
	if o.startErr != nil {
		return o.startErr
	}
	o.started = true
	return nil
}

func (o *fakeObserver) Stop() { o.stopped = true }

type harnessOptions struct {
	start      time.Time
	activities []*fakeActivity
	weights    map[string]float64
	timing     timing.Options
	detector   domain.LoadDetector
	observer   domain.InputObserver
	config     SchedulerConfig
	gate       GateConfig
}

type harness struct {
	clock   *fakeClock
	gate    *InputGate
	sched   *Scheduler
	results []domain.ActivityResult
	sleeps  []time.Duration
}

func defaultHarnessOptions() harnessOptions {
	return harnessOptions{
		start:  time.Date(2026, time.March, 10, 10, 0, 0, 0, time.Local),
		timing: timing.Options{Intensity: "medium"},
		config: SchedulerConfig{
			Tick:            time.Second,
			ErrorBackoff:    5 * time.Second,
			MonitorInterval: 5 * time.Minute,
			PauseOnInput:    true,
		},
		gate: GateConfig{
			Enabled:             true,
			PauseDuration:       30 * time.Second,
			ManualPauseDuration: 5 * time.Minute,
			SelfInputGrace:      250 * time.Millisecond,
		},
	}
}

func newHarness(t *testing.T, opts harnessOptions) *harness {
	t.Helper()

	rng := seeded(2026)
	h := &harness{clock: &fakeClock{now: opts.start}}
	h.gate = NewInputGate(opts.gate, &SharedState{}, zap.NewNop())

	acts := make([]domain.Activity, 0, len(opts.activities))
	for _, a := range opts.activities {
		acts = append(acts, a)
	}

	opts.timing.Rand = rng
	sched, err := NewScheduler(opts.config, Deps{
		Catalog:  activity.NewRegistryWithActivities(acts...),
		Weights:  opts.weights,
		Timing:   timing.NewModel(opts.timing),
		Behavior: behavior.NewModel(behavior.DefaultSettings(), rng, zap.NewNop()),
		Detector: opts.detector,
		Observer: opts.observer,
		Gate:     h.gate,
		Rand:     rng,
		Logger:   zap.NewNop(),
	},
		WithClock(h.clock.Now),
		WithSleep(func(d time.Duration) {
			h.sleeps = append(h.sleeps, d)
			h.clock.Advance(d)
		}),
		WithResultHook(func(r domain.ActivityResult) { h.results = append(h.results, r) }),
	)
	require.NoError(t, err)
	h.sched = sched
	return h
}

// runFor primes the scheduler and ticks once per simulated second.
func (h *harness) runFor(t *testing.T, d time.Duration) {
	t.Helper()
	require.NoError(t, h.sched.prime(h.clock.Now()))
	h.tickFor(t, d)
}

func (h *harness) tickFor(t *testing.T, d time.Duration) {
	t.Helper()
	end := h.clock.Now().Add(d)
	for h.clock.Now().Before(end) {
		h.clock.Advance(time.Second)
		require.NoError(t, h.sched.tick(context.Background()))
	}
}

func mouseOnly() (*fakeActivity, map[string]float64) {
	return &fakeActivity{name: domain.ActivityMouseMovement},
		map[string]float64{domain.ActivityMouseMovement: 0.3}
}

// TestScheduler_MediumSingleActivity runs ten simulated minutes with only
// mouse_movement enabled.
func TestScheduler_MediumSingleActivity(t *testing.T) {
	mouse, weights := mouseOnly()
	opts := defaultHarnessOptions()
	opts.activities = []*fakeActivity{mouse}
	opts.weights = weights
	h := newHarness(t, opts)

	require.NoError(t, h.sched.prime(h.clock.Now()))
	prevEnd := h.clock.Now()
	prevInterval := h.sched.NextInterval()
	end := h.clock.Now().Add(10 * time.Minute)

	for h.clock.Now().Before(end) {
		h.clock.Advance(time.Second)
		tickAt := h.clock.Now()
		before := len(h.results)
		require.NoError(t, h.sched.tick(context.Background()))

		if len(h.results) > before {
			gap := tickAt.Sub(prevEnd)
			assert.GreaterOrEqual(t, gap, prevInterval)
			assert.Less(t, gap, prevInterval+time.Second)

			prevEnd = h.clock.Now()
			prevInterval = h.sched.NextInterval()
			assert.GreaterOrEqual(t, prevInterval, 10*time.Second)
			assert.LessOrEqual(t, prevInterval, 20*time.Second)
		}
	}

	require.NotEmpty(t, h.results)
	// At most one activity per 10s.
	assert.LessOrEqual(t, len(h.results), 60)
	assert.GreaterOrEqual(t, len(h.results), 25)
	for _, r := range h.results {
		assert.Equal(t, domain.ActivityMouseMovement, r.Name)
		assert.NoError(t, r.Err)
	}
	assert.Equal(t, len(h.results), mouse.calls)
	assert.Equal(t, Stats{Executed: mouse.calls, Succeeded: mouse.calls}, h.sched.Stats())
}

func TestScheduler_PauseAfterSuccessOnly(t *testing.T) {
	failing := &fakeActivity{name: domain.ActivityMouseMovement, err: errors.New("no display")}
	opts := defaultHarnessOptions()
	opts.activities = []*fakeActivity{failing}
	opts.weights = map[string]float64{domain.ActivityMouseMovement: 1}
	h := newHarness(t, opts)

	h.runFor(t, 2*time.Minute)

	require.NotZero(t, failing.calls)
	assert.Empty(t, h.sleeps, "failed activities are not followed by a pause")
	assert.Equal(t, failing.calls, h.sched.Stats().Failed)
	assert.Zero(t, h.sched.Stats().Succeeded)
}

func TestScheduler_ActivityPanicContained(t *testing.T) {
	boom := &fakeActivity{name: domain.ActivityMouseMovement, panicMsg: "native crash"}
	opts := defaultHarnessOptions()
	opts.activities = []*fakeActivity{boom}
	opts.weights = map[string]float64{domain.ActivityMouseMovement: 1}
	h := newHarness(t, opts)

	h.runFor(t, 2*time.Minute)

	require.GreaterOrEqual(t, boom.calls, 2, "scheduler keeps going after a panic")
	for _, r := range h.results {
		require.Error(t, r.Err)
		assert.Contains(t, r.Err.Error(), "native crash")
	}
	assert.False(t, h.gate.State().Simulating(), "simulating flag cleared after a panic")
}

func TestScheduler_SimulatingFlagDuringExecution(t *testing.T) {
	opts := defaultHarnessOptions()
	var h *harness
	var flags []bool
	act := &fakeActivity{name: domain.ActivityMouseMovement}
	act.during = func() {
		flags = append(flags, h.gate.State().Simulating())
		// The activity's own input must not pause us.
		h.gate.OnInput(h.clock.Now())
	}
	opts.activities = []*fakeActivity{act}
	opts.weights = map[string]float64{domain.ActivityMouseMovement: 1}
	h = newHarness(t, opts)

	h.runFor(t, 2*time.Minute)

	require.NotEmpty(t, flags)
	for _, f := range flags {
		assert.True(t, f)
	}
	assert.False(t, h.gate.State().Paused())
	assert.False(t, h.gate.State().Simulating())
}

func TestScheduler_PausedSkipsExecution(t *testing.T) {
	mouse, weights := mouseOnly()
	opts := defaultHarnessOptions()
	opts.activities = []*fakeActivity{mouse}
	opts.weights = weights
	opts.gate.PauseDuration = 60 * time.Second
	h := newHarness(t, opts)

	require.NoError(t, h.sched.prime(h.clock.Now()))
	h.gate.OnInput(h.clock.Now())

	h.tickFor(t, 59*time.Second)
	assert.Zero(t, mouse.calls, "no activity while paused")
	assert.True(t, h.gate.State().Paused())

	h.tickFor(t, 30*time.Second)
	assert.False(t, h.gate.State().Paused())
	assert.NotZero(t, mouse.calls, "activity resumes after the pause")
}

func TestScheduler_ManualPauseHoldsLonger(t *testing.T) {
	mouse, weights := mouseOnly()
	opts := defaultHarnessOptions()
	opts.activities = []*fakeActivity{mouse}
	opts.weights = weights
	h := newHarness(t, opts)

	require.NoError(t, h.sched.prime(h.clock.Now()))
	h.gate.OnManualPause(h.clock.Now())

	h.tickFor(t, 4*time.Minute)
	assert.Zero(t, mouse.calls)

	h.tickFor(t, 2*time.Minute)
	assert.NotZero(t, mouse.calls)
}

// TestScheduler_AdaptiveMode checks intervals stretch by 1.3 while the host is busy.
func TestScheduler_AdaptiveMode(t *testing.T) {
	mouse, weights := mouseOnly()
	detector := &fakeDetector{adaptive: true}
	opts := defaultHarnessOptions()
	opts.activities = []*fakeActivity{mouse}
	opts.weights = weights
	opts.detector = detector
	h := newHarness(t, opts)

	require.NoError(t, h.sched.prime(h.clock.Now()))
	intervals := []time.Duration{h.sched.NextInterval()}
	end := h.clock.Now().Add(18 * time.Minute)
	for h.clock.Now().Before(end) {
		h.clock.Advance(time.Second)
		before := len(h.results)
		require.NoError(t, h.sched.tick(context.Background()))
		if len(h.results) > before {
			intervals = append(intervals, h.sched.NextInterval())
		}
	}

	var above20 int
	for _, d := range intervals {
		assert.GreaterOrEqual(t, d, 13*time.Second)
		assert.LessOrEqual(t, d, 26*time.Second)
		if d > 20*time.Second {
			above20++
		}
	}
	assert.Positive(t, above20, "some intervals exceed the medium clamp")
	assert.Equal(t, 3, detector.scans, "scanned every 5 minutes")
}

func TestScheduler_LoadScanDisabled(t *testing.T) {
	mouse, weights := mouseOnly()
	detector := &fakeDetector{}
	opts := defaultHarnessOptions()
	opts.activities = []*fakeActivity{mouse}
	opts.weights = weights
	opts.detector = detector
	opts.config.MonitorInterval = 0
	h := newHarness(t, opts)

	h.runFor(t, 11*time.Minute)
	assert.Zero(t, detector.scans)
}

func TestScheduler_TickPanicBacksOff(t *testing.T) {
	mouse, weights := mouseOnly()
	opts := defaultHarnessOptions()
	opts.activities = []*fakeActivity{mouse}
	opts.weights = weights
	opts.detector = &fakeDetector{panics: true}
	opts.config.MonitorInterval = 5 * time.Second
	h := newHarness(t, opts)

	require.NoError(t, h.sched.prime(h.clock.Now()))
	h.clock.Advance(5 * time.Second)

	assert.NoError(t, h.sched.safeTick(context.Background()))
	assert.Equal(t, []time.Duration{5 * time.Second}, h.sleeps)
}

func TestScheduler_LunchHold(t *testing.T) {
	mouse, weights := mouseOnly()
	opts := defaultHarnessOptions()
	opts.start = time.Date(2026, time.March, 10, 12, 50, 0, 0, time.Local)
	opts.timing.EnableCircadian = true
	opts.activities = []*fakeActivity{mouse}
	opts.weights = weights
	h := newHarness(t, opts)

	h.runFor(t, 9*time.Minute)
	assert.Zero(t, mouse.calls, "nothing fires during lunch")

	h.tickFor(t, 5*time.Minute)
	assert.NotZero(t, mouse.calls, "activity resumes at 13:00")
	for _, r := range h.results {
		assert.Equal(t, 13, r.ExecutedAt.Hour())
	}
}

func TestScheduler_EndOfDayStopsLoop(t *testing.T) {
	mouse, weights := mouseOnly()
	opts := defaultHarnessOptions()
	opts.start = time.Date(2026, time.March, 10, 17, 59, 0, 0, time.Local)
	opts.timing.EnableEndOfDayShutdown = true
	opts.timing.EndOfDayHour = 18
	opts.activities = []*fakeActivity{mouse}
	opts.weights = weights
	h := newHarness(t, opts)

	require.NoError(t, h.sched.prime(h.clock.Now()))

	var err error
	for i := 0; i < 120 && err == nil; i++ {
		h.clock.Advance(time.Second)
		err = h.sched.tick(context.Background())
	}
	assert.ErrorIs(t, err, domain.ErrEndOfDay)
}

func TestScheduler_NoActivitiesIdles(t *testing.T) {
	opts := defaultHarnessOptions()
	h := newHarness(t, opts)

	h.runFor(t, time.Minute)
	assert.Zero(t, h.sched.Weights().Len())
	assert.Empty(t, h.results)
	assert.Equal(t, noSelectionRetry, h.sched.NextInterval())
}

func TestNewScheduler_DropsUnknownActivities(t *testing.T) {
	mouse, _ := mouseOnly()
	opts := defaultHarnessOptions()
	opts.activities = []*fakeActivity{mouse}
	opts.weights = map[string]float64{domain.ActivityMouseMovement: 1, "juggling": 1}
	h := newHarness(t, opts)

	assert.Equal(t, map[string]float64{domain.ActivityMouseMovement: 1}, h.sched.Weights().Probabilities())
}

func TestNewScheduler_RequiresCollaborators(t *testing.T) {
	_, err := NewScheduler(DefaultSchedulerConfig(), Deps{})
	assert.Error(t, err)
}

func TestNewScheduler_RejectsZeroTick(t *testing.T) {
	rng := seeded(1)
	_, err := NewScheduler(SchedulerConfig{}, Deps{
		Catalog:  activity.NewRegistryWithActivities(),
		Timing:   timing.NewModel(timing.Options{Rand: rng}),
		Behavior: behavior.NewModel(behavior.DefaultSettings(), rng, zap.NewNop()),
		Gate:     NewInputGate(GateConfig{}, &SharedState{}, zap.NewNop()),
	})
	assert.Error(t, err)
}

func TestScheduler_RunStopsOnCancel(t *testing.T) {
	observer := &fakeObserver{}
	opts := defaultHarnessOptions()
	opts.observer = observer
	opts.config.Tick = 5 * time.Millisecond
	h := newHarness(t, opts)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	assert.NoError(t, h.sched.Run(ctx))
	assert.True(t, observer.started)
	assert.True(t, observer.stopped)
	assert.False(t, h.sched.Running())
}

func TestScheduler_RunDegradedWithoutObserver(t *testing.T) {
	observer := &fakeObserver{startErr: errors.New("no accessibility permission")}
	opts := defaultHarnessOptions()
	opts.observer = observer
	opts.config.Tick = 5 * time.Millisecond
	h := newHarness(t, opts)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	assert.NoError(t, h.sched.Run(ctx))
	assert.False(t, observer.started)
	assert.False(t, observer.stopped)
}

func TestScheduler_RunSkipsObserverWhenPauseDisabled(t *testing.T) {
	observer := &fakeObserver{}
	opts := defaultHarnessOptions()
	opts.observer = observer
	opts.config.Tick = 5 * time.Millisecond
	opts.config.PauseOnInput = false
	h := newHarness(t, opts)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	assert.NoError(t, h.sched.Run(ctx))
	assert.False(t, observer.started)
}

func TestScheduler_RunReturnsEndOfDay(t *testing.T) {
	observer := &fakeObserver{}
	opts := defaultHarnessOptions()
	opts.start = time.Date(2026, time.March, 10, 18, 30, 0, 0, time.Local)
	opts.timing.EnableEndOfDayShutdown = true
	opts.timing.EndOfDayHour = 18
	opts.observer = observer
	h := newHarness(t, opts)

	err := h.sched.Run(context.Background())
	assert.ErrorIs(t, err, domain.ErrEndOfDay)
	assert.True(t, observer.stopped)
}

func TestScheduler_Stop(t *testing.T) {
	opts := defaultHarnessOptions()
	opts.config.Tick = 5 * time.Millisecond
	h := newHarness(t, opts)

	done := make(chan error, 1)
	go func() { done <- h.sched.Run(context.Background()) }()

	require.Eventually(t, h.sched.Running, time.Second, 5*time.Millisecond)
	h.sched.Stop()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("Run did not return after Stop")
	}
}
