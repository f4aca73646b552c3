//go:build integration

package integration

import (
	"context"
	"math/rand/v2"
	"sync"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"go.uber.org/zap"

	"github.com/misua/watah/internal/activity"
	"github.com/misua/watah/internal/behavior"
	"github.com/misua/watah/internal/daemon"
	"github.com/misua/watah/internal/domain"
	"github.com/misua/watah/internal/timing"
	"github.com/misua/watah/test/fixtures"
)

// resultLog collects activity results from the scheduler goroutine.
type resultLog struct {
	mu      sync.Mutex
	results []domain.ActivityResult
}

func (l *resultLog) add(r domain.ActivityResult) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.results = append(l.results, r)
}

func (l *resultLog) Count() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.results)
}

func (l *resultLog) All() []domain.ActivityResult {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]domain.ActivityResult(nil), l.results...)
}

type setup struct {
	weights     map[string]float64
	window      domain.WindowDetector
	start       time.Time
	timing      timing.Options
	pauseWindow time.Duration
	userActive  bool
}

type running struct {
	injector *fixtures.RecordingInjector
	clock    *fixtures.VirtualClock
	gate     *daemon.InputGate
	sched    *daemon.Scheduler
	log      *resultLog
	done     chan error
}

func startScheduler(s setup) *running {
	rng := rand.New(rand.NewPCG(7, 11))
	logger := zap.NewNop()

	r := &running{
		injector: fixtures.NewRecordingInjector(),
		clock:    fixtures.NewVirtualClock(s.start, 200*time.Millisecond),
		log:      &resultLog{},
		done:     make(chan error, 1),
	}

	pauseWindow := s.pauseWindow
	if pauseWindow == 0 {
		pauseWindow = 30 * time.Second
	}
	r.gate = daemon.NewInputGate(daemon.GateConfig{
		Enabled:             true,
		PauseDuration:       pauseWindow,
		ManualPauseDuration: 5 * time.Minute,
		SelfInputGrace:      250 * time.Millisecond,
	}, &daemon.SharedState{}, logger)

	s.timing.Rand = rng
	timingModel := timing.NewModel(s.timing)

	catalog := activity.NewRegistry(activity.Deps{
		Injector:      r.injector,
		Window:        s.window,
		Rand:          rng,
		Logger:        logger,
		EditorMarkers: []string{"Visual Studio Code"},
		TypingDelay:   func() time.Duration { return 0 },
		Sleep:         func(time.Duration) {},
	})

	sched, err := daemon.NewScheduler(daemon.SchedulerConfig{
		Tick:         time.Millisecond,
		ErrorBackoff: time.Millisecond,
	}, daemon.Deps{
		Catalog:  catalog,
		Weights:  s.weights,
		Timing:   timingModel,
		Behavior: behavior.NewModel(behavior.DefaultSettings(), rng, logger),
		Gate:     r.gate,
		Rand:     rng,
		Logger:   logger,
	},
		daemon.WithClock(r.clock.Now),
		daemon.WithSleep(func(time.Duration) {}),
		daemon.WithResultHook(r.log.add),
	)
	Expect(err).NotTo(HaveOccurred())
	r.sched = sched

	if s.userActive {
		r.gate.OnInput(s.start)
	}

	go func() { r.done <- sched.Run(context.Background()) }()
	return r
}

func (r *running) stop() error {
	Eventually(r.sched.Running).Should(BeTrue())
	r.sched.Stop()
	var err error
	Eventually(r.done, 2*time.Second).Should(Receive(&err))
	return err
}

var morning = time.Date(2026, time.March, 10, 10, 0, 0, 0, time.Local)

var editorWindow = fixtures.StaticWindow{Title: "main.go - watah - Visual Studio Code", Ext: ".go"}

var _ = Describe("Scheduler", func() {
	Context("with mouse activities enabled", func() {
		It("drives the injector through the built-in activities", func() {
			r := startScheduler(setup{
				weights: map[string]float64{
					domain.ActivityMouseMovement: 0.5,
					domain.ActivityMouseScroll:   0.5,
				},
				window: editorWindow,
				start:  morning,
				timing: timing.Options{Intensity: "high"},
			})

			Eventually(r.log.Count, 5*time.Second).Should(BeNumerically(">=", 5))
			Expect(r.stop()).To(Succeed())

			for _, res := range r.log.All() {
				Expect(res.Succeeded()).To(BeTrue(), "activity %s failed: %v", res.Name, res.Err)
				Expect(res.Name).To(BeElementOf(domain.ActivityMouseMovement, domain.ActivityMouseScroll))
			}
			Expect(r.injector.Moves() + r.injector.Scrolls()).To(BeNumerically(">", 0))
			Expect(r.gate.State().Paused()).To(BeFalse(), "own input never pauses the scheduler")
		})
	})

	Context("when the user is active", func() {
		It("does not run any activity", func() {
			r := startScheduler(setup{
				weights:     map[string]float64{domain.ActivityMouseMovement: 1},
				window:      editorWindow,
				start:       morning,
				timing:      timing.Options{Intensity: "high"},
				pauseWindow: 24 * time.Hour,
				userActive:  true,
			})

			Consistently(r.log.Count, 300*time.Millisecond).Should(BeZero())
			Expect(r.stop()).To(Succeed())
			Expect(r.injector.Moves()).To(BeZero())
		})
	})

	Context("when typing is selected outside an editor", func() {
		It("reports the activity as failed without typing", func() {
			r := startScheduler(setup{
				weights: map[string]float64{domain.ActivityKeyboardTyping: 1},
				window:  fixtures.StaticWindow{Title: "Inbox - Mail"},
				start:   morning,
				timing:  timing.Options{Intensity: "high"},
			})

			Eventually(r.log.Count, 5*time.Second).Should(BeNumerically(">=", 2))
			Expect(r.stop()).To(Succeed())

			for _, res := range r.log.All() {
				Expect(res.Err).To(MatchError(domain.ErrWindowNotEditable))
			}
			Expect(r.injector.Typed()).To(BeEmpty())
		})
	})

	Context("in an editor window", func() {
		It("types a snippet", func() {
			r := startScheduler(setup{
				weights: map[string]float64{domain.ActivityKeyboardTyping: 1},
				window:  editorWindow,
				start:   morning,
				timing:  timing.Options{Intensity: "high"},
			})

			Eventually(r.injector.Typed, 5*time.Second).ShouldNot(BeEmpty())
			Expect(r.stop()).To(Succeed())
		})
	})

	Context("with the end-of-day cutoff enabled", func() {
		It("stops on its own after the cutoff", func() {
			r := startScheduler(setup{
				weights: map[string]float64{domain.ActivityMouseMovement: 1},
				window:  editorWindow,
				start:   time.Date(2026, time.March, 10, 17, 59, 0, 0, time.Local),
				timing: timing.Options{
					Intensity:              "high",
					EnableEndOfDayShutdown: true,
					EndOfDayHour:           18,
				},
			})

			var err error
			Eventually(r.done, 5*time.Second).Should(Receive(&err))
			Expect(err).To(MatchError(domain.ErrEndOfDay))
			Expect(r.sched.Running()).To(BeFalse())
		})
	})
})
