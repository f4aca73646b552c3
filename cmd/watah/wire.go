package main

import (
	"math/rand/v2"

	"go.uber.org/zap"

	"github.com/misua/watah/internal/activity"
	"github.com/misua/watah/internal/behavior"
	"github.com/misua/watah/internal/config"
	"github.com/misua/watah/internal/daemon"
	"github.com/misua/watah/internal/domain"
	"github.com/misua/watah/internal/infra"
	"github.com/misua/watah/internal/timing"
)

// components is everything the scheduler needs, built from configuration.
type components struct {
	timing   *timing.Model
	behavior *behavior.Model
	catalog  *activity.Registry
	gate     *daemon.InputGate
	detector domain.LoadDetector
	observer domain.InputObserver
}

// buildComponents wires the OS-backed implementations.
// All of them share one random source; they all run on the scheduler goroutine.
func buildComponents(cfg *config.Config, logger *zap.Logger) *components {
	rng := rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))

	ts := cfg.Timing()
	timingModel := timing.NewModel(timing.Options{
		Intensity:              ts.Intensity,
		EnableCircadian:        ts.EnableCircadian,
		EnableEndOfDayShutdown: ts.EnableEndOfDayShutdown,
		EndOfDayHour:           ts.EndOfDayHour,
		Rand:                   rng,
	})

	bs := cfg.Behavior()
	behaviorModel := behavior.NewModel(behavior.Settings{
		WorkSessionMin:   bs.WorkSessionMin,
		WorkSessionMax:   bs.WorkSessionMax,
		BreakMin:         bs.BreakMin,
		BreakMax:         bs.BreakMax,
		BreakProbability: bs.BreakProbability,
	}, rng, logger.Named("behavior"))

	catalog := activity.NewRegistry(activity.Deps{
		Injector:      infra.NewRobotInjector(),
		Window:        infra.NewRobotWindowDetector(),
		Rand:          rng,
		Logger:        logger.Named("activity"),
		EditorMarkers: cfg.EditorMarkers(),
		TypingDelay:   timingModel.TypingDelay,
		MoveDuration:  timingModel.MouseMoveDuration,
	})

	ss := cfg.Safety()
	gate := daemon.NewInputGate(daemon.GateConfig{
		Enabled:             ss.PauseOnUserInput,
		PauseDuration:       ss.PauseDuration,
		ManualPauseDuration: ss.ManualPauseDuration,
		SelfInputGrace:      ss.SelfInputGrace,
	}, &daemon.SharedState{}, logger.Named("gate"))

	c := &components{
		timing:   timingModel,
		behavior: behaviorModel,
		catalog:  catalog,
		gate:     gate,
	}

	if th := cfg.Throttle(); th.Enabled {
		c.detector = infra.NewLoadMonitor(th.CPUThreshold, th.SampleWindow, logger.Named("load"))
	}
	if ss.PauseOnUserInput {
		c.observer = infra.NewHookObserver(logger.Named("observer"))
	}
	return c
}

// buildScheduler wires a scheduler from configuration.
func buildScheduler(cfg *config.Config, logger *zap.Logger) (*daemon.Scheduler, error) {
	c := buildComponents(cfg, logger)

	ds := cfg.Daemon()
	th := cfg.Throttle()
	sc := daemon.SchedulerConfig{
		Tick:            ds.Tick,
		ErrorBackoff:    ds.ErrorBackoff,
		MonitorInterval: th.CheckInterval,
		PauseOnInput:    cfg.Safety().PauseOnUserInput,
	}
	if !th.Enabled {
		sc.MonitorInterval = 0
	}

	return daemon.NewScheduler(sc, daemon.Deps{
		Catalog:  c.catalog,
		Weights:  cfg.ActivityWeights(),
		Timing:   c.timing,
		Behavior: c.behavior,
		Detector: c.detector,
		Observer: c.observer,
		Gate:     c.gate,
		Logger:   logger.Named("scheduler"),
	})
}
