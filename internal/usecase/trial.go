// Package usecase contains application logic that sits outside the scheduler loop.
package usecase

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/misua/watah/internal/domain"
)

// TrialRunner runs activities once each, outside the scheduler. It backs the
// `try` command used to check input-injection permissions.
type TrialRunner struct {
	catalog domain.ActivityCatalog
	pause   func(kind string) time.Duration
	sleep   func(time.Duration)
	logger  *zap.Logger
}

// NewTrialRunner creates a runner. pause returns the rest after each activity.
func NewTrialRunner(catalog domain.ActivityCatalog, pause func(kind string) time.Duration, logger *zap.Logger) *TrialRunner {
	return &TrialRunner{
		catalog: catalog,
		pause:   pause,
		sleep:   time.Sleep,
		logger:  logger,
	}
}

// WithSleep replaces time.Sleep (for testing).
func (r *TrialRunner) WithSleep(sleep func(time.Duration)) *TrialRunner {
	r.sleep = sleep
	return r
}

// Run executes each named activity in order. Unknown names and failures are
// recorded in the results; the remaining activities still run.
func (r *TrialRunner) Run(ctx context.Context, names []string) []domain.ActivityResult {
	results := make([]domain.ActivityResult, 0, len(names))

	for _, name := range names {
		if ctx.Err() != nil {
			break
		}
		result := r.runOne(ctx, name)
		results = append(results, result)

		if result.Succeeded() {
			r.logger.Info("trial activity completed",
				zap.String("activity", name),
				zap.Int64("duration_ms", result.DurationMs))
			r.sleep(r.pause(name))
		} else {
			r.logger.Warn("trial activity failed",
				zap.String("activity", name),
				zap.Error(result.Err))
		}
	}

	return results
}

func (r *TrialRunner) runOne(ctx context.Context, name string) (result domain.ActivityResult) {
	start := time.Now()
	result = domain.ActivityResult{Name: name, ExecutedAt: start}

	act, ok := r.catalog.Get(name)
	if !ok {
		result.Err = fmt.Errorf("%w: %s", domain.ErrUnknownActivity, name)
		return result
	}

	defer func() {
		if p := recover(); p != nil {
			result.Err = fmt.Errorf("activity %s panicked: %v", name, p)
		}
		result.DurationMs = time.Since(start).Milliseconds()
	}()
	result.Err = act.Execute(ctx)
	return result
}
