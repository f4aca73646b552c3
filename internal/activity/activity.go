// Package activity implements the catalog of synthetic actions.
// Each activity is a small strategy; the Registry resolves them by the
// name used in configuration.
package activity

import (
	"context"
	"fmt"
	"math/rand/v2"
	"sort"
	"time"

	"go.uber.org/zap"

	"github.com/misua/watah/internal/domain"
)

// Deps are the collaborators shared by every activity.
type Deps struct {
	Injector      domain.InputInjector
	Window        domain.WindowDetector
	Rand          *rand.Rand
	Logger        *zap.Logger
	EditorMarkers []string
	// TypingDelay returns the pause between keystrokes.
	TypingDelay func() time.Duration
	// MoveDuration returns the travel time for a cursor move of distance pixels.
	MoveDuration func(distance float64) time.Duration
	// Sleep blocks between steps. Activities run to completion once started.
	Sleep func(time.Duration)
}

func (d *Deps) withDefaults() {
	if d.Rand == nil {
		d.Rand = rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
	}
	if d.Logger == nil {
		d.Logger = zap.NewNop()
	}
	if d.Sleep == nil {
		d.Sleep = time.Sleep
	}
	if d.TypingDelay == nil {
		d.TypingDelay = func() time.Duration { return 60 * time.Millisecond }
	}
	if d.MoveDuration == nil {
		d.MoveDuration = func(distance float64) time.Duration {
			return time.Duration(distance / 1000 * float64(time.Second))
		}
	}
}

// uniform returns a random duration in [lo, hi).
func (d *Deps) uniform(lo, hi time.Duration) time.Duration {
	if hi <= lo {
		return lo
	}
	return lo + time.Duration(d.Rand.Int64N(int64(hi-lo)))
}

// pause sleeps for a random duration in [lo, hi).
func (d *Deps) pause(lo, hi time.Duration) {
	d.Sleep(d.uniform(lo, hi))
}

// Func adapts a function to the domain.Activity interface.
type Func struct {
	name string
	fn   func(ctx context.Context) error
}

// NewFunc wraps fn as an activity called name.
func NewFunc(name string, fn func(ctx context.Context) error) *Func {
	return &Func{name: name, fn: fn}
}

// Name returns the activity name.
func (f *Func) Name() string { return f.name }

// Execute calls the wrapped function.
func (f *Func) Execute(ctx context.Context) error { return f.fn(ctx) }

// Registry holds all activities by name.
type Registry struct {
	activities map[string]domain.Activity
}

// NewRegistry creates a registry with the built-in activities.
func NewRegistry(deps Deps) *Registry {
	deps.withDefaults()

	mouse := NewMouse(deps)
	keyboard := NewKeyboard(deps)
	composite := NewComposite(deps, mouse, keyboard)

	r := NewRegistryWithActivities(
		NewFunc(domain.ActivityMouseMovement, mouse.RandomMovement),
		NewFunc(domain.ActivityMouseScroll, mouse.RandomScroll),
		NewFunc(domain.ActivityKeyboardNavigation, keyboard.PressNavigationKey),
		NewFunc(domain.ActivityKeyboardTyping, composite.ReadThenType),
		NewFunc(domain.ActivityTabSwitching, composite.TabSwitching),
		NewFunc(domain.ActivityCompositeWorkflows, composite.RandomWorkflow),
	)
	return r
}

// NewRegistryWithActivities creates a registry with custom activities (for testing).
func NewRegistryWithActivities(activities ...domain.Activity) *Registry {
	r := &Registry{activities: make(map[string]domain.Activity)}
	for _, a := range activities {
		r.Register(a)
	}
	return r
}

// Register adds an activity, replacing any with the same name.
func (r *Registry) Register(a domain.Activity) {
	r.activities[a.Name()] = a
}

// Get returns an activity by name.
func (r *Registry) Get(name string) (domain.Activity, bool) {
	a, ok := r.activities[name]
	return a, ok
}

// MustGet returns an activity or ErrUnknownActivity.
func (r *Registry) MustGet(name string) (domain.Activity, error) {
	a, ok := r.activities[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", domain.ErrUnknownActivity, name)
	}
	return a, nil
}

// List returns all activity names, sorted.
func (r *Registry) List() []string {
	names := make([]string, 0, len(r.activities))
	for name := range r.activities {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Ensure Registry implements domain.ActivityCatalog.
var _ domain.ActivityCatalog = (*Registry)(nil)
