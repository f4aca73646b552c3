// Package timing computes the spacing between synthetic activities.
package timing

import (
	"math"
	"math/rand/v2"
	"time"

	"github.com/misua/watah/internal/domain"
)

// AdaptiveFactor stretches intervals while the host is under load.
const AdaptiveFactor = 1.3

// MinPause is the floor for post-activity pauses.
const MinPause = 100 * time.Millisecond

// Tier fixes the midpoint, spread and clamp of one intensity level (seconds).
type Tier struct {
	Base     float64
	Variance float64
	Min      float64
	Max      float64
}

// Tiers maps intensity names to their interval shape.
var Tiers = map[string]Tier{
	"low":    {Base: 30, Variance: 10, Min: 3, Max: 45},
	"medium": {Base: 15, Variance: 5, Min: 3, Max: 20},
	"high":   {Base: 7, Variance: 3, Min: 3, Max: 20},
}

// stateFactor lengthens intervals for states where a person touches input less.
var stateFactor = map[domain.BehavioralState]float64{
	domain.StateBreak:   1.5,
	domain.StateReading: 1.2,
}

// pauseBase is the post-activity pause per activity kind (seconds).
var pauseBase = map[string]float64{
	domain.ActivityMouseMovement:      0.3,
	domain.ActivityMouseScroll:        0.5,
	domain.ActivityKeyboardTyping:     1.0,
	domain.ActivityKeyboardNavigation: 0.2,
}

// Options configures a Model.
type Options struct {
	Intensity              string
	EnableCircadian        bool
	EnableEndOfDayShutdown bool
	EndOfDayHour           int
	Rand                   *rand.Rand
}

// Model draws intervals and pauses. Not safe for concurrent use; the
// scheduler owns it.
type Model struct {
	tier         Tier
	circadian    bool
	endOfDay     bool
	endOfDayHour int
	rng          *rand.Rand
}

// NewModel builds a model. Unknown intensities fall back to "medium".
func NewModel(opts Options) *Model {
	tier, ok := Tiers[opts.Intensity]
	if !ok {
		tier = Tiers["medium"]
	}
	rng := opts.Rand
	if rng == nil {
		rng = rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
	}
	return &Model{
		tier:         tier,
		circadian:    opts.EnableCircadian,
		endOfDay:     opts.EnableEndOfDayShutdown,
		endOfDayHour: opts.EndOfDayHour,
		rng:          rng,
	}
}

// Tier returns the active intensity tier.
func (m *Model) Tier() Tier { return m.tier }

// NextInterval returns the base interval for state, always within the tier clamp.
func (m *Model) NextInterval(state domain.BehavioralState) time.Duration {
	base := m.tier.Base
	if f, ok := stateFactor[state]; ok {
		base *= f
	}
	secs := base + m.uniform(-m.tier.Variance, m.tier.Variance)
	secs = math.Max(m.tier.Min, math.Min(m.tier.Max, secs))
	return seconds(secs)
}

// PauseDuration returns how long to rest after an activity of kind.
// The result is never below MinPause.
func (m *Model) PauseDuration(kind string) time.Duration {
	base, ok := pauseBase[kind]
	if !ok {
		base = 0.5
	}
	d := seconds(base + m.uniform(-0.1, 0.3))
	if d < MinPause {
		return MinPause
	}
	return d
}

// CircadianMultiplier scales intervals by hour of day.
// Lunch (12:00-13:00) yields Skip: nothing should fire in that window.
func CircadianMultiplier(now time.Time) (float64, domain.Decision) {
	switch h := now.Hour(); {
	case h >= 9 && h < 12:
		return 1.0, domain.Proceed
	case h == 12:
		return math.Inf(1), domain.Skip
	case h == 13:
		return 1.3, domain.Proceed
	case h >= 14 && h < 17:
		return 1.1, domain.Proceed
	case h >= 17 && h < 19:
		return 1.4, domain.Proceed
	case h >= 19 && h < 22:
		return 1.2, domain.Proceed
	default:
		return 2.0, domain.Proceed
	}
}

// Schedule combines the base interval with the circadian, adaptive and
// end-of-day rules. The returned interval is meaningful only for Proceed.
func (m *Model) Schedule(state domain.BehavioralState, adaptive bool, now time.Time) (time.Duration, domain.Decision) {
	if m.endOfDay && now.Hour() >= m.endOfDayHour {
		return 0, domain.Terminate
	}

	interval := m.NextInterval(state)
	if adaptive {
		interval = time.Duration(float64(interval) * AdaptiveFactor)
	}
	if m.circadian {
		mult, decision := CircadianMultiplier(now)
		if decision != domain.Proceed {
			return 0, decision
		}
		interval = time.Duration(float64(interval) * mult)
	}
	return interval, domain.Proceed
}

// TypingDelay returns a per-keystroke delay: gamma(2, 50ms) scaled by a
// burst factor (70% normal, 20% x0.5, 10% x0.3).
func (m *Model) TypingDelay() time.Duration {
	g := m.rng.ExpFloat64()*0.05 + m.rng.ExpFloat64()*0.05
	switch r := m.rng.Float64(); {
	case r < 0.7:
	case r < 0.9:
		g *= 0.5
	default:
		g *= 0.3
	}
	return seconds(g)
}

// MouseMoveDuration returns the travel time for a cursor move of distance pixels
// at roughly 1000px/s with +/-20% jitter, never below 100ms.
func (m *Model) MouseMoveDuration(distance float64) time.Duration {
	d := seconds(distance / 1000 * m.uniform(0.8, 1.2))
	if d < MinPause {
		return MinPause
	}
	return d
}

func (m *Model) uniform(lo, hi float64) float64 {
	return lo + m.rng.Float64()*(hi-lo)
}

func seconds(s float64) time.Duration {
	return time.Duration(s * float64(time.Second))
}
