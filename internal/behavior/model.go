package behavior

import (
	"math/rand/v2"
	"time"

	"go.uber.org/zap"

	"github.com/misua/watah/internal/domain"
)

// Settings bounds the work-session and break lengths.
type Settings struct {
	WorkSessionMin   time.Duration
	WorkSessionMax   time.Duration
	BreakMin         time.Duration
	BreakMax         time.Duration
	BreakProbability float64
}

// DefaultSettings mirrors the configuration defaults.
func DefaultSettings() Settings {
	return Settings{
		WorkSessionMin:   20 * time.Minute,
		WorkSessionMax:   50 * time.Minute,
		BreakMin:         5 * time.Minute,
		BreakMax:         15 * time.Minute,
		BreakProbability: 0.7,
	}
}

// Model layers work/break accounting over a MarkovChain.
// While in a break the reported state is always StateBreak; the chain keeps
// stepping underneath and becomes visible again once the break ends.
type Model struct {
	settings Settings
	chain    *MarkovChain
	rng      *rand.Rand
	logger   *zap.Logger

	inBreak        bool
	workDuration   time.Duration
	breakDuration  time.Duration
	workThreshold  time.Duration
	breakThreshold time.Duration
}

// NewModel creates a model in a fresh work session.
func NewModel(settings Settings, rng *rand.Rand, logger *zap.Logger) *Model {
	if rng == nil {
		rng = rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
	}
	m := &Model{
		settings: settings,
		chain:    NewMarkovChain(rng),
		rng:      rng,
		logger:   logger,
	}
	m.workThreshold = m.draw(settings.WorkSessionMin, settings.WorkSessionMax)
	return m
}

// Update feeds elapsed wall-clock time into the work/break accounting.
func (m *Model) Update(elapsed time.Duration) {
	if elapsed <= 0 {
		return
	}

	if m.inBreak {
		m.breakDuration += elapsed
		if m.breakDuration >= m.breakThreshold {
			m.inBreak = false
			m.breakDuration = 0
			m.workDuration = 0
			m.workThreshold = m.draw(m.settings.WorkSessionMin, m.settings.WorkSessionMax)
			m.logger.Info("break ended, resuming work session")
		}
		return
	}

	m.workDuration += elapsed
	if m.workDuration < m.workThreshold {
		return
	}

	if m.rng.Float64() < m.settings.BreakProbability {
		m.inBreak = true
		m.workDuration = 0
		m.breakThreshold = m.draw(m.settings.BreakMin, m.settings.BreakMax)
		m.logger.Info("starting break period", zap.Duration("length", m.breakThreshold))
		return
	}

	// Skipped the break; keep working until a new threshold is reached.
	m.workDuration = 0
	m.workThreshold = m.draw(m.settings.WorkSessionMin, m.settings.WorkSessionMax)
}

// CurrentState returns the externally visible state.
func (m *Model) CurrentState() domain.BehavioralState {
	if m.inBreak {
		return domain.StateBreak
	}
	return m.chain.State()
}

// Transition advances the Markov chain one step.
func (m *Model) Transition() domain.BehavioralState {
	m.chain.NextState()
	return m.CurrentState()
}

// InBreak reports whether a forced break is active.
func (m *Model) InBreak() bool { return m.inBreak }

// WorkDuration returns time accumulated in the current work session.
func (m *Model) WorkDuration() time.Duration { return m.workDuration }

func (m *Model) draw(lo, hi time.Duration) time.Duration {
	if hi <= lo {
		return lo
	}
	return lo + time.Duration(m.rng.Int64N(int64(hi-lo)+1))
}
