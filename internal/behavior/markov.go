// Package behavior models which kind of work the synthetic user is doing.
package behavior

import (
	"math/rand/v2"

	"github.com/misua/watah/internal/domain"
)

// TransitionMatrix holds P(next | current). Each row sums to 1.
var TransitionMatrix = map[domain.BehavioralState]map[domain.BehavioralState]float64{
	domain.StateWork: {
		domain.StateWork: 0.70, domain.StateBreak: 0.10, domain.StateReading: 0.10,
		domain.StateTyping: 0.05, domain.StateBrowsing: 0.05,
	},
	domain.StateBreak: {
		domain.StateWork: 0.60, domain.StateBreak: 0.20, domain.StateReading: 0.10,
		domain.StateTyping: 0.05, domain.StateBrowsing: 0.05,
	},
	domain.StateReading: {
		domain.StateWork: 0.30, domain.StateBreak: 0.10, domain.StateReading: 0.40,
		domain.StateTyping: 0.10, domain.StateBrowsing: 0.10,
	},
	domain.StateTyping: {
		domain.StateWork: 0.40, domain.StateBreak: 0.10, domain.StateReading: 0.10,
		domain.StateTyping: 0.30, domain.StateBrowsing: 0.10,
	},
	domain.StateBrowsing: {
		domain.StateWork: 0.30, domain.StateBreak: 0.10, domain.StateReading: 0.20,
		domain.StateTyping: 0.10, domain.StateBrowsing: 0.30,
	},
}

// MarkovChain steps through behavioral states using TransitionMatrix.
type MarkovChain struct {
	current domain.BehavioralState
	rng     *rand.Rand
}

// NewMarkovChain starts the chain in the work state.
func NewMarkovChain(rng *rand.Rand) *MarkovChain {
	return &MarkovChain{current: domain.StateWork, rng: rng}
}

// State returns the chain's current position.
func (c *MarkovChain) State() domain.BehavioralState { return c.current }

// NextState draws the successor from the current row and moves to it.
func (c *MarkovChain) NextState() domain.BehavioralState {
	row := TransitionMatrix[c.current]
	r := c.rng.Float64()
	var cum float64
	for _, s := range domain.AllStates {
		cum += row[s]
		if r < cum {
			c.current = s
			return s
		}
	}
	// Rounding left r above the final prefix sum; take the last state with mass.
	for i := len(domain.AllStates) - 1; i >= 0; i-- {
		if s := domain.AllStates[i]; row[s] > 0 {
			c.current = s
			return s
		}
	}
	return c.current
}
