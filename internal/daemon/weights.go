package daemon

import (
	"math/rand/v2"
	"sort"

	"github.com/misua/watah/internal/domain"
)

// StateBoost doubles the weight of the activity a state favors.
const StateBoost = 2.0

// favoredActivity maps a behavioral state to the activity it favors.
var favoredActivity = map[domain.BehavioralState]string{
	domain.StateTyping:   domain.ActivityKeyboardTyping,
	domain.StateBrowsing: domain.ActivityMouseScroll,
	domain.StateReading:  domain.ActivityKeyboardNavigation,
}

// WeightTable is a normalized activity distribution. Built once per scheduler.
type WeightTable struct {
	names []string
	probs []float64
}

// NewWeightTable drops non-positive weights and normalizes the rest to sum 1.
func NewWeightTable(raw map[string]float64) WeightTable {
	names := make([]string, 0, len(raw))
	var total float64
	for name, w := range raw {
		if w > 0 {
			names = append(names, name)
			total += w
		}
	}
	sort.Strings(names)

	probs := make([]float64, len(names))
	for i, name := range names {
		probs[i] = raw[name] / total
	}
	return WeightTable{names: names, probs: probs}
}

// Len returns the number of selectable activities.
func (t WeightTable) Len() int { return len(t.names) }

// Probabilities returns a copy of the normalized table.
func (t WeightTable) Probabilities() map[string]float64 {
	out := make(map[string]float64, len(t.names))
	for i, name := range t.names {
		out[name] = t.probs[i]
	}
	return out
}

// Select draws an activity. The activity favored by state gets StateBoost
// before renormalizing. Returns false when the table is empty.
func (t WeightTable) Select(rng *rand.Rand, state domain.BehavioralState) (string, bool) {
	if len(t.names) == 0 {
		return "", false
	}

	favored := favoredActivity[state]
	cum := make([]float64, len(t.probs))
	var total float64
	for i, p := range t.probs {
		if t.names[i] == favored {
			p *= StateBoost
		}
		total += p
		cum[i] = total
	}

	r := rng.Float64() * total
	idx := sort.SearchFloat64s(cum, r)
	// SearchFloat64s returns the first cum >= r; r == cum[i] belongs to i+1.
	for idx < len(cum) && cum[idx] == r {
		idx++
	}
	if idx >= len(t.names) {
		idx = len(t.names) - 1
	}
	return t.names[idx], true
}
