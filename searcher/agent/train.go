package agent

import (
	"connect4/experiments/metrics"
	"connect4/game"
	"connect4/searcher"
	"math"
	"time"

	"golang.org/x/exp/rand"
)

// TrainingAgent samples moves from the MCTS visit distribution for
// self-play and remembers the distribution of its last search.
type TrainingAgent struct {
	mcts        *searcher.MCTS
	temperature float64
	rand        *rand.Rand
	lastPolicy  [game.Cols]float64
}

// NewTrainingAgent returns a new agent for self-play during training. A
// zero seed draws one from the clock.
func NewTrainingAgent(mcts *searcher.MCTS, temperature float64, seed uint64) *TrainingAgent {
	if temperature <= 0 {
		temperature = 1.0
	}
	if seed == 0 {
		seed = uint64(time.Now().UnixNano())
	}
	return &TrainingAgent{
		mcts:        mcts,
		temperature: temperature,
		rand:        rand.New(rand.NewSource(seed)),
	}
}

func (a *TrainingAgent) FindMove(state *game.GameState) (int, metrics.SearchMetric) {
	policy, metric := a.mcts.Simulate(state)
	policy = adjustTemperature(policy, a.temperature)

	a.lastPolicy = [game.Cols]float64{}
	for col, prob := range policy {
		a.lastPolicy[col] = prob
	}
	return sample(a.lastPolicy, a.rand.Float64()), metric
}

// LastPolicy returns the normalised move distribution of the last search.
func (a *TrainingAgent) LastPolicy() [game.Cols]float64 {
	return a.lastPolicy
}

func adjustTemperature(policy map[int]float64, temperature float64) map[int]float64 {
	// Compute temperature-adjusted move probabilities
	exponent := 1.0 / temperature
	sum := 0.0
	adjusted := make(map[int]float64, len(policy))
	for move, visit := range policy {
		prob := math.Pow(visit, exponent)
		sum += prob
		adjusted[move] = prob
	}
	if sum == 0 {
		return adjusted
	}
	// Normalize
	for move := range adjusted {
		adjusted[move] /= sum
	}
	return adjusted
}

// sample walks the distribution in column order so a given draw always
// maps to the same column.
func sample(policy [game.Cols]float64, sampled float64) int {
	cumulative := 0.0
	last := searcher.NoMove
	for col, prob := range policy {
		if prob <= 0 {
			continue
		}
		last = col
		cumulative += prob
		if sampled < cumulative {
			return col
		}
	}
	return last // Fallback in case of rounding errors
}
