package agent

import (
	"connect4/experiments/metrics"
	"connect4/game"
	"connect4/searcher"
	"time"

	"golang.org/x/exp/rand"
)

type randomAgent struct {
	rand *rand.Rand
}

// NewRandomAgent plays uniformly among legal columns. It is the baseline
// opponent for matches.
func NewRandomAgent(seed uint64) Agent {
	if seed == 0 {
		seed = uint64(time.Now().UnixNano())
	}
	return &randomAgent{rand: rand.New(rand.NewSource(seed))}
}

func (a *randomAgent) FindMove(state *game.GameState) (int, metrics.SearchMetric) {
	moves := state.ValidMoves()
	if len(moves) == 0 {
		return searcher.NoMove, metrics.SearchMetric{Algorithm: "random"}
	}
	return moves[a.rand.Intn(len(moves))], metrics.SearchMetric{Algorithm: "random"}
}
