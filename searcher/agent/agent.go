package agent

import (
	"connect4/experiments/metrics"
	"connect4/game"
)

type Agent interface {
	// FindMove returns a column and performance metrics (if collected) from the search process
	FindMove(state *game.GameState) (int, metrics.SearchMetric)
}
