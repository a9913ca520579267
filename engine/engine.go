package engine

import (
	"connect4/experiments/metrics"
	"connect4/game"
)

// Engine plays one game between two agents.
type Engine interface {
	// Run plays until there's a winner or the board is full
	Run() (winner game.Player, gameMetric metrics.GameMetric, moveMetrics []metrics.MoveMetric)
	// State returns the current position, the final one once Run returns
	State() *game.GameState
}
