package agent

import (
	"connect4/experiments/metrics"
	"connect4/game"
	"connect4/searcher"
	"time"
)

type minimaxAgent struct {
	engine *searcher.Minimax
	depth  int
	config *game.EvaluationConfig
}

// NewMinimaxAgent searches depth plies with its own engine, keeping the
// cache warm between moves. A non-nil config replaces the weights of every
// state it is asked about, so two agents with different weights can share
// one game.
func NewMinimaxAgent(depth int, config *game.EvaluationConfig) Agent {
	return &minimaxAgent{
		engine: searcher.NewMinimax(),
		depth:  depth,
		config: config,
	}
}

func (a *minimaxAgent) FindMove(state *game.GameState) (int, metrics.SearchMetric) {
	if a.config != nil {
		state = state.Copy()
		state.Config = *a.config
	}
	start := time.Now()
	col, _ := a.engine.BestMove(state, a.depth)
	return col, a.engine.Metric(a.depth, time.Since(start))
}

type heuristicAgent struct {
	heuristic *searcher.Heuristic
	config    *game.EvaluationConfig
}

func NewHeuristicAgent(config *game.EvaluationConfig) Agent {
	return &heuristicAgent{heuristic: searcher.NewHeuristic(), config: config}
}

func (a *heuristicAgent) FindMove(state *game.GameState) (int, metrics.SearchMetric) {
	if a.config != nil {
		state = state.Copy()
		state.Config = *a.config
	}
	start := time.Now()
	col, _ := a.heuristic.BestMove(state)
	return col, a.heuristic.Metric(time.Since(start))
}
