package agent

import (
	"connect4/experiments/metrics"
	"connect4/game"
	"connect4/searcher"
)

type evaluationAgent struct {
	mcts *searcher.MCTS
}

// NewEvaluationAgent returns an MCTS agent for actual game play: it always
// plays the most visited move.
func NewEvaluationAgent(mcts *searcher.MCTS) Agent {
	return evaluationAgent{mcts: mcts}
}

func (a evaluationAgent) FindMove(state *game.GameState) (int, metrics.SearchMetric) {
	policy, metric := a.mcts.Simulate(state)
	return searcher.BestMove(policy), metric
}
