package searcher

import "connect4/game"

// Heuristic is a one-ply searcher: shortcut scans, then a static evaluation
// of every child position.
type Heuristic struct {
	nodesEvaluated int
}

func NewHeuristic() *Heuristic {
	return &Heuristic{}
}

func (h *Heuristic) NodesEvaluated() int {
	return h.nodesEvaluated
}

func (h *Heuristic) BestMove(state *game.GameState) (int, []MoveEvaluation) {
	h.nodesEvaluated = 0

	moves := state.ValidMoves()
	switch len(moves) {
	case 0:
		return NoMove, nil
	case 1:
		return moves[0], []MoveEvaluation{}
	}

	if col, evals, ok := shortcut(state, moves); ok {
		return col, evals
	}

	evals := make([]MoveEvaluation, 0, len(moves))
	for _, col := range moves {
		h.nodesEvaluated++
		score := game.Evaluate(child(state, col))
		evals = append(evals, MoveEvaluation{Column: col, Score: score, Classification: Normal})
	}
	rank(evals, state.CurrentPlayer)
	return evals[0].Column, evals
}
