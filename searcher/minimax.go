package searcher

import (
	"connect4/game"
	"math"
)

const (
	negInf = math.MinInt32
	posInf = math.MaxInt32
)

type MinimaxOption func(m *Minimax)

// WithCache injects the transposition cache, letting a caller keep it warm
// across searches or share it with nothing else.
func WithCache(cache *TranspositionCache) MinimaxOption {
	return func(m *Minimax) {
		if cache != nil {
			m.cache = cache
		}
	}
}

// Stats reports the counters of the most recent BestMove call.
type Stats struct {
	NodesEvaluated int
	CacheHits      int
}

// Minimax is a depth-bounded alpha-beta searcher. Player1 maximises and
// Player2 minimises the Player1-perspective evaluation. An instance is not
// safe for concurrent use; independent instances share nothing.
type Minimax struct {
	cache *TranspositionCache
	stats Stats
}

func NewMinimax(options ...MinimaxOption) *Minimax {
	m := &Minimax{}
	for _, option := range options {
		option(m)
	}
	if m.cache == nil {
		m.cache = NewTranspositionCache()
	}
	return m
}

func (m *Minimax) Stats() Stats {
	return m.stats
}

func (m *Minimax) Cache() *TranspositionCache {
	return m.cache
}

// BestMove picks a column for the side to move and returns the evaluation
// of every candidate, best first. Winning and blocking moves short-circuit
// the search with a single entry; a lone legal move returns an empty list.
func (m *Minimax) BestMove(state *game.GameState, maxDepth int) (int, []MoveEvaluation) {
	m.stats = Stats{}

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

	if maxDepth < 1 {
		maxDepth = 1
	}

	evals := make([]MoveEvaluation, 0, len(moves))
	for _, col := range moves {
		score := m.minimax(child(state, col), maxDepth-1, negInf, posInf)
		evals = append(evals, MoveEvaluation{Column: col, Score: score, Classification: Normal})
	}
	rank(evals, state.CurrentPlayer)
	return evals[0].Column, evals
}

func (m *Minimax) minimax(state *game.GameState, depth, alpha, beta int) int {
	hash := state.Hash()
	if score, ok := m.cache.Lookup(hash, depth); ok {
		m.stats.CacheHits++
		return score
	}

	if depth == 0 || state.IsTerminal() {
		score := game.Evaluate(state)
		m.cache.Store(hash, score, depth)
		return score
	}

	m.stats.NodesEvaluated++

	moves := state.ValidMoves()
	if len(moves) == 0 {
		return 0
	}

	maximizing := state.CurrentPlayer == game.Player1
	best := posInf
	if maximizing {
		best = negInf
	}

	for _, col := range moves {
		score := m.minimax(child(state, col), depth-1, alpha, beta)
		if maximizing {
			best = max(best, score)
			alpha = max(alpha, score)
		} else {
			best = min(best, score)
			beta = min(beta, score)
		}
		if beta <= alpha {
			break
		}
	}

	m.cache.Store(hash, best, depth)
	return best
}
