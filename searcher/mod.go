package searcher

import (
	"connect4/game"
	"sort"

	"github.com/rs/zerolog/log"
)

// NoMove is returned when a position has no legal column.
const NoMove = -1

// Scores reported by the one-ply shortcut scans, from Player1's perspective.
const (
	WinMoveScore   = 10000
	BlockMoveScore = 5000
)

type Classification string

const (
	Win    Classification = "win"
	Block  Classification = "block"
	Normal Classification = "normal"
)

type MoveEvaluation struct {
	Column         int            `json:"column"`
	Score          int            `json:"score"`
	Classification Classification `json:"moveType"`
}

// signed flips a Player1-perspective score for Player2.
func signed(p game.Player, score int) int {
	if p == game.Player2 {
		return -score
	}
	return score
}

// child returns a copy of gs with col played. Callers only pass columns
// from ValidMoves, so a failure means the state is corrupted.
func child(gs *game.GameState, col int) *game.GameState {
	next := gs.Copy()
	if _, err := next.Drop(col); err != nil {
		log.Panic().Err(err).Int("column", col).Msg("failed to play a valid move")
	}
	return next
}

// winningMove returns the first column in moves that wins immediately for
// the side to move.
func winningMove(gs *game.GameState, moves []int) (int, bool) {
	mover := gs.CurrentPlayer
	for _, col := range moves {
		row := gs.Board.LowestEmptyRow(col)
		if gs.Board.WinAt(col, row, mover) {
			return col, true
		}
	}
	return NoMove, false
}

// blockingMove returns the first column after which the opponent has no
// immediate win, provided the opponent threatens one right now.
func blockingMove(gs *game.GameState, moves []int) (int, bool) {
	opponent := gs.CurrentPlayer.Opponent()
	threatened := *gs
	threatened.CurrentPlayer = opponent
	if _, ok := winningMove(&threatened, moves); !ok {
		return NoMove, false
	}

	for _, col := range moves {
		next := child(gs, col)
		if _, ok := winningMove(next, next.ValidMoves()); !ok {
			return col, true
		}
	}
	return NoMove, false
}

// shortcut runs the win then block scans shared by every searcher.
func shortcut(gs *game.GameState, moves []int) (int, []MoveEvaluation, bool) {
	mover := gs.CurrentPlayer
	if col, ok := winningMove(gs, moves); ok {
		return col, []MoveEvaluation{{Column: col, Score: signed(mover, WinMoveScore), Classification: Win}}, true
	}
	if col, ok := blockingMove(gs, moves); ok {
		return col, []MoveEvaluation{{Column: col, Score: signed(mover, BlockMoveScore), Classification: Block}}, true
	}
	return NoMove, nil, false
}

// rank orders evaluations best-first for the mover, keeping ascending
// column order among equal scores.
func rank(evals []MoveEvaluation, mover game.Player) {
	sort.SliceStable(evals, func(i, j int) bool {
		if mover == game.Player2 {
			return evals[i].Score < evals[j].Score
		}
		return evals[i].Score > evals[j].Score
	})
}
