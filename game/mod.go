package game

const (
	Cols      = 7
	Rows      = 6
	BoardSize = Cols * Rows
)

type StateHash uint64

// State is the contract search algorithms other than minimax rely on. Any
// implementation must treat Play as pure: the receiver is never modified.
type State interface {
	Player() Player
	ValidMoves() []int
	Play(col int) State
	Hash() StateHash
	Winner() (Player, bool)
}

// EvaluateFn scores a non-terminal state between -1 and 1 indicating how
// favorable it is for the player to move.
type EvaluateFn func(State) float64
