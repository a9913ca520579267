package game

import (
	"fmt"
	"hash/fnv"

	"github.com/rs/zerolog/log"
)

// GameState is a position plus the side to move and the weights used to
// evaluate it. It holds no references, so assignment is a deep copy.
type GameState struct {
	Board         Board            // Cells indexed [column][row], row 0 on top
	CurrentPlayer Player           // The player to move
	Config        EvaluationConfig // Weights used by Evaluate
}

// NewGameState returns an empty board with first to move.
func NewGameState(first Player, cfg EvaluationConfig) *GameState {
	if first != Player1 && first != Player2 {
		first = Player1
	}
	return &GameState{CurrentPlayer: first, Config: cfg}
}

// FromMoves replays a sequence of columns from an empty board.
func FromMoves(first Player, cfg EvaluationConfig, moves []int) (*GameState, error) {
	gs := NewGameState(first, cfg)
	for i, col := range moves {
		if _, err := gs.Drop(col); err != nil {
			return nil, fmt.Errorf("move %d: %w", i, err)
		}
	}
	return gs, nil
}

func (gs GameState) Copy() *GameState {
	return &gs
}

// Drop places the current player's piece in col and passes the turn. The
// state is left untouched on error.
func (gs *GameState) Drop(col int) (int, error) {
	row, err := gs.Board.Drop(col, gs.CurrentPlayer.Cell())
	if err != nil {
		return 0, err
	}
	gs.CurrentPlayer = gs.CurrentPlayer.Opponent()
	return row, nil
}

func (gs *GameState) IsColumnPlayable(col int) bool {
	return gs.Board.IsColumnPlayable(col)
}

func (gs GameState) ValidMoves() []int {
	return gs.Board.ValidMoves()
}

func (gs GameState) Winner() (Player, bool) {
	return gs.Board.Winner()
}

func (gs GameState) HasWinner() bool {
	_, ok := gs.Board.Winner()
	return ok
}

// IsDraw reports a full board. A full board with a winner is still reported
// as a draw here; callers check the winner first.
func (gs GameState) IsDraw() bool {
	return gs.Board.IsFull()
}

func (gs GameState) IsTerminal() bool {
	return gs.HasWinner() || gs.IsDraw()
}

func (gs GameState) Player() Player {
	return gs.CurrentPlayer
}

// Hash is FNV-1a over the cells column by column followed by the side to
// move, one byte each.
func (gs GameState) Hash() StateHash {
	var buf [BoardSize + 1]byte
	for col := 0; col < Cols; col++ {
		for row := 0; row < Rows; row++ {
			buf[col*Rows+row] = byte(gs.Board[col][row])
		}
	}
	buf[BoardSize] = byte(gs.CurrentPlayer)

	hasher := fnv.New64a()
	hasher.Write(buf[:]) // never fails
	return StateHash(hasher.Sum64())
}

// Play implements State. Callers only pass moves from ValidMoves, so a
// failure here means the state is corrupted.
func (gs GameState) Play(col int) State {
	next := gs.Copy()
	if _, err := next.Drop(col); err != nil {
		log.Panic().Err(err).Int("column", col).Msg("illegal move played")
	}
	return next
}

func (gs GameState) String() string {
	return fmt.Sprintf("%s to move:\n%s", gs.CurrentPlayer, gs.Board.String())
}
