package server

import (
	"connect4/game"
	"connect4/searcher"
	"errors"
	"fmt"
)

var errBadRequest = errors.New("bad request")

// BoardDTO is the board as clients send it: Cols columns of Rows cell
// tokens, row 0 at the top.
type BoardDTO [][]string

type MoveRequest struct {
	Board         BoardDTO               `json:"board"`
	CurrentPlayer string                 `json:"current_player"`
	Depth         int                    `json:"depth,omitempty"`
	Episodes      int                    `json:"episodes,omitempty"`
	Params        *game.EvaluationConfig `json:"params,omitempty"`
}

type PlayRequest struct {
	Board         BoardDTO               `json:"board"`
	CurrentPlayer string                 `json:"current_player"`
	Column        int                    `json:"column"`
	Params        *game.EvaluationConfig `json:"params,omitempty"`
}

type StateDTO struct {
	Board         BoardDTO `json:"board"`
	CurrentPlayer string   `json:"current_player"`
}

type MoveEvaluationDTO struct {
	Column   int    `json:"column"`
	Score    int    `json:"score"`
	MoveType string `json:"move_type"`
}

type Timings struct {
	AIMoveCalculation int64 `json:"ai_move_calculation"`
	TotalHandlerTime  int64 `json:"total_handler_time"`
}

type Diagnostics struct {
	SearchDepth       int                 `json:"search_depth"`
	ValidMoves        []int               `json:"valid_moves"`
	MoveEvaluations   []MoveEvaluationDTO `json:"move_evaluations"`
	TranspositionHits int                 `json:"transposition_hits"`
	NodesEvaluated    int                 `json:"nodes_evaluated"`
	Episodes          int                 `json:"episodes,omitempty"`
	Policy            map[int]float64     `json:"policy,omitempty"`
}

type MoveResponse struct {
	Move        *int        `json:"move"`
	Evaluation  int         `json:"evaluation"`
	Thinking    string      `json:"thinking"`
	Timings     Timings     `json:"timings"`
	Diagnostics Diagnostics `json:"diagnostics"`
}

type EvaluateResponse struct {
	Evaluation int           `json:"evaluation"`
	Normalized float64       `json:"normalized"`
	Player1    game.Features `json:"player1"`
	Player2    game.Features `json:"player2"`
}

type PlayResponse struct {
	Success  bool      `json:"success"`
	NewState *StateDTO `json:"new_state,omitempty"`
	Error    string    `json:"error,omitempty"`
}

type StatusResponse struct {
	ValidMoves []int  `json:"valid_moves"`
	Winner     string `json:"winner,omitempty"`
	Draw       bool   `json:"draw"`
	Terminal   bool   `json:"terminal"`
}

type HealthResponse struct {
	Status    string `json:"status"`
	Timestamp string `json:"timestamp"`
	Version   string `json:"version"`
}

type errorResponse struct {
	Error string `json:"error"`
}

// decodeState validates a client board and builds the state it describes.
// Unknown tokens, wrong dimensions, floating pieces and invalid weights are
// all rejected.
func decodeState(board BoardDTO, player string, params *game.EvaluationConfig) (*game.GameState, error) {
	if len(board) != game.Cols {
		return nil, fmt.Errorf("%w: board has %d columns, want %d", errBadRequest, len(board), game.Cols)
	}
	current, err := game.ParsePlayer(player)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", errBadRequest, err)
	}

	cfg := game.DefaultConfig()
	if params != nil {
		if err := params.Validate(); err != nil {
			return nil, fmt.Errorf("%w: %w", errBadRequest, err)
		}
		cfg = *params
	}

	state := game.NewGameState(current, cfg)
	for col, column := range board {
		if len(column) != game.Rows {
			return nil, fmt.Errorf("%w: column %d has %d rows, want %d", errBadRequest, col, len(column), game.Rows)
		}
		for row, token := range column {
			cell, err := game.ParseCell(token)
			if err != nil {
				return nil, fmt.Errorf("%w: cell (%d, %d): %w", errBadRequest, col, row, err)
			}
			state.Board[col][row] = cell
		}
	}
	if err := state.Board.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %w", errBadRequest, err)
	}
	return state, nil
}

func encodeBoard(b game.Board) BoardDTO {
	out := make(BoardDTO, game.Cols)
	for col := range b {
		out[col] = make([]string, game.Rows)
		for row, cell := range b[col] {
			out[col][row] = cellToken(cell)
		}
	}
	return out
}

func cellToken(c game.Cell) string {
	if c == game.Empty {
		return ""
	}
	return c.String()
}

func encodeState(gs *game.GameState) *StateDTO {
	return &StateDTO{Board: encodeBoard(gs.Board), CurrentPlayer: gs.CurrentPlayer.String()}
}

func encodeEvaluations(evals []searcher.MoveEvaluation) []MoveEvaluationDTO {
	out := make([]MoveEvaluationDTO, 0, len(evals))
	for _, e := range evals {
		out = append(out, MoveEvaluationDTO{Column: e.Column, Score: e.Score, MoveType: string(e.Classification)})
	}
	return out
}

// thinking summarises a search the way the response's thinking field shows it.
func thinking(label string, move int, evals []searcher.MoveEvaluation, nodes, hits int) string {
	best := 0
	if len(evals) > 0 {
		best = evals[0].Score
	}
	shown := "none"
	if move != searcher.NoMove {
		shown = fmt.Sprint(move)
	}
	return fmt.Sprintf("AI (%s) chose move %s with score %.1f. Evaluated %d nodes, %d cache hits.",
		label, shown, float64(best), nodes, hits)
}

func movePtr(col int) *int {
	if col == searcher.NoMove {
		return nil
	}
	return &col
}
