package game

import "math"

const (
	immediateWinThreat = 10000
	blockedWinDefense  = 5000
	threatReduction    = 100
)

// Features holds one player's raw feature totals before the float weights
// are applied. Position already includes the row height weight.
type Features struct {
	Position          int `json:"position"`
	CenterControl     int `json:"center_control"`
	PieceCount        int `json:"piece_count"`
	Threat            int `json:"threat"`
	Mobility          int `json:"mobility"`
	VerticalControl   int `json:"vertical_control"`
	HorizontalControl int `json:"horizontal_control"`
	Defensive         int `json:"defensive"`
}

// ComputeFeatures tallies every feature for p on gs.
func ComputeFeatures(gs *GameState, p Player) Features {
	b := &gs.Board
	return Features{
		Position:          positionScore(b, gs.Config, p),
		CenterControl:     centerControlScore(b, p),
		PieceCount:        b.Count(p.Cell()),
		Threat:            threatScore(b, p),
		Mobility:          mobilityScore(gs, p),
		VerticalControl:   verticalControlScore(b, p),
		HorizontalControl: horizontalControlScore(b, p),
		Defensive:         defensiveScore(b, p),
	}
}

// weighted scales each feature by its weight truncated toward zero, so a
// weight below 1 switches its feature off.
func (f Features) weighted(c EvaluationConfig) int {
	w := func(v int, weight float64) int {
		return v * int(weight)
	}
	return f.Position +
		w(f.CenterControl, c.CenterControlWeight) +
		w(f.PieceCount, c.PieceCountWeight) +
		w(f.Threat, c.ThreatWeight) +
		w(f.Mobility, c.MobilityWeight) +
		w(f.VerticalControl, c.VerticalControlWeight) +
		w(f.HorizontalControl, c.HorizontalControlWeight) +
		w(f.Defensive, c.DefensiveWeight)
}

// Evaluate scores gs from Player1's perspective: positive favours Player1
// whoever is to move. It is pure and never validates the config.
func Evaluate(gs *GameState) int {
	if winner, ok := gs.Board.Winner(); ok {
		if winner == Player1 {
			return gs.Config.WinScore
		}
		return gs.Config.LossScore
	}
	if gs.IsDraw() {
		return 0
	}

	p1 := ComputeFeatures(gs, Player1).weighted(gs.Config)
	p2 := ComputeFeatures(gs, Player2).weighted(gs.Config)
	return p1 - p2
}

// EvaluateNormalized returns a score between -1 and 1 indicating how
// favorable the position is for the player to move.
func EvaluateNormalized(s State) float64 {
	gs, ok := s.(*GameState)
	if !ok {
		panic("unexpected state type")
	}
	scale := math.Abs(float64(gs.Config.WinScore))
	if scale == 0 {
		return 0
	}
	v := float64(Evaluate(gs)) / scale
	v = math.Max(-1, math.Min(1, v))
	if gs.CurrentPlayer == Player2 {
		return -v
	}
	return v
}

func positionScore(b *Board, c EvaluationConfig, p Player) int {
	cell := p.Cell()
	score := 0
	for col := 0; col < Cols; col++ {
		value := float64(c.ColumnValue(col))
		for row := 0; row < Rows; row++ {
			if b[col][row] == cell {
				score += int(value * float64(Rows-row) * c.RowHeightWeight)
			}
		}
	}
	return score
}

func centerControlScore(b *Board, p Player) int {
	cell := p.Cell()
	score := 0
	for col := 2; col <= 4; col++ {
		for row := 0; row < Rows; row++ {
			if b[col][row] == cell {
				score += Rows - row
			}
		}
	}
	return score
}

func threatScore(b *Board, p Player) int {
	score := 0
	for _, col := range b.ValidMoves() {
		row := b.LowestEmptyRow(col)
		test := *b
		test[col][row] = p.Cell()
		if test.WinAt(col, row, p) {
			score += immediateWinThreat
		} else {
			score += test.threatsAt(col, row, p)
		}
	}
	return score
}

// threatsAt scores the runs of p through (col,row) on every axis. The
// forward scan includes the seed cell, the backward scan starts one step
// away from it. A run end resting on an occupied cell counts as blocked.
func (b *Board) threatsAt(col, row int, p Player) int {
	cell := p.Cell()
	total := 0
	for _, d := range directions {
		consecutive, blocked := 0, 0

		for c, r := col, row; inBounds(c, r); c, r = c+d[0], r+d[1] {
			if b[c][r] != cell {
				if b[c][r] != Empty {
					blocked++
				}
				break
			}
			consecutive++
		}
		for c, r := col-d[0], row-d[1]; inBounds(c, r); c, r = c-d[0], r-d[1] {
			if b[c][r] != cell {
				if b[c][r] != Empty {
					blocked++
				}
				break
			}
			consecutive++
		}

		switch consecutive {
		case 4:
			total += 1000
		case 3:
			total += pick(blocked == 0, 100, 10)
		case 2:
			total += pick(blocked == 0, 10, 1)
		case 1:
			total += pick(blocked == 0, 1, 0)
		}
	}
	return total
}

func pick(cond bool, a, b int) int {
	if cond {
		return a
	}
	return b
}

// mobilityScore plays each available column for the side to move and sums
// the resulting threat potential of p, scaled down by ten.
func mobilityScore(gs *GameState, p Player) int {
	if gs.Board.IsEmpty() {
		return 0
	}
	mobility := 0
	for _, col := range gs.Board.ValidMoves() {
		test := gs.Board
		if _, err := test.Drop(col, gs.CurrentPlayer.Cell()); err != nil {
			continue
		}
		mobility += threatScore(&test, p) / 10
	}
	return mobility
}

func verticalControlScore(b *Board, p Player) int {
	cell := p.Cell()
	score := 0
	for col := 0; col < Cols; col++ {
		consecutive := 0
		for row := 0; row < Rows; row++ {
			if b[col][row] == cell {
				consecutive++
			} else {
				consecutive = 0
			}
			score += consecutive
		}
	}
	return score
}

func horizontalControlScore(b *Board, p Player) int {
	cell := p.Cell()
	score := 0
	for row := 0; row < Rows; row++ {
		consecutive := 0
		for col := 0; col < Cols; col++ {
			if b[col][row] == cell {
				consecutive++
			} else {
				consecutive = 0
			}
			score += consecutive
		}
	}
	return score
}

// defensiveScore rewards landing cells where p would stop an opponent win
// or shrink the opponent's runs through that cell.
func defensiveScore(b *Board, p Player) int {
	opponent := p.Opponent()
	score := 0
	for _, col := range b.ValidMoves() {
		row := b.LowestEmptyRow(col)
		test := *b
		test[col][row] = p.Cell()
		if test.WinAt(col, row, opponent) {
			score += blockedWinDefense
			continue
		}
		before := b.threatsAt(col, row, opponent)
		after := test.threatsAt(col, row, opponent)
		if after < before {
			score += (before - after) * threatReduction
		}
	}
	return score
}
