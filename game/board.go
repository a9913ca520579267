package game

import (
	"errors"
	"fmt"
)

var (
	ErrInvalidColumn = errors.New("invalid column")
	ErrColumnFull    = errors.New("column is full")
	ErrFloatingPiece = errors.New("floating piece")
)

type Player uint8

const (
	NoPlayer Player = iota
	Player1
	Player2
)

func (p Player) Opponent() Player {
	switch p {
	case Player1:
		return Player2
	case Player2:
		return Player1
	default:
		return NoPlayer
	}
}

func (p Player) Cell() Cell {
	switch p {
	case Player1:
		return Player1Cell
	case Player2:
		return Player2Cell
	default:
		return Empty
	}
}

func (p Player) String() string {
	switch p {
	case Player1:
		return "Player1"
	case Player2:
		return "Player2"
	default:
		return "None"
	}
}

// ParsePlayer accepts the wire names produced by Player.String.
func ParsePlayer(s string) (Player, error) {
	switch s {
	case "Player1":
		return Player1, nil
	case "Player2":
		return Player2, nil
	default:
		return NoPlayer, fmt.Errorf("unknown player %q", s)
	}
}

type Cell uint8

const (
	Empty Cell = iota
	Player1Cell
	Player2Cell
)

// Owner returns the player holding the cell, if any.
func (c Cell) Owner() (Player, bool) {
	switch c {
	case Player1Cell:
		return Player1, true
	case Player2Cell:
		return Player2, true
	default:
		return NoPlayer, false
	}
}

func (c Cell) String() string {
	switch c {
	case Player1Cell:
		return "Player1"
	case Player2Cell:
		return "Player2"
	default:
		return "Empty"
	}
}

// ParseCell maps a wire token to a cell. The empty string is an empty cell.
func ParseCell(s string) (Cell, error) {
	switch s {
	case "", "Empty", "empty":
		return Empty, nil
	case "Player1":
		return Player1Cell, nil
	case "Player2":
		return Player2Cell, nil
	default:
		return Empty, fmt.Errorf("unknown cell token %q", s)
	}
}

// Board is indexed [column][row] with row 0 at the top. It is a plain array
// so assignment copies it.
type Board [Cols][Rows]Cell

var directions = [4][2]int{
	{1, 0},  // horizontal
	{0, 1},  // vertical
	{1, 1},  // diagonal down-right
	{1, -1}, // diagonal up-right
}

func inBounds(col, row int) bool {
	return col >= 0 && col < Cols && row >= 0 && row < Rows
}

func (b *Board) IsColumnPlayable(col int) bool {
	return col >= 0 && col < Cols && b[col][0] == Empty
}

// LowestEmptyRow returns Rows when the column is full.
func (b *Board) LowestEmptyRow(col int) int {
	for row := Rows - 1; row >= 0; row-- {
		if b[col][row] == Empty {
			return row
		}
	}
	return Rows
}

// Drop places cell c in the lowest empty row of col.
func (b *Board) Drop(col int, c Cell) (int, error) {
	if col < 0 || col >= Cols {
		return 0, fmt.Errorf("drop in column %d: %w", col, ErrInvalidColumn)
	}
	row := b.LowestEmptyRow(col)
	if row >= Rows {
		return 0, fmt.Errorf("drop in column %d: %w", col, ErrColumnFull)
	}
	b[col][row] = c
	return row, nil
}

func (b *Board) ValidMoves() []int {
	moves := make([]int, 0, Cols)
	for col := 0; col < Cols; col++ {
		if b.IsColumnPlayable(col) {
			moves = append(moves, col)
		}
	}
	return moves
}

func (b *Board) IsEmpty() bool {
	for col := 0; col < Cols; col++ {
		if b[col][Rows-1] != Empty {
			return false
		}
	}
	return true
}

func (b *Board) IsFull() bool {
	for col := 0; col < Cols; col++ {
		if b[col][0] == Empty {
			return false
		}
	}
	return true
}

// Count returns the number of cells equal to c.
func (b *Board) Count(c Cell) int {
	n := 0
	for col := 0; col < Cols; col++ {
		for row := 0; row < Rows; row++ {
			if b[col][row] == c {
				n++
			}
		}
	}
	return n
}

// Validate checks the gravity invariant: no empty cell below a piece.
func (b *Board) Validate() error {
	for col := 0; col < Cols; col++ {
		seen := false
		for row := 0; row < Rows; row++ {
			if b[col][row] != Empty {
				seen = true
			} else if seen {
				return fmt.Errorf("column %d row %d: %w", col, row, ErrFloatingPiece)
			}
		}
	}
	return nil
}

// neighbours counts contiguous cells equal to c on both sides of (col,row)
// along (dcol,drow). The seed itself is not inspected.
func (b *Board) neighbours(col, row, dcol, drow int, c Cell) int {
	count := 0
	for cc, rr := col+dcol, row+drow; inBounds(cc, rr) && b[cc][rr] == c; cc, rr = cc+dcol, rr+drow {
		count++
	}
	for cc, rr := col-dcol, row-drow; inBounds(cc, rr) && b[cc][rr] == c; cc, rr = cc-dcol, rr-drow {
		count++
	}
	return count
}

// WinAt reports whether a p piece at (col,row) would complete four in a
// row. The seed is counted as p's regardless of its current content.
func (b *Board) WinAt(col, row int, p Player) bool {
	c := p.Cell()
	for _, d := range directions {
		if 1+b.neighbours(col, row, d[0], d[1], c) >= 4 {
			return true
		}
	}
	return false
}

// Winner scans every occupied cell for a completed line.
func (b *Board) Winner() (Player, bool) {
	for col := 0; col < Cols; col++ {
		for row := 0; row < Rows; row++ {
			if p, ok := b[col][row].Owner(); ok && b.WinAt(col, row, p) {
				return p, true
			}
		}
	}
	return NoPlayer, false
}

func (b *Board) String() string {
	buf := make([]byte, 0, (Cols+1)*Rows)
	for row := 0; row < Rows; row++ {
		for col := 0; col < Cols; col++ {
			switch b[col][row] {
			case Player1Cell:
				buf = append(buf, 'X')
			case Player2Cell:
				buf = append(buf, 'O')
			default:
				buf = append(buf, '.')
			}
		}
		buf = append(buf, '\n')
	}
	return string(buf)
}
