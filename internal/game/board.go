package game

import (
	"errors"
	"fmt"
)

// Owner identifies the participant a piece belongs to. The zero value marks
// an empty cell.
type Owner int

const (
	NoOwner Owner = 0
	Owner1  Owner = 1
	Owner2  Owner = 2
)

// NoRow is returned by DropRowFor when a column cannot take another piece.
const NoRow = -1

var (
	ErrInvalidGeometry = errors.New("rows and columns must be positive")
	ErrFloatingPiece   = errors.New("piece above an empty cell")
)

// Board is a rows x columns grid stored row-major. Row 0 is the top row,
// pieces fall towards row rows-1.
type Board struct {
	rows    int
	columns int
	cells   []Owner
}

func NewBoard(rows, columns int) (*Board, error) {
	if rows <= 0 || columns <= 0 {
		return nil, fmt.Errorf("%w: %dx%d", ErrInvalidGeometry, rows, columns)
	}
	return &Board{
		rows:    rows,
		columns: columns,
		cells:   make([]Owner, rows*columns),
	}, nil
}

// BoardFromRows builds a board from a grid listed top row first. Every row
// must have the same width and no piece may sit above an empty cell.
func BoardFromRows(grid [][]Owner) (*Board, error) {
	if len(grid) == 0 || len(grid[0]) == 0 {
		return nil, ErrInvalidGeometry
	}
	b, err := NewBoard(len(grid), len(grid[0]))
	if err != nil {
		return nil, err
	}
	for r, row := range grid {
		if len(row) != b.columns {
			return nil, fmt.Errorf("%w: row %d has %d cells, want %d", ErrInvalidGeometry, r, len(row), b.columns)
		}
		copy(b.cells[r*b.columns:(r+1)*b.columns], row)
	}
	for c := 0; c < b.columns; c++ {
		for r := 0; r < b.rows-1; r++ {
			if b.At(r, c) != NoOwner && b.At(r+1, c) == NoOwner {
				return nil, fmt.Errorf("%w: row %d column %d", ErrFloatingPiece, r, c)
			}
		}
	}
	return b, nil
}

func (b *Board) Rows() int    { return b.rows }
func (b *Board) Columns() int { return b.columns }

func (b *Board) inBounds(row, col int) bool {
	return row >= 0 && row < b.rows && col >= 0 && col < b.columns
}

// At returns the owner of a cell, NoOwner for empty or out of range cells.
func (b *Board) At(row, col int) Owner {
	if !b.inBounds(row, col) {
		return NoOwner
	}
	return b.cells[row*b.columns+col]
}

// DropRowFor returns the row a piece dropped into col would land in, or NoRow
// if the column is out of range or full.
func (b *Board) DropRowFor(col int) int {
	if col < 0 || col >= b.columns {
		return NoRow
	}
	for row := b.rows - 1; row >= 0; row-- {
		if b.cells[row*b.columns+col] == NoOwner {
			return row
		}
	}
	return NoRow
}

// CanDrop reports whether col can take another piece.
func (b *Board) CanDrop(col int) bool {
	return b.DropRowFor(col) != NoRow
}

// Insert drops a piece for owner into col and returns the row it landed in.
// A full or out of range column leaves the board untouched and returns NoRow.
func (b *Board) Insert(owner Owner, col int) int {
	row := b.DropRowFor(col)
	if row == NoRow {
		return NoRow
	}
	b.cells[row*b.columns+col] = owner
	return row
}

func (b *Board) IsFull() bool {
	for _, cell := range b.cells {
		if cell == NoOwner {
			return false
		}
	}
	return true
}

// Count returns the number of occupied cells.
func (b *Board) Count() int {
	n := 0
	for _, cell := range b.cells {
		if cell != NoOwner {
			n++
		}
	}
	return n
}

// Copy returns an independent board; writes to either never reach the other.
func (b *Board) Copy() *Board {
	dest := &Board{
		rows:    b.rows,
		columns: b.columns,
		cells:   make([]Owner, len(b.cells)),
	}
	copy(dest.cells, b.cells)
	return dest
}

// Grid returns a copy of the cells, top row first.
func (b *Board) Grid() [][]Owner {
	grid := make([][]Owner, b.rows)
	for r := range grid {
		grid[r] = make([]Owner, b.columns)
		copy(grid[r], b.cells[r*b.columns:(r+1)*b.columns])
	}
	return grid
}

// OpenColumns lists the columns that can still take a piece, left to right.
func (b *Board) OpenColumns() []int {
	cols := make([]int, 0, b.columns)
	for c := 0; c < b.columns; c++ {
		if b.CanDrop(c) {
			cols = append(cols, c)
		}
	}
	return cols
}
