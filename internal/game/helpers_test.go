package game

import (
	"context"
	"testing"
)

// parseBoard builds a board from rows drawn top row first: '.' is empty,
// 'X' is Owner1, 'O' is Owner2.
func parseBoard(t *testing.T, rows ...string) *Board {
	t.Helper()
	grid := make([][]Owner, len(rows))
	for r, line := range rows {
		grid[r] = make([]Owner, len(line))
		for c, ch := range line {
			switch ch {
			case 'X':
				grid[r][c] = Owner1
			case 'O':
				grid[r][c] = Owner2
			case '.':
			default:
				t.Fatalf("bad cell %q at row %d column %d", ch, r, c)
			}
		}
	}
	b, err := BoardFromRows(grid)
	if err != nil {
		t.Fatalf("parse board: %v", err)
	}
	return b
}

func emptyBoard(t *testing.T, rows, columns int) *Board {
	t.Helper()
	b, err := NewBoard(rows, columns)
	if err != nil {
		t.Fatalf("new board: %v", err)
	}
	return b
}

// scriptedPlayer plays a fixed list of columns and then reports it is no
// longer playing.
type scriptedPlayer struct {
	seat
	columns  []int
	notified []int
}

func newScripted(id Owner, columns ...int) *scriptedPlayer {
	return &scriptedPlayer{seat: seat{id: id, name: "scripted"}, columns: columns}
}

func (p *scriptedPlayer) NextMove(ctx context.Context, _ *Board) (int, error) {
	if err := ctx.Err(); err != nil {
		return NoRow, err
	}
	if len(p.columns) == 0 {
		return NoRow, ErrNotPlaying
	}
	col := p.columns[0]
	p.columns = p.columns[1:]
	return col, nil
}

func (p *scriptedPlayer) NotifyOpponentMove(column int) error {
	p.notified = append(p.notified, column)
	return nil
}

// recorder counts observer callbacks.
type recorder struct {
	changes  []Move
	finished []Outcome
	last     *Board
}

func (r *recorder) BoardChanged(snapshot *Board, move Move) {
	r.changes = append(r.changes, move)
	r.last = snapshot
}

func (r *recorder) Finished(outcome Outcome) {
	r.finished = append(r.finished, outcome)
}
