package game

// WinLength is the number of aligned pieces that wins a game.
const WinLength = 4

type Orientation int

const (
	Horizontal Orientation = iota
	Vertical
	Rising
	Falling
)

var orientations = [...]Orientation{Horizontal, Vertical, Rising, Falling}

func (o Orientation) String() string {
	switch o {
	case Horizontal:
		return "horizontal"
	case Vertical:
		return "vertical"
	case Rising:
		return "rising"
	case Falling:
		return "falling"
	}
	return "unknown"
}

// step is the unit vector a run grows along. Every orientation except
// Vertical moves one column to the right per step.
func (o Orientation) step() (dRow, dCol int) {
	switch o {
	case Horizontal:
		return 0, 1
	case Vertical:
		return -1, 0
	case Rising:
		return -1, 1
	default:
		return 1, 1
	}
}

// Cell is a board coordinate.
type Cell struct {
	Row    int `json:"row"`
	Column int `json:"column"`
}

// LineRun is a maximal run of same-owner cells along one orientation. Cells
// are ordered along the orientation's step, so for non-vertical runs the
// first cell is the leftmost one.
type LineRun struct {
	Orientation Orientation `json:"orientation"`
	Cells       []Cell      `json:"cells"`
}

func (r LineRun) Len() int { return len(r.Cells) }

// Contains reports whether the run covers (row, col).
func (r LineRun) Contains(row, col int) bool {
	for _, c := range r.Cells {
		if c.Row == row && c.Column == col {
			return true
		}
	}
	return false
}

func (r LineRun) First() Cell { return r.Cells[0] }
func (r LineRun) Last() Cell  { return r.Cells[len(r.Cells)-1] }

// FindRuns returns every run of two or more cells owned by owner. Within one
// orientation the runs are disjoint; across orientations they may overlap.
func FindRuns(b *Board, owner Owner) []LineRun {
	if owner == NoOwner {
		return nil
	}
	var runs []LineRun
	consumed := make([]bool, len(b.cells))
	for _, o := range orientations {
		clear(consumed)
		runs = scanOrientation(b, owner, o, consumed, runs)
	}
	return runs
}

// scanOrientation sweeps the board bottom row first, left to right, growing a
// run from every unconsumed owner cell.
func scanOrientation(b *Board, owner Owner, o Orientation, consumed []bool, runs []LineRun) []LineRun {
	dRow, dCol := o.step()
	for row := b.rows - 1; row >= 0; row-- {
		for col := 0; col < b.columns; col++ {
			idx := row*b.columns + col
			if consumed[idx] || b.cells[idx] != owner {
				continue
			}

			// walk back to the start of the line, then collect forwards
			startRow, startCol := row, col
			for b.At(startRow-dRow, startCol-dCol) == owner {
				startRow -= dRow
				startCol -= dCol
			}
			var cells []Cell
			for r, c := startRow, startCol; b.At(r, c) == owner; r, c = r+dRow, c+dCol {
				cells = append(cells, Cell{Row: r, Column: c})
				consumed[r*b.columns+c] = true
			}

			if len(cells) >= 2 {
				runs = append(runs, LineRun{Orientation: o, Cells: cells})
			}
		}
	}
	return runs
}

// WinningRun returns the first run of at least WinLength cells for owner.
func WinningRun(b *Board, owner Owner) (LineRun, bool) {
	for _, run := range FindRuns(b, owner) {
		if run.Len() >= WinLength {
			return run, true
		}
	}
	return LineRun{}, false
}

// HasWin reports whether owner has WinLength or more pieces in a line.
func HasWin(b *Board, owner Owner) bool {
	_, ok := WinningRun(b, owner)
	return ok
}
