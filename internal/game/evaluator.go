package game

import "errors"

var ErrNoMove = errors.New("no legal column")

// Rule names the heuristic that picked a column.
type Rule int

const (
	RuleWin Rule = iota + 1
	RuleBlock
	RuleBlockTricky
	RuleResign
	RuleTricky
	RuleExtendRun
	RuleCenter
)

func (r Rule) String() string {
	switch r {
	case RuleWin:
		return "win"
	case RuleBlock:
		return "block"
	case RuleBlockTricky:
		return "block_tricky"
	case RuleResign:
		return "resign"
	case RuleTricky:
		return "tricky"
	case RuleExtendRun:
		return "extend_run"
	case RuleCenter:
		return "center"
	}
	return "none"
}

type Decision struct {
	Column int  `json:"column"`
	Rule   Rule `json:"-"`
}

// Evaluator picks columns for Self against Opponent. It wins when it can,
// blocks when it must, defends against and builds open-ended threes, and
// otherwise prefers the center. The board it is given is never modified.
type Evaluator struct {
	Self     Owner
	Opponent Owner
}

func NewEvaluator(self, opponent Owner) *Evaluator {
	return &Evaluator{Self: self, Opponent: opponent}
}

func (e *Evaluator) ChooseMove(b *Board) (int, error) {
	d, err := e.Decide(b)
	if err != nil {
		return NoRow, err
	}
	return d.Column, nil
}

func (e *Evaluator) Decide(board *Board) (Decision, error) {
	b := board.Copy()

	// 1. Take a winning move if available.
	if col := winningColumn(b, e.Self, 0); col >= 0 {
		return Decision{Column: col, Rule: RuleWin}, nil
	}
	// 2. Block the opponent's winning move.
	if col := winningColumn(b, e.Opponent, 0); col >= 0 {
		return Decision{Column: col, Rule: RuleBlock}, nil
	}
	// 3. Occupy the square the opponent needs for an open three.
	if col := trickyColumn(b, e.Opponent, 0); col >= 0 {
		return Decision{Column: col, Rule: RuleBlockTricky}, nil
	}

	excluded := e.excludedColumns(b)
	safe := make([]int, 0, b.columns)
	for col := 0; col < b.columns; col++ {
		if !excluded[col] {
			safe = append(safe, col)
		}
	}

	// 4. Every column loses; any legal move will do.
	if len(safe) == 0 {
		if open := b.OpenColumns(); len(open) > 0 {
			return Decision{Column: open[0], Rule: RuleResign}, nil
		}
		return Decision{Column: NoRow}, ErrNoMove
	}

	// 5. Build an open three of our own, but only on a safe column.
	for col := trickyColumn(b, e.Self, 0); col >= 0; col = trickyColumn(b, e.Self, col+1) {
		if !excluded[col] {
			return Decision{Column: col, Rule: RuleTricky}, nil
		}
	}

	center := b.columns / 2

	// 6. Extend a run of two or more, as close to the center as possible.
	found, distance := NoRow, b.columns
	for _, col := range safe {
		row := b.DropRowFor(col)
		trial := b.Copy()
		trial.Insert(e.Self, col)
		for _, run := range FindRuns(trial, e.Self) {
			if run.Len() >= 2 && run.Contains(row, col) && abs(center-col) < distance {
				found, distance = col, abs(center-col)
			}
		}
	}
	if found >= 0 {
		return Decision{Column: found, Rule: RuleExtendRun}, nil
	}

	// 7. Closest to the center.
	distance = b.columns
	for _, col := range safe {
		if abs(center-col) < distance {
			found, distance = col, abs(center-col)
		}
	}
	if found >= 0 {
		return Decision{Column: found, Rule: RuleCenter}, nil
	}
	return Decision{Column: NoRow}, ErrNoMove
}

// excludedColumns marks full columns and columns that would let the opponent
// win or build an open three with the reply.
func (e *Evaluator) excludedColumns(b *Board) []bool {
	excluded := make([]bool, b.columns)
	for col := 0; col < b.columns; col++ {
		if !b.CanDrop(col) {
			excluded[col] = true
			continue
		}
		trial := b.Copy()
		trial.Insert(e.Self, col)
		if winningColumn(trial, e.Opponent, 0) >= 0 || trickyColumn(trial, e.Opponent, 0) >= 0 {
			excluded[col] = true
		}
	}
	return excluded
}

// winningColumn returns the first column from start on where a piece for
// owner completes a line of WinLength, or NoRow.
func winningColumn(b *Board, owner Owner, start int) int {
	for col := max(start, 0); col < b.columns; col++ {
		if !b.CanDrop(col) {
			continue
		}
		trial := b.Copy()
		trial.Insert(owner, col)
		if HasWin(trial, owner) {
			return col
		}
	}
	return NoRow
}

// trickyColumn returns the first column from start on where a piece for owner
// creates an open three: a non-vertical run of WinLength-1 through the new
// piece that can be completed at both ends right now, e.g. | |#|#|#| |.
// Only this exact shape is detected.
func trickyColumn(b *Board, owner Owner, start int) int {
	for col := max(start, 0); col < b.columns; col++ {
		row := b.DropRowFor(col)
		if row == NoRow {
			continue
		}
		trial := b.Copy()
		trial.Insert(owner, col)
		for _, run := range FindRuns(trial, owner) {
			if isOpenThree(trial, owner, run, row, col) {
				return col
			}
		}
	}
	return NoRow
}

func isOpenThree(b *Board, owner Owner, run LineRun, row, col int) bool {
	if run.Len() != WinLength-1 || run.Orientation == Vertical || !run.Contains(row, col) {
		return false
	}
	left, right := run.First().Column-1, run.Last().Column+1
	if left < 0 || right >= b.columns {
		return false
	}

	// drop on both ends; only a line of WinLength+1 means both ends were playable
	trial := b.Copy()
	trial.Insert(owner, left)
	trial.Insert(owner, right)
	for _, grown := range FindRuns(trial, owner) {
		if grown.Orientation == run.Orientation && grown.Len() >= WinLength+1 && grown.Contains(row, col) {
			return true
		}
	}
	return false
}

func abs(x int) int {
	if x < 0 {
		return -x
	}
	return x
}
