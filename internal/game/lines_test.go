package game

import (
	"math/rand"
	"testing"
)

func runsOf(runs []LineRun, o Orientation) []LineRun {
	var out []LineRun
	for _, r := range runs {
		if r.Orientation == o {
			out = append(out, r)
		}
	}
	return out
}

func TestFourInARowWinsForItsOwnerOnly(t *testing.T) {
	b := emptyBoard(t, 6, 7)
	for col := 0; col < 4; col++ {
		b.Insert(Owner1, col)
	}

	run, ok := WinningRun(b, Owner1)
	if !ok {
		t.Fatal("expected a win for Owner1")
	}
	if run.Orientation != Horizontal || run.Len() != 4 {
		t.Fatalf("expected horizontal run of 4, got %s of %d", run.Orientation, run.Len())
	}
	for col := 0; col < 4; col++ {
		if !run.Contains(5, col) {
			t.Fatalf("run misses bottom row column %d", col)
		}
	}
	if HasWin(b, Owner2) {
		t.Fatal("Owner2 must not win")
	}
	if HasWin(b, NoOwner) {
		t.Fatal("empty cells never win")
	}
}

func TestLongLineIsReportedOnce(t *testing.T) {
	b := parseBoard(t,
		".......",
		"XXXXX..",
	)
	runs := runsOf(FindRuns(b, Owner1), Horizontal)
	if len(runs) != 1 {
		t.Fatalf("expected one horizontal run, got %d", len(runs))
	}
	if runs[0].Len() != 5 {
		t.Fatalf("expected length 5, got %d", runs[0].Len())
	}
	if !HasWin(b, Owner1) {
		t.Fatal("a pre-seeded line of five still wins")
	}
}

func TestRunsMayOverlapAcrossOrientations(t *testing.T) {
	b := parseBoard(t,
		"....",
		"X...",
		"XXX.",
	)
	runs := FindRuns(b, Owner1)
	h := runsOf(runs, Horizontal)
	v := runsOf(runs, Vertical)
	if len(h) != 1 || h[0].Len() != 3 {
		t.Fatalf("horizontal runs: %+v", h)
	}
	if len(v) != 1 || v[0].Len() != 2 {
		t.Fatalf("vertical runs: %+v", v)
	}
	if !h[0].Contains(2, 0) || !v[0].Contains(2, 0) {
		t.Fatal("corner cell belongs to both runs")
	}
}

func TestDiagonalRunsAreOrderedLeftToRight(t *testing.T) {
	b := parseBoard(t,
		"...X",
		"..XO",
		"OXOO",
		"XOOX",
	)
	rising := runsOf(FindRuns(b, Owner1), Rising)
	if len(rising) != 1 || rising[0].Len() != 4 {
		t.Fatalf("rising runs: %+v", rising)
	}
	if first, last := rising[0].First(), rising[0].Last(); first != (Cell{Row: 3, Column: 0}) || last != (Cell{Row: 0, Column: 3}) {
		t.Fatalf("rising run goes from %+v to %+v", first, last)
	}

	falling := runsOf(FindRuns(b, Owner2), Falling)
	if len(falling) != 1 {
		t.Fatalf("falling runs: %+v", falling)
	}
	if first, last := falling[0].First(), falling[0].Last(); first != (Cell{Row: 2, Column: 0}) || last != (Cell{Row: 3, Column: 1}) {
		t.Fatalf("falling run goes from %+v to %+v", first, last)
	}
}

func TestSingleCellsAreNotRuns(t *testing.T) {
	b := parseBoard(t,
		"....",
		"X.X.",
	)
	if runs := FindRuns(b, Owner1); len(runs) != 0 {
		t.Fatalf("expected no runs, got %+v", runs)
	}
}

func TestRunsAreDisjointWithinAnOrientation(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	for game := 0; game < 50; game++ {
		b := emptyBoard(t, 6, 7)
		for i := 0; i < 30; i++ {
			b.Insert(Owner(1+rng.Intn(2)), rng.Intn(7))
		}
		for _, owner := range []Owner{Owner1, Owner2} {
			seen := map[Orientation]map[Cell]bool{}
			for _, run := range FindRuns(b, owner) {
				if run.Len() < 2 {
					t.Fatalf("run shorter than two: %+v", run)
				}
				if seen[run.Orientation] == nil {
					seen[run.Orientation] = map[Cell]bool{}
				}
				for _, c := range run.Cells {
					if b.At(c.Row, c.Column) != owner {
						t.Fatalf("run covers foreign cell %+v", c)
					}
					if seen[run.Orientation][c] {
						t.Fatalf("game %d: cell %+v reported twice in %s runs", game, c, run.Orientation)
					}
					seen[run.Orientation][c] = true
				}
			}
		}
	}
}
