package game

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestSessionDeclaresTheFirstToFourTheWinner(t *testing.T) {
	rec := &recorder{}
	a := newScripted(Owner1, 0, 1, 2, 3)
	b := newScripted(Owner2, 0, 1, 2)

	outcome, err := NewSession(rec).Start(context.Background(), a, b, 6, 7)
	if err != nil {
		t.Fatalf("start: %v", err)
	}
	if outcome.State != Won || outcome.Winner != Owner1 {
		t.Fatalf("expected Owner1 to win, got %s winner %d", outcome.State, outcome.Winner)
	}
	if outcome.Moves != 7 {
		t.Fatalf("expected 7 moves, got %d", outcome.Moves)
	}
	for col := 0; col < 4; col++ {
		if !outcome.Winning.Contains(5, col) {
			t.Fatalf("winning run misses bottom row column %d", col)
		}
	}
	if len(rec.finished) != 1 {
		t.Fatalf("expected one terminal notification, got %d", len(rec.finished))
	}
	// initial render plus one per insertion
	if len(rec.changes) != 8 {
		t.Fatalf("expected 8 board changes, got %d", len(rec.changes))
	}
	if got := b.notified; len(got) != 4 || got[3] != 3 {
		t.Fatalf("second player was told about %v", got)
	}
	if a.Active() || b.Active() {
		t.Fatal("participants must be inactive after the game")
	}
}

func TestSessionDrawOnFullBoard(t *testing.T) {
	rec := &recorder{}
	a := newScripted(Owner1, 0, 1, 2)
	b := newScripted(Owner2, 0, 1, 2)

	outcome, err := NewSession(rec).Start(context.Background(), a, b, 2, 3)
	if err != nil {
		t.Fatalf("start: %v", err)
	}
	if outcome.State != Drawn || outcome.Winner != NoOwner {
		t.Fatalf("expected a draw, got %s winner %d", outcome.State, outcome.Winner)
	}
	if !rec.last.IsFull() {
		t.Fatal("last snapshot should show a full board")
	}
}

func TestSessionCancelsWhenAParticipantDropsOut(t *testing.T) {
	rec := &recorder{}
	a := newScripted(Owner1, 3)
	b := NewHumanPlayer(Owner2, "human")
	b.Disconnect()

	outcome, err := NewSession(rec).Start(context.Background(), a, b, 6, 7)
	if err != nil {
		t.Fatalf("start: %v", err)
	}
	if outcome.State != Cancelled || outcome.Reason != ReasonConnectionLost {
		t.Fatalf("expected cancellation for lost connection, got %s %q", outcome.State, outcome.Reason)
	}
	if !errors.Is(outcome.Err, ErrNotPlaying) {
		t.Fatalf("expected ErrNotPlaying, got %v", outcome.Err)
	}
	if len(rec.finished) != 1 {
		t.Fatalf("expected one terminal notification, got %d", len(rec.finished))
	}
}

func TestSessionCancelsOnUnplayableColumn(t *testing.T) {
	a := newScripted(Owner1, 9)
	b := newScripted(Owner2)

	outcome, err := NewSession(nil).Start(context.Background(), a, b, 6, 7)
	if err != nil {
		t.Fatalf("start: %v", err)
	}
	if outcome.State != Cancelled || outcome.Reason != ReasonInvalidMove {
		t.Fatalf("expected invalid move cancellation, got %s %q", outcome.State, outcome.Reason)
	}
	if !errors.Is(outcome.Err, ErrInvalidMove) {
		t.Fatalf("expected ErrInvalidMove, got %v", outcome.Err)
	}
}

func TestSessionStopWhileWaitingForInput(t *testing.T) {
	rec := &recorder{}
	s := NewSession(rec)
	a := NewHumanPlayer(Owner1, "a")
	b := NewHumanPlayer(Owner2, "b")

	done := make(chan Outcome, 1)
	go func() {
		outcome, _ := s.Start(context.Background(), a, b, 6, 7)
		done <- outcome
	}()

	deadline := time.Now().Add(2 * time.Second)
	for s.State() != Running {
		if time.Now().After(deadline) {
			t.Fatal("session never started")
		}
		time.Sleep(time.Millisecond)
	}
	a.Submit(0, 3)
	if err := s.Stop(); err != nil {
		t.Fatalf("stop: %v", err)
	}

	select {
	case outcome := <-done:
		if outcome.State != Cancelled || outcome.Reason != ReasonStopped {
			t.Fatalf("expected stopped cancellation, got %s %q", outcome.State, outcome.Reason)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("session did not stop")
	}
	if s.State() != Cancelled {
		t.Fatalf("expected Cancelled, got %s", s.State())
	}
	if err := s.Stop(); !errors.Is(err, ErrNotRunning) {
		t.Fatalf("second stop: expected ErrNotRunning, got %v", err)
	}
	if len(rec.finished) != 1 {
		t.Fatalf("expected one terminal notification, got %d", len(rec.finished))
	}
}

func TestSessionRejectsSecondStart(t *testing.T) {
	s := NewSession(nil)
	if _, err := s.Start(context.Background(), newScripted(Owner1, 0, 0, 0, 0), newScripted(Owner2, 1, 1, 1), 6, 7); err != nil {
		t.Fatalf("start: %v", err)
	}
	if _, err := s.Start(context.Background(), newScripted(Owner1), newScripted(Owner2), 6, 7); !errors.Is(err, ErrAlreadyRunning) {
		t.Fatalf("expected ErrAlreadyRunning, got %v", err)
	}
	if err := s.Stop(); !errors.Is(err, ErrNotRunning) {
		t.Fatalf("stop after the end: expected ErrNotRunning, got %v", err)
	}
}

func TestSessionRejectsBadGeometry(t *testing.T) {
	_, err := NewSession(nil).Start(context.Background(), newScripted(Owner1), newScripted(Owner2), 0, 7)
	if !errors.Is(err, ErrInvalidGeometry) {
		t.Fatalf("expected ErrInvalidGeometry, got %v", err)
	}
}

func TestHumanPlayerSkipsUnplayableColumns(t *testing.T) {
	h := NewHumanPlayer(Owner1, "h")
	var rejected []int
	h.OnRejected(func(col int) { rejected = append(rejected, col) })
	b := parseBoard(t,
		"X..",
		"O..",
	)
	h.Submit(2, 0)
	h.Submit(2, 7)
	h.Submit(2, 2)

	col, err := h.NextMove(context.Background(), b)
	if err != nil || col != 2 {
		t.Fatalf("expected column 2, got %d, %v", col, err)
	}
	if len(rejected) != 2 {
		t.Fatalf("expected two rejections, got %v", rejected)
	}
}

func TestHeuristicSelfPlayEnds(t *testing.T) {
	for _, size := range [][2]int{{6, 7}, {5, 7}, {4, 6}, {8, 15}} {
		a := NewHeuristicPlayer(Owner1, Owner2, "a")
		b := NewHeuristicPlayer(Owner2, Owner1, "b")
		outcome, err := NewSession(nil).Start(context.Background(), a, b, size[0], size[1])
		if err != nil {
			t.Fatalf("%dx%d: start: %v", size[0], size[1], err)
		}
		if outcome.State != Won && outcome.State != Drawn {
			t.Fatalf("%dx%d: unexpected outcome %s (%v)", size[0], size[1], outcome.State, outcome.Err)
		}
		if a.LastDecision().Rule == 0 {
			t.Fatalf("%dx%d: first player never decided", size[0], size[1])
		}
	}
}

func TestHumanPlayerDropsAnswersToOtherPositions(t *testing.T) {
	h := NewHumanPlayer(Owner1, "h")
	h.Submit(0, 3)
	h.Submit(0, 4)
	h.Submit(2, 5)
	b := parseBoard(t,
		".......",
		"...XO..",
	)
	col, err := h.NextMove(context.Background(), b)
	if err != nil || col != 5 {
		t.Fatalf("expected column 5, got %d, %v", col, err)
	}
}
