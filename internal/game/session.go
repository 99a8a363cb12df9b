package game

import (
	"context"
	"errors"
	"fmt"
	"sync"
)

var (
	ErrNotRunning     = errors.New("session is not running")
	ErrAlreadyRunning = errors.New("session already started")
	ErrInvalidMove    = errors.New("column cannot take a piece")
)

type State int

const (
	NotRunning State = iota
	Running
	Won
	Drawn
	Cancelled
)

func (s State) String() string {
	switch s {
	case NotRunning:
		return "not_running"
	case Running:
		return "running"
	case Won:
		return "won"
	case Drawn:
		return "drawn"
	case Cancelled:
		return "cancelled"
	}
	return "unknown"
}

type Reason string

const (
	ReasonNone           Reason = ""
	ReasonConnectionLost Reason = "connection_lost"
	ReasonStopped        Reason = "stopped"
	ReasonInvalidMove    Reason = "invalid_move"
)

// Move is one applied insertion.
type Move struct {
	Owner  Owner `json:"owner"`
	Column int   `json:"column"`
	Row    int   `json:"row"`
}

// Outcome is the terminal result of a session. Winner is NoOwner for draws
// and cancellations.
type Outcome struct {
	State   State   `json:"-"`
	Winner  Owner   `json:"winner"`
	Reason  Reason  `json:"reason,omitempty"`
	Winning LineRun `json:"winning"`
	Moves   int     `json:"moves"`
	Err     error   `json:"-"`
}

// Observer is told about every board change and, exactly once, about the
// end of the session. Snapshots are private copies.
type Observer interface {
	BoardChanged(snapshot *Board, move Move)
	Finished(outcome Outcome)
}

// ObserverFuncs adapts plain functions to Observer; nil fields are skipped.
type ObserverFuncs struct {
	OnBoardChanged func(snapshot *Board, move Move)
	OnFinished     func(outcome Outcome)
}

func (o ObserverFuncs) BoardChanged(snapshot *Board, move Move) {
	if o.OnBoardChanged != nil {
		o.OnBoardChanged(snapshot, move)
	}
}

func (o ObserverFuncs) Finished(outcome Outcome) {
	if o.OnFinished != nil {
		o.OnFinished(outcome)
	}
}

// Session drives one game between two participants, strictly alternating
// half-turns. Cancellation is observed between half-turns or while a
// participant waits for input.
type Session struct {
	mu       sync.Mutex
	state    State
	board    *Board
	players  [2]Participant
	moves    int
	stopped  bool
	cancel   context.CancelFunc
	observer Observer
}

func NewSession(observer Observer) *Session {
	if observer == nil {
		observer = ObserverFuncs{}
	}
	return &Session{observer: observer}
}

func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Board returns a snapshot of the live board, nil before Start.
func (s *Session) Board() *Board {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.board == nil {
		return nil
	}
	return s.board.Copy()
}

// Start plays a full game on a fresh rows x columns board, first moving
// first, and blocks until it ends. The returned outcome is also handed to
// the observer.
func (s *Session) Start(ctx context.Context, first, second Participant, rows, columns int) (Outcome, error) {
	board, err := NewBoard(rows, columns)
	if err != nil {
		return Outcome{}, err
	}

	s.mu.Lock()
	if s.state != NotRunning {
		s.mu.Unlock()
		return Outcome{}, ErrAlreadyRunning
	}
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	s.state = Running
	s.board = board
	s.players = [2]Participant{first, second}
	s.cancel = cancel
	s.mu.Unlock()

	first.SetActive(true, true)
	second.SetActive(true, false)
	s.observer.BoardChanged(board.Copy(), Move{Column: NoRow, Row: NoRow})

	var outcome Outcome
	for turn, done := 0, false; !done; turn = 1 - turn {
		outcome, done = s.halfTurn(ctx, s.players[turn], s.players[1-turn])
	}
	return s.finish(outcome), nil
}

// halfTurn asks mover for a column and applies it. It reports true once the
// session reached a terminal state.
func (s *Session) halfTurn(ctx context.Context, mover, other Participant) (Outcome, bool) {
	if s.isStopped() {
		return Outcome{State: Cancelled, Reason: ReasonStopped}, true
	}

	col, err := mover.NextMove(ctx, s.Board())
	if s.isStopped() {
		return Outcome{State: Cancelled, Reason: ReasonStopped}, true
	}
	if err != nil {
		if ctx.Err() != nil {
			return Outcome{State: Cancelled, Reason: ReasonStopped, Err: ctx.Err()}, true
		}
		return Outcome{State: Cancelled, Reason: ReasonConnectionLost, Err: err}, true
	}

	s.mu.Lock()
	playable := s.board.CanDrop(col)
	s.mu.Unlock()
	if !playable {
		return Outcome{State: Cancelled, Reason: ReasonInvalidMove, Err: fmt.Errorf("%w: %s chose %d", ErrInvalidMove, mover.Name(), col)}, true
	}

	if err := other.NotifyOpponentMove(col); err != nil {
		return Outcome{State: Cancelled, Reason: ReasonConnectionLost, Err: err}, true
	}

	s.mu.Lock()
	row := s.board.Insert(mover.ID(), col)
	s.moves++
	snapshot := s.board.Copy()
	s.mu.Unlock()

	s.observer.BoardChanged(snapshot, Move{Owner: mover.ID(), Column: col, Row: row})

	if run, ok := WinningRun(snapshot, mover.ID()); ok {
		return Outcome{State: Won, Winner: mover.ID(), Winning: run}, true
	}
	if snapshot.IsFull() {
		return Outcome{State: Drawn}, true
	}
	return Outcome{}, false
}

func (s *Session) isStopped() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.stopped
}

func (s *Session) finish(outcome Outcome) Outcome {
	s.mu.Lock()
	s.state = outcome.State
	outcome.Moves = s.moves
	players := s.players
	s.mu.Unlock()

	for _, p := range players {
		p.SetActive(false, false)
	}
	s.observer.Finished(outcome)
	return outcome
}

// Stop cancels a running session. The game loop notices it at the next
// half-turn boundary, or immediately if a participant is waiting for input.
func (s *Session) Stop() error {
	s.mu.Lock()
	if s.state != Running || s.stopped {
		s.mu.Unlock()
		return ErrNotRunning
	}
	s.stopped = true
	cancel := s.cancel
	players := s.players
	s.mu.Unlock()

	for _, p := range players {
		p.SetActive(false, false)
	}
	cancel()
	return nil
}
