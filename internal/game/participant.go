package game

import (
	"context"
	"errors"
	"fmt"
	"sync"
)

// ErrNotPlaying is returned by a participant that can no longer take part in
// the game, e.g. a remote peer that disconnected.
var ErrNotPlaying = errors.New("participant is not playing")

// Participant produces moves for one side of a game. The Session never looks
// past this interface.
type Participant interface {
	ID() Owner
	Name() string
	// NextMove blocks until the participant picks a column. It returns
	// ErrNotPlaying (possibly wrapped) when the participant dropped out.
	NextMove(ctx context.Context, b *Board) (int, error)
	NotifyOpponentMove(column int) error
	SetActive(active, first bool)
	Active() bool
	First() bool
}

// seat holds the bookkeeping every participant shares.
type seat struct {
	mu     sync.Mutex
	id     Owner
	name   string
	active bool
	first  bool
}

func (s *seat) ID() Owner    { return s.id }
func (s *seat) Name() string { return s.name }

func (s *seat) SetActive(active, first bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.active = active
	if active {
		s.first = first
	}
}

func (s *seat) Active() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.active
}

func (s *seat) First() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.first
}

// HumanPlayer takes its moves from a channel fed by some input device: a
// terminal, a websocket, a test.
type HumanPlayer struct {
	seat
	moves    chan submission
	closed   chan struct{}
	once     sync.Once
	rejected func(column int)
}

// submission is a column chosen for the position with ply pieces on the
// board.
type submission struct {
	ply    int
	column int
}

func NewHumanPlayer(id Owner, name string) *HumanPlayer {
	return &HumanPlayer{
		seat:   seat{id: id, name: name},
		moves:  make(chan submission, 8),
		closed: make(chan struct{}),
	}
}

// OnRejected registers a callback for columns that cannot take a piece. The
// player keeps waiting for a playable column after calling it.
func (h *HumanPlayer) OnRejected(fn func(column int)) {
	h.rejected = fn
}

// Submit queues column as the answer to the position with ply pieces on the
// board. NextMove drops answers to any other position, so a column sent twice
// in one turn is never played later. Submit reports false once the player
// disconnected or the queue is full.
func (h *HumanPlayer) Submit(ply, column int) bool {
	select {
	case <-h.closed:
		return false
	default:
	}
	select {
	case h.moves <- submission{ply: ply, column: column}:
		return true
	default:
		return false
	}
}

// Disconnect makes every pending and future NextMove fail with ErrNotPlaying.
func (h *HumanPlayer) Disconnect() {
	h.once.Do(func() { close(h.closed) })
}

func (h *HumanPlayer) NextMove(ctx context.Context, b *Board) (int, error) {
	ply := b.Count()
	for {
		select {
		case <-ctx.Done():
			return NoRow, ctx.Err()
		case <-h.closed:
			return NoRow, fmt.Errorf("%s: %w", h.name, ErrNotPlaying)
		case m := <-h.moves:
			if m.ply != ply {
				continue
			}
			if b.CanDrop(m.column) {
				return m.column, nil
			}
			if h.rejected != nil {
				h.rejected(m.column)
			}
		}
	}
}

func (h *HumanPlayer) NotifyOpponentMove(int) error { return nil }

// HeuristicPlayer plays the moves an Evaluator picks.
type HeuristicPlayer struct {
	seat
	eval *Evaluator
	last Decision
}

func NewHeuristicPlayer(id, opponent Owner, name string) *HeuristicPlayer {
	return &HeuristicPlayer{
		seat: seat{id: id, name: name},
		eval: NewEvaluator(id, opponent),
	}
}

func (p *HeuristicPlayer) NextMove(ctx context.Context, b *Board) (int, error) {
	if err := ctx.Err(); err != nil {
		return NoRow, err
	}
	d, err := p.eval.Decide(b)
	if err != nil {
		return NoRow, err
	}
	p.mu.Lock()
	p.last = d
	p.mu.Unlock()
	return d.Column, nil
}

// LastDecision returns the decision behind the most recent move.
func (p *HeuristicPlayer) LastDecision() Decision {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.last
}

func (p *HeuristicPlayer) NotifyOpponentMove(int) error { return nil }

// MoveConn carries single columns to and from a peer.
type MoveConn interface {
	ReadMove(ctx context.Context) (int, error)
	WriteMove(column int) error
	Close() error
}

// RemotePlayer plays the moves a peer sends over a MoveConn and forwards the
// local side's moves to it. Any transport failure takes it offline for good.
type RemotePlayer struct {
	seat
	conn    MoveConn
	offline bool
}

func NewRemotePlayer(id Owner, name string, conn MoveConn) *RemotePlayer {
	return &RemotePlayer{
		seat: seat{id: id, name: name},
		conn: conn,
	}
}

// Online reports whether the peer is still reachable.
func (p *RemotePlayer) Online() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return !p.offline
}

func (p *RemotePlayer) goOffline() {
	p.mu.Lock()
	p.offline = true
	p.active = false
	p.mu.Unlock()
	_ = p.conn.Close()
}

func (p *RemotePlayer) NextMove(ctx context.Context, _ *Board) (int, error) {
	if !p.Online() {
		return NoRow, fmt.Errorf("%s: %w", p.name, ErrNotPlaying)
	}
	col, err := p.conn.ReadMove(ctx)
	if err != nil {
		p.goOffline()
		return NoRow, fmt.Errorf("%s: %w: %v", p.name, ErrNotPlaying, err)
	}
	return col, nil
}

func (p *RemotePlayer) NotifyOpponentMove(column int) error {
	if !p.Online() {
		return fmt.Errorf("%s: %w", p.name, ErrNotPlaying)
	}
	if err := p.conn.WriteMove(column); err != nil {
		p.goOffline()
		return fmt.Errorf("%s: %w: %v", p.name, ErrNotPlaying, err)
	}
	return nil
}

// SetActive(false, ...) closes the connection: a stopped game never resumes.
func (p *RemotePlayer) SetActive(active, first bool) {
	p.seat.SetActive(active, first)
	if !active {
		p.goOffline()
	}
}
