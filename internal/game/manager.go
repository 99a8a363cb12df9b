package game

import (
	"context"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"
)

const (
	StatusActive   = "active"
	StatusFinished = "finished"
)

const BotName = "bot"

type GameState struct {
	ID         string
	Rows       int
	Columns    int
	Status     string
	Winner     string
	Turn       Owner
	Ply        int
	Outcome    Outcome
	StartedAt  time.Time
	EndedAt    time.Time
	LastMoveAt time.Time
	Players    map[string]*Player
	Session    *Session
	Bot        *HeuristicPlayer
}

type Player struct {
	Username string
	Slot     Owner
	IsBot    bool
	Human    *HumanPlayer
}

// GameView is a read-only copy of a game for rendering and JSON.
type GameView struct {
	ID       string           `json:"gameId"`
	Rows     int              `json:"rows"`
	Columns  int              `json:"columns"`
	Board    [][]Owner        `json:"board"`
	Status   string           `json:"status"`
	Turn     Owner            `json:"turn"`
	Winner   string           `json:"winner"`
	Reason   Reason           `json:"reason,omitempty"`
	Players  map[string]Owner `json:"players"`
	Moves    int              `json:"moves"`
	Started  time.Time        `json:"startedAt"`
	LastMove time.Time        `json:"lastMoveAt"`
}

// Hooks let the transport layer follow games. All of them run on the game's
// own goroutine.
type Hooks struct {
	OnStart    func(g *GameState)
	OnMove     func(g *GameState, snapshot *Board, move Move)
	OnFinish   func(g *GameState)
	OnRejected func(g *GameState, username string, column int)
}

type Manager struct {
	mu         sync.RWMutex
	waiting    *Player
	games      map[string]*GameState
	userToGame map[string]string
	rows       int
	columns    int
	idleAfter  time.Duration
	hooks      Hooks
}

func NewManager(rows, columns int, idleAfter time.Duration, hooks Hooks) *Manager {
	return &Manager{
		games:      make(map[string]*GameState),
		userToGame: make(map[string]string),
		rows:       rows,
		columns:    columns,
		idleAfter:  idleAfter,
		hooks:      hooks,
	}
}

// AssignPlayer pairs username with the waiting player, or parks it. The
// waiting player moves first.
func (m *Manager) AssignPlayer(username string) (*GameState, *Player, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	// Rejoin existing game if present.
	if g, ok := m.activeGameLocked(username); ok {
		return g, g.Players[username], false
	}
	if m.waiting != nil && m.waiting.Username == username {
		return nil, m.waiting, true
	}

	if m.waiting == nil {
		m.waiting = m.newHuman(username, Owner1)
		return nil, m.waiting, true
	}

	opponent := m.waiting
	m.waiting = nil
	player := m.newHuman(username, Owner2)
	g := m.newGameLocked(opponent, player)
	m.launch(g, opponent.Human, player.Human)
	return g, player, false
}

// StartBotGame starts a game between username and the heuristic player. The
// human moves first.
func (m *Manager) StartBotGame(username string) (*GameState, *Player) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if g, ok := m.activeGameLocked(username); ok {
		return g, g.Players[username]
	}
	return m.startBotGameLocked(username)
}

// FallbackToBot starts a bot game only if username is still waiting for an
// opponent.
func (m *Manager) FallbackToBot(username string) (*GameState, *Player, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.waiting == nil || m.waiting.Username != username {
		return nil, nil, false
	}
	g, p := m.startBotGameLocked(username)
	return g, p, true
}

func (m *Manager) startBotGameLocked(username string) (*GameState, *Player) {
	human := m.waiting
	if human == nil || human.Username != username {
		human = m.newHuman(username, Owner1)
	} else {
		m.waiting = nil
	}
	bot := &Player{Username: BotName, Slot: Owner2, IsBot: true}
	g := m.newGameLocked(human, bot)
	g.Bot = NewHeuristicPlayer(Owner2, Owner1, BotName)
	m.launch(g, human.Human, g.Bot)
	return g, human
}

// newHuman seats username. Rejected columns are reported through the
// OnRejected hook once the player has a game.
func (m *Manager) newHuman(username string, slot Owner) *Player {
	p := &Player{Username: username, Slot: slot, Human: NewHumanPlayer(slot, username)}
	p.Human.OnRejected(func(column int) {
		if m.hooks.OnRejected == nil {
			return
		}
		if g, ok := m.GetGameByUser(username); ok {
			m.hooks.OnRejected(g, username, column)
		}
	})
	return p
}

func (m *Manager) newGameLocked(first, second *Player) *GameState {
	now := time.Now()
	g := &GameState{
		ID:         uuid.NewString(),
		Rows:       m.rows,
		Columns:    m.columns,
		Status:     StatusActive,
		Turn:       first.Slot,
		StartedAt:  now,
		LastMoveAt: now,
		Players: map[string]*Player{
			first.Username:  first,
			second.Username: second,
		},
	}
	m.games[g.ID] = g
	for name, p := range g.Players {
		if !p.IsBot {
			m.userToGame[name] = g.ID
		}
	}
	return g
}

func (m *Manager) activeGameLocked(username string) (*GameState, bool) {
	if id, ok := m.userToGame[username]; ok {
		if g, exists := m.games[id]; exists && g.Status != StatusFinished {
			return g, true
		}
	}
	return nil, false
}

// launch runs the session on its own goroutine. Called with m.mu held.
func (m *Manager) launch(g *GameState, first, second Participant) {
	g.Session = NewSession(ObserverFuncs{
		OnBoardChanged: func(snapshot *Board, move Move) {
			if move.Column == NoRow {
				return
			}
			m.mu.Lock()
			g.LastMoveAt = time.Now()
			g.Ply = snapshot.Count()
			if move.Owner == Owner1 {
				g.Turn = Owner2
			} else {
				g.Turn = Owner1
			}
			m.mu.Unlock()
			if m.hooks.OnMove != nil {
				m.hooks.OnMove(g, snapshot, move)
			}
		},
		OnFinished: func(outcome Outcome) {
			m.finish(g, outcome)
		},
	})
	session := g.Session
	go func() {
		if m.hooks.OnStart != nil {
			m.hooks.OnStart(g)
		}
		if _, err := session.Start(context.Background(), first, second, g.Rows, g.Columns); err != nil {
			log.Printf("game %s failed to start: %v", g.ID, err)
			m.finish(g, Outcome{State: Cancelled, Reason: ReasonStopped, Err: err})
		}
	}()
}

func (m *Manager) finish(g *GameState, outcome Outcome) {
	m.mu.Lock()
	g.Status = StatusFinished
	g.Outcome = outcome
	g.EndedAt = time.Now()
	if outcome.State == Won {
		g.Winner = g.usernameFor(outcome.Winner)
	}
	for name := range g.Players {
		if m.userToGame[name] == g.ID {
			delete(m.userToGame, name)
		}
	}
	m.mu.Unlock()

	log.Printf("game %s finished: state=%s winner=%q reason=%q moves=%d", g.ID, outcome.State, g.Winner, outcome.Reason, outcome.Moves)
	if m.hooks.OnFinish != nil {
		m.hooks.OnFinish(g)
	}
}

func (g *GameState) usernameFor(slot Owner) string {
	for name, p := range g.Players {
		if p.Slot == slot {
			return name
		}
	}
	return ""
}

// Opponent returns the other player's name.
func (g *GameState) Opponent(username string) string {
	for name := range g.Players {
		if name != username {
			return name
		}
	}
	return ""
}

// Turn reports whose move it is in gameID and how many pieces the board
// held when that turn began. Both values change together.
func (m *Manager) Turn(gameID string) (Owner, int, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	g, ok := m.games[gameID]
	if !ok || g.Status == StatusFinished {
		return NoOwner, 0, false
	}
	return g.Turn, g.Ply, true
}

func (m *Manager) GetGame(gameID string) (*GameState, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	g, ok := m.games[gameID]
	return g, ok
}

// GetGameByUser retrieves the active game of username.
func (m *Manager) GetGameByUser(username string) (*GameState, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.activeGameLocked(username)
}

// IsWaiting reports whether username is still parked without an opponent.
func (m *Manager) IsWaiting(username string) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.waiting != nil && m.waiting.Username == username
}

// View returns a consistent copy of a game.
func (m *Manager) View(gameID string) (GameView, bool) {
	m.mu.RLock()
	g, ok := m.games[gameID]
	m.mu.RUnlock()
	if !ok {
		return GameView{}, false
	}
	return m.view(g), true
}

func (m *Manager) view(g *GameState) GameView {
	var board *Board
	if g.Session != nil {
		board = g.Session.Board()
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	v := GameView{
		ID:       g.ID,
		Rows:     g.Rows,
		Columns:  g.Columns,
		Status:   g.Status,
		Turn:     g.Turn,
		Winner:   g.Winner,
		Reason:   g.Outcome.Reason,
		Moves:    g.Outcome.Moves,
		Players:  make(map[string]Owner, len(g.Players)),
		Started:  g.StartedAt,
		LastMove: g.LastMoveAt,
	}
	for name, p := range g.Players {
		v.Players[name] = p.Slot
	}
	if board != nil {
		v.Board = board.Grid()
		v.Moves = board.Count()
	} else {
		empty, _ := NewBoard(g.Rows, g.Columns)
		v.Board = empty.Grid()
	}
	return v
}

// Live lists every game that has not finished yet.
func (m *Manager) Live() []GameView {
	m.mu.RLock()
	live := make([]*GameState, 0, len(m.games))
	for _, g := range m.games {
		if g.Status != StatusFinished {
			live = append(live, g)
		}
	}
	m.mu.RUnlock()

	views := make([]GameView, 0, len(live))
	for _, g := range live {
		views = append(views, m.view(g))
	}
	return views
}

// Abandon removes username from the queue and drops it out of its game.
func (m *Manager) Abandon(username string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.waiting != nil && m.waiting.Username == username {
		m.waiting.Human.Disconnect()
		m.waiting = nil
	}
	if g, ok := m.activeGameLocked(username); ok {
		if p := g.Players[username]; p != nil && p.Human != nil {
			p.Human.Disconnect()
		}
	}
}

// SweepIdle stops running games without a move for longer than the idle
// window.
func (m *Manager) SweepIdle(now time.Time) {
	if m.idleAfter <= 0 {
		return
	}
	m.mu.RLock()
	var stale []*GameState
	for _, g := range m.games {
		if g.Status != StatusFinished && g.Session != nil && now.Sub(g.LastMoveAt) > m.idleAfter {
			stale = append(stale, g)
		}
	}
	m.mu.RUnlock()

	for _, g := range stale {
		if err := g.Session.Stop(); err == nil {
			log.Printf("game %s stopped after %s without a move", g.ID, m.idleAfter)
		}
	}
}
