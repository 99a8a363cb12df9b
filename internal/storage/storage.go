package storage

import (
	"context"
	"sort"
	"sync"
	"time"
)

const (
	ResultWon   = "won"
	ResultDrawn = "drawn"
)

// CompletedGame is what gets recorded when a game reaches a final board.
// Cancelled games are never recorded.
type CompletedGame struct {
	ID        string
	Players   []string
	Winner    string
	Result    string
	StartedAt time.Time
	EndedAt   time.Time
}

type LeaderboardRow struct {
	Username string `json:"username"`
	Wins     int    `json:"wins"`
	Losses   int    `json:"losses"`
	Draws    int    `json:"draws"`
	Games    int    `json:"games"`
}

type Store interface {
	SaveGame(ctx context.Context, game CompletedGame) error
	GetLeaderboard(ctx context.Context, limit int) ([]LeaderboardRow, error)
}

// tally returns the per-player increments a completed game contributes.
func tally(game CompletedGame, skip string) []LeaderboardRow {
	if game.Result != ResultWon && game.Result != ResultDrawn {
		return nil
	}
	rows := make([]LeaderboardRow, 0, len(game.Players))
	for _, name := range game.Players {
		if name == "" || name == skip {
			continue
		}
		row := LeaderboardRow{Username: name, Games: 1}
		switch {
		case game.Result == ResultDrawn:
			row.Draws = 1
		case game.Winner == name:
			row.Wins = 1
		default:
			row.Losses = 1
		}
		rows = append(rows, row)
	}
	return rows
}

func sortLeaderboard(rows []LeaderboardRow) {
	sort.Slice(rows, func(i, j int) bool {
		if rows[i].Wins != rows[j].Wins {
			return rows[i].Wins > rows[j].Wins
		}
		return rows[i].Username < rows[j].Username
	})
}

// MemoryStore keeps tallies in process. The server falls back to it when no
// database is configured.
type MemoryStore struct {
	mu    sync.Mutex
	skip  string
	stats map[string]*LeaderboardRow
}

// NewMemoryStore returns an empty store. Games of the player named skip are
// counted for the opponent only.
func NewMemoryStore(skip string) *MemoryStore {
	return &MemoryStore{skip: skip, stats: make(map[string]*LeaderboardRow)}
}

func (m *MemoryStore) SaveGame(_ context.Context, game CompletedGame) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, inc := range tally(game, m.skip) {
		row, ok := m.stats[inc.Username]
		if !ok {
			row = &LeaderboardRow{Username: inc.Username}
			m.stats[inc.Username] = row
		}
		row.Wins += inc.Wins
		row.Losses += inc.Losses
		row.Draws += inc.Draws
		row.Games += inc.Games
	}
	return nil
}

func (m *MemoryStore) GetLeaderboard(_ context.Context, limit int) ([]LeaderboardRow, error) {
	m.mu.Lock()
	res := make([]LeaderboardRow, 0, len(m.stats))
	for _, row := range m.stats {
		res = append(res, *row)
	}
	m.mu.Unlock()

	sortLeaderboard(res)
	if limit > 0 && len(res) > limit {
		res = res[:limit]
	}
	return res, nil
}
