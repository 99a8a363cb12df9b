package storage

import (
	"context"
	"fmt"
	"log"
	"sync"

	"github.com/jackc/pgx/v5"
)

// PostgresStore keeps per-player tallies. A pgx.Conn is not safe for
// concurrent use, so every statement runs under mu.
type PostgresStore struct {
	mu   sync.Mutex
	conn *pgx.Conn
	skip string
}

func NewPostgresStore(ctx context.Context, url, skip string) (*PostgresStore, error) {
	conn, err := pgx.Connect(ctx, url)
	if err != nil {
		return nil, err
	}
	return &PostgresStore{conn: conn, skip: skip}, nil
}

func (p *PostgresStore) Close(ctx context.Context) {
	if p.conn != nil {
		_ = p.conn.Close(ctx)
	}
}

func (p *PostgresStore) EnsureTables(ctx context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	_, err := p.conn.Exec(ctx, `
CREATE TABLE IF NOT EXISTS player_stats (
	username TEXT PRIMARY KEY,
	wins INTEGER NOT NULL DEFAULT 0,
	losses INTEGER NOT NULL DEFAULT 0,
	draws INTEGER NOT NULL DEFAULT 0,
	games INTEGER NOT NULL DEFAULT 0,
	last_game_at TIMESTAMP
);
`)
	return err
}

func (p *PostgresStore) SaveGame(ctx context.Context, game CompletedGame) error {
	if p == nil || p.conn == nil {
		return nil
	}
	rows := tally(game, p.skip)
	if len(rows) == 0 {
		return nil
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	tx, err := p.conn.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin tally for game %s: %w", game.ID, err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	for _, row := range rows {
		_, err := tx.Exec(ctx, `
INSERT INTO player_stats (username, wins, losses, draws, games, last_game_at)
VALUES ($1,$2,$3,$4,$5,$6)
ON CONFLICT (username) DO UPDATE SET
	wins = player_stats.wins + EXCLUDED.wins,
	losses = player_stats.losses + EXCLUDED.losses,
	draws = player_stats.draws + EXCLUDED.draws,
	games = player_stats.games + EXCLUDED.games,
	last_game_at = EXCLUDED.last_game_at`,
			row.Username, row.Wins, row.Losses, row.Draws, row.Games, game.EndedAt)
		if err != nil {
			log.Printf("failed to save tally for %s: %v", row.Username, err)
			return fmt.Errorf("save tally for %s: %w", row.Username, err)
		}
	}
	return tx.Commit(ctx)
}

func (p *PostgresStore) GetLeaderboard(ctx context.Context, limit int) ([]LeaderboardRow, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	rows, err := p.conn.Query(ctx, `
SELECT username, wins, losses, draws, games
FROM player_stats
ORDER BY wins DESC, username ASC
LIMIT $1`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var res []LeaderboardRow
	for rows.Next() {
		var row LeaderboardRow
		if err := rows.Scan(&row.Username, &row.Wins, &row.Losses, &row.Draws, &row.Games); err != nil {
			return nil, err
		}
		res = append(res, row)
	}
	return res, rows.Err()
}
