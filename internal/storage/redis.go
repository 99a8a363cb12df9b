package storage

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"strings"
	"time"

	"connectfour/internal/game"

	"github.com/redis/go-redis/v9"
)

const snapshotPrefix = "game:"

// SnapshotCache stores the latest view of each game for spectators. A nil
// cache is valid and stores nothing.
type SnapshotCache struct {
	client *redis.Client
	ttl    time.Duration
}

// NewSnapshotCache connects to addr, which is either host:port or a
// redis:// URL.
func NewSnapshotCache(ctx context.Context, addr, password string, ttl time.Duration) (*SnapshotCache, error) {
	opts := &redis.Options{Addr: addr, Password: password, DB: 0}
	if strings.HasPrefix(addr, "redis://") || strings.HasPrefix(addr, "rediss://") {
		parsed, err := redis.ParseURL(addr)
		if err != nil {
			return nil, err
		}
		if password != "" {
			parsed.Password = password
		}
		opts = parsed
	}

	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, err
	}
	log.Println("[REDIS] Connected successfully")
	return &SnapshotCache{client: client, ttl: ttl}, nil
}

func snapshotKey(gameID string) string {
	return snapshotPrefix + gameID
}

func (c *SnapshotCache) Set(ctx context.Context, view game.GameView) error {
	if c == nil || c.client == nil {
		return nil
	}
	data, err := json.Marshal(view)
	if err != nil {
		return err
	}
	return c.client.Set(ctx, snapshotKey(view.ID), data, c.ttl).Err()
}

// Get returns the cached view of gameID. ok is false on a cache miss.
func (c *SnapshotCache) Get(ctx context.Context, gameID string) (view game.GameView, ok bool, err error) {
	if c == nil || c.client == nil {
		return view, false, nil
	}
	data, err := c.client.Get(ctx, snapshotKey(gameID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return view, false, nil
	}
	if err != nil {
		return view, false, err
	}
	if err := json.Unmarshal(data, &view); err != nil {
		return view, false, err
	}
	return view, true, nil
}

func (c *SnapshotCache) Close() error {
	if c == nil || c.client == nil {
		return nil
	}
	return c.client.Close()
}
