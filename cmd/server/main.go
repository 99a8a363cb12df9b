package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"connectfour/internal/analytics"
	"connectfour/internal/config"
	"connectfour/internal/game"
	"connectfour/internal/server"
	"connectfour/internal/storage"
)

func main() {
	config.LoadDotEnv()
	cfg := config.Load()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var store storage.Store
	if cfg.PostgresURL != "" {
		pg, err := storage.NewPostgresStore(ctx, cfg.PostgresURL, game.BotName)
		if err != nil {
			log.Printf("postgres disabled: %v", err)
		} else {
			defer pg.Close(context.Background())
			if err := pg.EnsureTables(ctx); err != nil {
				log.Printf("postgres ensure tables failed: %v", err)
			}
			store = pg
		}
	}

	var cache *storage.SnapshotCache
	if cfg.RedisURL != "" {
		c, err := storage.NewSnapshotCache(ctx, cfg.RedisURL, cfg.RedisPass, cfg.SnapshotTTL)
		if err != nil {
			log.Printf("[REDIS] Warning: Could not connect to Redis: %v. Serving snapshots from memory only.", err)
		} else {
			defer c.Close()
			cache = c
		}
	}

	producer := analytics.NewProducer(cfg.KafkaBroker, cfg.KafkaTopic)
	defer producer.Close()

	srv := server.New(server.Config{
		Rows:             cfg.Board.Rows,
		Columns:          cfg.Board.Columns,
		BotFallbackAfter: cfg.BotDelay,
		IdleTimeout:      cfg.IdleTimeout,
		Store:            store,
		Cache:            cache,
		Analytics:        producer,
	})

	log.Printf("server listening on %s (board %dx%d)", cfg.Addr, cfg.Board.Rows, cfg.Board.Columns)
	if err := srv.Run(ctx, cfg.Addr); err != nil {
		log.Fatal(err)
	}
}
