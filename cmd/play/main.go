package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"connectfour/internal/config"
	"connectfour/internal/game"
	"connectfour/internal/remote"
)

func main() {
	config.LoadDotEnv()
	defaults := config.Load().Board

	mode := flag.String("mode", "bot", "local, bot, host or join")
	rows := flag.Int("rows", defaults.Rows, "board rows")
	cols := flag.Int("cols", defaults.Columns, "board columns")
	addr := flag.String("addr", "", "listen address for host (default :1234), host:port for join (default: look on the LAN)")
	name := flag.String("name", "you", "your name")
	flag.Parse()

	size := config.Settings{Rows: *rows, Columns: *cols}.Clamp()
	if size.Rows != *rows || size.Columns != *cols {
		log.Printf("board size adjusted to %dx%d", size.Rows, size.Columns)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	first, second, err := seat(ctx, *mode, *name, *addr, &size)
	if err != nil {
		log.Fatal(err)
	}

	con := newConsole(os.Stdout, first, second)
	go con.readMoves(os.Stdin)

	outcome, err := game.NewSession(con).Start(ctx, first, second, size.Rows, size.Columns)
	if err != nil {
		log.Fatal(err)
	}
	if outcome.State == game.Cancelled {
		stop()
		os.Exit(1)
	}
}

// seat builds both participants for mode. For peer games the host's board
// size wins and size is updated to it.
func seat(ctx context.Context, mode, name, addr string, size *config.Settings) (game.Participant, game.Participant, error) {
	switch mode {
	case "local":
		return game.NewHumanPlayer(game.Owner1, "player 1"), game.NewHumanPlayer(game.Owner2, "player 2"), nil
	case "bot":
		return game.NewHumanPlayer(game.Owner1, name), game.NewHeuristicPlayer(game.Owner2, game.Owner1, "computer"), nil
	case "host":
		if addr == "" {
			addr = ":1234"
		}
		hs, err := remote.Host(ctx, addr, size.Rows, size.Columns)
		if err != nil {
			return nil, nil, fmt.Errorf("host: %w", err)
		}
		return pair(hs, name, size)
	case "join":
		if addr == "" {
			found, err := remote.DiscoverLAN(ctx)
			if err != nil {
				return nil, nil, fmt.Errorf("join: %w", err)
			}
			addr = found
		}
		hs, err := remote.Dial(ctx, "ws://"+addr+remote.Path)
		if err != nil {
			return nil, nil, fmt.Errorf("join %s: %w", addr, err)
		}
		return pair(hs, name, size)
	}
	return nil, nil, fmt.Errorf("unknown mode %q", mode)
}

func pair(hs *remote.Handshake, name string, size *config.Settings) (game.Participant, game.Participant, error) {
	size.Rows, size.Columns = hs.Rows, hs.Columns
	if hs.LocalStarts {
		return game.NewHumanPlayer(game.Owner1, name), game.NewRemotePlayer(game.Owner2, "peer", hs.Conn), nil
	}
	return game.NewRemotePlayer(game.Owner1, "peer", hs.Conn), game.NewHumanPlayer(game.Owner2, name), nil
}
