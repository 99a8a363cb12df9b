package main

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"
	"sync"

	"connectfour/internal/game"
)

var marks = map[game.Owner]string{
	game.NoOwner: ".",
	game.Owner1:  "X",
	game.Owner2:  "O",
}

// render prints b top row first with 1-based column numbers underneath.
func render(w io.Writer, b *game.Board) {
	var sb strings.Builder
	for r := 0; r < b.Rows(); r++ {
		for c := 0; c < b.Columns(); c++ {
			fmt.Fprintf(&sb, "%3s", marks[b.At(r, c)])
		}
		sb.WriteByte('\n')
	}
	for c := 0; c < b.Columns(); c++ {
		fmt.Fprintf(&sb, "%3d", c+1)
	}
	sb.WriteByte('\n')
	fmt.Fprint(w, sb.String())
}

// console renders the game and routes typed columns to whichever local
// player is due to move.
type console struct {
	out    io.Writer
	mu     sync.Mutex
	names  map[game.Owner]string
	locals map[game.Owner]*game.HumanPlayer
	turn   game.Owner
	ply    int
	done   chan game.Outcome
}

func newConsole(out io.Writer, first, second game.Participant) *console {
	c := &console{
		out:    out,
		names:  map[game.Owner]string{first.ID(): first.Name(), second.ID(): second.Name()},
		locals: make(map[game.Owner]*game.HumanPlayer),
		turn:   first.ID(),
		done:   make(chan game.Outcome, 1),
	}
	for _, p := range []game.Participant{first, second} {
		if h, ok := p.(*game.HumanPlayer); ok {
			c.locals[h.ID()] = h
			h.OnRejected(func(column int) {
				c.printf("column %d cannot take a piece, pick another\n", column+1)
			})
		}
	}
	return c
}

func (c *console) printf(format string, args ...any) {
	c.mu.Lock()
	defer c.mu.Unlock()
	fmt.Fprintf(c.out, format, args...)
}

func (c *console) label(o game.Owner) string {
	return fmt.Sprintf("%s (%s)", c.names[o], marks[o])
}

func (c *console) BoardChanged(snapshot *game.Board, move game.Move) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.ply = snapshot.Count()
	if move.Column != game.NoRow {
		fmt.Fprintf(c.out, "%s played column %d\n", c.label(move.Owner), move.Column+1)
		if move.Owner == game.Owner1 {
			c.turn = game.Owner2
		} else {
			c.turn = game.Owner1
		}
	}
	render(c.out, snapshot)
	if !snapshot.IsFull() {
		if _, local := c.locals[c.turn]; local {
			fmt.Fprintf(c.out, "%s, your column: ", c.label(c.turn))
		} else {
			fmt.Fprintf(c.out, "waiting for %s\n", c.label(c.turn))
		}
	}
}

func (c *console) Finished(outcome game.Outcome) {
	switch outcome.State {
	case game.Won:
		c.printf("%s wins after %d moves\n", c.label(outcome.Winner), outcome.Moves)
	case game.Drawn:
		c.printf("draw, the board is full\n")
	default:
		if outcome.Err != nil {
			c.printf("game cancelled (%s): %v\n", outcome.Reason, outcome.Err)
		} else {
			c.printf("game cancelled (%s)\n", outcome.Reason)
		}
	}
	c.done <- outcome
}

// readMoves feeds typed 1-based column numbers to the local player whose
// turn it is. At end of input every local player disconnects.
func (c *console) readMoves(in io.Reader) {
	scanner := bufio.NewScanner(in)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		col, err := strconv.Atoi(line)
		if err != nil {
			c.printf("%q is not a column number\n", line)
			continue
		}
		c.mu.Lock()
		h, ok := c.locals[c.turn]
		ply := c.ply
		c.mu.Unlock()
		if !ok {
			c.printf("not your turn\n")
			continue
		}
		h.Submit(ply, col-1)
	}
	for _, h := range c.locals {
		h.Disconnect()
	}
}
