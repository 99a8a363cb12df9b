// Package remote connects two machines for a game over a websocket carrying
// protocol frames. One side hosts, the other joins.
package remote

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net"
	"net/http"
	"sync"
	"time"

	"connectfour/internal/game"
	"connectfour/internal/protocol"

	"github.com/gorilla/websocket"
)

const (
	Path             = "/peer"
	handshakeTimeout = 10 * time.Second
	writeWait        = 5 * time.Second
)

var ErrNotBinary = errors.New("remote: expected a binary frame")

var upgrader = websocket.Upgrader{
	ReadBufferSize:  64,
	WriteBufferSize: 64,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// Conn carries moves to and from the peer. It implements game.MoveConn.
type Conn struct {
	ws        *websocket.Conn
	writeMu   sync.Mutex
	closeOnce sync.Once
}

var _ game.MoveConn = (*Conn)(nil)

func newConn(ws *websocket.Conn) *Conn {
	return &Conn{ws: ws}
}

// ReadMove blocks until the peer sends a move. Cancelling ctx closes the
// connection.
func (c *Conn) ReadMove(ctx context.Context) (int, error) {
	stop := context.AfterFunc(ctx, func() { _ = c.Close() })
	defer stop()

	data, err := c.readBinary()
	if err != nil {
		if ctx.Err() != nil {
			return game.NoRow, ctx.Err()
		}
		return game.NoRow, err
	}
	msg, err := protocol.DecodeNextMove(data)
	if err != nil {
		return game.NoRow, err
	}
	return msg.Column, nil
}

func (c *Conn) WriteMove(column int) error {
	data, err := protocol.NextMove{Column: column}.Encode()
	if err != nil {
		return err
	}
	return c.writeBinary(data)
}

func (c *Conn) Close() error {
	var err error
	c.closeOnce.Do(func() {
		c.writeMu.Lock()
		_ = c.ws.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
			time.Now().Add(writeWait))
		c.writeMu.Unlock()
		err = c.ws.Close()
	})
	return err
}

func (c *Conn) readBinary() ([]byte, error) {
	kind, data, err := c.ws.ReadMessage()
	if err != nil {
		return nil, err
	}
	if kind != websocket.BinaryMessage {
		return nil, ErrNotBinary
	}
	return data, nil
}

func (c *Conn) writeBinary(data []byte) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	_ = c.ws.SetWriteDeadline(time.Now().Add(writeWait))
	return c.ws.WriteMessage(websocket.BinaryMessage, data)
}

// Handshake is an established peer connection and the agreed game settings.
type Handshake struct {
	Conn        *Conn
	Rows        int
	Columns     int
	LocalStarts bool
}

// Accept upgrades r and runs the host side of the handshake: it reads the
// join request and answers with the host's board size.
func Accept(w http.ResponseWriter, r *http.Request, rows, columns int) (*Handshake, error) {
	ws, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		return nil, err
	}
	conn := newConn(ws)
	hs, err := acceptOn(conn, rows, columns)
	if err != nil {
		_ = conn.Close()
		return nil, err
	}
	return hs, nil
}

func acceptOn(conn *Conn, rows, columns int) (*Handshake, error) {
	_ = conn.ws.SetReadDeadline(time.Now().Add(handshakeTimeout))
	data, err := conn.readBinary()
	if err != nil {
		return nil, fmt.Errorf("read join request: %w", err)
	}
	req, err := protocol.DecodeJoinRequest(data)
	if err != nil {
		return nil, err
	}
	resp := protocol.NewJoinAccepted(rows, columns)
	out, err := resp.Encode()
	if err != nil {
		return nil, err
	}
	if err := conn.writeBinary(out); err != nil {
		return nil, fmt.Errorf("send join response: %w", err)
	}
	_ = conn.ws.SetReadDeadline(time.Time{})
	return &Handshake{
		Conn:        conn,
		Rows:        rows,
		Columns:     columns,
		LocalStarts: !protocol.JoinerStarts(req, resp),
	}, nil
}

// Dial connects to a host at url (ws://host:port/peer) and adopts its board
// size.
func Dial(ctx context.Context, url string) (*Handshake, error) {
	dialer := websocket.Dialer{HandshakeTimeout: handshakeTimeout}
	ws, _, err := dialer.DialContext(ctx, url, nil)
	if err != nil {
		return nil, err
	}
	conn := newConn(ws)

	req := protocol.NewJoinRequest()
	if err := conn.writeBinary(req.Encode()); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("send join request: %w", err)
	}
	_ = ws.SetReadDeadline(time.Now().Add(handshakeTimeout))
	data, err := conn.readBinary()
	if err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("read join response: %w", err)
	}
	resp, err := protocol.DecodeJoinAccepted(data)
	if err != nil {
		_ = conn.Close()
		return nil, err
	}
	_ = ws.SetReadDeadline(time.Time{})
	return &Handshake{
		Conn:        conn,
		Rows:        resp.Rows,
		Columns:     resp.Columns,
		LocalStarts: protocol.JoinerStarts(req, resp),
	}, nil
}

// Host listens on addr until one peer completes the handshake, then stops
// listening. The established connection outlives the listener. While it
// waits the game is announced on the local network.
func Host(ctx context.Context, addr string, rows, columns int) (*Handshake, error) {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, err
	}
	announceCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	go announceLAN(announceCtx, ln)
	return Serve(ctx, ln, rows, columns)
}

// Serve is Host on an existing listener.
func Serve(ctx context.Context, ln net.Listener, rows, columns int) (*Handshake, error) {
	joined := make(chan *Handshake, 1)
	mux := http.NewServeMux()
	mux.HandleFunc(Path, func(w http.ResponseWriter, r *http.Request) {
		hs, err := Accept(w, r, rows, columns)
		if err != nil {
			log.Printf("peer handshake failed: %v", err)
			return
		}
		select {
		case joined <- hs:
		default:
			// already paired
			_ = hs.Conn.Close()
		}
	})
	srv := &http.Server{Handler: mux}
	go func() {
		if err := srv.Serve(ln); err != nil && err != http.ErrServerClosed {
			log.Printf("peer listener: %v", err)
		}
	}()
	defer srv.Close()

	log.Printf("waiting for a peer on %s%s", ln.Addr(), Path)
	select {
	case hs := <-joined:
		return hs, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}
