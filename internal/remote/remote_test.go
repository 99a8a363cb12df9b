package remote

import (
	"context"
	"errors"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"connectfour/internal/game"
)

func peerPair(t *testing.T, rows, columns int) (host, joiner *Handshake) {
	t.Helper()
	hosted := make(chan *Handshake, 1)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hs, err := Accept(w, r, rows, columns)
		if err != nil {
			t.Errorf("accept: %v", err)
			hosted <- nil
			return
		}
		hosted <- hs
	}))
	t.Cleanup(srv.Close)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	joiner, err := Dial(ctx, "ws"+strings.TrimPrefix(srv.URL, "http")+Path)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	host = <-hosted
	if host == nil {
		t.Fatal("host handshake failed")
	}
	t.Cleanup(func() {
		_ = host.Conn.Close()
		_ = joiner.Conn.Close()
	})
	return host, joiner
}

func TestHandshakeAgreesOnSettings(t *testing.T) {
	host, joiner := peerPair(t, 5, 9)

	if joiner.Rows != 5 || joiner.Columns != 9 {
		t.Fatalf("joiner adopted %dx%d, want 5x9", joiner.Rows, joiner.Columns)
	}
	if host.LocalStarts == joiner.LocalStarts {
		t.Fatalf("exactly one side must start: host=%v joiner=%v", host.LocalStarts, joiner.LocalStarts)
	}
}

func TestMovesTravelBothWays(t *testing.T) {
	host, joiner := peerPair(t, 6, 7)
	ctx := context.Background()

	if err := host.Conn.WriteMove(3); err != nil {
		t.Fatalf("host write: %v", err)
	}
	col, err := joiner.Conn.ReadMove(ctx)
	if err != nil || col != 3 {
		t.Fatalf("joiner read %d, %v", col, err)
	}

	if err := joiner.Conn.WriteMove(6); err != nil {
		t.Fatalf("joiner write: %v", err)
	}
	col, err = host.Conn.ReadMove(ctx)
	if err != nil || col != 6 {
		t.Fatalf("host read %d, %v", col, err)
	}
}

func TestRemotePlayerGoesOfflineWhenPeerLeaves(t *testing.T) {
	host, joiner := peerPair(t, 6, 7)
	peer := game.NewRemotePlayer(game.Owner2, "peer", host.Conn)
	peer.SetActive(true, false)

	_ = joiner.Conn.Close()

	board, _ := game.NewBoard(6, 7)
	if _, err := peer.NextMove(context.Background(), board); !errors.Is(err, game.ErrNotPlaying) {
		t.Fatalf("expected ErrNotPlaying, got %v", err)
	}
	if peer.Online() {
		t.Fatal("peer should be offline")
	}
}

func TestReadMoveHonoursCancellation(t *testing.T) {
	host, _ := peerPair(t, 6, 7)
	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	if _, err := host.Conn.ReadMove(ctx); !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected deadline exceeded, got %v", err)
	}
}

func TestServeStopsListeningAfterFirstPeer(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	hosted := make(chan *Handshake, 1)
	go func() {
		hs, err := Serve(ctx, ln, 4, 6)
		if err != nil {
			t.Errorf("serve: %v", err)
		}
		hosted <- hs
	}()

	joiner, err := Dial(ctx, "ws://"+ln.Addr().String()+Path)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer joiner.Conn.Close()
	host := <-hosted
	if host == nil {
		t.Fatal("no handshake")
	}
	defer host.Conn.Close()

	if joiner.Rows != 4 || joiner.Columns != 6 {
		t.Fatalf("joiner adopted %dx%d", joiner.Rows, joiner.Columns)
	}
	if _, err := Dial(ctx, "ws://"+ln.Addr().String()+Path); err == nil {
		t.Fatal("second peer should be refused once the listener closed")
	}
}
