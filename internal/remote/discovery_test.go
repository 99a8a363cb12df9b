package remote

import (
	"context"
	"errors"
	"net"
	"strconv"
	"testing"
	"time"
)

func listenUDP(t *testing.T) net.PacketConn {
	t.Helper()
	pc, err := net.ListenPacket("udp4", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen udp: %v", err)
	}
	t.Cleanup(func() { pc.Close() })
	return pc
}

func TestDiscoverFindsAnnouncedHost(t *testing.T) {
	joiner := listenUDP(t)
	host := listenUDP(t)

	// noise on the port must not end the search
	if _, err := host.WriteTo([]byte{10, 20}, joiner.LocalAddr()); err != nil {
		t.Fatalf("write: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	go Announce(ctx, host, joiner.LocalAddr(), 5555)

	addr, err := Discover(ctx, joiner)
	if err != nil {
		t.Fatalf("discover: %v", err)
	}
	if addr != net.JoinHostPort("127.0.0.1", strconv.Itoa(5555)) {
		t.Fatalf("unexpected host address %q", addr)
	}
}

func TestDiscoverGivesUpWithTheContext(t *testing.T) {
	joiner := listenUDP(t)
	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	if _, err := Discover(ctx, joiner); !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected deadline exceeded, got %v", err)
	}
}
