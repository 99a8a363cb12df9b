package remote

import (
	"context"
	"fmt"
	"log"
	"net"
	"strconv"
	"time"

	"connectfour/internal/protocol"
)

const (
	DiscoveryPort = 4321
	announceEvery = time.Second
)

var broadcastAddr = &net.UDPAddr{IP: net.IPv4bcast, Port: DiscoveryPort}

// Announce sends an announce frame for port to to once a second until ctx
// is done.
func Announce(ctx context.Context, pc net.PacketConn, to net.Addr, port int) error {
	frame, err := protocol.Announce{Port: port}.Encode()
	if err != nil {
		return err
	}
	ticker := time.NewTicker(announceEvery)
	defer ticker.Stop()
	for {
		if _, err := pc.WriteTo(frame, to); err != nil {
			return fmt.Errorf("announce: %w", err)
		}
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}
	}
}

// Discover waits on pc for the first announce frame and returns the host
// address it points at. Other datagrams are ignored.
func Discover(ctx context.Context, pc net.PacketConn) (string, error) {
	stop := context.AfterFunc(ctx, func() { _ = pc.SetReadDeadline(time.Now()) })
	defer stop()

	buf := make([]byte, 16)
	for {
		n, from, err := pc.ReadFrom(buf)
		if err != nil {
			if ctx.Err() != nil {
				return "", ctx.Err()
			}
			return "", fmt.Errorf("discover: %w", err)
		}
		msg, err := protocol.DecodeAnnounce(buf[:n])
		if err != nil {
			continue
		}
		udp, ok := from.(*net.UDPAddr)
		if !ok {
			continue
		}
		return net.JoinHostPort(udp.IP.String(), strconv.Itoa(msg.Port)), nil
	}
}

// DiscoverLAN listens for a host broadcasting on the local network.
func DiscoverLAN(ctx context.Context) (string, error) {
	pc, err := net.ListenPacket("udp4", ":"+strconv.Itoa(DiscoveryPort))
	if err != nil {
		return "", err
	}
	defer pc.Close()
	log.Printf("looking for a game on udp port %d", DiscoveryPort)
	return Discover(ctx, pc)
}

// announceLAN broadcasts the listener's port until ctx is done. Failures are
// logged only; peers can still join by address.
func announceLAN(ctx context.Context, ln net.Listener) {
	tcp, ok := ln.Addr().(*net.TCPAddr)
	if !ok {
		return
	}
	pc, err := net.ListenPacket("udp4", ":0")
	if err != nil {
		log.Printf("lan announce disabled: %v", err)
		return
	}
	defer pc.Close()
	if err := Announce(ctx, pc, broadcastAddr, tcp.Port); err != nil {
		log.Printf("lan announce stopped: %v", err)
	}
}
