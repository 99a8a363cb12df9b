// Package protocol defines the byte frames two peers exchange to set up and
// play a game: a join request, the host's answer carrying the board size,
// and one frame per move. Hosts also broadcast an announce frame so peers on
// the same network can find them.
package protocol

import (
	"errors"
	"fmt"
	"math/rand"
)

type MessageType byte

const (
	TypeJoinRequest  MessageType = 1
	TypeJoinAccepted MessageType = 2
	TypeNextMove     MessageType = 3
	TypeAnnounce     MessageType = 4
)

var (
	ErrShortMessage      = errors.New("protocol: short message")
	ErrUnexpectedMessage = errors.New("protocol: unexpected message type")
	ErrOutOfRange        = errors.New("protocol: value does not fit in a byte")
)

// JoinRequest opens a session. Nonce decides who moves first.
type JoinRequest struct {
	Nonce byte
}

// JoinAccepted answers a JoinRequest with the host's nonce and board size.
type JoinAccepted struct {
	Nonce   byte
	Rows    int
	Columns int
}

type NextMove struct {
	Column int
}

// Announce advertises an open game on the local network. Port is the TCP
// port the host accepts peers on; the address is taken from the datagram.
type Announce struct {
	Port int
}

// NewJoinRequest returns a request with a random nonce.
func NewJoinRequest() JoinRequest {
	return JoinRequest{Nonce: byte(rand.Intn(256))}
}

func NewJoinAccepted(rows, columns int) JoinAccepted {
	return JoinAccepted{Nonce: byte(rand.Intn(256)), Rows: rows, Columns: columns}
}

// JoinerStarts reports whether the joining peer makes the first move. Equal
// nonces favour the host.
func JoinerStarts(req JoinRequest, resp JoinAccepted) bool {
	return req.Nonce > resp.Nonce
}

func (m JoinRequest) Encode() []byte {
	return []byte{byte(TypeJoinRequest), m.Nonce}
}

func (m JoinAccepted) Encode() ([]byte, error) {
	if !fitsByte(m.Rows) || !fitsByte(m.Columns) {
		return nil, fmt.Errorf("%w: %dx%d", ErrOutOfRange, m.Rows, m.Columns)
	}
	return []byte{byte(TypeJoinAccepted), m.Nonce, byte(m.Rows), byte(m.Columns)}, nil
}

func (m NextMove) Encode() ([]byte, error) {
	if !fitsByte(m.Column) {
		return nil, fmt.Errorf("%w: column %d", ErrOutOfRange, m.Column)
	}
	return []byte{byte(TypeNextMove), byte(m.Column)}, nil
}

func (m Announce) Encode() ([]byte, error) {
	if m.Port <= 0 || m.Port > 0xffff {
		return nil, fmt.Errorf("%w: port %d", ErrOutOfRange, m.Port)
	}
	return []byte{byte(TypeAnnounce), byte(m.Port >> 8), byte(m.Port)}, nil
}

func DecodeJoinRequest(data []byte) (JoinRequest, error) {
	if err := expect(data, TypeJoinRequest, 2); err != nil {
		return JoinRequest{}, err
	}
	return JoinRequest{Nonce: data[1]}, nil
}

func DecodeJoinAccepted(data []byte) (JoinAccepted, error) {
	if err := expect(data, TypeJoinAccepted, 4); err != nil {
		return JoinAccepted{}, err
	}
	return JoinAccepted{Nonce: data[1], Rows: int(data[2]), Columns: int(data[3])}, nil
}

func DecodeNextMove(data []byte) (NextMove, error) {
	if err := expect(data, TypeNextMove, 2); err != nil {
		return NextMove{}, err
	}
	return NextMove{Column: int(data[1])}, nil
}

func DecodeAnnounce(data []byte) (Announce, error) {
	if err := expect(data, TypeAnnounce, 3); err != nil {
		return Announce{}, err
	}
	return Announce{Port: int(data[1])<<8 | int(data[2])}, nil
}

func expect(data []byte, t MessageType, size int) error {
	if len(data) == 0 {
		return ErrShortMessage
	}
	if MessageType(data[0]) != t {
		return fmt.Errorf("%w: got %d, want %d", ErrUnexpectedMessage, data[0], t)
	}
	if len(data) < size {
		return fmt.Errorf("%w: %d bytes, want %d", ErrShortMessage, len(data), size)
	}
	return nil
}

func fitsByte(v int) bool {
	return v >= 0 && v <= 255
}
