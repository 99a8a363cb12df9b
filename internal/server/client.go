package server

import (
	"encoding/json"
	"log"
	"net/http"
	"sync"
	"time"

	"connectfour/internal/game"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
)

const writeWait = 5 * time.Second

type wsClient struct {
	username string
	conn     *websocket.Conn
	send     chan []byte
	done     chan struct{}
	once     sync.Once
	server   *Server
}

type clientMessage struct {
	Type   string `json:"type"`
	Column *int   `json:"column"`
}

func (s *Server) handleWS(c *gin.Context) {
	username := c.Query("username")
	if username == "" || username == game.BotName {
		c.JSON(http.StatusBadRequest, gin.H{"error": "username required"})
		return
	}

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		return
	}
	client := &wsClient{
		username: username,
		conn:     conn,
		send:     make(chan []byte, 16),
		done:     make(chan struct{}),
		server:   s,
	}
	s.register(client)

	go client.writePump()
	go client.readPump()
}

func (s *Server) register(c *wsClient) {
	s.connMu.Lock()
	if old, ok := s.connections[c.username]; ok {
		old.close()
	}
	s.connections[c.username] = c
	s.connMu.Unlock()
}

// unregister drops c. The player leaves its game only if no newer socket
// took over the username.
func (s *Server) unregister(c *wsClient) {
	s.connMu.Lock()
	current := s.connections[c.username] == c
	if current {
		delete(s.connections, c.username)
	}
	s.connMu.Unlock()
	c.close()
	if current {
		s.manager.Abandon(c.username)
	}
}

func (c *wsClient) close() {
	c.once.Do(func() {
		close(c.done)
		c.conn.Close()
	})
}

func (c *wsClient) writePump() {
	for {
		select {
		case <-c.done:
			return
		case msg := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				c.close()
				return
			}
		}
	}
}

func (c *wsClient) readPump() {
	defer c.server.unregister(c)
	s := c.server

	// Rejoin existing game if present; new games send init from OnStart.
	if g, ok := s.manager.GetGameByUser(c.username); ok {
		s.pushInit(g, c.username)
	} else if _, _, waiting := s.manager.AssignPlayer(c.username); waiting {
		c.sendJSON(map[string]any{"type": "waiting", "message": "waiting for opponent"})
		time.AfterFunc(s.botDelay, func() {
			// Only trigger if still unpaired
			if g, _, ok := s.manager.FallbackToBot(c.username); ok {
				log.Printf("no opponent for %s after %s, game %s against %s", c.username, s.botDelay, g.ID, game.BotName)
			}
		})
	}

	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			return
		}
		var msg clientMessage
		if err := json.Unmarshal(data, &msg); err != nil {
			c.sendJSON(map[string]any{"type": "error", "message": "malformed message"})
			continue
		}
		if msg.Type != "move" || msg.Column == nil {
			continue
		}
		if problem := s.submitMove(c.username, *msg.Column); problem != "" {
			c.sendJSON(map[string]any{"type": "error", "message": problem})
		}
	}
}

// submitMove hands column to the player's session. It returns a message for
// the client when the move cannot be queued.
func (s *Server) submitMove(username string, column int) string {
	g, ok := s.manager.GetGameByUser(username)
	if !ok {
		return "no active game"
	}
	player := g.Players[username]
	if player == nil || player.Human == nil {
		return "no active game"
	}
	turn, ply, ok := s.manager.Turn(g.ID)
	if !ok || turn != player.Slot {
		return "not your turn"
	}
	if !player.Human.Submit(ply, column) {
		return "move not accepted"
	}
	return ""
}

func (c *wsClient) sendJSON(v any) {
	data := encode(v)
	if data == nil {
		return
	}
	select {
	case <-c.done:
	case c.send <- data:
	default:
	}
}
