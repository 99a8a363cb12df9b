package server

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"sync"
	"time"

	"connectfour/internal/analytics"
	"connectfour/internal/game"
	"connectfour/internal/storage"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
)

type Server struct {
	router      *gin.Engine
	manager     *game.Manager
	store       storage.Store
	memory      *storage.MemoryStore
	cache       *storage.SnapshotCache
	analytics   *analytics.Producer
	connections map[string]*wsClient
	connMu      sync.RWMutex
	botDelay    time.Duration
	idleTimeout time.Duration
}

type Config struct {
	Rows             int
	Columns          int
	BotFallbackAfter time.Duration
	IdleTimeout      time.Duration
	Store            storage.Store
	Cache            *storage.SnapshotCache
	Analytics        *analytics.Producer
}

func New(cfg Config) *Server {
	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Logger(), gin.Recovery())
	s := &Server{
		router:      router,
		store:       cfg.Store,
		memory:      storage.NewMemoryStore(game.BotName),
		cache:       cfg.Cache,
		analytics:   cfg.Analytics,
		connections: make(map[string]*wsClient),
		botDelay:    cfg.BotFallbackAfter,
		idleTimeout: cfg.IdleTimeout,
	}
	s.manager = game.NewManager(cfg.Rows, cfg.Columns, cfg.IdleTimeout, game.Hooks{
		OnStart:    s.onStart,
		OnMove:     s.onMove,
		OnFinish:   s.onFinish,
		OnRejected: s.onRejected,
	})

	router.GET("/health", func(c *gin.Context) { c.JSON(http.StatusOK, gin.H{"status": "ok"}) })
	router.GET("/leaderboard", s.handleLeaderboard)
	router.GET("/ws", s.handleWS)

	api := router.Group("/api")
	api.POST("/suggest", s.handleSuggest)
	api.GET("/games", s.handleLiveGames)
	api.GET("/games/:id", s.handleGame)

	return s
}

func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) Manager() *game.Manager {
	return s.manager
}

// Run serves addr until ctx is cancelled.
func (s *Server) Run(ctx context.Context, addr string) error {
	go s.sweeper(ctx)

	srv := &http.Server{Addr: addr, Handler: s.router}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *Server) sweeper(ctx context.Context) {
	if s.idleTimeout <= 0 {
		return
	}
	ticker := time.NewTicker(5 * time.Second)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			s.manager.SweepIdle(now)
		}
	}
}

func (s *Server) handleLeaderboard(c *gin.Context) {
	ctx := c.Request.Context()
	if s.store != nil {
		rows, err := s.store.GetLeaderboard(ctx, 10)
		if err == nil {
			c.JSON(http.StatusOK, rows)
			return
		}
		log.Printf("leaderboard db error: %v", err)
	}
	// fallback in-memory
	rows, _ := s.memory.GetLeaderboard(ctx, 10)
	c.JSON(http.StatusOK, rows)
}

type suggestRequest struct {
	Board    [][]game.Owner `json:"board" binding:"required"`
	Self     game.Owner     `json:"self"`
	Opponent game.Owner     `json:"opponent"`
}

func (s *Server) handleSuggest(c *gin.Context) {
	var req suggestRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if req.Self == game.NoOwner && req.Opponent == game.NoOwner {
		req.Self, req.Opponent = game.Owner1, game.Owner2
	}
	if !validOwner(req.Self) || !validOwner(req.Opponent) || req.Self == req.Opponent {
		c.JSON(http.StatusBadRequest, gin.H{"error": "self and opponent must be 1 and 2"})
		return
	}
	board, err := game.BoardFromRows(req.Board)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	d, err := game.NewEvaluator(req.Self, req.Opponent).Decide(board)
	if errors.Is(err, game.ErrNoMove) {
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
		return
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"column": d.Column, "rule": d.Rule.String()})
}

func validOwner(o game.Owner) bool {
	return o == game.Owner1 || o == game.Owner2
}

func (s *Server) handleLiveGames(c *gin.Context) {
	c.JSON(http.StatusOK, s.manager.Live())
}

func (s *Server) handleGame(c *gin.Context) {
	ctx := c.Request.Context()
	id := c.Param("id")
	if view, ok, err := s.cache.Get(ctx, id); err != nil {
		log.Printf("[REDIS] snapshot %s: %v", id, err)
	} else if ok {
		c.JSON(http.StatusOK, view)
		return
	}
	view, ok := s.manager.View(id)
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "game not found"})
		return
	}
	s.cacheView(ctx, view)
	c.JSON(http.StatusOK, view)
}

func (s *Server) cacheView(ctx context.Context, view game.GameView) {
	if err := s.cache.Set(ctx, view); err != nil {
		log.Printf("[REDIS] cache snapshot %s: %v", view.ID, err)
	}
}

func (s *Server) onStart(g *game.GameState) {
	for name, p := range g.Players {
		if !p.IsBot {
			s.pushInit(g, name)
		}
	}
	if view, ok := s.manager.View(g.ID); ok {
		s.cacheView(context.Background(), view)
	}
}

func (s *Server) onMove(g *game.GameState, snapshot *game.Board, move game.Move) {
	view, _ := s.manager.View(g.ID)
	payload := map[string]any{
		"type":   "state",
		"gameId": g.ID,
		"board":  snapshot.Grid(),
		"turn":   view.Turn,
		"move":   move,
		"status": view.Status,
	}
	s.broadcast(g, payload)
	s.cacheView(context.Background(), view)

	event := map[string]any{
		"gameId": g.ID,
		"player": usernameFor(g, move.Owner),
		"column": move.Column,
		"row":    move.Row,
	}
	if g.Bot != nil && g.Players[game.BotName].Slot == move.Owner {
		event["rule"] = g.Bot.LastDecision().Rule.String()
	}
	s.analytics.Publish(context.Background(), g.ID, analytics.EventMovePlayed, event)
}

func (s *Server) onRejected(g *game.GameState, username string, column int) {
	s.sendToUser(username, map[string]any{"type": "error", "message": "column cannot take a piece", "column": column})
}

func (s *Server) onFinish(g *game.GameState) {
	ctx := context.Background()
	view, _ := s.manager.View(g.ID)
	players := make([]string, 0, len(g.Players))
	for name := range g.Players {
		players = append(players, name)
	}
	if g.Outcome.State == game.Won || g.Outcome.State == game.Drawn {
		result := storage.CompletedGame{
			ID:        g.ID,
			Players:   players,
			Winner:    g.Winner,
			Result:    storage.ResultWon,
			StartedAt: g.StartedAt,
			EndedAt:   g.EndedAt,
		}
		if g.Outcome.State == game.Drawn {
			result.Result = storage.ResultDrawn
		}
		_ = s.memory.SaveGame(ctx, result)
		if s.store != nil {
			if err := s.store.SaveGame(ctx, result); err != nil {
				log.Printf("failed to save game %s: %v", g.ID, err)
			}
		}
	}

	s.cacheView(ctx, view)
	s.broadcast(g, map[string]any{
		"type":    "finished",
		"gameId":  g.ID,
		"board":   view.Board,
		"state":   g.Outcome.State.String(),
		"winner":  g.Winner,
		"reason":  g.Outcome.Reason,
		"winning": g.Outcome.Winning.Cells,
		"moves":   g.Outcome.Moves,
	})

	s.analytics.Publish(ctx, g.ID, analytics.EventGameFinished, map[string]any{
		"gameId":    g.ID,
		"state":     g.Outcome.State.String(),
		"winner":    g.Winner,
		"reason":    g.Outcome.Reason,
		"players":   players,
		"moves":     g.Outcome.Moves,
		"duration":  g.EndedAt.Sub(g.StartedAt).Seconds(),
		"startedAt": g.StartedAt,
		"endedAt":   g.EndedAt,
	})
}

func usernameFor(g *game.GameState, slot game.Owner) string {
	for name, p := range g.Players {
		if p.Slot == slot {
			return name
		}
	}
	return ""
}

func (s *Server) pushInit(g *game.GameState, username string) {
	view, ok := s.manager.View(g.ID)
	if !ok {
		return
	}
	s.sendToUser(username, map[string]any{
		"type":      "init",
		"gameId":    g.ID,
		"rows":      view.Rows,
		"columns":   view.Columns,
		"board":     view.Board,
		"turn":      view.Turn,
		"you":       username,
		"slot":      view.Players[username],
		"opponent":  g.Opponent(username),
		"status":    view.Status,
		"timestamp": time.Now().UTC(),
	})
}

func (s *Server) broadcast(g *game.GameState, payload map[string]any) {
	for name, p := range g.Players {
		if !p.IsBot {
			s.sendToUser(name, payload)
		}
	}
}

func (s *Server) sendToUser(username string, payload map[string]any) {
	s.connMu.RLock()
	client, ok := s.connections[username]
	s.connMu.RUnlock()
	if !ok {
		return
	}
	client.sendJSON(payload)
}

func encode(v any) []byte {
	data, err := json.Marshal(v)
	if err != nil {
		log.Printf("encode message: %v", err)
		return nil
	}
	return data
}

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}
