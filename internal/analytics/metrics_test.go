package analytics

import (
	"context"
	"encoding/json"
	"testing"
	"time"
)

func decode(t *testing.T, raw string) Event {
	t.Helper()
	var e Event
	if err := json.Unmarshal([]byte(raw), &e); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	return e
}

func TestMetricsAggregatesEvents(t *testing.T) {
	m := NewMetrics()
	events := []string{
		`{"event":"move_played","payload":{"gameId":"g1","column":3,"rule":"center"},"timestamp":"2026-01-02T10:00:00Z"}`,
		`{"event":"move_played","payload":{"gameId":"g1","column":2,"rule":"block"},"timestamp":"2026-01-02T10:00:01Z"}`,
		`{"event":"move_played","payload":{"gameId":"g1","column":4},"timestamp":"2026-01-02T10:00:02Z"}`,
		`{"event":"game_finished","payload":{"gameId":"g1","state":"won","winner":"alice","players":["alice","bot"],"duration":30},"timestamp":"2026-01-02T10:00:30Z"}`,
		`{"event":"game_finished","payload":{"gameId":"g2","state":"drawn","players":["alice","bob"],"duration":50},"timestamp":"2026-01-02T11:00:00Z"}`,
		`{"event":"game_finished","payload":{"gameId":"g3","state":"cancelled","players":["bob","carol"]},"timestamp":"2026-01-03T09:00:00Z"}`,
		`{"event":"something_else","payload":{},"timestamp":"2026-01-03T09:00:00Z"}`,
	}
	for _, raw := range events {
		m.Record(decode(t, raw))
	}

	s := m.Summary()
	if s.TotalGames != 3 || s.Draws != 1 || s.Cancellations != 1 {
		t.Fatalf("unexpected totals %+v", s)
	}
	if s.Moves != 3 {
		t.Fatalf("expected 3 moves, got %d", s.Moves)
	}
	if s.AverageDuration != 40 {
		t.Fatalf("expected mean duration 40, got %v", s.AverageDuration)
	}
	if s.Rules["center"] != 1 || s.Rules["block"] != 1 || len(s.Rules) != 2 {
		t.Fatalf("unexpected rule counts %v", s.Rules)
	}
	if s.UserGames["alice"] != 2 || s.UserGames["bob"] != 2 || s.UserGames["carol"] != 1 {
		t.Fatalf("unexpected user counts %v", s.UserGames)
	}
	if s.GamesPerDay["2026-01-02"] != 2 || s.GamesPerDay["2026-01-03"] != 1 {
		t.Fatalf("unexpected daily counts %v", s.GamesPerDay)
	}
	if top := s.TopWinners(3); len(top) != 1 || top[0] != "alice" {
		t.Fatalf("unexpected winners %v", top)
	}
}

func TestSummaryIsACopy(t *testing.T) {
	m := NewMetrics()
	m.Record(Event{Event: EventGameFinished, Payload: map[string]any{"winner": "a"}, Timestamp: time.Now()})
	s := m.Summary()
	s.Winners["a"] = 100
	if m.Summary().Winners["a"] != 1 {
		t.Fatal("summary shares state with the aggregator")
	}
}

func TestNilProducerIsSilent(t *testing.T) {
	var p *Producer
	p.Publish(context.Background(), "g", EventMovePlayed, nil)
	p.Close()
	if NewProducer(nil, "topic") != nil {
		t.Fatal("producer without brokers should be nil")
	}
}
