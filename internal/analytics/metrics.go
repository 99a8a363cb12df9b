package analytics

import (
	"log"
	"sort"
	"sync"
)

// Metrics aggregates the event stream.
type Metrics struct {
	mu            sync.Mutex
	winnerCounts  map[string]int
	userGames     map[string]int
	ruleCounts    map[string]int
	gamesPerDay   map[string]int
	gameDurations []float64
	totalGames    int
	draws         int
	cancellations int
	moves         int
}

type Summary struct {
	TotalGames      int
	Draws           int
	Cancellations   int
	Moves           int
	AverageDuration float64
	Winners         map[string]int
	UserGames       map[string]int
	Rules           map[string]int
	GamesPerDay     map[string]int
}

func NewMetrics() *Metrics {
	return &Metrics{
		winnerCounts: make(map[string]int),
		userGames:    make(map[string]int),
		ruleCounts:   make(map[string]int),
		gamesPerDay:  make(map[string]int),
	}
}

// Record folds one event into the totals. Unknown events are ignored.
func (m *Metrics) Record(e Event) {
	m.mu.Lock()
	defer m.mu.Unlock()

	switch e.Event {
	case EventMovePlayed:
		m.moves++
		if rule, ok := e.Payload["rule"].(string); ok && rule != "" {
			m.ruleCounts[rule]++
		}
	case EventGameFinished:
		m.totalGames++
		switch e.Payload["state"] {
		case "drawn":
			m.draws++
		case "cancelled":
			m.cancellations++
		}
		if winner, ok := e.Payload["winner"].(string); ok && winner != "" {
			m.winnerCounts[winner]++
		}
		if duration, ok := e.Payload["duration"].(float64); ok {
			m.gameDurations = append(m.gameDurations, duration)
		}
		m.gamesPerDay[e.Timestamp.Format("2006-01-02")]++
		if players, ok := e.Payload["players"].([]any); ok {
			for _, p := range players {
				if username, ok := p.(string); ok {
					m.userGames[username]++
				}
			}
		}
	}
}

func (m *Metrics) Summary() Summary {
	m.mu.Lock()
	defer m.mu.Unlock()

	s := Summary{
		TotalGames:    m.totalGames,
		Draws:         m.draws,
		Cancellations: m.cancellations,
		Moves:         m.moves,
		Winners:       copyCounts(m.winnerCounts),
		UserGames:     copyCounts(m.userGames),
		Rules:         copyCounts(m.ruleCounts),
		GamesPerDay:   copyCounts(m.gamesPerDay),
	}
	if len(m.gameDurations) > 0 {
		sum := 0.0
		for _, d := range m.gameDurations {
			sum += d
		}
		s.AverageDuration = sum / float64(len(m.gameDurations))
	}
	return s
}

func copyCounts(in map[string]int) map[string]int {
	out := make(map[string]int, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}

// TopWinners returns up to n winner names, most wins first.
func (s Summary) TopWinners(n int) []string {
	names := make([]string, 0, len(s.Winners))
	for name := range s.Winners {
		names = append(names, name)
	}
	sort.Slice(names, func(i, j int) bool {
		if s.Winners[names[i]] != s.Winners[names[j]] {
			return s.Winners[names[i]] > s.Winners[names[j]]
		}
		return names[i] < names[j]
	})
	if len(names) > n {
		names = names[:n]
	}
	return names
}

func (m *Metrics) PrintStats() {
	s := m.Summary()
	log.Printf("=== ANALYTICS SUMMARY ===")
	log.Printf("Total Games: %d (draws %d, cancelled %d)", s.TotalGames, s.Draws, s.Cancellations)
	log.Printf("Moves Played: %d", s.Moves)
	log.Printf("Average Game Duration: %.2f seconds", s.AverageDuration)
	log.Printf("Top Winners: %v", s.TopWinners(5))
	log.Printf("Evaluator Rules: %v", s.Rules)
	log.Printf("Games Per Day: %v", s.GamesPerDay)
	log.Printf("User Game Counts: %v", s.UserGames)
	log.Printf("========================")
}
