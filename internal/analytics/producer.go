package analytics

import (
	"context"
	"encoding/json"
	"log"
	"time"

	"github.com/segmentio/kafka-go"
)

const (
	EventMovePlayed   = "move_played"
	EventGameFinished = "game_finished"
)

// Event is the envelope written to the topic.
type Event struct {
	Event     string         `json:"event"`
	Payload   map[string]any `json:"payload"`
	Timestamp time.Time      `json:"timestamp"`
}

// Producer publishes game events. A nil Producer drops everything.
type Producer struct {
	writer *kafka.Writer
}

func NewProducer(brokers []string, topic string) *Producer {
	if len(brokers) == 0 || topic == "" {
		return nil
	}
	writer := &kafka.Writer{
		Addr:                   kafka.TCP(brokers...),
		Topic:                  topic,
		Balancer:               &kafka.Hash{},
		AllowAutoTopicCreation: true,
	}
	return &Producer{writer: writer}
}

// Publish writes one event keyed by gameID so a game's events stay ordered
// within a partition.
func (p *Producer) Publish(ctx context.Context, gameID, event string, payload map[string]any) {
	if p == nil || p.writer == nil {
		return
	}
	data, err := json.Marshal(Event{Event: event, Payload: payload, Timestamp: time.Now().UTC()})
	if err != nil {
		log.Printf("[KAFKA] encode %s failed: %v", event, err)
		return
	}
	if err := p.writer.WriteMessages(ctx, kafka.Message{Key: []byte(gameID), Value: data}); err != nil {
		log.Printf("[KAFKA] publish %s failed: %v", event, err)
	}
}

func (p *Producer) Close() {
	if p == nil || p.writer == nil {
		return
	}
	_ = p.writer.Close()
}
