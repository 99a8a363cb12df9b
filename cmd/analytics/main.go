package main

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"connectfour/internal/analytics"
	"connectfour/internal/config"

	"github.com/segmentio/kafka-go"
)

func main() {
	config.LoadDotEnv()
	cfg := config.Load()
	brokers := cfg.KafkaBroker
	if len(brokers) == 0 {
		brokers = []string{"localhost:9092"}
	}

	reader := kafka.NewReader(kafka.ReaderConfig{
		Brokers: brokers,
		Topic:   cfg.KafkaTopic,
		GroupID: config.GetEnv("KAFKA_GROUP", "analytics-consumer"),
	})
	defer reader.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	log.Printf("analytics consumer listening on %v topic=%s", brokers, cfg.KafkaTopic)

	metrics := analytics.NewMetrics()
	start := time.Now()

	// Print stats every 30 seconds
	go func() {
		ticker := time.NewTicker(30 * time.Second)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				metrics.PrintStats()
			}
		}
	}()

	for {
		msg, err := reader.ReadMessage(ctx)
		if err != nil {
			if errors.Is(err, context.Canceled) {
				break
			}
			log.Fatalf("read error: %v", err)
		}
		var e analytics.Event
		if err := json.Unmarshal(msg.Value, &e); err != nil {
			log.Printf("failed to unmarshal event: %v", err)
			continue
		}
		metrics.Record(e)
		log.Printf("event=%s gameId=%v", e.Event, e.Payload["gameId"])
	}

	metrics.PrintStats()
	log.Printf("analytics consumer stopped after %s", time.Since(start).Round(time.Second))
}
