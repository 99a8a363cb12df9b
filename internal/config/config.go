package config

import (
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Board size policy. The game core accepts any positive size; these bounds
// are what the front-ends offer.
const (
	DefaultRows    = 5
	DefaultColumns = 7
	MinRows        = 4
	MinColumns     = 6
	MaxRows        = 8
	MaxColumns     = 15
)

type Settings struct {
	Rows    int
	Columns int
}

func DefaultSettings() Settings {
	return Settings{Rows: DefaultRows, Columns: DefaultColumns}
}

// Clamp pulls both dimensions into the allowed bounds.
func (s Settings) Clamp() Settings {
	return Settings{
		Rows:    clamp(s.Rows, MinRows, MaxRows),
		Columns: clamp(s.Columns, MinColumns, MaxColumns),
	}
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

type Config struct {
	Addr        string
	Board       Settings
	BotDelay    time.Duration
	IdleTimeout time.Duration
	PostgresURL string
	RedisURL    string
	RedisPass   string
	SnapshotTTL time.Duration
	KafkaBroker []string
	KafkaTopic  string
}

// LoadDotEnv reads .env from the working directory or its parent if present.
func LoadDotEnv() {
	if err := godotenv.Load(); err != nil {
		if err := godotenv.Load("../.env"); err != nil {
			log.Println("No .env file found")
		}
	}
}

func Load() *Config {
	// Check for PORT first (used by Render, Fly.io, Heroku, etc.)
	addr := GetEnv("ADDR", ":8080")
	if port := os.Getenv("PORT"); port != "" {
		addr = ":" + port
	}

	var brokers []string
	for _, b := range strings.Split(GetEnv("KAFKA_BROKERS", ""), ",") {
		if trimmed := strings.TrimSpace(b); trimmed != "" {
			brokers = append(brokers, trimmed)
		}
	}

	return &Config{
		Addr: addr,
		Board: Settings{
			Rows:    GetEnvAsInt("BOARD_ROWS", DefaultRows),
			Columns: GetEnvAsInt("BOARD_COLUMNS", DefaultColumns),
		}.Clamp(),
		BotDelay:    GetEnvAsDuration("BOT_DELAY", 10*time.Second),
		IdleTimeout: GetEnvAsDuration("IDLE_TIMEOUT", 5*time.Minute),
		PostgresURL: GetEnv("POSTGRES_URL", ""),
		RedisURL:    GetEnv("REDIS_URL", ""),
		RedisPass:   GetEnv("REDIS_PASSWORD", ""),
		SnapshotTTL: GetEnvAsDuration("SNAPSHOT_TTL", time.Hour),
		KafkaBroker: brokers,
		KafkaTopic:  GetEnv("KAFKA_TOPIC", "game-events"),
	}
}

func GetEnv(key, defaultValue string) string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value
}

func GetEnvAsInt(key string, defaultValue int) int {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.Atoi(valueStr)
	if err != nil {
		log.Printf("Invalid integer value for %s: %s, using default: %d", key, valueStr, defaultValue)
		return defaultValue
	}
	return value
}

// GetEnvAsDuration accepts Go durations ("90s") or plain seconds ("90").
func GetEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	if secs, err := strconv.Atoi(valueStr); err == nil {
		return time.Duration(secs) * time.Second
	}
	d, err := time.ParseDuration(valueStr)
	if err != nil {
		log.Printf("Invalid duration value for %s: %s, using default: %s", key, valueStr, defaultValue)
		return defaultValue
	}
	return d
}
