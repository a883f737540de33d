package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const (
	StoreMemory   = "memory"
	StoreMongo    = "mongo"
	StoreHolidaze = "holidaze"
)

// Config aggregates application configuration values loaded from environment variables.
type Config struct {
	Env                string
	Debug              bool
	HTTPAddr           string
	StoreMode          string
	MongoURI           string
	MongoDB            string
	RedisAddr          string
	RedisPassword      string
	RedisDB            int
	KafkaBrokers       []string
	KafkaTopicPrefix   string
	KafkaGroupID       string
	IdempotencyTTL     time.Duration
	OutboxPollInterval time.Duration
	RetryBackoff       []time.Duration
	HolidazeURL        string
	HolidazeAPIKey     string
	HolidazeTimeout    time.Duration
	ViewTTL            time.Duration
	VenueFixtures      string
	CORSOrigins        []string
}

// Load reads an optional .env file (existing variables win) and parses the
// environment.
func Load(envFiles ...string) (Config, error) {
	if len(envFiles) == 0 {
		envFiles = []string{".env"}
	}
	for _, f := range envFiles {
		if err := godotenv.Load(f); err != nil && !errors.Is(err, os.ErrNotExist) {
			return Config{}, fmt.Errorf("load %s: %w", f, err)
		}
	}
	return FromEnv()
}

// FromEnv parses configuration from the current environment only.
func FromEnv() (Config, error) {
	cfg := Config{
		Env:              getEnv("APP_ENV", "dev"),
		HTTPAddr:         getEnv("HTTP_ADDR", ":8080"),
		StoreMode:        strings.ToLower(getEnv("STORE_MODE", StoreMemory)),
		MongoURI:         os.Getenv("MONGO_URI"),
		MongoDB:          getEnv("MONGO_DB", "venuebook"),
		RedisAddr:        os.Getenv("REDIS_ADDR"),
		RedisPassword:    os.Getenv("REDIS_PASSWORD"),
		KafkaTopicPrefix: getEnv("KAFKA_TOPIC_PREFIX", ""),
		KafkaGroupID:     getEnv("KAFKA_GROUP_ID", "venuebook-views"),
		HolidazeURL:      strings.TrimRight(getEnv("HOLIDAZE_URL", ""), "/"),
		HolidazeAPIKey:   os.Getenv("HOLIDAZE_API_KEY"),
		VenueFixtures:    os.Getenv("VENUE_FIXTURES"),
		KafkaBrokers:     splitList(os.Getenv("KAFKA_BROKERS")),
		CORSOrigins:      splitList(getEnv("CORS_ORIGINS", "http://localhost:5173")),
	}

	debug, err := parseBoolEnv("APP_DEBUG", false)
	if err != nil {
		return Config{}, err
	}
	cfg.Debug = debug

	redisDB, err := parseIntEnv("REDIS_DB", 0)
	if err != nil {
		return Config{}, err
	}
	cfg.RedisDB = redisDB

	if cfg.IdempotencyTTL, err = parseDurationEnv("IDEMP_TTL", 24*time.Hour); err != nil {
		return Config{}, err
	}
	if cfg.OutboxPollInterval, err = parseDurationEnv("OUTBOX_POLL_INTERVAL", 500*time.Millisecond); err != nil {
		return Config{}, err
	}
	if cfg.HolidazeTimeout, err = parseDurationEnv("HOLIDAZE_TIMEOUT", 10*time.Second); err != nil {
		return Config{}, err
	}
	if cfg.ViewTTL, err = parseDurationEnv("VIEW_TTL", 30*time.Minute); err != nil {
		return Config{}, err
	}

	for _, raw := range splitList(getEnv("RETRY_BACKOFF", "1s,5s,30s")) {
		d, err := time.ParseDuration(raw)
		if err != nil {
			return Config{}, fmt.Errorf("invalid RETRY_BACKOFF component %q: %w", raw, err)
		}
		cfg.RetryBackoff = append(cfg.RetryBackoff, d)
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks the settings each store mode depends on.
func (c Config) Validate() error {
	switch c.StoreMode {
	case StoreMemory:
	case StoreMongo:
		if c.MongoURI == "" {
			return fmt.Errorf("MONGO_URI is required when STORE_MODE=%s", c.StoreMode)
		}
	case StoreHolidaze:
		if c.HolidazeURL == "" || c.HolidazeAPIKey == "" {
			return fmt.Errorf("HOLIDAZE_URL and HOLIDAZE_API_KEY are required when STORE_MODE=%s", c.StoreMode)
		}
	default:
		return fmt.Errorf("unknown STORE_MODE %q", c.StoreMode)
	}
	return nil
}

// EventsEnabled reports whether booking events are forwarded to kafka.
func (c Config) EventsEnabled() bool {
	return len(c.KafkaBrokers) > 0
}

func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func splitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if v := strings.TrimSpace(part); v != "" {
			out = append(out, v)
		}
	}
	return out
}

func parseIntEnv(key string, def int) (int, error) {
	raw := os.Getenv(key)
	if raw == "" {
		return def, nil
	}
	v, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil {
		return 0, fmt.Errorf("invalid %s integer: %w", key, err)
	}
	return v, nil
}

func parseDurationEnv(key string, def time.Duration) (time.Duration, error) {
	raw := os.Getenv(key)
	if raw == "" {
		return def, nil
	}
	d, err := time.ParseDuration(raw)
	if err != nil {
		return 0, fmt.Errorf("invalid %s duration: %w", key, err)
	}
	return d, nil
}

func parseBoolEnv(key string, def bool) (bool, error) {
	raw := os.Getenv(key)
	if raw == "" {
		return def, nil
	}
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "1", "t", "true", "yes", "y", "on":
		return true, nil
	case "0", "f", "false", "no", "n", "off":
		return false, nil
	default:
		return false, fmt.Errorf("invalid %s boolean: %q", key, raw)
	}
}
