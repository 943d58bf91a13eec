package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Server    ServerConfig
	Fleet     FleetConfig
	Events    EventsConfig
	Database  DatabaseConfig
	Redis     RedisConfig
	Kafka     KafkaConfig
	Simulator SimulatorConfig
}

type ServerConfig struct {
	Port     string
	LogLevel string
}

func (s ServerConfig) Addr() string {
	return ":" + s.Port
}

type FleetConfig struct {
	BinNames           []string
	SeedLevels         map[int]int
	ResetClearsHistory bool
}

type EventsConfig struct {
	Buffer int
}

// DatabaseConfig points at the optional history archive. An empty URL
// disables archiving.
type DatabaseConfig struct {
	Driver string
	URL    string
}

func (d DatabaseConfig) Enabled() bool {
	return d.URL != ""
}

type RedisConfig struct {
	Addr     string
	Password string
	DB       int
	Channel  string
}

func (r RedisConfig) Enabled() bool {
	return r.Addr != ""
}

type KafkaConfig struct {
	Brokers []string
	Topic   string
}

func (k KafkaConfig) Enabled() bool {
	return len(k.Brokers) > 0
}

type SimulatorConfig struct {
	Enabled  bool
	Interval time.Duration
}

func Load() (*Config, error) {
	// Load .env file if it exists (ignore error if not present)
	_ = godotenv.Load()

	seed, err := parseSeedLevels(getEnv("BIN_SEED_LEVELS", ""))
	if err != nil {
		return nil, err
	}

	config := &Config{
		Server: ServerConfig{
			Port:     getEnv("PORT", "8080"),
			LogLevel: getEnv("LOG_LEVEL", "info"),
		},
		Fleet: FleetConfig{
			BinNames:           splitList(getEnv("BIN_NAMES", "")),
			SeedLevels:         seed,
			ResetClearsHistory: getEnvAsBool("RESET_CLEARS_HISTORY", false),
		},
		Events: EventsConfig{
			Buffer: getEnvAsInt("EVENT_BUFFER", 256),
		},
		Database: DatabaseConfig{
			Driver: getEnv("DATABASE_DRIVER", "postgres"),
			URL:    getEnv("DATABASE_URL", ""),
		},
		Redis: RedisConfig{
			Addr:     getEnv("REDIS_ADDR", ""),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getEnvAsInt("REDIS_DB", 0),
			Channel:  getEnv("REDIS_CHANNEL", "binwatch.events"),
		},
		Kafka: KafkaConfig{
			Brokers: splitList(getEnv("KAFKA_BROKERS", "")),
			Topic:   getEnv("KAFKA_TOPIC", "binwatch.events"),
		},
		Simulator: SimulatorConfig{
			Enabled:  getEnvAsBool("SIMULATOR_ENABLED", false),
			Interval: getEnvAsDuration("SIMULATOR_INTERVAL", 30*time.Second),
		},
	}

	switch config.Database.Driver {
	case "postgres", "sqlite":
	default:
		return nil, fmt.Errorf("unsupported DATABASE_DRIVER %q (want postgres or sqlite)", config.Database.Driver)
	}

	if config.Simulator.Interval <= 0 {
		return nil, fmt.Errorf("SIMULATOR_INTERVAL must be positive, got %s", config.Simulator.Interval)
	}

	return config, nil
}

// parseSeedLevels reads a comma list of startup fill levels, one per bin in
// id order ("10,45,80,0").
func parseSeedLevels(raw string) (map[int]int, error) {
	levels := map[int]int{}
	for i, part := range splitList(raw) {
		v, err := strconv.Atoi(part)
		if err != nil {
			return nil, fmt.Errorf("BIN_SEED_LEVELS entry %d: %w", i+1, err)
		}
		levels[i+1] = v
	}
	return levels, nil
}

func splitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	valueStr := getEnv(key, "")
	if value, err := strconv.Atoi(valueStr); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	valueStr := getEnv(key, "")
	if value, err := strconv.ParseBool(valueStr); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	valueStr := getEnv(key, "")
	if value, err := time.ParseDuration(valueStr); err == nil {
		return value
	}
	return defaultValue
}
