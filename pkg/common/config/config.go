package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	// Server
	ServerPort     string
	ServerHost     string
	ReadTimeout    time.Duration
	WriteTimeout   time.Duration
	MaxRequestBody int64

	// Database
	PostgresHost     string
	PostgresPort     string
	PostgresUser     string
	PostgresPassword string
	PostgresDB       string
	PostgresSSLMode  string

	// Redis
	RedisHost     string
	RedisPort     string
	RedisPassword string
	RedisDB       int

	// Kafka
	KafkaBrokers []string
	KafkaGroupID string

	// Messenger login (OAuth provider behind the registration widget)
	MessengerIssuer       string
	MessengerClientID     string
	MessengerClientSecret string

	// Schedule
	ScheduleCatalogPath string

	// Registration
	RegistrationTopic    string
	RegistrationDLQTopic string

	// Matching
	MatchTopic           string
	MatchDLQTopic        string
	MatchLockTTL         time.Duration
	MatchLockRetries     int
	MatchLockRetryWait   time.Duration
	MatchSweepInterval   time.Duration
	MatchSweepHorizon    time.Duration
	MatchReleaseOnCancel bool
}

func Load() *Config {
	return &Config{
		ServerPort:     getEnv("SERVER_PORT", "8080"),
		ServerHost:     getEnv("SERVER_HOST", "0.0.0.0"),
		ReadTimeout:    getDuration("READ_TIMEOUT", 30*time.Second),
		WriteTimeout:   getDuration("WRITE_TIMEOUT", 30*time.Second),
		MaxRequestBody: int64(getIntEnv("MAX_REQUEST_BODY_BYTES", 1*1024*1024)),

		PostgresHost:     getEnv("POSTGRES_HOST", "localhost"),
		PostgresPort:     getEnv("POSTGRES_PORT", "5432"),
		PostgresUser:     getEnv("POSTGRES_USER", "partyof4"),
		PostgresPassword: getEnv("POSTGRES_PASSWORD", "partyof4123"),
		PostgresDB:       getEnv("POSTGRES_DB", "partyof4"),
		PostgresSSLMode:  getEnv("POSTGRES_SSLMODE", "disable"),

		RedisHost:     getEnv("REDIS_HOST", "localhost"),
		RedisPort:     getEnv("REDIS_PORT", "6379"),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),
		RedisDB:       getIntEnv("REDIS_DB", 0),

		KafkaBrokers: getStringSliceEnv("KAFKA_BROKERS", []string{"localhost:9092"}),
		KafkaGroupID: getEnv("KAFKA_GROUP_ID", "partyof4-platform"),

		MessengerIssuer:       getEnv("MESSENGER_ISSUER", ""),
		MessengerClientID:     getEnv("MESSENGER_CLIENT_ID", ""),
		MessengerClientSecret: getEnv("MESSENGER_CLIENT_SECRET", ""),

		ScheduleCatalogPath: getEnv("SCHEDULE_CATALOG_PATH", ""),

		RegistrationTopic:    getEnv("REGISTRATION_TOPIC", "candidates"),
		RegistrationDLQTopic: getEnv("REGISTRATION_DLQ_TOPIC", ""),

		MatchTopic:           getEnv("MATCH_TOPIC", "matches"),
		MatchDLQTopic:        getEnv("MATCH_DLQ_TOPIC", ""),
		MatchLockTTL:         getDuration("MATCH_LOCK_TTL", 10*time.Second),
		MatchLockRetries:     getIntEnv("MATCH_LOCK_RETRIES", 3),
		MatchLockRetryWait:   getDuration("MATCH_LOCK_RETRY_WAIT", 250*time.Millisecond),
		MatchSweepInterval:   getDuration("MATCH_SWEEP_INTERVAL", 1*time.Minute),
		MatchSweepHorizon:    getDuration("MATCH_SWEEP_HORIZON", 14*24*time.Hour),
		MatchReleaseOnCancel: getBoolEnv("MATCH_RELEASE_ON_CANCEL", false),
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getIntEnv(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getBoolEnv(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolValue, err := strconv.ParseBool(value); err == nil {
			return boolValue
		}
	}
	return defaultValue
}

func getStringSliceEnv(key string, defaultValue []string) []string {
	if value := os.Getenv(key); value != "" {
		parts := strings.Split(value, ",")
		out := make([]string, 0, len(parts))
		for _, p := range parts {
			if trimmed := strings.TrimSpace(p); trimmed != "" {
				out = append(out, trimmed)
			}
		}
		if len(out) > 0 {
			return out
		}
	}
	return defaultValue
}

func getDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}
