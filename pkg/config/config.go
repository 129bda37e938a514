package config

import (
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Port      string
	JWTSecret string

	DBHost     string
	DBPort     string
	DBUser     string
	DBPassword string
	DBName     string
	DBSSLMode  string

	GoogleClientID     string
	GoogleClientSecret string

	GeminiAPIKey   string
	ChromaAPIKey   string
	ChromaTenant   string
	ChromaDatabase string

	PubSubProjectID   string
	PubSubTopic       string
	PubSubCredentials string

	BoardPageSize     int
	FuzzySearchWindow int
	EmbedWorkerCount  int
	SummaryWorkers    int

	// Maintenance jobs can be disabled individually without touching
	// the request-path sync.
	DisableSnoozeWaker   bool
	DisableWatchRenewal  bool
	SnoozeWakerSchedule  string
	WatchRenewalSchedule string

	SummaryTTL time.Duration
}

func Load() *Config {
	// Load .env file if it exists
	_ = godotenv.Load()

	summaryTTL := 24 * time.Hour
	if raw := os.Getenv("SUMMARY_TTL"); raw != "" {
		if parsed, err := time.ParseDuration(raw); err == nil {
			summaryTTL = parsed
		}
	}

	return &Config{
		Port:      getEnv("PORT", "8080"),
		JWTSecret: getEnv("JWT_SECRET", "your-secret-key-change-in-production"),

		DBHost:     getEnv("DB_HOST", "localhost"),
		DBPort:     getEnv("DB_PORT", "5432"),
		DBUser:     getEnv("DB_USER", "postgres"),
		DBPassword: getEnv("DB_PASSWORD", "postgres"),
		DBName:     getEnv("DB_NAME", "mailboard"),
		DBSSLMode:  getEnv("DB_SSLMODE", "disable"),

		GoogleClientID:     getEnv("GOOGLE_CLIENT_ID", ""),
		GoogleClientSecret: getEnv("GOOGLE_CLIENT_SECRET", ""),

		GeminiAPIKey:   getEnv("GEMINI_API_KEY", ""),
		ChromaAPIKey:   getEnv("CHROMA_API_KEY", ""),
		ChromaTenant:   getEnv("CHROMA_TENANT", ""),
		ChromaDatabase: getEnv("CHROMA_DATABASE", ""),

		PubSubProjectID:   getEnv("PUBSUB_PROJECT_ID", ""),
		PubSubTopic:       getEnv("PUBSUB_TOPIC", "gmail-notifications"),
		PubSubCredentials: getEnv("PUBSUB_CREDENTIALS_FILE", ""),

		BoardPageSize:     getEnvInt("BOARD_PAGE_SIZE", 10),
		FuzzySearchWindow: getEnvInt("FUZZY_SEARCH_WINDOW", 500),
		EmbedWorkerCount:  getEnvInt("EMBED_WORKER_COUNT", 5),
		SummaryWorkers:    getEnvInt("SUMMARY_WORKER_COUNT", 3),

		DisableSnoozeWaker:   getEnvBool("DISABLE_SNOOZE_WAKER", false),
		DisableWatchRenewal:  getEnvBool("DISABLE_WATCH_RENEWAL", false),
		SnoozeWakerSchedule:  getEnv("SNOOZE_WAKER_SCHEDULE", "@every 1m"),
		WatchRenewalSchedule: getEnv("WATCH_RENEWAL_SCHEDULE", "@every 24h"),

		SummaryTTL: summaryTTL,
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.Atoi(value); err == nil && parsed > 0 {
			return parsed
		}
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.ParseBool(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}
