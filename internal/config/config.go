package config

import (
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

type Config struct {
	// Environment
	Environment string
	LogLevel    string

	// Database
	DatabaseURL    string
	MigrateOnStart bool
	MigrationsDir  string

	// Redis
	RedisURL      string
	EventsChannel string

	// Profile store backend: postgres, redis or memory
	ProfileStore   string
	StoreTimeoutMs int

	// Server
	Port          string
	FrontendURL   string
	ClientVersion string

	// Matchmaking
	MatchmakerSweepMs      int
	ToleranceBasePct       int
	ToleranceStepPct       int
	ToleranceWindowSeconds int
	ToleranceMaxPct        int

	// Match lifecycle
	DefaultRating       int
	ClockStartSeconds   int
	RankedGraceSeconds  int
	CasualGraceSeconds  int
	CleanupDelaySeconds int

	// Security
	JWTSecret string
}

func Load() *Config {
	// Load .env file if it exists
	godotenv.Load()

	return &Config{
		// Environment
		Environment: getEnv("APP_ENV", "development"),
		LogLevel:    getEnv("LOG_LEVEL", "info"),

		// Database
		DatabaseURL:    getEnv("DATABASE_URL", "postgres://localhost:5432/boardwar?sslmode=disable"),
		MigrateOnStart: getEnvBool("MIGRATE_ON_START", false),
		MigrationsDir:  getEnv("MIGRATIONS_DIR", "migrations"),

		// Redis
		RedisURL:      getEnv("REDIS_URL", ""),
		EventsChannel: getEnv("EVENTS_CHANNEL", "game_events"),

		// Profiles
		ProfileStore:   strings.ToLower(getEnv("PROFILE_STORE", "postgres")),
		StoreTimeoutMs: getEnvInt("STORE_TIMEOUT_MS", 3000),

		// Server
		Port:          getEnv("APP_PORT", "3000"),
		FrontendURL:   getEnv("FRONTEND_URL", "http://localhost:5173"),
		ClientVersion: getEnv("CLIENT_VERSION", "1.0.0"),

		// Matchmaking
		MatchmakerSweepMs:      getEnvInt("MATCHMAKER_SWEEP_MS", 2000),
		ToleranceBasePct:       getEnvInt("TOLERANCE_BASE_PCT", 5),
		ToleranceStepPct:       getEnvInt("TOLERANCE_STEP_PCT", 5),
		ToleranceWindowSeconds: getEnvInt("TOLERANCE_WINDOW_SECONDS", 10),
		ToleranceMaxPct:        getEnvInt("TOLERANCE_MAX_PCT", 30),

		// Match lifecycle
		DefaultRating:       getEnvInt("DEFAULT_RATING", 1200),
		ClockStartSeconds:   getEnvInt("CLOCK_START_SECONDS", 600),
		RankedGraceSeconds:  getEnvInt("RANKED_GRACE_SECONDS", 60),
		CasualGraceSeconds:  getEnvInt("CASUAL_GRACE_SECONDS", 30),
		CleanupDelaySeconds: getEnvInt("CLEANUP_DELAY_SECONDS", 60),

		// Security
		JWTSecret: getEnv("JWT_SECRET", ""),
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
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolVal, err := strconv.ParseBool(value); err == nil {
			return boolVal
		}
	}
	return defaultValue
}
