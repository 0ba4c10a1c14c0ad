package config

import (
	"log"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	App      AppConfig
	Database DatabaseConfig
	Keys     APIKeys
	Session  SessionConfig
}

type AppConfig struct {
	Port               string
	Environment        string
	LogFilePath        string
	LiveLogFilePath    string
	CorsAllowedOrigins string
}

type DatabaseConfig struct {
	Connection string
}

type APIKeys struct {
	GoogleGemini string
}

// SessionConfig carries the live-session policy values. The duration ceiling
// and grace delay are policy, not structure, so they stay configurable.
type SessionConfig struct {
	LiveModel   string
	ReportModel string
	ToneModel   string

	MaxDuration    time.Duration
	InterruptGrace time.Duration
	ReportTimeout  time.Duration

	ToneCheckInterval time.Duration
	ToneMinWords      int
	ToneTextLimit     int
}

func Load() *Config {
	if err := godotenv.Load(); err != nil {
		log.Println("Note: .env file not found, using system environment")
	}

	return &Config{
		App: AppConfig{
			Port:               getEnv("APP_PORT", "8080"),
			Environment:        getEnv("GO_ENV", "development"),
			LogFilePath:        getEnv("LOG_FILE_PATH", "logs/app.log"),
			LiveLogFilePath:    getEnv("LIVE_LOG_FILE_PATH", "logs/live.log"),
			CorsAllowedOrigins: getEnv("CORS_ALLOWED_ORIGINS", "http://localhost:5173"),
		},
		Database: DatabaseConfig{
			Connection: getEnv("DB_CONNECTION_STRING", ""),
		},
		Keys: APIKeys{
			GoogleGemini: getEnv("GOOGLE_GEMINI_API_KEY", ""),
		},
		Session: SessionConfig{
			LiveModel:         getEnv("GEMINI_LIVE_MODEL", "gemini-2.5-flash-native-audio-preview-12-2025"),
			ReportModel:       getEnv("GEMINI_REPORT_MODEL", "gemini-2.5-flash"),
			ToneModel:         getEnv("GEMINI_TONE_MODEL", "gemini-2.5-flash"),
			MaxDuration:       getEnvAsSeconds("SESSION_MAX_DURATION_SECONDS", 180),
			InterruptGrace:    getEnvAsMillis("SESSION_INTERRUPT_GRACE_MS", 700),
			ReportTimeout:     getEnvAsSeconds("REPORT_TIMEOUT_SECONDS", 45),
			ToneCheckInterval: getEnvAsSeconds("TONE_CHECK_INTERVAL_SECONDS", 15),
			ToneMinWords:      getEnvAsInt("TONE_MIN_WORDS", 20),
			ToneTextLimit:     getEnvAsInt("TONE_TEXT_LIMIT", 2000),
		},
	}
}

func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return fallback
}

func getEnvAsInt(key string, fallback int) int {
	strValue := getEnv(key, "")
	if value, err := strconv.Atoi(strValue); err == nil {
		return value
	}
	return fallback
}

func getEnvAsSeconds(key string, fallback int) time.Duration {
	return time.Duration(getEnvAsInt(key, fallback)) * time.Second
}

func getEnvAsMillis(key string, fallback int) time.Duration {
	return time.Duration(getEnvAsInt(key, fallback)) * time.Millisecond
}
