package config

import (
	"os"
	"strconv"
	"time"
)

// Config holds all application configuration
type Config struct {
	Server        ServerConfig
	Game          GameConfig
	Transcription TranscriptionConfig
	Logging       LoggingConfig
}

// ServerConfig holds server-related configuration
type ServerConfig struct {
	Port string
	Host string
	Env  string // "development" or "production"
}

// GameConfig holds game-related configuration
type GameConfig struct {
	Mode          string // "free-space" or "full-card"
	RoomTTL       time.Duration
	SweepInterval time.Duration
	GapTolerance  int
}

// TranscriptionConfig holds the external speech-to-text provider settings
type TranscriptionConfig struct {
	Endpoint string
	APIKey   string
	Model    string
	Timeout  time.Duration
}

// LoggingConfig holds logging-related configuration
type LoggingConfig struct {
	Level  string
	Format string // "json" or "text"
}

// Load loads configuration from environment variables with defaults
func Load() *Config {
	return &Config{
		Server: ServerConfig{
			Port: getEnv("PORT", "8080"),
			Host: getEnv("HOST", "0.0.0.0"),
			Env:  getEnv("ENV", "development"),
		},
		Game: GameConfig{
			Mode:          getEnv("GAME_MODE", "free-space"),
			RoomTTL:       getEnvDuration("ROOM_TTL", time.Hour),
			SweepInterval: getEnvDuration("ROOM_SWEEP_INTERVAL", 5*time.Minute),
			GapTolerance:  getEnvInt("MATCH_GAP_TOLERANCE", 3),
		},
		Transcription: TranscriptionConfig{
			Endpoint: getEnv("TRANSCRIPTION_ENDPOINT", "http://localhost:9000/v1/audio/transcriptions"),
			APIKey:   getEnv("TRANSCRIPTION_API_KEY", ""),
			Model:    getEnv("TRANSCRIPTION_MODEL", "whisper-1"),
			Timeout:  getEnvDuration("TRANSCRIPTION_TIMEOUT", 30*time.Second),
		},
		Logging: LoggingConfig{
			Level:  getEnv("LOG_LEVEL", "info"),
			Format: getEnv("LOG_FORMAT", "text"),
		},
	}
}

// IsDevelopment returns true if running in development mode
func (c *Config) IsDevelopment() bool {
	return c.Server.Env == "development"
}

// IsProduction returns true if running in production mode
func (c *Config) IsProduction() bool {
	return c.Server.Env == "production"
}

// GetAddr returns the server address in host:port format
func (c *Config) GetAddr() string {
	return c.Server.Host + ":" + c.Server.Port
}

// getEnv returns an environment variable or a default value
func getEnv(key, defaultValue string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return defaultValue
}

// getEnvInt returns an environment variable as an integer or a default value
func getEnvInt(key string, defaultValue int) int {
	if value, exists := os.LookupEnv(key); exists {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

// getEnvDuration returns an environment variable as a duration or a default value
func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value, exists := os.LookupEnv(key); exists {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}
