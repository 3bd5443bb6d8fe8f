// Package config loads configuration from the environment.
package config

import (
	"os"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
)

// Config holds everything read from the environment at startup.
type Config struct {
	Addr         string
	DatabaseURL  string // PostgreSQL when set; SQLite otherwise
	DatabasePath string
	TMDBToken    string
	CallbackURL  string
	LogLevel     string
}

// Load reads configuration from a .env file (if present) and the
// environment. A missing TMDB token is logged once here, not treated as
// fatal — API calls will fire anyway and fail remotely.
func Load() *Config {
	_ = godotenv.Load()

	cfg := &Config{
		Addr:         getEnv("CINEVORE_ADDR", ":8080"),
		DatabaseURL:  getEnv("DATABASE_URL", ""),
		DatabasePath: getEnv("CINEVORE_DB", "cinevore.db"),
		TMDBToken:    getEnv("TMDB_ACCESS_TOKEN", ""),
		CallbackURL:  getEnv("CINEVORE_CALLBACK_URL", "http://127.0.0.1:8080/auth/callback"),
		LogLevel:     getEnv("LOG_LEVEL", "info"),
	}
	if cfg.TMDBToken == "" {
		logrus.Warn("TMDB_ACCESS_TOKEN is not set; remote calls will be rejected")
	}
	return cfg
}

func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}
