// config.go
//
// Environment configuration for the server binary. Values come from the
// process environment, optionally seeded from a .env file by godotenv in main.

package main

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// config is everything the server reads from the environment (or .env).
type config struct {
	Port         string
	LogLevel     string
	LogPretty    bool
	DBPath       string
	JWTSecret    string
	JWTExpiry    time.Duration
	CookieName   string
	ClientOrigin string
	GuessMax     int
	Production   bool
}

// loadConfig reads the environment. A GUESS_MAX below 1 is rejected rather
// than silently replaced by the default.
func loadConfig() (config, error) {
	cfg := config{
		Port:         getEnv("PORT", "5175"),
		LogLevel:     getEnv("LOG_LEVEL", "info"),
		LogPretty:    os.Getenv("LOG_PRETTY") == "1",
		DBPath:       getEnv("DB_PATH", "./data/guess.db"),
		JWTSecret:    getEnv("JWT_SECRET", "dev_secret_change_me"),
		JWTExpiry:    time.Duration(envInt("JWT_EXPIRES_DAYS", 14)) * 24 * time.Hour,
		CookieName:   getEnv("COOKIE_NAME", "guess_token"),
		ClientOrigin: getEnv("CLIENT_ORIGIN", "http://localhost:5173"),
		GuessMax:     envInt("GUESS_MAX", 125),
		Production:   os.Getenv("NODE_ENV") == "production",
	}
	if cfg.GuessMax < 1 {
		return config{}, fmt.Errorf("GUESS_MAX must be at least 1, got %d", cfg.GuessMax)
	}
	return cfg, nil
}

// getEnv returns the value of k or def if unset/empty.
func getEnv(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}

// envInt parses k as an int, falling back to def when unset or malformed.
func envInt(k string, def int) int {
	if n, err := strconv.Atoi(os.Getenv(k)); err == nil {
		return n
	}
	return def
}
