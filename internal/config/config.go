package config

import (
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"
)

// Config holds every setting read from the environment.
type Config struct {
	Port          string
	DatabaseURL   string
	DBDriver      string // postgres, sqlite
	SessionSecret string
	SiteURL       string
	LogLevel      string
	Debug         bool

	FlagThreshold  int
	RatingMin      int
	RatingMax      int
	FlagReasons    []string
	FlagDailyLimit int
}

const (
	defaultPort           = "8080"
	defaultDSN            = "host=localhost user=postgres password=postgres dbname=coursesearch port=5432 sslmode=disable TimeZone=UTC"
	defaultSessionSecret  = "secret_key_change_me"
	defaultSiteURL        = "https://courses.example.edu"
	defaultFlagThreshold  = 3
	defaultRatingMin      = 1
	defaultRatingMax      = 5
	defaultFlagDailyLimit = 10
)

var defaultFlagReasons = []string{"spam", "offensive", "off-topic", "inaccurate"}

// Load reads .env (when present) and then the process environment.
func Load() Config {
	if err := godotenv.Load(); err != nil {
		log.Debug().Msg("No .env file found, reading env vars from system")
	}
	return FromEnv()
}

// FromEnv builds a Config from the process environment only.
func FromEnv() Config {
	cfg := Config{
		Port:           getenv("PORT", defaultPort),
		DatabaseURL:    getenv("DATABASE_URL", ""),
		DBDriver:       strings.ToLower(getenv("DB_DRIVER", "postgres")),
		SessionSecret:  getenv("SESSION_SECRET", defaultSessionSecret),
		SiteURL:        strings.TrimRight(getenv("SITE_URL", defaultSiteURL), "/"),
		LogLevel:       getenv("LOG_LEVEL", "info"),
		Debug:          os.Getenv("GIN_MODE") != "release",
		FlagThreshold:  intEnv("FLAG_THRESHOLD", defaultFlagThreshold, 1),
		RatingMin:      intEnv("RATING_MIN", defaultRatingMin, 0),
		RatingMax:      intEnv("RATING_MAX", defaultRatingMax, 0),
		FlagReasons:    listEnv("FLAG_REASONS", defaultFlagReasons),
		FlagDailyLimit: intEnv("FLAG_DAILY_LIMIT", defaultFlagDailyLimit, 0),
	}

	if cfg.RatingMin > cfg.RatingMax {
		log.Warn().Int("min", cfg.RatingMin).Int("max", cfg.RatingMax).Msg("Rating bounds inverted, using defaults")
		cfg.RatingMin, cfg.RatingMax = defaultRatingMin, defaultRatingMax
	}
	if cfg.DatabaseURL == "" {
		switch cfg.DBDriver {
		case "sqlite", "sqlite3":
			cfg.DatabaseURL = "coursesearch.db"
		default:
			// Fallback for local dev if not set
			cfg.DatabaseURL = defaultDSN
		}
	}
	return cfg
}

func getenv(key, fallback string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return fallback
}

// intEnv parses key as an int no smaller than lowest, falling back on bad input.
func intEnv(key string, fallback, lowest int) int {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return fallback
	}
	v, err := strconv.Atoi(raw)
	if err != nil || v < lowest {
		log.Warn().Str("key", key).Str("value", raw).Int("default", fallback).Msg("Invalid value, using default")
		return fallback
	}
	return v
}

func listEnv(key string, fallback []string) []string {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return append([]string(nil), fallback...)
	}
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if part = strings.ToLower(strings.TrimSpace(part)); part != "" {
			out = append(out, part)
		}
	}
	if len(out) == 0 {
		return append([]string(nil), fallback...)
	}
	return out
}
