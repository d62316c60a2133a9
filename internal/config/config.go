package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

// DefaultUserID is the single local user when USER_ID is not set
const DefaultUserID = "00000000-0000-0000-0000-000000000000"

// Config holds all the configuration for the application
type Config struct {
	BotToken string

	DBDriver string
	DBURL    string

	UserID   string
	HTTPAddr string

	// NotifyChatID receives the daily summary; 0 means the last active chat
	NotifyChatID int64

	SupabaseURL  string
	SupabaseKey  string
	ImageBucket  string
	ImageDir     string
	ImageBaseURL string

	EnableScheduler bool
	SummaryHour     int
	OutcomeTimeout  time.Duration
}

// UseSupabase reports whether images go to Supabase storage
func (c *Config) UseSupabase() bool {
	return c.SupabaseURL != "" && c.SupabaseKey != ""
}

// Load loads the configuration from environment variables
func Load() (*Config, error) {
	cfg := &Config{
		BotToken:     os.Getenv("TELEGRAM_BOT_TOKEN"),
		DBDriver:     strings.ToLower(getEnv("DB_DRIVER", "sqlite3")),
		UserID:       getEnv("USER_ID", DefaultUserID),
		HTTPAddr:     os.Getenv("HTTP_ADDR"),
		SupabaseURL:  os.Getenv("SUPABASE_URL"),
		SupabaseKey:  os.Getenv("SUPABASE_KEY"),
		ImageBucket:  getEnv("IMAGE_BUCKET", "question-images"),
		ImageDir:     getEnv("IMAGE_DIR", filepath.Join("data", "images")),
		ImageBaseURL: os.Getenv("IMAGE_BASE_URL"),
	}

	switch cfg.DBDriver {
	case "sqlite3", "sqlite":
		cfg.DBDriver = "sqlite3"
		cfg.DBURL = getEnv("DB_PATH", filepath.Join("data", "studyquiz.db"))
	case "postgres", "pgx":
		cfg.DBURL = os.Getenv("DATABASE_URL")
		if cfg.DBURL == "" {
			return nil, fmt.Errorf("DATABASE_URL environment variable is required for driver %s", cfg.DBDriver)
		}
	default:
		return nil, fmt.Errorf("unsupported DB_DRIVER %q", cfg.DBDriver)
	}

	if cfg.BotToken == "" && cfg.HTTPAddr == "" {
		return nil, errors.New("TELEGRAM_BOT_TOKEN or HTTP_ADDR must be set")
	}

	if cfg.ImageBaseURL == "" && cfg.HTTPAddr != "" {
		cfg.ImageBaseURL = "http://" + hostAddr(cfg.HTTPAddr) + "/images"
	}

	var err error
	if cfg.SummaryHour, err = getEnvInt("SUMMARY_HOUR", 21); err != nil {
		return nil, err
	}
	if cfg.SummaryHour < 0 || cfg.SummaryHour > 23 {
		return nil, fmt.Errorf("SUMMARY_HOUR must be between 0 and 23, got %d", cfg.SummaryHour)
	}

	if cfg.EnableScheduler, err = getEnvBool("ENABLE_SCHEDULER", true); err != nil {
		return nil, err
	}

	if v := os.Getenv("NOTIFY_CHAT_ID"); v != "" {
		if cfg.NotifyChatID, err = strconv.ParseInt(v, 10, 64); err != nil {
			return nil, fmt.Errorf("invalid NOTIFY_CHAT_ID %q: %w", v, err)
		}
	}

	cfg.OutcomeTimeout = 10 * time.Second
	if v := os.Getenv("OUTCOME_TIMEOUT"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil || d <= 0 {
			return nil, fmt.Errorf("invalid OUTCOME_TIMEOUT %q", v)
		}
		cfg.OutcomeTimeout = d
	}

	return cfg, nil
}

func hostAddr(addr string) string {
	if strings.HasPrefix(addr, ":") {
		return "localhost" + addr
	}
	return addr
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) (int, error) {
	v := os.Getenv(key)
	if v == "" {
		return defaultValue, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q: %w", key, v, err)
	}
	return n, nil
}

func getEnvBool(key string, defaultValue bool) (bool, error) {
	v := os.Getenv(key)
	if v == "" {
		return defaultValue, nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return false, fmt.Errorf("invalid %s %q: %w", key, v, err)
	}
	return b, nil
}
