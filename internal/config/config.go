package config

import (
	"errors"
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"
	_ "time/tzdata"

	"github.com/joho/godotenv"
)

type Config struct {
	DBDSN       string
	Environment string
	HTTPAddr    string

	// SchoolTimezone decides which calendar day "today" is
	SchoolTimezone *time.Location

	BookingLockTimeout  time.Duration
	RequestTimeout      time.Duration
	SingleActiveBooking bool
	MigrationsEnabled   bool

	OutboxPollInterval      time.Duration
	CompletionSweepInterval time.Duration

	TelegramToken  string
	TelegramChatID int64
}

func Load() (*Config, error) {
	// .env is optional; real environment variables win
	if err := godotenv.Load(".env"); err != nil {
		log.Println("No .env file found, using environment variables")
	} else {
		log.Println("Loaded configuration from .env file")
	}

	return FromEnv(os.Getenv)
}

// FromEnv builds a Config from a lookup function and applies defaults
func FromEnv(getenv func(string) string) (*Config, error) {
	p := parser{getenv: getenv}

	cfg := &Config{
		DBDSN:                   p.str("DB_DSN", ""),
		Environment:             p.str("ENV", "development"),
		HTTPAddr:                p.str("HTTP_ADDR", ":8080"),
		SchoolTimezone:          p.location("SCHOOL_TIMEZONE", time.UTC),
		BookingLockTimeout:      p.duration("BOOKING_LOCK_TIMEOUT", 3*time.Second),
		RequestTimeout:          p.duration("REQUEST_TIMEOUT", 10*time.Second),
		SingleActiveBooking:     p.boolean("SINGLE_ACTIVE_BOOKING", true),
		MigrationsEnabled:       p.boolean("MIGRATIONS_ENABLED", true),
		OutboxPollInterval:      p.duration("OUTBOX_POLL_INTERVAL", 5*time.Second),
		CompletionSweepInterval: p.duration("COMPLETION_SWEEP_INTERVAL", time.Hour),
		TelegramToken:           p.str("TELEGRAM_TOKEN", ""),
		TelegramChatID:          p.int64("TELEGRAM_CHAT_ID", 0),
	}

	if cfg.DBDSN == "" {
		p.errs = append(p.errs, errors.New("DB_DSN is required but not set"))
	}
	if cfg.TelegramToken != "" && cfg.TelegramChatID == 0 {
		p.errs = append(p.errs, errors.New("TELEGRAM_CHAT_ID is required when TELEGRAM_TOKEN is set"))
	}
	if err := errors.Join(p.errs...); err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}

	return cfg, nil
}

func (c *Config) GetDBDSN() string {
	return c.DBDSN
}

func (c *Config) IsProduction() bool {
	return c.Environment == "production"
}

func (c *Config) TelegramEnabled() bool {
	return c.TelegramToken != ""
}

type parser struct {
	getenv func(string) string
	errs   []error
}

func (p *parser) str(key, def string) string {
	if v := strings.TrimSpace(p.getenv(key)); v != "" {
		return v
	}
	return def
}

func (p *parser) duration(key string, def time.Duration) time.Duration {
	v := strings.TrimSpace(p.getenv(key))
	if v == "" {
		return def
	}
	d, err := time.ParseDuration(v)
	if err != nil || d <= 0 {
		p.errs = append(p.errs, fmt.Errorf("%s: invalid duration %q", key, v))
		return def
	}
	return d
}

func (p *parser) boolean(key string, def bool) bool {
	v := strings.TrimSpace(p.getenv(key))
	if v == "" {
		return def
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		p.errs = append(p.errs, fmt.Errorf("%s: invalid bool %q", key, v))
		return def
	}
	return b
}

func (p *parser) int64(key string, def int64) int64 {
	v := strings.TrimSpace(p.getenv(key))
	if v == "" {
		return def
	}
	n, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		p.errs = append(p.errs, fmt.Errorf("%s: invalid integer %q", key, v))
		return def
	}
	return n
}

func (p *parser) location(key string, def *time.Location) *time.Location {
	v := strings.TrimSpace(p.getenv(key))
	if v == "" {
		return def
	}
	loc, err := time.LoadLocation(v)
	if err != nil {
		p.errs = append(p.errs, fmt.Errorf("%s: unknown timezone %q", key, v))
		return def
	}
	return loc
}
