package profile

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"
	"strconv"
	"strings"

	"github.com/pkg/errors"

	"github.com/hrygo/wordloop/server/timezone"
)

// Profile is the configuration to start main server.
type Profile struct {
	// Mode can be "prod" or "dev" or "demo"
	Mode string
	// Addr is the binding address for server
	Addr string
	// Port is the binding port for server
	Port int
	// UNIXSock is the IPC binding path. Overrides Addr and Port
	UNIXSock string
	// Data is the data directory
	Data string
	// DSN points to where wordloop stores its own data
	DSN string
	// Driver is the database driver (sqlite or postgres)
	Driver string
	// Version is the current version of server
	Version string
	// InstanceURL is the url of your wordloop instance.
	InstanceURL string

	// Scheduling engine
	Timezone        string // WORDLOOP_TIMEZONE (default: UTC)
	Intervals       string // WORDLOOP_INTERVALS (default: 1,3,7,15,30,60)
	ConflictRetries int    // WORDLOOP_CONFLICT_RETRIES (default: 3)
	MaxConcurrency  int    // WORDLOOP_MAX_CONCURRENCY (default: 4)
	MaxPlanDays     int    // WORDLOOP_MAX_PLAN_DAYS (default: 90)

	// HTTP rate limiting, per learner
	RateLimitPerSecond float64 // WORDLOOP_RATE_LIMIT_RPS (default: 10)
	RateLimitBurst     int     // WORDLOOP_RATE_LIMIT_BURST (default: 20)

	// Reminders
	ReminderEnabled bool   // WORDLOOP_REMINDER_ENABLED (default: false)
	ReminderCron    string // WORDLOOP_REMINDER_CRON (default: 0 9 * * *)

	// Notification channels
	WebhookURL      string // WORDLOOP_WEBHOOK_URL
	WebhookSecret   string // WORDLOOP_WEBHOOK_SECRET, sent as X-Webhook-Secret
	TelegramToken   string // WORDLOOP_TELEGRAM_TOKEN
	TelegramChats   string // WORDLOOP_TELEGRAM_CHATS, "userID:chatID,..."
	SESRegion       string // WORDLOOP_SES_REGION (default: us-east-1)
	SESFromEmail    string // WORDLOOP_SES_FROM_EMAIL
	EmailRecipients string // WORDLOOP_EMAIL_RECIPIENTS, "userID:address,..."
}

func (p *Profile) IsDev() bool {
	return p.Mode != "prod"
}

// getEnvOrDefault returns the environment variable value or the default value.
func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getIntEnvOrDefault(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if n, err := strconv.Atoi(value); err == nil {
			return n
		}
		slog.Warn("ignoring non-integer environment value", "key", key, "value", value)
	}
	return defaultValue
}

func getFloatEnvOrDefault(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if f, err := strconv.ParseFloat(value, 64); err == nil {
			return f
		}
		slog.Warn("ignoring non-numeric environment value", "key", key, "value", value)
	}
	return defaultValue
}

// FromEnv loads engine, reminder and notification settings from WORDLOOP_* environment variables.
// Server settings (mode, driver, dsn, port) are bound through viper in cmd/wordloop.
func (p *Profile) FromEnv() {
	p.Timezone = getEnvOrDefault("WORDLOOP_TIMEZONE", "UTC")
	p.Intervals = getEnvOrDefault("WORDLOOP_INTERVALS", "1,3,7,15,30,60")
	p.ConflictRetries = getIntEnvOrDefault("WORDLOOP_CONFLICT_RETRIES", 3)
	p.MaxConcurrency = getIntEnvOrDefault("WORDLOOP_MAX_CONCURRENCY", 4)
	p.MaxPlanDays = getIntEnvOrDefault("WORDLOOP_MAX_PLAN_DAYS", 90)

	p.RateLimitPerSecond = getFloatEnvOrDefault("WORDLOOP_RATE_LIMIT_RPS", 10)
	p.RateLimitBurst = getIntEnvOrDefault("WORDLOOP_RATE_LIMIT_BURST", 20)

	p.ReminderEnabled = os.Getenv("WORDLOOP_REMINDER_ENABLED") == "true"
	p.ReminderCron = getEnvOrDefault("WORDLOOP_REMINDER_CRON", "0 9 * * *")

	p.WebhookURL = os.Getenv("WORDLOOP_WEBHOOK_URL")
	p.WebhookSecret = os.Getenv("WORDLOOP_WEBHOOK_SECRET")
	p.TelegramToken = os.Getenv("WORDLOOP_TELEGRAM_TOKEN")
	p.TelegramChats = os.Getenv("WORDLOOP_TELEGRAM_CHATS")
	p.SESRegion = getEnvOrDefault("WORDLOOP_SES_REGION", "us-east-1")
	p.SESFromEmail = os.Getenv("WORDLOOP_SES_FROM_EMAIL")
	p.EmailRecipients = os.Getenv("WORDLOOP_EMAIL_RECIPIENTS")
}

// ParseIntervals returns the configured interval table as integers.
func (p *Profile) ParseIntervals() ([]int, error) {
	parts := strings.Split(p.Intervals, ",")
	intervals := make([]int, 0, len(parts))
	for _, part := range parts {
		n, err := strconv.Atoi(strings.TrimSpace(part))
		if err != nil {
			return nil, errors.Wrapf(err, "invalid interval %q", part)
		}
		intervals = append(intervals, n)
	}
	return intervals, nil
}

// ParseUserMapping parses "userID:value,userID:value" lists such as TelegramChats.
func ParseUserMapping(raw string) (map[int32]string, error) {
	mapping := make(map[int32]string)
	if strings.TrimSpace(raw) == "" {
		return mapping, nil
	}
	for _, pair := range strings.Split(raw, ",") {
		key, value, ok := strings.Cut(strings.TrimSpace(pair), ":")
		if !ok || value == "" {
			return nil, errors.Errorf("invalid user mapping entry %q", pair)
		}
		userID, err := strconv.ParseInt(key, 10, 32)
		if err != nil {
			return nil, errors.Wrapf(err, "invalid user id in mapping entry %q", pair)
		}
		mapping[int32(userID)] = value
	}
	return mapping, nil
}

func checkDataDir(dataDir string) (string, error) {
	// Convert to absolute path if relative path is supplied.
	if !filepath.IsAbs(dataDir) {
		relativeDir := filepath.Join(filepath.Dir(os.Args[0]), dataDir)
		absDir, err := filepath.Abs(relativeDir)
		if err != nil {
			return "", err
		}
		dataDir = absDir
	}

	// Trim trailing \ or / in case user supplies
	dataDir = strings.TrimRight(dataDir, "\\/")
	if _, err := os.Stat(dataDir); err != nil {
		return "", errors.Wrapf(err, "unable to access data folder %s", dataDir)
	}
	return dataDir, nil
}

func (p *Profile) Validate() error {
	if p.Mode != "demo" && p.Mode != "dev" && p.Mode != "prod" {
		p.Mode = "demo"
	}

	if p.Mode == "prod" && p.Data == "" {
		if runtime.GOOS == "windows" {
			p.Data = filepath.Join(os.Getenv("ProgramData"), "wordloop")
			if _, err := os.Stat(p.Data); os.IsNotExist(err) {
				if err := os.MkdirAll(p.Data, 0770); err != nil {
					slog.Error("failed to create data directory", slog.String("data", p.Data), slog.String("error", err.Error()))
					return err
				}
			}
		} else {
			p.Data = "/var/opt/wordloop"
		}
	}

	dataDir, err := checkDataDir(p.Data)
	if err != nil {
		slog.Error("failed to check dsn", slog.String("data", dataDir), slog.String("error", err.Error()))
		return err
	}

	p.Data = dataDir
	if p.Driver == "sqlite" && p.DSN == "" {
		dbFile := fmt.Sprintf("wordloop_%s.db", p.Mode)
		p.DSN = filepath.Join(dataDir, dbFile)
	}

	if p.ConflictRetries < 0 {
		return errors.Errorf("conflict retries must not be negative, got %d", p.ConflictRetries)
	}
	if p.MaxConcurrency <= 0 {
		return errors.Errorf("max concurrency must be positive, got %d", p.MaxConcurrency)
	}
	if p.MaxPlanDays <= 0 {
		return errors.Errorf("max plan days must be positive, got %d", p.MaxPlanDays)
	}
	if _, err := p.ParseIntervals(); err != nil {
		return err
	}
	if _, err := timezone.ParseTimezone(p.Timezone); err != nil {
		return errors.Wrap(err, "invalid engine timezone")
	}
	return nil
}
