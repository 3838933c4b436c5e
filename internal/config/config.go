package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

const (
	SourceGmail = "gmail"
	SourceIMAP  = "imap"
	SourceMbox  = "mbox"
	SourceNone  = "none"
)

const (
	DriverAuto     = "auto"
	DriverMemory   = "memory"
	DriverBolt     = "bolt"
	DriverPostgres = "postgres"
)

type Config struct {
	Port               string
	BaseURL            string
	Env                string
	LogLevel           string
	SessionSecret      string
	GoogleClientID     string
	GoogleClientSecret string

	StorageDriver string
	DatabaseURL   string
	BoltPath      string

	MailboxSource    string
	IMAPServer       string
	IMAPPort         int
	IMAPUsername     string
	IMAPPassword     string
	IMAPMailbox      string
	MboxPath         string
	MaxFetchMessages int
	GmailRPS         float64

	RefreshInterval time.Duration
	ScoringConfig   string
	Tunables        Tunables
}

func LoadConfig() (*Config, error) {
	// Load .env file if it exists
	_ = godotenv.Load()

	cfg := &Config{
		Port:               GetEnv("PORT", "8080"),
		BaseURL:            GetEnv("BASE_URL", "http://localhost:8080"),
		Env:                GetEnv("ENV", "development"),
		LogLevel:           GetEnv("LOG_LEVEL", "info"),
		SessionSecret:      GetEnv("SESSION_SECRET", "0c9f3f7e-4d1b-4c53-9a8e-6b2f1d7c5e21"),
		GoogleClientID:     GetEnv("GOOGLE_CLIENT_ID", ""),
		GoogleClientSecret: GetEnv("GOOGLE_CLIENT_SECRET", ""),
		StorageDriver:      GetEnv("STORAGE_DRIVER", DriverAuto),
		DatabaseURL:        GetEnv("DATABASE_URL", ""),
		BoltPath:           GetEnv("BOLT_PATH", ""),
		MailboxSource:      GetEnv("MAILBOX_SOURCE", SourceGmail),
		IMAPServer:         GetEnv("IMAP_SERVER", ""),
		IMAPPort:           GetEnvInt("IMAP_PORT", 993),
		IMAPUsername:       GetEnv("IMAP_USERNAME", ""),
		IMAPPassword:       GetEnv("IMAP_PASSWORD", ""),
		IMAPMailbox:        GetEnv("IMAP_MAILBOX", "INBOX"),
		MboxPath:           GetEnv("MBOX_PATH", ""),
		MaxFetchMessages:   GetEnvInt("MAX_FETCH_MESSAGES", 25),
		GmailRPS:           GetEnvFloat("GMAIL_REQUESTS_PER_SECOND", 5),
		RefreshInterval:    time.Duration(GetEnvInt("REFRESH_INTERVAL_SECONDS", 300)) * time.Second,
		ScoringConfig:      GetEnv("SCORING_CONFIG", ""),
	}

	tunables, err := LoadTunables(cfg.ScoringConfig)
	if err != nil {
		return nil, err
	}
	cfg.Tunables = tunables

	return cfg, nil
}

func GetEnv(key, defaultValue string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return defaultValue
}

// GetEnvInt falls back to defaultValue when the variable is unset or not a positive integer.
func GetEnvInt(key string, defaultValue int) int {
	parsed, err := strconv.Atoi(GetEnv(key, ""))
	if err != nil || parsed <= 0 {
		return defaultValue
	}
	return parsed
}

func GetEnvFloat(key string, defaultValue float64) float64 {
	parsed, err := strconv.ParseFloat(GetEnv(key, ""), 64)
	if err != nil || parsed <= 0 {
		return defaultValue
	}
	return parsed
}

// ResolvedStorageDriver turns "auto" into a concrete driver.
func (c *Config) ResolvedStorageDriver() string {
	if c.StorageDriver != "" && c.StorageDriver != DriverAuto {
		return c.StorageDriver
	}
	if c.DatabaseURL != "" {
		return DriverPostgres
	}
	if c.BoltPath != "" {
		return DriverBolt
	}
	return DriverMemory
}

// AuthRequired reports whether the API needs a signed-in Google account.
func (c *Config) AuthRequired() bool {
	return c.MailboxSource == SourceGmail
}

func (c *Config) Validate() error {
	switch c.MailboxSource {
	case SourceGmail:
		if c.GoogleClientID == "" {
			return fmt.Errorf("GOOGLE_CLIENT_ID is required")
		}
		if c.GoogleClientSecret == "" {
			return fmt.Errorf("GOOGLE_CLIENT_SECRET is required")
		}
		if c.SessionSecret == "" {
			return fmt.Errorf("SESSION_SECRET is required")
		}
	case SourceIMAP:
		if c.IMAPServer == "" {
			return fmt.Errorf("IMAP_SERVER is required")
		}
		if c.IMAPUsername == "" || c.IMAPPassword == "" {
			return fmt.Errorf("IMAP_USERNAME and IMAP_PASSWORD are required")
		}
	case SourceMbox:
		if c.MboxPath == "" {
			return fmt.Errorf("MBOX_PATH is required")
		}
	case SourceNone:
	default:
		return fmt.Errorf("unsupported MAILBOX_SOURCE: %s", c.MailboxSource)
	}

	switch c.ResolvedStorageDriver() {
	case DriverMemory:
	case DriverBolt:
		if c.BoltPath == "" {
			return fmt.Errorf("BOLT_PATH is required for the bolt storage driver")
		}
	case DriverPostgres:
		if c.DatabaseURL == "" {
			return fmt.Errorf("DATABASE_URL is required for the postgres storage driver")
		}
	default:
		return fmt.Errorf("unsupported STORAGE_DRIVER: %s", c.StorageDriver)
	}

	return c.Tunables.Validate()
}
