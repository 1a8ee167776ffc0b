package config

import (
	"fmt"
	"os"
	"strconv"
)

// Config holds all configuration for the application
type Config struct {
	// Server configuration
	Port  string
	Debug bool

	// Discord configuration
	DiscordToken string

	// X/Twitter configuration. One shared credential serves every guild;
	// the /config-account command can replace it at runtime.
	TwitterAPIBaseURL string
	TwitterUsername   string
	TwitterPassword   string

	// Polling configuration
	FetchCount int // tweets fetched per account per sweep; caps first-sweep backfill

	// State storage configuration
	StorageBackend   string // "file" or "azure"
	StateDir         string
	StorageAccount   string
	StorageContainer string

	// Delivery journal (sqlite); empty path disables it
	JournalPath string

	// Operator alerting (optional)
	AlertEmail   string
	SMTPHost     string
	SMTPPort     int
	SMTPUsername string
	SMTPPassword string
}

// Load loads configuration from environment variables
func Load() (*Config, error) {
	cfg := &Config{
		Port:  getEnv("PORT", "8080"),
		Debug: getBoolEnv("DEBUG", false),

		DiscordToken: getEnv("DISCORD_TOKEN", ""),

		TwitterAPIBaseURL: getEnv("TWITTER_API_BASE_URL", "https://api.twitter.com"),
		TwitterUsername:   getEnv("TWITTER_USERNAME", ""),
		TwitterPassword:   getEnv("TWITTER_PASSWORD", ""),

		FetchCount: getIntEnv("FETCH_COUNT", 5),

		StorageBackend:   getEnv("STORAGE_BACKEND", "file"),
		StateDir:         getEnv("STATE_DIR", "data"),
		StorageAccount:   getEnv("AZURE_STORAGE_ACCOUNT", ""),
		StorageContainer: getEnv("AZURE_STORAGE_CONTAINER", "tweetwatch"),

		JournalPath: getEnv("JOURNAL_PATH", ""),

		AlertEmail:   getEnv("ALERT_EMAIL", ""),
		SMTPHost:     getEnv("SMTP_HOST", ""),
		SMTPPort:     getIntEnv("SMTP_PORT", 587),
		SMTPUsername: getEnv("SMTP_USERNAME", ""),
		SMTPPassword: getEnv("SMTP_PASSWORD", ""),
	}

	// Validate required configuration
	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return cfg, nil
}

func (c *Config) validate() error {
	if c.DiscordToken == "" {
		return fmt.Errorf("DISCORD_TOKEN is required")
	}

	if c.StorageBackend != "file" && c.StorageBackend != "azure" {
		return fmt.Errorf("STORAGE_BACKEND must be 'file' or 'azure'")
	}

	if c.StorageBackend == "azure" && c.StorageAccount == "" {
		return fmt.Errorf("AZURE_STORAGE_ACCOUNT is required when STORAGE_BACKEND is 'azure'")
	}

	if c.FetchCount < 1 || c.FetchCount > 100 {
		return fmt.Errorf("FETCH_COUNT must be between 1 and 100")
	}

	if c.AlertEmail != "" {
		if c.SMTPHost == "" || c.SMTPUsername == "" || c.SMTPPassword == "" {
			return fmt.Errorf("SMTP configuration is required when ALERT_EMAIL is set")
		}
	}

	return nil
}

// Helper functions for environment variable parsing
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getBoolEnv(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.ParseBool(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}

func getIntEnv(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.Atoi(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}
