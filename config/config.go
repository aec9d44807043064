package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v2"
)

// Config represents the entire application configuration.
type Config struct {
	DatabasePath string        `yaml:"database_path"`
	Web          WebConfig     `yaml:"web"`
	Auth         AuthConfig    `yaml:"auth"`
	Uploads      UploadsConfig `yaml:"uploads"`
	Notify       NotifyConfig  `yaml:"notify"`
	Receipts     ReceiptConfig `yaml:"receipts"`
}

// WebConfig holds settings specific to the web server.
type WebConfig struct {
	ListenAddress   string   `yaml:"listen_address"`
	AllowedOrigins  []string `yaml:"allowed_origins"`
	DevelopmentMode bool     `yaml:"development_mode"`
}

// AuthConfig holds the token signing settings. The signing secret may
// be supplied via the JWT_SECRET environment variable instead of the
// configuration file, which takes precedence.
type AuthConfig struct {
	JWTSecret          string `yaml:"jwt_secret"`
	TokenLifetimeStr   string `yaml:"token_lifetime"`      // e.g. "24h"
	SigningLinkTTLStr  string `yaml:"signing_link_ttl"`    // e.g. "336h" (14 days)
	TokenLifetime      time.Duration
	SigningLinkLifetime time.Duration
}

// UploadsConfig holds the file upload directories. MirrorDir, if set,
// is a second directory tree kept in sync with Dir by the mirror
// watcher.
type UploadsConfig struct {
	Dir       string `yaml:"dir"`
	MirrorDir string `yaml:"mirror_dir"`
}

// NotifyConfig holds the outbound notification settings. An empty
// WebhookURL disables notifications entirely.
type NotifyConfig struct {
	WebhookURL       string `yaml:"webhook_url"`
	ReminderSchedule string `yaml:"reminder_schedule"` // cron spec, e.g. "0 8 * * *"
}

// ReceiptConfig holds the settings for the external receipt
// data-extraction service. An empty URL disables extraction.
type ReceiptConfig struct {
	URL          string `yaml:"url"`
	TokenURL     string `yaml:"token_url"`
	ClientID     string `yaml:"client_id"`
	ClientSecret string `yaml:"client_secret"`
}

// Load loads and validates the configuration from the given file path.
func Load(filePath string) (*Config, error) {
	if _, err := os.Stat(filePath); os.IsNotExist(err) {
		return nil, fmt.Errorf("config file does not exist: %s", filePath)
	}

	configFile, err := os.ReadFile(filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var cfg Config
	err = yaml.Unmarshal(configFile, &cfg)
	if err != nil {
		return nil, fmt.Errorf("unable to parse YAML config file: %w", err)
	}

	if err := validateAndPrepare(&cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// validateAndPrepare checks for required fields and sets up derived values.
func validateAndPrepare(c *Config) error {
	// General
	if c.DatabasePath == "" {
		return errors.New("database_path is missing")
	}

	// Web
	if c.Web.ListenAddress == "" {
		return errors.New("web.listen_address is missing")
	}

	// Auth
	if secret := os.Getenv("JWT_SECRET"); secret != "" {
		c.Auth.JWTSecret = secret
	}
	if c.Auth.JWTSecret == "" {
		return errors.New("auth.jwt_secret is missing (or set JWT_SECRET)")
	}
	if c.Auth.TokenLifetimeStr == "" {
		c.Auth.TokenLifetimeStr = "24h"
	}
	lifetime, err := time.ParseDuration(c.Auth.TokenLifetimeStr)
	if err != nil {
		return fmt.Errorf("invalid auth.token_lifetime: %w", err)
	}
	c.Auth.TokenLifetime = lifetime
	if c.Auth.SigningLinkTTLStr == "" {
		c.Auth.SigningLinkTTLStr = "336h" // two weeks for agreement links
	}
	linkTTL, err := time.ParseDuration(c.Auth.SigningLinkTTLStr)
	if err != nil {
		return fmt.Errorf("invalid auth.signing_link_ttl: %w", err)
	}
	c.Auth.SigningLinkLifetime = linkTTL

	// Uploads
	if c.Uploads.Dir == "" {
		return errors.New("uploads.dir is missing")
	}

	// Notify
	if c.Notify.WebhookURL != "" && c.Notify.ReminderSchedule == "" {
		c.Notify.ReminderSchedule = "0 8 * * *"
	}

	// Receipts: either all of the service settings or none.
	r := c.Receipts
	if r.URL != "" {
		if r.TokenURL == "" || r.ClientID == "" || r.ClientSecret == "" {
			return errors.New("receipts requires token_url, client_id and client_secret when url is set")
		}
	}

	return nil
}
