package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config holds the client configuration.
type Config struct {
	API           APIConfig           `yaml:"api"`
	Paths         PathsConfig         `yaml:"paths"`
	Messaging     MessagingConfig     `yaml:"messaging"`
	Notifications NotificationsConfig `yaml:"notifications"`
	UI            UIConfig            `yaml:"ui"`
	Log           LogConfig           `yaml:"log"`
}

// APIConfig holds backend API settings.
type APIConfig struct {
	BaseURL       string        `yaml:"base_url"`
	Timeout       time.Duration `yaml:"timeout"`
	VerifyTimeout time.Duration `yaml:"verify_timeout"`
	VerifyRetries int           `yaml:"verify_retries"`
}

// PathsConfig holds filesystem paths for client state.
type PathsConfig struct {
	Data     string `yaml:"data"`
	Database string `yaml:"database"`
	KeyFile  string `yaml:"key_file"`
	Locales  string `yaml:"locales"`
	Log      string `yaml:"log"`
}

// MessagingConfig holds conversation polling settings.
type MessagingConfig struct {
	PollInterval time.Duration `yaml:"poll_interval"`
}

// NotificationsConfig holds toast settings.
type NotificationsConfig struct {
	Duration time.Duration `yaml:"duration"`
}

// UIConfig holds first-run preference defaults.
type UIConfig struct {
	Theme  string `yaml:"theme"`
	Locale string `yaml:"locale"`
}

// LogConfig holds logger settings.
type LogConfig struct {
	Level string `yaml:"level"`
}

// Default returns the configuration used when no file overrides a field.
func Default() *Config {
	return &Config{
		API: APIConfig{
			BaseURL:       "http://localhost:8000/api",
			Timeout:       10 * time.Second,
			VerifyTimeout: 5 * time.Second,
			VerifyRetries: 2,
		},
		Paths: PathsConfig{
			Data:     "./data",
			Database: "./data/hostelhub.db",
			KeyFile:  "./data/session.key",
			Locales:  "./locales",
			Log:      "./data/hostelhub.log",
		},
		Messaging: MessagingConfig{
			PollInterval: 30 * time.Second,
		},
		Notifications: NotificationsConfig{
			Duration: 5 * time.Second,
		},
		UI: UIConfig{
			Theme:  "dark",
			Locale: "en",
		},
		Log: LogConfig{
			Level: "info",
		},
	}
}

// Load reads and parses a YAML config file. A missing file is not an error;
// defaults and environment overrides still apply.
func Load(path string) (*Config, error) {
	// .env is optional.
	_ = godotenv.Load()

	cfg := Default()

	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config %s: %w", path, err)
		}
	case os.IsNotExist(err):
	default:
		return nil, fmt.Errorf("read config %s: %w", path, err)
	}

	applyEnv(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func applyEnv(cfg *Config) {
	if v := strings.TrimSpace(os.Getenv("HOSTELHUB_API_URL")); v != "" {
		cfg.API.BaseURL = v
	}
	if v := strings.TrimSpace(os.Getenv("HOSTELHUB_LOG_LEVEL")); v != "" {
		cfg.Log.Level = v
	}
	if v := strings.TrimSpace(os.Getenv("HOSTELHUB_POLL_INTERVAL")); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.Messaging.PollInterval = d
		}
	}
	if v := strings.TrimSpace(os.Getenv("HOSTELHUB_DATA_DIR")); v != "" {
		cfg.Paths.Data = v
		cfg.Paths.Database = filepath.Join(v, "hostelhub.db")
		cfg.Paths.KeyFile = filepath.Join(v, "session.key")
		cfg.Paths.Log = filepath.Join(v, "hostelhub.log")
	}
}

// Validate checks the fields the client cannot run without.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.API.BaseURL) == "" {
		return fmt.Errorf("api.base_url is required")
	}
	if c.API.Timeout <= 0 {
		return fmt.Errorf("api.timeout must be > 0")
	}
	if c.API.VerifyTimeout <= 0 {
		return fmt.Errorf("api.verify_timeout must be > 0")
	}
	if c.API.VerifyRetries < 0 {
		return fmt.Errorf("api.verify_retries must be >= 0")
	}
	if c.Messaging.PollInterval <= 0 {
		return fmt.Errorf("messaging.poll_interval must be > 0")
	}
	if c.Notifications.Duration <= 0 {
		return fmt.Errorf("notifications.duration must be > 0")
	}
	return nil
}
