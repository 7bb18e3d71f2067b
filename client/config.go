package main

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/puyokura/odysseychat/chat"
	"github.com/puyokura/odysseychat/facts"
)

// Config is the client configuration read from odyssey.yaml.
type Config struct {
	Username string `yaml:"username"`
	Persona  string `yaml:"persona"`
	URL      string `yaml:"url"`
	FactsURL string `yaml:"facts_url"`
	LogFile  string `yaml:"log_file"`
	Debug    bool   `yaml:"debug"`

	OpenTimeout   string `yaml:"open_timeout"`
	TypingTimeout string `yaml:"typing_timeout"`
}

// DefaultConfig returns the built-in settings.
func DefaultConfig() *Config {
	return &Config{
		URL:           chat.DefaultEndpoint,
		FactsURL:      facts.DefaultBaseURL,
		LogFile:       "logs/client.log",
		OpenTimeout:   chat.DefaultOpenTimeout.String(),
		TypingTimeout: chat.DefaultTypingTimeout.String(),
	}
}

// LoadConfig reads path on top of the defaults. A missing file is not an
// error. Environment variables override the file.
func LoadConfig(path string) (*Config, error) {
	cfg := DefaultConfig()

	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case err == nil:
			if err := yaml.Unmarshal(data, cfg); err != nil {
				return nil, fmt.Errorf("failed to parse config: %w", err)
			}
		case !os.IsNotExist(err):
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
	}

	cfg.applyEnvOverrides()
	return cfg, nil
}

// Save writes the configuration as YAML.
func (c *Config) Save(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}
	return nil
}

func (c *Config) applyEnvOverrides() {
	if v := os.Getenv("ODYSSEY_URL"); v != "" {
		c.URL = v
	}
	if v := os.Getenv("ODYSSEY_FACTS_URL"); v != "" {
		c.FactsURL = v
	}
	if v := os.Getenv("ODYSSEY_USERNAME"); v != "" {
		c.Username = v
	}
	if v := os.Getenv("ODYSSEY_PERSONA"); v != "" {
		c.Persona = v
	}
	if v := os.Getenv("ODYSSEY_LOG_FILE"); v != "" {
		c.LogFile = v
	}
}

// OpenTimeoutDuration parses OpenTimeout, falling back to the default.
func (c *Config) OpenTimeoutDuration() time.Duration {
	return parseDuration(c.OpenTimeout, chat.DefaultOpenTimeout)
}

// TypingTimeoutDuration parses TypingTimeout, falling back to the default.
func (c *Config) TypingTimeoutDuration() time.Duration {
	return parseDuration(c.TypingTimeout, chat.DefaultTypingTimeout)
}

func parseDuration(s string, fallback time.Duration) time.Duration {
	d, err := time.ParseDuration(s)
	if err != nil || d <= 0 {
		return fallback
	}
	return d
}
