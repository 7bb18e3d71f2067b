package main

import (
	"encoding/json"
	"os"
	"strings"
	"sync"
	"time"
)

// Config is the broker configuration file. Ark credentials never live in the
// file; they come from the environment.
type Config struct {
	Host             string   `json:"host"`
	Port             string   `json:"port"`
	ServerName       string   `json:"server_name"`
	WelcomeMessage   string   `json:"welcome_message"`
	DatabasePath     string   `json:"database_path"`
	ResponderTimeout string   `json:"responder_timeout"`
	MaxMessageSize   int64    `json:"max_message_size"`
	BannedUsernames  []string `json:"banned_usernames"`
	ArkModel         string   `json:"ark_model"`
	ArkBaseURL       string   `json:"ark_base_url"`
	ArkRegion        string   `json:"ark_region"`

	ArkAPIKey    string `json:"-"`
	ArkAccessKey string `json:"-"`
	ArkSecretKey string `json:"-"`

	mu         sync.RWMutex
	configFile string
}

func NewConfig(filename string) *Config {
	if filename == "" {
		filename = "server_config.json"
	}
	return &Config{
		configFile: filename,
		// Defaults
		Host:             "localhost",
		Port:             "8000",
		ServerName:       "Odyssey Chat Server",
		WelcomeMessage:   "Welcome to Odyssey Chat! Mention a persona with @Name. Type /help for commands.",
		DatabasePath:     "odyssey.db",
		ResponderTimeout: "60s",
		MaxMessageSize:   8192,
		BannedUsernames:  []string{},
		ArkBaseURL:       "https://ark.cn-beijing.volces.com/api/v3",
	}
}

// Load reads the file, writing it back so new fields show up with their
// defaults, and then applies environment overrides.
func (c *Config) Load() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	defer c.applyEnv()

	if _, err := os.Stat(c.configFile); os.IsNotExist(err) {
		return c.saveInternal()
	}

	data, err := os.ReadFile(c.configFile)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(data, c); err != nil {
		return err
	}
	return c.saveInternal()
}

func (c *Config) applyEnv() {
	if v := strings.TrimSpace(os.Getenv("PORT")); v != "" {
		c.Port = v
	}
	if v := strings.TrimSpace(os.Getenv("ODYSSEY_DB")); v != "" {
		c.DatabasePath = v
	}
	if v := strings.TrimSpace(os.Getenv("ARK_MODEL")); v != "" {
		c.ArkModel = v
	}
	if v := strings.TrimSpace(os.Getenv("ARK_BASE_URL")); v != "" {
		c.ArkBaseURL = v
	}
	if v := strings.TrimSpace(os.Getenv("ARK_REGION")); v != "" {
		c.ArkRegion = v
	}
	c.ArkAPIKey = strings.TrimSpace(os.Getenv("ARK_API_KEY"))
	c.ArkAccessKey = strings.TrimSpace(os.Getenv("ARK_ACCESS_KEY"))
	c.ArkSecretKey = strings.TrimSpace(os.Getenv("ARK_SECRET_KEY"))
}

func (c *Config) Save() error {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.saveInternal()
}

func (c *Config) saveInternal() error {
	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(c.configFile, data, 0644)
}

// Addr is the listen address.
func (c *Config) Addr() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.Host + ":" + c.Port
}

// AIEnabled reports whether Ark credentials and a model are configured.
func (c *Config) AIEnabled() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.ArkModel != "" && (c.ArkAPIKey != "" || (c.ArkAccessKey != "" && c.ArkSecretKey != ""))
}

// Timeout bounds a single responder call.
func (c *Config) Timeout() time.Duration {
	c.mu.RLock()
	defer c.mu.RUnlock()
	d, err := time.ParseDuration(c.ResponderTimeout)
	if err != nil || d <= 0 {
		return 60 * time.Second
	}
	return d
}

func (c *Config) IsBanned(username string) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	for _, banned := range c.BannedUsernames {
		if strings.EqualFold(banned, username) {
			return true
		}
	}
	return false
}

func (c *Config) Ban(username string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	for _, banned := range c.BannedUsernames {
		if strings.EqualFold(banned, username) {
			return nil
		}
	}
	c.BannedUsernames = append(c.BannedUsernames, username)
	return c.saveInternal()
}

func (c *Config) Unban(username string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	kept := []string{}
	for _, banned := range c.BannedUsernames {
		if !strings.EqualFold(banned, username) {
			kept = append(kept, banned)
		}
	}
	c.BannedUsernames = kept
	return c.saveInternal()
}
