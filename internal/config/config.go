package config

import (
	"encoding/json"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// ConfigPathEnv overrides the default configuration file location
const ConfigPathEnv = "ADMIN_CONSOLE_CONFIG"

// Config holds all configuration for the admin console
type Config struct {
	// Remote backend (mail API, database REST/RPC, orchestrator)
	Backend BackendConfig `json:"backend" yaml:"backend"`

	// Session and service credentials
	Auth AuthConfig `json:"auth" yaml:"auth"`

	// Webmail behaviour
	Mail MailConfig `json:"mail" yaml:"mail"`

	// Notifications
	Toast ToastConfig `json:"toast" yaml:"toast"`

	// Keyboard shortcuts
	Keys KeyBindings `json:"keys" yaml:"keys"`

	// Theme name; resolved against ThemesDir
	Theme     string `json:"theme" yaml:"theme"`
	ThemesDir string `json:"themes_dir" yaml:"themes_dir"`

	// Logging
	LogFile string `json:"log_file" yaml:"log_file"`

	// Local preference store (SQLite)
	DBPath string `json:"db_path" yaml:"db_path"`
}

// BackendConfig locates the remote services
type BackendConfig struct {
	BaseURL      string  `json:"base_url" yaml:"base_url"`
	MailPrefix   string  `json:"mail_prefix" yaml:"mail_prefix"`
	Timeout      string  `json:"timeout" yaml:"timeout"`
	RateLimit    float64 `json:"rate_limit" yaml:"rate_limit"` // requests per second, 0 = unlimited
	RateBurst    int     `json:"rate_burst" yaml:"rate_burst"`
	AccountCache int     `json:"account_cache" yaml:"account_cache"` // per-account mailbox cache entries
}

// AuthConfig holds the session verification secret and the service
// credentials injected into backend calls
type AuthConfig struct {
	SessionSecret string   `json:"session_secret" yaml:"session_secret"`
	ServiceKey    string   `json:"service_key" yaml:"service_key"`
	ClientID      string   `json:"client_id" yaml:"client_id"`
	ClientSecret  string   `json:"client_secret" yaml:"client_secret"`
	TokenURL      string   `json:"token_url" yaml:"token_url"`
	Scopes        []string `json:"scopes,omitempty" yaml:"scopes,omitempty"`
}

// MailConfig tunes the mailbox state
type MailConfig struct {
	PageLimit int `json:"page_limit" yaml:"page_limit"`
	// Concurrent mailbox fetches when loading every account
	Parallel int `json:"parallel" yaml:"parallel"`
	// Revert local read/unread flags when the server rejects the change
	RollbackMarkRead bool `json:"rollback_mark_read" yaml:"rollback_mark_read"`
}

// ToastConfig controls the notification queue
type ToastConfig struct {
	Duration      string `json:"duration" yaml:"duration"`
	ErrorDuration string `json:"error_duration" yaml:"error_duration"`
	MaxToasts     int    `json:"max_toasts" yaml:"max_toasts"`
}

// KeyBindings defines keyboard shortcuts for the webmail view. Enter,
// Escape and Delete are fixed aliases of OpenThread, CloseThread and
// Delete.
type KeyBindings struct {
	// Thread list
	NextThread  string `json:"next_thread" yaml:"next_thread"`
	PrevThread  string `json:"prev_thread" yaml:"prev_thread"`
	OpenThread  string `json:"open_thread" yaml:"open_thread"`
	CloseThread string `json:"close_thread" yaml:"close_thread"`

	// Thread actions
	ToggleStar string `json:"toggle_star" yaml:"toggle_star"`
	Archive    string `json:"archive" yaml:"archive"`
	Delete     string `json:"delete" yaml:"delete"`
	MarkRead   string `json:"mark_read" yaml:"mark_read"`
	MarkUnread string `json:"mark_unread" yaml:"mark_unread"`

	// Delegated to the compose/search/help UI
	Reply    string `json:"reply" yaml:"reply"`
	ReplyAll string `json:"reply_all" yaml:"reply_all"`
	Forward  string `json:"forward" yaml:"forward"`
	Compose  string `json:"compose" yaml:"compose"`
	Search   string `json:"search" yaml:"search"`
	Help     string `json:"help" yaml:"help"`
	Quit     string `json:"quit" yaml:"quit"`

	// Go-to chord: prefix followed by a folder key
	GoPrefix  string `json:"go_prefix" yaml:"go_prefix"`
	GoInbox   string `json:"go_inbox" yaml:"go_inbox"`
	GoSent    string `json:"go_sent" yaml:"go_sent"`
	GoDrafts  string `json:"go_drafts" yaml:"go_drafts"`
	GoTrash   string `json:"go_trash" yaml:"go_trash"`
	GoArchive string `json:"go_archive" yaml:"go_archive"`

	// Chord timeout (in milliseconds)
	ChordTimeoutMs int `json:"chord_timeout_ms" yaml:"chord_timeout_ms"`
}

// DefaultConfig returns a Config with sensible defaults
func DefaultConfig() *Config {
	return &Config{
		Backend: DefaultBackendConfig(),
		Mail:    DefaultMailConfig(),
		Toast:   DefaultToastConfig(),
		Keys:    DefaultKeyBindings(),
		Theme:   "default",
		LogFile: "",
	}
}

// DefaultBackendConfig returns default backend settings
func DefaultBackendConfig() BackendConfig {
	return BackendConfig{
		BaseURL:      "http://localhost:8080",
		MailPrefix:   "/api/mail",
		Timeout:      "30s",
		RateBurst:    5,
		AccountCache: 32,
	}
}

// DefaultMailConfig returns default mailbox settings
func DefaultMailConfig() MailConfig {
	return MailConfig{
		PageLimit: 50,
		Parallel:  4,
	}
}

// DefaultToastConfig returns default notification settings
func DefaultToastConfig() ToastConfig {
	return ToastConfig{
		Duration:      "4s",
		ErrorDuration: "6s",
		MaxToasts:     5,
	}
}

// DefaultKeyBindings returns the default webmail shortcuts
func DefaultKeyBindings() KeyBindings {
	return KeyBindings{
		NextThread:  "j",
		PrevThread:  "k",
		OpenThread:  "o",
		CloseThread: "u",

		ToggleStar: "s",
		Archive:    "e",
		Delete:     "#",
		MarkRead:   "I",
		MarkUnread: "U",

		Reply:    "r",
		ReplyAll: "a",
		Forward:  "f",
		Compose:  "c",
		Search:   "/",
		Help:     "?",
		Quit:     "q",

		GoPrefix:  "g",
		GoInbox:   "i",
		GoSent:    "s",
		GoDrafts:  "d",
		GoTrash:   "t",
		GoArchive: "a",

		ChordTimeoutMs: 1000, // 1 second between g and the folder key
	}
}

// LoadConfig loads configuration from a JSON or YAML file on top of the
// defaults. A missing file yields the defaults.
func LoadConfig(configPath string) (*Config, error) {
	cfg := DefaultConfig()
	if configPath == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(configPath)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	if isYAML(configPath) {
		err = yaml.Unmarshal(data, cfg)
	} else {
		err = json.Unmarshal(data, cfg)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to parse config %s: %w", configPath, err)
	}
	return cfg, nil
}

func isYAML(path string) bool {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return true
	}
	return false
}

// DefaultConfigDir returns the directory holding config, logs and state
func DefaultConfigDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".config", "admin-console")
}

// DefaultConfigPath returns the configuration file path, honouring the
// ADMIN_CONSOLE_CONFIG environment variable
func DefaultConfigPath() string {
	if p := os.Getenv(ConfigPathEnv); p != "" {
		return p
	}
	dir := DefaultConfigDir()
	if dir == "" {
		return ""
	}
	return filepath.Join(dir, "config.json")
}

// DefaultLogDir returns the default log directory path
func DefaultLogDir() string {
	return DefaultConfigDir()
}

// DefaultDBPath returns the default preference store path
func DefaultDBPath() string {
	dir := DefaultConfigDir()
	if dir == "" {
		return ""
	}
	return filepath.Join(dir, "preferences.db")
}

// DefaultThemesDir returns the default themes directory path
func DefaultThemesDir() string {
	dir := DefaultConfigDir()
	if dir == "" {
		return ""
	}
	return filepath.Join(dir, "themes")
}

// SaveConfig saves the configuration to a file, as YAML when the path
// ends in .yaml or .yml
func (c *Config) SaveConfig(path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return err
	}

	var (
		data []byte
		err  error
	)
	if isYAML(path) {
		data, err = yaml.Marshal(c)
	} else {
		data, err = json.MarshalIndent(c, "", "  ")
	}
	if err != nil {
		return err
	}

	return os.WriteFile(path, data, 0600)
}

// Validate checks the values that cannot be defaulted
func (c *Config) Validate() error {
	if c == nil {
		return fmt.Errorf("config cannot be nil")
	}

	u, err := url.Parse(c.Backend.BaseURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("invalid backend base_url %q", c.Backend.BaseURL)
	}
	if c.Backend.RateLimit < 0 {
		return fmt.Errorf("backend rate_limit cannot be negative")
	}

	for name, d := range map[string]string{
		"backend timeout":      c.Backend.Timeout,
		"toast duration":       c.Toast.Duration,
		"toast error_duration": c.Toast.ErrorDuration,
	} {
		if d == "" {
			continue
		}
		if _, err := time.ParseDuration(d); err != nil {
			return fmt.Errorf("invalid %s: %w", name, err)
		}
	}

	if c.Mail.PageLimit < 0 {
		return fmt.Errorf("mail page_limit cannot be negative")
	}
	if c.Keys.ChordTimeoutMs < 0 {
		return fmt.Errorf("keys chord_timeout_ms cannot be negative")
	}
	if c.Auth.ClientID != "" && c.Auth.TokenURL == "" {
		return fmt.Errorf("auth token_url is required with client_id")
	}
	return nil
}

// GetBackendTimeout returns the parsed HTTP timeout
func (c *Config) GetBackendTimeout() time.Duration {
	return parseDuration(c.Backend.Timeout, 30*time.Second)
}

// GetToastDurations returns the parsed default and error toast lifetimes
func (c *Config) GetToastDurations() (time.Duration, time.Duration) {
	return parseDuration(c.Toast.Duration, 4*time.Second), parseDuration(c.Toast.ErrorDuration, 6*time.Second)
}

// GetChordTimeout returns the go-to chord window
func (c *Config) GetChordTimeout() time.Duration {
	if c.Keys.ChordTimeoutMs <= 0 {
		return time.Second
	}
	return time.Duration(c.Keys.ChordTimeoutMs) * time.Millisecond
}

func parseDuration(s string, fallback time.Duration) time.Duration {
	if s != "" {
		if d, err := time.ParseDuration(s); err == nil && d > 0 {
			return d
		}
	}
	return fallback
}
