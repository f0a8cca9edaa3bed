// Package config loads the taskdesk daemon configuration.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"
	_ "time/tzdata"

	"github.com/fentz26/taskdesk/internal/access"
	"github.com/fentz26/taskdesk/internal/conversation"
	"github.com/fentz26/taskdesk/internal/lifecycle"
	"github.com/fentz26/taskdesk/internal/reminder"
	"gopkg.in/yaml.v3"
)

// DirName is the per-user directory holding config and data.
const DirName = ".taskdesk"

// Config holds the daemon configuration.
type Config struct {
	// AdminID is the one user allowed to manage the allow-list.
	AdminID int64 `yaml:"admin_id"`
	// DBPath is the SQLite database file.
	DBPath string `yaml:"db_path"`
	// Listen is the HTTP API address.
	Listen string `yaml:"listen"`
	// Timezone is an IANA zone name used to read deadlines and decide "today".
	Timezone string `yaml:"timezone"`

	Reminders    reminder.Config    `yaml:"reminders"`
	Notify       NotifyConfig       `yaml:"notify"`
	Conversation ConversationConfig `yaml:"conversation"`
	Policy       PolicyConfig       `yaml:"policy"`
	Store        StoreConfig        `yaml:"store"`
	List         ListConfig         `yaml:"list"`
	Export       ExportConfig       `yaml:"export"`
}

// NotifyConfig selects where notifications go. An empty WebhookURL logs them.
type NotifyConfig struct {
	WebhookURL string        `yaml:"webhook_url"`
	Timeout    time.Duration `yaml:"timeout"`
}

// ConversationConfig tunes the chat wizards.
type ConversationConfig struct {
	// TTL is how long an idle wizard is kept.
	TTL time.Duration `yaml:"ttl"`
}

// PolicyConfig holds the member rules: creator, creator_or_assignee or anyone.
type PolicyConfig struct {
	MemberView   string `yaml:"member_view"`
	MemberModify string `yaml:"member_modify"`
	MemberStatus string `yaml:"member_status"`
}

// StoreConfig tunes database access.
type StoreConfig struct {
	// OpTimeout bounds each store call made by the lifecycle engine.
	OpTimeout time.Duration `yaml:"op_timeout"`
}

// ExportConfig tunes file exports.
type ExportConfig struct {
	// PDFFont is a UTF-8 TrueType font for PDF exports. Empty means the
	// first Unicode font found on the system.
	PDFFont string `yaml:"pdf_font"`
}

// ListConfig tunes task listings.
type ListConfig struct {
	PageSize int `yaml:"page_size"`
}

// Dir returns ~/.taskdesk, or .taskdesk when there is no home directory.
func Dir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return DirName
	}
	return filepath.Join(home, DirName)
}

// DefaultPath returns ~/.taskdesk/config.yaml.
func DefaultPath() string {
	return filepath.Join(Dir(), "config.yaml")
}

// DefaultConfig returns a configuration that runs out of the box.
func DefaultConfig() *Config {
	m := access.DefaultMatrix()
	return &Config{
		DBPath:    filepath.Join(Dir(), "taskdesk.db"),
		Listen:    "127.0.0.1:7466",
		Timezone:  "Local",
		Reminders: *reminder.DefaultConfig(),
		Notify: NotifyConfig{
			Timeout: 10 * time.Second,
		},
		Conversation: ConversationConfig{
			TTL: conversation.DefaultTTL,
		},
		Policy: PolicyConfig{
			MemberView:   string(m.MemberView),
			MemberModify: string(m.MemberModify),
			MemberStatus: string(m.MemberStatus),
		},
		Store: StoreConfig{
			OpTimeout: 5 * time.Second,
		},
		List: ListConfig{
			PageSize: lifecycle.DefaultPageSize,
		},
	}
}

// LoadConfig loads configuration from a YAML file. A missing file yields the defaults.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return DefaultConfig(), nil
		}
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return cfg, nil
}

// SaveConfig writes cfg as YAML, creating parent directories if needed.
func SaveConfig(path string, cfg *Config) error {
	if cfg == nil {
		return fmt.Errorf("config cannot be nil")
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return fmt.Errorf("creating config dir: %w", err)
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshaling config: %w", err)
	}

	if err := os.WriteFile(path, data, 0o600); err != nil {
		return fmt.Errorf("writing config file: %w", err)
	}
	return nil
}

// Validate checks that the configuration is usable.
func (c *Config) Validate() error {
	if c.AdminID < 0 {
		return fmt.Errorf("admin_id must not be negative")
	}
	if c.DBPath == "" {
		return fmt.Errorf("db_path is required")
	}
	if _, err := c.Location(); err != nil {
		return err
	}
	if _, err := c.Matrix(); err != nil {
		return err
	}
	if c.Reminders.Enabled && c.Reminders.Interval <= 0 {
		return fmt.Errorf("reminders.interval must be positive")
	}
	if c.Notify.Timeout < 0 || c.Store.OpTimeout < 0 || c.Conversation.TTL < 0 {
		return fmt.Errorf("timeouts must not be negative")
	}
	if c.List.PageSize < 1 {
		return fmt.Errorf("list.page_size must be at least 1")
	}
	return nil
}

// Location resolves Timezone. An empty name means UTC, as with time.LoadLocation.
func (c *Config) Location() (*time.Location, error) {
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return nil, fmt.Errorf("invalid timezone %q: %w", c.Timezone, err)
	}
	return loc, nil
}

// Matrix builds the access matrix from the policy section.
func (c *Config) Matrix() (access.Matrix, error) {
	var m access.Matrix
	var err error
	if m.MemberView, err = access.ParseScope(c.Policy.MemberView); err != nil {
		return m, fmt.Errorf("policy.member_view: %w", err)
	}
	if m.MemberModify, err = access.ParseScope(c.Policy.MemberModify); err != nil {
		return m, fmt.Errorf("policy.member_modify: %w", err)
	}
	if m.MemberStatus, err = access.ParseScope(c.Policy.MemberStatus); err != nil {
		return m, fmt.Errorf("policy.member_status: %w", err)
	}
	return m, nil
}
