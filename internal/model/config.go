package model

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
)

// Notifier kinds accepted in alerts.notifier.
const (
	NotifierLog    = "log"
	NotifierOutbox = "outbox"
	NotifierIMAP   = "imap"
)

// ServerConfig holds HTTP listener settings.
type ServerConfig struct {
	Addr           string `mapstructure:"addr" yaml:"addr"`
	MaxUploadBytes int64  `mapstructure:"max_upload_bytes" yaml:"max_upload_bytes"`
}

// DatabaseConfig locates the SQLite database file.
type DatabaseConfig struct {
	Path string `mapstructure:"path" yaml:"path"`
}

// IMAPConfig describes the mailbox that receives alert messages when the
// imap notifier is selected. The password is read from the keyring.
type IMAPConfig struct {
	Host     string `mapstructure:"host" yaml:"host"`
	Port     string `mapstructure:"port" yaml:"port"`
	Username string `mapstructure:"username" yaml:"username"`
	Mailbox  string `mapstructure:"mailbox" yaml:"mailbox"`
	TLS      bool   `mapstructure:"tls" yaml:"tls"`
}

// AlertConfig controls delay detection and alert delivery.
type AlertConfig struct {
	// ThresholdHours is how far past its planned date an unfinished step
	// must be before an alert is sent.
	ThresholdHours float64 `mapstructure:"threshold_hours" yaml:"threshold_hours"`

	// ScanIntervalSec enables the in-process scheduler when positive.
	ScanIntervalSec int `mapstructure:"scan_interval_sec" yaml:"scan_interval_sec"`

	Notifier  string     `mapstructure:"notifier" yaml:"notifier"`
	OutboxDir string     `mapstructure:"outbox_dir" yaml:"outbox_dir"`
	From      string     `mapstructure:"from" yaml:"from"`
	To        []string   `mapstructure:"to" yaml:"to"`
	IMAP      IMAPConfig `mapstructure:"imap" yaml:"imap"`
}

// CredentialConfig selects where secrets are kept.
type CredentialConfig struct {
	// Dir holds the encrypted file backend.
	Dir string `mapstructure:"dir" yaml:"dir"`

	// FileOnly skips the platform secret stores.
	FileOnly bool `mapstructure:"file_only" yaml:"file_only"`
}

// AppConfig is the top-level application configuration.
type AppConfig struct {
	Server      ServerConfig     `mapstructure:"server" yaml:"server"`
	Database    DatabaseConfig   `mapstructure:"database" yaml:"database"`
	Alerts      AlertConfig      `mapstructure:"alerts" yaml:"alerts"`
	Credentials CredentialConfig `mapstructure:"credentials" yaml:"credentials"`
}

// DefaultConfigPath returns the default path for the configuration file,
// located at ~/.config/fms/config.yaml.
func DefaultConfigPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(".", "config.yaml")
	}
	return filepath.Join(home, ".config", "fms", "config.yaml")
}

// DefaultAppConfig returns the configuration used when no file exists.
func DefaultAppConfig() *AppConfig {
	return &AppConfig{
		Server: ServerConfig{
			Addr:           ":3000",
			MaxUploadBytes: 10 << 20,
		},
		Database: DatabaseConfig{Path: "fms.db"},
		Alerts: AlertConfig{
			ThresholdHours: 48,
			Notifier:       NotifierLog,
			OutboxDir:      "outbox",
			From:           "fms@localhost",
			To:             []string{"managers@localhost"},
			IMAP: IMAPConfig{
				Port:    "993",
				Mailbox: "FMS Alerts",
				TLS:     true,
			},
		},
		Credentials: CredentialConfig{Dir: "~/.config/fms/credentials"},
	}
}

func setDefaults(v *viper.Viper) {
	d := DefaultAppConfig()
	v.SetDefault("server.addr", d.Server.Addr)
	v.SetDefault("server.max_upload_bytes", d.Server.MaxUploadBytes)
	v.SetDefault("database.path", d.Database.Path)
	v.SetDefault("alerts.threshold_hours", d.Alerts.ThresholdHours)
	v.SetDefault("alerts.scan_interval_sec", d.Alerts.ScanIntervalSec)
	v.SetDefault("alerts.notifier", d.Alerts.Notifier)
	v.SetDefault("alerts.outbox_dir", d.Alerts.OutboxDir)
	v.SetDefault("alerts.from", d.Alerts.From)
	v.SetDefault("alerts.to", d.Alerts.To)
	v.SetDefault("alerts.imap.host", d.Alerts.IMAP.Host)
	v.SetDefault("alerts.imap.port", d.Alerts.IMAP.Port)
	v.SetDefault("alerts.imap.username", d.Alerts.IMAP.Username)
	v.SetDefault("alerts.imap.mailbox", d.Alerts.IMAP.Mailbox)
	v.SetDefault("alerts.imap.tls", d.Alerts.IMAP.TLS)
	v.SetDefault("credentials.dir", d.Credentials.Dir)
	v.SetDefault("credentials.file_only", d.Credentials.FileOnly)
}

// LoadConfig reads configuration from the given YAML file path using Viper.
// Environment variables prefixed FMS_ override file values
// (FMS_SERVER_ADDR, FMS_ALERTS_THRESHOLD_HOURS, ...). A missing file yields
// the defaults.
func LoadConfig(path string) (*AppConfig, error) {
	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("yaml")
	v.SetEnvPrefix("FMS")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		var pathErr *os.PathError
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &pathErr) && !errors.As(err, &notFound) {
			return nil, fmt.Errorf("reading config %s: %w", path, err)
		}
	}

	cfg := DefaultAppConfig()
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("parsing config %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config %s: %w", path, err)
	}

	return cfg, nil
}

// Validate checks values that would otherwise fail late at runtime.
func (c *AppConfig) Validate() error {
	if c.Alerts.ThresholdHours < 0 {
		return fmt.Errorf("alerts.threshold_hours must not be negative")
	}
	if c.Alerts.ScanIntervalSec < 0 {
		return fmt.Errorf("alerts.scan_interval_sec must not be negative")
	}
	switch c.Alerts.Notifier {
	case NotifierLog, NotifierOutbox:
	case NotifierIMAP:
		if c.Alerts.IMAP.Host == "" || c.Alerts.IMAP.Username == "" {
			return fmt.Errorf("alerts.imap.host and alerts.imap.username are required for the imap notifier")
		}
	default:
		return fmt.Errorf("unknown alerts.notifier %q", c.Alerts.Notifier)
	}
	if c.Server.MaxUploadBytes <= 0 {
		return fmt.Errorf("server.max_upload_bytes must be positive")
	}
	return nil
}

// SaveConfig writes the given configuration to a YAML file at path,
// creating parent directories if needed.
func SaveConfig(path string, cfg *AppConfig) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating config directory %s: %w", dir, err)
	}

	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("yaml")

	v.Set("server", cfg.Server)
	v.Set("database", cfg.Database)
	v.Set("alerts", cfg.Alerts)
	v.Set("credentials", cfg.Credentials)

	if err := v.WriteConfigAs(path); err != nil {
		return fmt.Errorf("writing config to %s: %w", path, err)
	}

	return nil
}
