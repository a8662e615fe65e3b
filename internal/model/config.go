package model

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/viper"
)

// IMAPConfig holds the mail server endpoint settings.
type IMAPConfig struct {
	// Host is the IMAP server hostname.
	Host string `mapstructure:"host" yaml:"host"`

	// Port is the IMAPS port.
	Port string `mapstructure:"port" yaml:"port"`

	// DialTimeoutSec bounds the TCP/TLS connection attempt.
	DialTimeoutSec int `mapstructure:"dial_timeout_sec" yaml:"dial_timeout_sec"`

	// SentFolders are candidate sent-mail mailbox names, tried in order.
	// Gmail localizes the folder name, so the first selectable one wins.
	SentFolders []string `mapstructure:"sent_folders" yaml:"sent_folders"`
}

// CheckConfig holds per-run processing settings.
type CheckConfig struct {
	// Workers bounds concurrent app-password checks. OAuth2 credentials are
	// always processed one at a time.
	Workers int `mapstructure:"workers" yaml:"workers"`

	// ProbeLatest fetches the newest inbox message header on success and
	// reports its sender and date.
	ProbeLatest bool `mapstructure:"probe_latest" yaml:"probe_latest"`
}

// HistoryConfig controls the optional run archive.
type HistoryConfig struct {
	// Path is the sqlite database file. Empty disables archiving.
	Path string `mapstructure:"path" yaml:"path"`
}

// AppConfig is the top-level application configuration.
type AppConfig struct {
	IMAP    IMAPConfig    `mapstructure:"imap" yaml:"imap"`
	Check   CheckConfig   `mapstructure:"check" yaml:"check"`
	History HistoryConfig `mapstructure:"history" yaml:"history"`

	// ScratchDir receives debug logs and exported files.
	ScratchDir string `mapstructure:"scratch_dir" yaml:"scratch_dir"`
}

// DialTimeout returns the configured dial timeout as a duration.
func (c IMAPConfig) DialTimeout() time.Duration {
	return time.Duration(c.DialTimeoutSec) * time.Second
}

// Addr returns the host:port dial address.
func (c IMAPConfig) Addr() string {
	return c.Host + ":" + c.Port
}

// DefaultConfigPath returns the default path for the configuration file,
// located at ~/.config/mailcheck/config.yaml.
func DefaultConfigPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(".", "config.yaml")
	}
	return filepath.Join(home, ".config", "mailcheck", "config.yaml")
}

// defaultAppConfig returns a configuration that works against Gmail with
// no config file present.
func defaultAppConfig() *AppConfig {
	return &AppConfig{
		IMAP: IMAPConfig{
			Host:           "imap.gmail.com",
			Port:           "993",
			DialTimeoutSec: 30,
			SentFolders: []string{
				"[Gmail]/Sent Mail", "Sent", "Sent Items", "Sent Messages",
			},
		},
		Check: CheckConfig{
			Workers: 4,
		},
		ScratchDir: os.TempDir(),
	}
}

// LoadConfig reads configuration from the given YAML file path using Viper.
// If the file does not exist, it returns the default configuration.
func LoadConfig(path string) (*AppConfig, error) {
	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("yaml")

	v.SetDefault("imap.host", "imap.gmail.com")
	v.SetDefault("imap.port", "993")
	v.SetDefault("imap.dial_timeout_sec", 30)
	v.SetDefault("imap.sent_folders", []string{
		"[Gmail]/Sent Mail", "Sent", "Sent Items", "Sent Messages",
	})
	v.SetDefault("check.workers", 4)
	v.SetDefault("check.probe_latest", false)
	v.SetDefault("scratch_dir", os.TempDir())

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(*os.PathError); ok {
			return defaultAppConfig(), nil
		}
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			return defaultAppConfig(), nil
		}
		return nil, fmt.Errorf("reading config %s: %w", path, err)
	}

	cfg := defaultAppConfig()
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("parsing config %s: %w", path, err)
	}

	if cfg.Check.Workers < 1 {
		cfg.Check.Workers = 1
	}

	return cfg, nil
}

// SetProbeLatest updates the probe default and persists it, so the next
// run's form starts from the same choice. A write failure leaves the
// in-memory value updated.
func (c *AppConfig) SetProbeLatest(path string, probe bool) error {
	if c.Check.ProbeLatest == probe {
		return nil
	}
	c.Check.ProbeLatest = probe
	return SaveConfig(path, c)
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

	v.Set("imap", cfg.IMAP)
	v.Set("check", cfg.Check)
	v.Set("history", cfg.History)
	v.Set("scratch_dir", cfg.ScratchDir)

	if err := v.WriteConfigAs(path); err != nil {
		return fmt.Errorf("writing config to %s: %w", path, err)
	}

	return nil
}
