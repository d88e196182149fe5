package config

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
	"golang.org/x/text/language"
)

// Config represents application configuration
type Config struct {
	Data   DataConfig   `mapstructure:"data"`
	Commit CommitConfig `mapstructure:"commit"`
	Roster RosterConfig `mapstructure:"roster"`
	Daemon DaemonConfig `mapstructure:"daemon"`
}

// DataConfig locates the persisted files
type DataConfig struct {
	Dir          string `mapstructure:"dir"`
	RecordsFile  string `mapstructure:"records_file"`
	RosterFile   string `mapstructure:"roster_file"`
	SettingsFile string `mapstructure:"settings_file"`
	BackupDir    string `mapstructure:"backup_dir"`
}

// CommitConfig bounds record store commits
type CommitConfig struct {
	Timeout string `mapstructure:"timeout"`
}

// RosterConfig controls roster display order
type RosterConfig struct {
	Locale string `mapstructure:"locale"` // BCP 47 tag; "zh" sorts by pinyin
}

// DaemonConfig represents daemon mode configuration
type DaemonConfig struct {
	CheckInterval string `mapstructure:"check_interval"`
	LogFile       string `mapstructure:"log_file"`
	LogLevel      string `mapstructure:"log_level"`
	SystemTray    bool   `mapstructure:"system_tray"` // Show system tray icon (Windows only)
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("data.dir", "data")
	v.SetDefault("data.records_file", "leave_records.json")
	v.SetDefault("data.roster_file", "students.json")
	v.SetDefault("data.settings_file", "settings.json")
	v.SetDefault("data.backup_dir", "backup")
	v.SetDefault("commit.timeout", "10s")
	v.SetDefault("roster.locale", "zh")
	v.SetDefault("daemon.check_interval", "1h")
	v.SetDefault("daemon.log_level", "info")
	v.SetDefault("daemon.system_tray", false)
}

// Load loads configuration. An explicit configPath must exist; otherwise
// config.yaml is searched for and defaults apply when none is found.
// Variables from .env and .env.local are loaded first and LEAVE_* variables
// override file values (LEAVE_DATA_DIR for data.dir).
func Load(configPath string) (*Config, error) {
	_ = godotenv.Load(".env")
	_ = godotenv.Load(".env.local")

	v := viper.New()
	setDefaults(v)

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("$HOME/.leave-tracker")
		v.AddConfigPath("/etc/leave-tracker")
	}

	v.SetEnvPrefix("leave")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if configPath != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &config, nil
}

// Default returns the configuration used when no file is present
func Default() *Config {
	v := viper.New()
	setDefaults(v)
	var config Config
	_ = v.Unmarshal(&config)
	return &config
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if c.Data.Dir == "" {
		return fmt.Errorf("data.dir is required")
	}
	for key, name := range map[string]string{
		"data.records_file":  c.Data.RecordsFile,
		"data.roster_file":   c.Data.RosterFile,
		"data.settings_file": c.Data.SettingsFile,
	} {
		if name == "" {
			return fmt.Errorf("%s is required", key)
		}
		if filepath.Base(name) != name {
			return fmt.Errorf("%s must be a file name inside data.dir, got '%s'", key, name)
		}
	}
	if c.Data.RecordsFile == c.Data.SettingsFile || c.Data.RosterFile == c.Data.SettingsFile {
		return fmt.Errorf("data.settings_file must differ from the records and roster files")
	}
	if c.Data.BackupDir == "" {
		return fmt.Errorf("data.backup_dir is required")
	}

	if c.Commit.Timeout != "" {
		d, err := time.ParseDuration(c.Commit.Timeout)
		if err != nil {
			return fmt.Errorf("commit.timeout: %w", err)
		}
		if d <= 0 {
			return fmt.Errorf("commit.timeout must be positive")
		}
	}

	if c.Roster.Locale != "" {
		if _, err := language.Parse(c.Roster.Locale); err != nil {
			return fmt.Errorf("roster.locale: %w", err)
		}
	}

	switch strings.ToLower(c.Daemon.LogLevel) {
	case "", "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("daemon.log_level must be debug, info, warn or error, got '%s'", c.Daemon.LogLevel)
	}

	return nil
}

// RecordsPath returns the path of the absence records file
func (c *DataConfig) RecordsPath() string {
	return filepath.Join(c.Dir, c.RecordsFile)
}

// RosterPath returns the path of the roster file
func (c *DataConfig) RosterPath() string {
	return filepath.Join(c.Dir, c.RosterFile)
}

// SettingsPath returns the path of settings.json
func (c *DataConfig) SettingsPath() string {
	return filepath.Join(c.Dir, c.SettingsFile)
}

// GetTimeout returns the commit watchdog budget. Default: 10s
func (c *CommitConfig) GetTimeout() time.Duration {
	if c.Timeout == "" {
		return 10 * time.Second
	}
	duration, err := time.ParseDuration(c.Timeout)
	if err != nil || duration <= 0 {
		return 10 * time.Second
	}
	return duration
}

// GetTag returns the collation language. Default: Chinese
func (c *RosterConfig) GetTag() language.Tag {
	tag, err := language.Parse(c.Locale)
	if err != nil {
		return language.Chinese
	}
	return tag
}

// GetCheckInterval returns daemon check interval duration
func (c *DaemonConfig) GetCheckInterval() time.Duration {
	if c.CheckInterval == "" {
		return time.Hour
	}
	duration, err := time.ParseDuration(c.CheckInterval)
	if err != nil || duration <= 0 {
		return time.Hour
	}
	return duration
}
