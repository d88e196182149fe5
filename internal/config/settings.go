package config

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"

	"github.com/spf13/viper"
)

// Settings is the user-editable settings.json
type Settings struct {
	AutoStartWeb  bool `mapstructure:"auto_start_web" json:"auto_start_web" yaml:"auto_start_web"`
	BackupFreq    int  `mapstructure:"backup_freq" json:"backup_freq" yaml:"backup_freq"`       // days between automatic backups
	BackupDelete  int  `mapstructure:"backup_delete" json:"backup_delete" yaml:"backup_delete"` // backups kept by retention
	FrequentDays  int  `mapstructure:"frequent_days" json:"frequent_days" yaml:"frequent_days"`
	FrequentCount int  `mapstructure:"frequent_count" json:"frequent_count" yaml:"frequent_count"`
}

var settingDefaults = map[string]interface{}{
	"auto_start_web": false,
	"backup_freq":    1,
	"backup_delete":  10,
	"frequent_days":  5,
	"frequent_count": 3,
}

// SettingKeys lists every settings.json key in sorted order
func SettingKeys() []string {
	keys := make([]string, 0, len(settingDefaults))
	for k := range settingDefaults {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// DefaultSettings returns the settings used before settings.json exists
func DefaultSettings() *Settings {
	return &Settings{
		BackupFreq:    1,
		BackupDelete:  10,
		FrequentDays:  5,
		FrequentCount: 3,
	}
}

func newSettingsViper(path string) *viper.Viper {
	v := viper.New()
	for k, val := range settingDefaults {
		v.SetDefault(k, val)
	}
	v.SetConfigFile(path)
	v.SetConfigType("json")
	return v
}

// LoadSettings reads settings.json. A missing file yields the defaults;
// missing keys take their default values.
func LoadSettings(path string) (*Settings, error) {
	v := newSettingsViper(path)
	if err := v.ReadInConfig(); err != nil {
		if _, statErr := os.Stat(path); os.IsNotExist(statErr) {
			return DefaultSettings(), nil
		}
		return nil, fmt.Errorf("failed to read settings: %w", err)
	}

	var s Settings
	if err := v.Unmarshal(&s); err != nil {
		return nil, fmt.Errorf("failed to unmarshal settings: %w", err)
	}
	if err := s.Validate(); err != nil {
		return nil, fmt.Errorf("invalid settings: %w", err)
	}
	return &s, nil
}

// SaveSettings writes s to path as JSON
func SaveSettings(path string, s *Settings) error {
	if err := s.Validate(); err != nil {
		return fmt.Errorf("invalid settings: %w", err)
	}

	v := newSettingsViper(path)
	v.Set("auto_start_web", s.AutoStartWeb)
	v.Set("backup_freq", s.BackupFreq)
	v.Set("backup_delete", s.BackupDelete)
	v.Set("frequent_days", s.FrequentDays)
	v.Set("frequent_count", s.FrequentCount)

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create settings dir: %w", err)
	}
	if err := v.WriteConfigAs(path); err != nil {
		return fmt.Errorf("failed to write settings: %w", err)
	}
	return nil
}

// Validate validates the settings
func (s *Settings) Validate() error {
	if s.BackupFreq < 1 {
		return fmt.Errorf("backup_freq must be at least 1 day")
	}
	if s.BackupDelete < 1 {
		return fmt.Errorf("backup_delete must be at least 1")
	}
	if s.FrequentDays < 1 {
		return fmt.Errorf("frequent_days must be at least 1 day")
	}
	if s.FrequentCount < 1 {
		return fmt.Errorf("frequent_count must be at least 1")
	}
	return nil
}

// Set assigns one key from its string form
func (s *Settings) Set(key, value string) error {
	if _, ok := settingDefaults[key]; !ok {
		return fmt.Errorf("unknown setting '%s'", key)
	}
	if key == "auto_start_web" {
		b, err := strconv.ParseBool(value)
		if err != nil {
			return fmt.Errorf("%s: %w", key, err)
		}
		s.AutoStartWeb = b
		return nil
	}

	n, err := strconv.Atoi(value)
	if err != nil {
		return fmt.Errorf("%s: %w", key, err)
	}
	switch key {
	case "backup_freq":
		s.BackupFreq = n
	case "backup_delete":
		s.BackupDelete = n
	case "frequent_days":
		s.FrequentDays = n
	case "frequent_count":
		s.FrequentCount = n
	default:
		return fmt.Errorf("unknown setting '%s'", key)
	}
	return s.Validate()
}
