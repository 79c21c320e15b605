// Package config loads and saves the chordlab settings file
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/james-see/chordlab/pkg/session"
	"github.com/james-see/chordlab/pkg/theory"
	"github.com/sirupsen/logrus"
)

// ServerConfig holds the REST server settings
type ServerConfig struct {
	Port int `json:"port"`
}

// LogConfig holds the logging settings
type LogConfig struct {
	Level string `json:"level"`
}

// SessionConfig configures the live note tracker
type SessionConfig struct {
	Debounce string           `json:"debounce,omitempty"` // duration string, e.g. "50ms"
	Channels map[string][]int `json:"channels,omitempty"` // role name to 1-based channels
}

// VoicingConfig stores voicing preferences
type VoicingConfig struct {
	DefaultQuality string `json:"defaultQuality,omitempty"`
}

// Config is the main configuration structure
type Config struct {
	Server  ServerConfig  `json:"server"`
	Log     LogConfig     `json:"log"`
	Session SessionConfig `json:"session"`
	Voicing VoicingConfig `json:"voicing"`
}

// DefaultConfig returns a config with sensible defaults
func DefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{Port: 8080},
		Log:    LogConfig{Level: "info"},
		Session: SessionConfig{
			Debounce: "50ms",
			Channels: map[string][]int{
				string(session.RoleMelody): {1},
				string(session.RoleBass):   {2},
				string(session.RoleChord):  {3},
			},
		},
		Voicing: VoicingConfig{DefaultQuality: "Maj"},
	}
}

// ConfigDir returns the config directory path
func ConfigDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".config", "chordlab"), nil
}

// ConfigPath returns the full path to config.json
func ConfigPath() (string, error) {
	dir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.json"), nil
}

// Load reads the config at path, or at ConfigPath when path is empty.
// A missing file gives the defaults. Fields absent from the file keep their default values.
func Load(path string) (*Config, error) {
	if path == "" {
		p, err := ConfigPath()
		if err != nil {
			return DefaultConfig(), nil
		}
		path = p
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return DefaultConfig(), nil
		}
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	// a channel map in the file replaces the default one as a whole
	cfg := DefaultConfig()
	defaultChannels := cfg.Session.Channels
	cfg.Session.Channels = nil
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config %s: %w", path, err)
	}
	if cfg.Session.Channels == nil {
		cfg.Session.Channels = defaultChannels
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config %s: %w", path, err)
	}
	return cfg, nil
}

// Save writes the config to path, or to ConfigPath when path is empty
func (c *Config) Save(path string) error {
	if path == "" {
		p, err := ConfigPath()
		if err != nil {
			return err
		}
		path = p
	}

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

// Validate checks the fields that are parsed later
func (c *Config) Validate() error {
	if c.Server.Port < 0 || c.Server.Port > 65535 {
		return fmt.Errorf("server port %d out of range", c.Server.Port)
	}
	if _, err := c.LogLevel(); err != nil {
		return err
	}
	if _, err := c.DebounceInterval(); err != nil {
		return err
	}
	if _, err := c.RoleChannels(); err != nil {
		return err
	}
	if c.Voicing.DefaultQuality != "" {
		if _, err := theory.ParseQuality(c.Voicing.DefaultQuality); err != nil {
			return err
		}
	}
	return nil
}

// LogLevel parses Log.Level. An empty level means info.
func (c *Config) LogLevel() (logrus.Level, error) {
	if c.Log.Level == "" {
		return logrus.InfoLevel, nil
	}
	return logrus.ParseLevel(c.Log.Level)
}

// DebounceInterval parses Session.Debounce. An empty value disables debouncing.
func (c *Config) DebounceInterval() (time.Duration, error) {
	if c.Session.Debounce == "" {
		return 0, nil
	}
	d, err := time.ParseDuration(c.Session.Debounce)
	if err != nil {
		return 0, fmt.Errorf("invalid session debounce: %w", err)
	}
	if d < 0 {
		return 0, fmt.Errorf("negative session debounce %s", d)
	}
	return d, nil
}

// RoleChannels converts Session.Channels to tracker roles. Channels must be 1-16
// and belong to one role only.
func (c *Config) RoleChannels() (map[session.Role][]int, error) {
	if len(c.Session.Channels) == 0 {
		return nil, nil
	}
	res := make(map[session.Role][]int, len(c.Session.Channels))
	owner := make(map[int]session.Role)
	for name, chs := range c.Session.Channels {
		role, err := session.ParseRole(name)
		if err != nil {
			return nil, err
		}
		for _, ch := range chs {
			if ch < 1 || ch > 16 {
				return nil, fmt.Errorf("channel %d for role %s out of range", ch, role)
			}
			if prev, ok := owner[ch]; ok && prev != role {
				return nil, fmt.Errorf("channel %d assigned to both %s and %s", ch, prev, role)
			}
			owner[ch] = role
		}
		res[role] = append(res[role], chs...)
	}
	return res, nil
}

// SessionOptions builds tracker options from the session settings
func (c *Config) SessionOptions(log logrus.FieldLogger) (session.Options, error) {
	debounce, err := c.DebounceInterval()
	if err != nil {
		return session.Options{}, err
	}
	channels, err := c.RoleChannels()
	if err != nil {
		return session.Options{}, err
	}
	return session.Options{
		Channels: channels,
		Debounce: debounce,
		Logger:   log,
	}, nil
}

// DefaultQuality returns the configured voicing quality, Major when unset
func (c *Config) DefaultQuality() theory.Quality {
	q, err := theory.ParseQuality(c.Voicing.DefaultQuality)
	if err != nil {
		return theory.Major
	}
	return q
}
