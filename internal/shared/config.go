package shared

import (
	_ "embed"
	"fmt"
	"os"
	"time"

	"github.com/BurntSushi/toml"
)

//go:embed config.example.toml
var exampleConf []byte

// Config represents the application configuration loaded from a TOML file.
type Config struct {
	API      APIConfig      `toml:"api"`
	Database DatabaseConfig `toml:"database"`
	Cache    CacheConfig    `toml:"cache"`
	Server   ServerConfig   `toml:"server"`
	Logging  LoggingConfig  `toml:"logging"`
}

// APIConfig contains settings for the remote music service.
type APIConfig struct {
	BaseURL   string        `toml:"base_url"`
	Timeout   time.Duration `toml:"timeout"`
	RateLimit float64       `toml:"rate_limit"` // requests per second, 0 disables
	UserAgent string        `toml:"user_agent"`
}

// DatabaseConfig contains database connection settings.
//
// The database holds the persisted session slot.
type DatabaseConfig struct {
	Path         string `toml:"path"`
	MaxOpenConns int    `toml:"max_open_conns"`
	MaxIdleConns int    `toml:"max_idle_conns"`
}

// CacheConfig contains staleness and expiry windows per cached resource.
type CacheConfig struct {
	SongsStale      time.Duration `toml:"songs_stale"`
	SongsExpiry     time.Duration `toml:"songs_expiry"`
	PlaylistsStale  time.Duration `toml:"playlists_stale"`
	PlaylistsExpiry time.Duration `toml:"playlists_expiry"`
	PlaylistStale   time.Duration `toml:"playlist_stale"`
	PlaylistExpiry  time.Duration `toml:"playlist_expiry"`
	JanitorInterval time.Duration `toml:"janitor_interval"`
}

// ServerConfig contains settings for the local web front.
type ServerConfig struct {
	Host       string `toml:"host"`
	Port       int    `toml:"port"`
	Production bool   `toml:"production"`
}

// LoggingConfig contains logger settings.
type LoggingConfig struct {
	Level string `toml:"level"`
	File  string `toml:"file"`
}

// Validate rejects settings no component can run with.
func (c *Config) Validate() error {
	invalid := func(format string, args ...any) error {
		return fmt.Errorf("%w: %s", ErrInvalidConfig, fmt.Sprintf(format, args...))
	}

	switch {
	case c.API.BaseURL == "":
		return invalid("api.base_url is empty")
	case c.API.Timeout < 0:
		return invalid("api.timeout must not be negative")
	case c.API.RateLimit < 0:
		return invalid("api.rate_limit must not be negative")
	case c.Server.Port < 1 || c.Server.Port > 65535:
		return invalid("server.port %d out of range", c.Server.Port)
	}

	windows := []struct {
		name          string
		stale, expiry time.Duration
	}{
		{"songs", c.Cache.SongsStale, c.Cache.SongsExpiry},
		{"playlists", c.Cache.PlaylistsStale, c.Cache.PlaylistsExpiry},
		{"playlist", c.Cache.PlaylistStale, c.Cache.PlaylistExpiry},
	}
	for _, w := range windows {
		if w.stale < 0 || w.expiry < 0 {
			return invalid("cache.%s windows must not be negative", w.name)
		}
		if w.expiry > 0 && w.expiry < w.stale {
			return invalid("cache.%s_expiry (%v) is shorter than %s_stale (%v)", w.name, w.expiry, w.name, w.stale)
		}
	}
	return nil
}

// Addr returns the host:port pair the web front listens on.
func (s ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

// LoadConfig reads and parses a TOML configuration file from the specified path.
//
// Values missing from the file keep the embedded defaults.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	config := DefaultConfig()
	if err := toml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}
	return config, nil
}

// DefaultConfig returns a Config with sensible defaults loaded from the embedded example config.
func DefaultConfig() *Config {
	var config Config
	if err := toml.Unmarshal(exampleConf, &config); err != nil {
		panic(fmt.Sprintf("failed to parse embedded default config: %v", err))
	}
	return &config
}

// CreateConfigFile creates a config.toml file at the specified path using the embedded example config.
func CreateConfigFile(path string) error {
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("config file already exists at %s", path)
	}

	if err := os.WriteFile(path, exampleConf, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}
