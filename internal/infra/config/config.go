// Package config provides configuration loading from YAML files.
package config

import (
	"os"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/creasty/defaults"
	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

// Config represents the application configuration.
type Config struct {
	Server   ServerConfig   `yaml:"server"`
	Admin    AdminConfig    `yaml:"admin"`
	Playback PlaybackConfig `yaml:"playback"`
	Playlist PlaylistConfig `yaml:"playlist"`
	Lyrics   LyricsConfig   `yaml:"lyrics"`
	Spotify  SpotifyConfig  `yaml:"spotify"`
}

// ServerConfig represents server configuration.
type ServerConfig struct {
	Addr           string      `yaml:"addr" default:":8080"`
	AllowedOrigins []string    `yaml:"allowed_origins"`
	Hooks          HooksConfig `yaml:"hooks"`
}

// HooksConfig represents lifecycle hooks configuration.
type HooksConfig struct {
	OnStarted []string `yaml:"on_started"`
	OnStopped []string `yaml:"on_stopped"`
}

// AdminConfig represents admin-related configuration.
type AdminConfig struct {
	Token string `yaml:"token" validate:"required"`
}

// PlaybackConfig represents player session configuration.
type PlaybackConfig struct {
	RecoveryDelayMs int `yaml:"recovery_delay_ms" default:"1000" validate:"gte=1,lte=60000"`
	EventBuffer     int `yaml:"event_buffer" default:"32" validate:"gte=1,lte=4096"`
	CommandBuffer   int `yaml:"command_buffer" default:"64" validate:"gte=1,lte=4096"`
}

// RecoveryDelay returns the delay before skipping a track that failed to load.
func (p PlaybackConfig) RecoveryDelay() time.Duration {
	return time.Duration(p.RecoveryDelayMs) * time.Millisecond
}

// PlaylistConfig represents the playlist source configuration.
type PlaylistConfig struct {
	Providers []ProviderConfig        `yaml:"providers" validate:"dive"`
	Filters   map[string]FilterConfig `yaml:"filters"`
}

// FilterConfig represents a filter's configuration.
type FilterConfig struct {
	Enabled  bool           `yaml:"enabled"`
	Settings map[string]any `yaml:"settings,omitempty"`
}

// ProviderConfig represents a single playlist provider configuration.
type ProviderConfig struct {
	Type     string         `yaml:"type" validate:"required,oneof=static spotify"`
	Settings map[string]any `yaml:"settings" validate:"required"`
}

// LyricsConfig represents lyrics enrichment configuration.
type LyricsConfig struct {
	LRCLib LRCLibConfig `yaml:"lrclib"`
}

// LRCLibConfig represents lrclib.net lookup configuration.
type LRCLibConfig struct {
	Enabled           bool    `yaml:"enabled"`
	BaseURL           string  `yaml:"base_url" default:"https://lrclib.net" validate:"url"`
	CachePath         string  `yaml:"cache_path" default:"data/lyrics.db"`
	RequestsPerSecond float64 `yaml:"requests_per_second" default:"2" validate:"gt=0"`
	Burst             int     `yaml:"burst" default:"4" validate:"gte=1"`
	TimeoutSec        int     `yaml:"timeout_sec" default:"10" validate:"gte=1,lte=120"`
}

// SpotifyConfig represents Spotify API configuration.
type SpotifyConfig struct {
	ClientID     string `yaml:"client_id"`
	ClientSecret string `yaml:"client_secret"`
	Market       string `yaml:"market" validate:"omitempty,len=2" default:"JP"`
}

// Load loads configuration from a YAML file.
// Environment variables take precedence over file values for sensitive fields.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(err, "failed to read config file")
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, errors.Wrap(err, "failed to parse config file")
	}

	// Override with environment variables
	cfg.overrideFromEnv()

	if err := defaults.Set(&cfg); err != nil {
		return nil, errors.Wrap(err, "failed to set defaults")
	}

	if err := cfg.Validate(); err != nil {
		return nil, errors.Wrap(err, "config validation failed")
	}

	return &cfg, nil
}

// overrideFromEnv overrides config values with environment variables.
func (c *Config) overrideFromEnv() {
	if v := os.Getenv("SPOTIFY_CLIENT_ID"); v != "" {
		c.Spotify.ClientID = v
	}
	if v := os.Getenv("SPOTIFY_CLIENT_SECRET"); v != "" {
		c.Spotify.ClientSecret = v
	}
	if v := os.Getenv("ADMIN_TOKEN"); v != "" {
		c.Admin.Token = v
	}
}

// HasProvider reports whether a provider of the given type is configured.
func (c *Config) HasProvider(providerType string) bool {
	for _, p := range c.Playlist.Providers {
		if p.Type == providerType {
			return true
		}
	}
	return false
}

// IsFilterEnabled checks if a filter is enabled.
func (c *Config) IsFilterEnabled(filterName string) bool {
	if f, ok := c.Playlist.Filters[filterName]; ok {
		return f.Enabled
	}
	return false
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	validate := validator.New()
	if err := validate.Struct(c); err != nil {
		return errors.Wrap(err, "struct validation failed")
	}

	// Spotify credentials are only needed when a spotify provider is configured
	if c.HasProvider("spotify") {
		if c.Spotify.ClientID == "" || c.Spotify.ClientSecret == "" {
			return errors.New("spotify provider requires spotify.client_id and spotify.client_secret")
		}
	}

	return nil
}
