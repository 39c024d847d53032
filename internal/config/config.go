package config

import (
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/toml"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

type Config struct {
	LibrarySources []string `koanf:"library_sources"` // paths holding local audio files

	// Catalog API (audio URLs, lyrics, personal radio)
	Catalog CatalogConfig `koanf:"catalog"`

	// Streaming servers tried for stream-type tracks, in order
	Streams []StreamConfig `koanf:"streams"`

	// Radio fallback settings
	Radio RadioConfig `koanf:"radio"`

	// Synced lyrics settings
	Lyrics LyricsConfig `koanf:"lyrics"`
}

// CatalogConfig holds catalog API configuration.
type CatalogConfig struct {
	URL             string   `koanf:"url"`
	APIKey          string   `koanf:"api_key"`
	FallbackSources []string `koanf:"fallback_sources"` // audio source ids tried after the default
}

// StreamConfig identifies one streaming server.
type StreamConfig struct {
	Name  string `koanf:"name"`
	URL   string `koanf:"url"`
	Token string `koanf:"token"`
}

// RadioConfig holds personal radio configuration.
type RadioConfig struct {
	Enabled        bool `koanf:"enabled"`
	Retries        int  `koanf:"retries"`         // fetch attempts before giving up (default: 5)
	BackoffSeconds int  `koanf:"backoff_seconds"` // wait between attempts (default: 1)
}

// LyricsConfig holds synced lyrics configuration.
type LyricsConfig struct {
	OffsetSeconds        float64 `koanf:"offset_seconds"`         // shifts lyric timing, positive = later
	WordLevel            *bool   `koanf:"word_level"`             // word-timed rendering (default: true)
	WordLevelTranslation bool    `koanf:"word_level_translation"` // word-timed translation rendering
	CachePath            string  `koanf:"cache_path"`             // lyric cache file, empty uses the data dir
}

func Load() (*Config, error) {
	k := koanf.New(".")

	// Try config files in order of priority (last wins)
	for _, path := range getConfigPaths() {
		if _, err := os.Stat(path); err == nil {
			if err := k.Load(file.Provider(path), toml.Parser()); err != nil {
				return nil, err
			}
		}
	}

	cfg := &Config{}
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, err
	}

	for i, src := range cfg.LibrarySources {
		cfg.LibrarySources[i] = expandPath(src)
	}

	cfg.Catalog.URL = strings.TrimSuffix(cfg.Catalog.URL, "/")
	for i := range cfg.Streams {
		cfg.Streams[i].URL = strings.TrimSuffix(cfg.Streams[i].URL, "/")
	}
	if cfg.Lyrics.CachePath != "" {
		cfg.Lyrics.CachePath = expandPath(cfg.Lyrics.CachePath)
	}

	return cfg, nil
}

func getConfigPaths() []string {
	paths := []string{}

	// 1. ~/.config/chorus/config.toml
	if home, err := os.UserHomeDir(); err == nil {
		paths = append(paths, filepath.Join(home, ".config", "chorus", "config.toml"))
	}

	// 2. ./config.toml (pwd, highest priority)
	paths = append(paths, "config.toml")

	return paths
}

func expandPath(path string) string {
	if path != "" && path[0] == '~' {
		if home, err := os.UserHomeDir(); err == nil {
			return filepath.Join(home, path[1:])
		}
	}
	return path
}

// HasCatalog returns true if the catalog API is configured.
func (c *Config) HasCatalog() bool {
	return c.Catalog.URL != ""
}

// GetRadioConfig returns the radio configuration with defaults applied.
func (c *Config) GetRadioConfig() RadioConfig {
	cfg := c.Radio
	if cfg.Retries <= 0 {
		cfg.Retries = 5
	}
	if cfg.BackoffSeconds <= 0 {
		cfg.BackoffSeconds = 1
	}
	return cfg
}

// Backoff returns the retry backoff as a duration.
func (c RadioConfig) Backoff() time.Duration {
	return time.Duration(c.BackoffSeconds) * time.Second
}

// WordLevelEnabled returns the word-level setting with its default.
func (c LyricsConfig) WordLevelEnabled() bool {
	if c.WordLevel == nil {
		return true
	}
	return *c.WordLevel
}
