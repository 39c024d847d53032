package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestExpandPath(t *testing.T) {
	home, err := os.UserHomeDir()
	if err != nil {
		t.Skipf("Could not get home dir: %v", err)
	}

	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{
			name:     "tilde expands to home",
			input:    "~/music",
			expected: filepath.Join(home, "music"),
		},
		{
			name:     "absolute path unchanged",
			input:    "/usr/local/music",
			expected: "/usr/local/music",
		},
		{
			name:     "relative path unchanged",
			input:    "music/albums",
			expected: "music/albums",
		},
		{
			name:     "empty string unchanged",
			input:    "",
			expected: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := expandPath(tt.input); got != tt.expected {
				t.Errorf("expandPath(%q) = %q, want %q", tt.input, got, tt.expected)
			}
		})
	}
}

func TestRadioDefaults(t *testing.T) {
	c := &Config{}
	got := c.GetRadioConfig()
	if got.Retries != 5 {
		t.Errorf("Retries = %d, want 5", got.Retries)
	}
	if got.BackoffSeconds != 1 {
		t.Errorf("BackoffSeconds = %d, want 1", got.BackoffSeconds)
	}

	c.Radio = RadioConfig{Retries: 3, BackoffSeconds: 2}
	got = c.GetRadioConfig()
	if got.Retries != 3 || got.BackoffSeconds != 2 {
		t.Errorf("GetRadioConfig() = %+v, want configured values kept", got)
	}
}

func TestWordLevelDefault(t *testing.T) {
	var lc LyricsConfig
	if !lc.WordLevelEnabled() {
		t.Error("WordLevelEnabled() = false by default, want true")
	}

	off := false
	lc.WordLevel = &off
	if lc.WordLevelEnabled() {
		t.Error("WordLevelEnabled() = true with explicit false")
	}
}

func TestLoadFromFile(t *testing.T) {
	dir := t.TempDir()
	content := `
library_sources = ["/music"]

[catalog]
url = "https://api.example.com/"
api_key = "secret"
fallback_sources = ["mirror-a", "mirror-b"]

[[streams]]
name = "home"
url = "http://localhost:5030/"
token = "tok"

[radio]
enabled = true
retries = 4

[lyrics]
offset_seconds = -0.25
word_level = false
`
	path := filepath.Join(dir, "config.toml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	wd, err := os.Getwd()
	if err != nil {
		t.Fatal(err)
	}
	if err := os.Chdir(dir); err != nil {
		t.Fatal(err)
	}
	defer os.Chdir(wd)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Catalog.URL != "https://api.example.com" {
		t.Errorf("Catalog.URL = %q, want trailing slash trimmed", cfg.Catalog.URL)
	}
	if len(cfg.Catalog.FallbackSources) != 2 {
		t.Errorf("FallbackSources = %v, want 2 entries", cfg.Catalog.FallbackSources)
	}
	if len(cfg.Streams) != 1 || cfg.Streams[0].URL != "http://localhost:5030" {
		t.Errorf("Streams = %+v, want one server with trimmed URL", cfg.Streams)
	}
	if !cfg.Radio.Enabled || cfg.GetRadioConfig().Retries != 4 {
		t.Errorf("Radio = %+v, want enabled with 4 retries", cfg.Radio)
	}
	if cfg.Lyrics.OffsetSeconds != -0.25 {
		t.Errorf("OffsetSeconds = %v, want -0.25", cfg.Lyrics.OffsetSeconds)
	}
	if cfg.Lyrics.WordLevelEnabled() {
		t.Error("WordLevelEnabled() = true, want false from file")
	}
}
