package config

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
)

// Config represents the global ~/.freechat/config.toml.
type Config struct {
	DefaultProfile string  `toml:"default_profile"`
	Server         Server  `toml:"server"`
	Search         Search  `toml:"search"`
	Compose        Compose `toml:"compose"`
	Live           Live    `toml:"live"`
	Log            Log     `toml:"log"`
	Metrics        Metrics `toml:"metrics"`
}

// Server locates the chat backend.
type Server struct {
	BaseURL        string   `toml:"base_url"`
	WSURL          string   `toml:"ws_url"`
	RequestTimeout Duration `toml:"request_timeout"`
	// Token overrides the profile's saved credential. Only set from
	// FREECHAT_TOKEN and never written to the config file.
	Token string `toml:"-"`
}

// Search tunes the debounced user search.
type Search struct {
	Debounce  Duration `toml:"debounce"`
	MinLength int      `toml:"min_length"`
}

// Compose configures outgoing messages.
type Compose struct {
	// Placeholder is the message text used when only an attachment is sent.
	Placeholder string `toml:"placeholder"`
}

// Live tunes the per-conversation live channel and its reconnect backoff.
type Live struct {
	ReconnectInitial Duration `toml:"reconnect_initial"`
	ReconnectMax     Duration `toml:"reconnect_max"`
	ReadLimit        int64    `toml:"read_limit"`
}

// Log sets the client log verbosity.
type Log struct {
	Level string `toml:"level"`
}

// Metrics configures the optional Prometheus listener.
type Metrics struct {
	// Addr enables a /metrics listener when non-empty.
	Addr string `toml:"addr"`
}

// Duration is a time.Duration encoded as a string ("500ms", "30s").
type Duration struct {
	time.Duration
}

// UnmarshalText parses a duration string such as "500ms".
func (d *Duration) UnmarshalText(text []byte) error {
	v, err := time.ParseDuration(string(text))
	if err != nil {
		return err
	}
	d.Duration = v
	return nil
}

// MarshalText encodes the duration in time.Duration's string form.
func (d Duration) MarshalText() ([]byte, error) {
	return []byte(d.String()), nil
}

// Default returns the configuration used when no file exists.
func Default() *Config {
	return &Config{
		DefaultProfile: "main",
		Server: Server{
			BaseURL:        "http://localhost:8005",
			RequestTimeout: Duration{15 * time.Second},
		},
		Search: Search{
			Debounce:  Duration{500 * time.Millisecond},
			MinLength: 2,
		},
		Compose: Compose{Placeholder: "File sent"},
		Live: Live{
			ReconnectInitial: Duration{500 * time.Millisecond},
			ReconnectMax:     Duration{30 * time.Second},
			ReadLimit:        1 << 20,
		},
		Log: Log{Level: "info"},
	}
}

// Load reads config from the given path on top of the defaults.
// Returns an error if the file is missing or malformed.
func Load(path string) (*Config, error) {
	cfg := Default()
	if _, err := toml.DecodeFile(path, cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadOrDefault is Load that falls back to Default when the file does not exist.
func LoadOrDefault(path string) (*Config, error) {
	cfg, err := Load(path)
	if errors.Is(err, fs.ErrNotExist) {
		return Default(), nil
	}
	return cfg, err
}

// Save writes config to the given path, creating parent dirs as needed.
func Save(path string, cfg *Config) error {
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return err
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0600)
	if err != nil {
		return err
	}
	encErr := toml.NewEncoder(f).Encode(cfg)
	if closeErr := f.Close(); closeErr != nil && encErr == nil {
		return closeErr
	}
	return encErr
}

// ApplyEnv overlays FREECHAT_* variables found through lookup (usually os.LookupEnv).
func (c *Config) ApplyEnv(lookup func(string) (string, bool)) {
	if v, ok := lookup("FREECHAT_BASE_URL"); ok && v != "" {
		c.Server.BaseURL = v
	}
	if v, ok := lookup("FREECHAT_WS_URL"); ok && v != "" {
		c.Server.WSURL = v
	}
	if v, ok := lookup("FREECHAT_TOKEN"); ok && v != "" {
		c.Server.Token = strings.TrimSpace(v)
	}
	if v, ok := lookup("FREECHAT_LOG_LEVEL"); ok && v != "" {
		c.Log.Level = v
	}
	if v, ok := lookup("FREECHAT_SEARCH_MIN_LENGTH"); ok {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			c.Search.MinLength = n
		}
	}
	if v, ok := lookup("FREECHAT_METRICS_ADDR"); ok {
		c.Metrics.Addr = v
	}
}

// WebSocketURL returns the live channel base URL, derived from the REST
// base URL when not configured explicitly.
func (c *Config) WebSocketURL() string {
	if c.Server.WSURL != "" {
		return strings.TrimRight(c.Server.WSURL, "/")
	}
	base := strings.TrimRight(c.Server.BaseURL, "/")
	switch {
	case strings.HasPrefix(base, "https://"):
		return "wss://" + strings.TrimPrefix(base, "https://")
	case strings.HasPrefix(base, "http://"):
		return "ws://" + strings.TrimPrefix(base, "http://")
	}
	return base
}
