package config

import "time"

// Config holds runtime settings for the recipe book CLI.
//
// Units: OnlineCheckInterval is a time.Duration; RequestsPerSecond of 0
// disables client-side throttling.
type Config struct {
	ServerBaseURL       string
	OnlineCheckInterval time.Duration
	DatabasePath        string
	LogLevel            string
	LogBackend          string
	RequestsPerSecond   float64
}

// LoadDefaults populates c with sensible defaults.
func (c *Config) LoadDefaults() {
	c.ServerBaseURL = "http://127.0.0.1:3000/api"
	c.OnlineCheckInterval = 3 * time.Second
	c.DatabasePath = "recipebook.db"
	c.LogLevel = "warn"
	c.LogBackend = "slog-text"
	c.RequestsPerSecond = 0
}

// LoadConfig constructs a Config, applies defaults, then overlays values from
// the config file (if given) and command-line flags (if present). Later
// sources take precedence over earlier ones.
func LoadConfig() *Config {
	cfg := &Config{}
	cfg.LoadDefaults()
	parseFile(cfg)
	parseFlags(cfg)
	return cfg
}
