package config

import (
	"os"
	"path/filepath"
	"time"
)

// Config holds runtime settings for the receipts CLI.
//
// Fields:
//   - ServerURL: base URL of the receipt API (scheme and host, no path).
//   - SessionDBPath: SQLite file that keeps the login session.
//   - RequestTimeout: upper bound for a single API call; 0 disables it.
type Config struct {
	ServerURL      string
	SessionDBPath  string
	RequestTimeout time.Duration
}

// LoadDefaults populates c with sensible defaults.
func (c *Config) LoadDefaults() {
	c.ServerURL = "http://127.0.0.1:8080"
	c.SessionDBPath = defaultSessionDBPath()
	c.RequestTimeout = 30 * time.Second
}

func defaultSessionDBPath() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		dir = "."
	}
	return filepath.Join(dir, "receiptvault", "session.db")
}

// LoadConfig builds a Config from defaults, the JSON file and the global
// flags at the front of args. It returns the arguments left after the
// global flags: the command and its own arguments.
func LoadConfig(args []string) (*Config, []string) {
	cfg := &Config{}
	cfg.LoadDefaults()
	parseJson(cfg, args)
	rest := parseFlags(cfg, args)
	return cfg, rest
}
