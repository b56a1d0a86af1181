package config

import (
	"flag"
	"io"
	"time"
)

// parseFlags overlays cfg with the global flags that precede the command and
// returns the remaining arguments.
//
// Supported flags:
//
//	-a string        receipt API base URL
//	-db string       session database path
//	-timeout int     request timeout (in seconds)
//	-c, -config      JSON config file (read by parseJson)
//
// Parsing stops at the first non-flag argument, so command flags such as
// -order are left for the command. A malformed global flag panics.
func parseFlags(cfg *Config, args []string) []string {
	fs := flag.NewFlagSet("receipts-cli", flag.ContinueOnError)
	fs.SetOutput(io.Discard)

	fs.StringVar(&cfg.ServerURL, "a", cfg.ServerURL, "receipt API base URL")
	fs.StringVar(&cfg.SessionDBPath, "db", cfg.SessionDBPath, "session database path")
	timeout := fs.Int("timeout", int(cfg.RequestTimeout.Seconds()), "request timeout (in seconds)")

	var ignored string
	fs.StringVar(&ignored, "c", "", "path to JSON config file (short)")
	fs.StringVar(&ignored, "config", "", "path to JSON config file")

	if err := fs.Parse(args); err != nil {
		panic(err)
	}

	cfg.RequestTimeout = time.Duration(*timeout) * time.Second
	return fs.Args()
}
