package config

import (
	"encoding/json"
	"os"

	"github.com/dmitrijs2005/receiptvault/internal/flagx"
	"github.com/dmitrijs2005/receiptvault/internal/timex"
)

// JsonConfig is a DTO used exclusively for JSON unmarshalling. Durations
// accept strings like "30s" or integer nanoseconds. Absent fields keep the
// current value.
type JsonConfig struct {
	ServerURL      *string         `json:"server_url"`
	SessionDBPath  *string         `json:"session_db_path"`
	RequestTimeout *timex.Duration `json:"request_timeout"`
}

// parseJson overlays cfg with the JSON file named by -c/-config (or
// $RECEIPTVAULT_CONFIG). With no file configured it does nothing; a read or
// unmarshal error panics.
func parseJson(cfg *Config, args []string) {
	path := flagx.ConfigPath(args)
	if path == "" {
		return
	}

	data, err := os.ReadFile(path)
	if err != nil {
		panic(err)
	}

	var jc JsonConfig
	if err := json.Unmarshal(data, &jc); err != nil {
		panic(err)
	}

	if jc.ServerURL != nil {
		cfg.ServerURL = *jc.ServerURL
	}
	if jc.SessionDBPath != nil {
		cfg.SessionDBPath = *jc.SessionDBPath
	}
	if jc.RequestTimeout != nil {
		cfg.RequestTimeout = jc.RequestTimeout.Duration
	}
}
