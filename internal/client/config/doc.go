// Package config loads runtime configuration for the receipts CLI.
//
// Sources & precedence
//
//  1. Built-in defaults (see (*Config).LoadDefaults).
//  2. Optional JSON file selected with -c/-config or $RECEIPTVAULT_CONFIG.
//  3. Global command-line flags, which override earlier values.
//
// # JSON schema
//
//	{
//	  "server_url": "https://receipts.example",
//	  "session_db_path": "/home/staff/.config/receiptvault/session.db",
//	  "request_timeout": "30s"
//	}
package config
