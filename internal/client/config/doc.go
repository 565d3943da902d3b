// Package config loads runtime configuration for the finny CLI and daemon.
//
// Sources & precedence
//
//  1. Built-in defaults (see Defaults).
//  2. Optional JSON file selected with --config.
//  3. Command-line flags, applied only when given explicitly.
//
// # JSON schema
//
// Durations use timex.Duration, so they are written as "15m" or "30s".
// Fields left out keep their default:
//
//	{
//	  "server_url": "http://127.0.0.1:8080/api",
//	  "transport": "http",
//	  "db_driver": "sqlite",
//	  "db_dsn": "/home/me/.config/finnysync/finny.db",
//	  "sync_interval": "15m",
//	  "require_network": true,
//	  "pull_policy": "last_pull_wins",
//	  "attachments": {"backend": "s3", "s3": {"bucket": "receipts"}},
//	  "log": {"level": "debug", "file": "/tmp/finny.log"}
//	}
package config
