// Package config loads runtime configuration for the blog CLI.
//
// Sources & precedence
//
//  1. Built-in defaults (see (*Config).LoadDefaults).
//  2. Optional JSON file selected via -c or -config.
//  3. Command-line flags, which override earlier values.
//
// Supported flags
//
//	-a string   API base URL, e.g. http://127.0.0.1:8080/api
//	-d string   path of the local SQLite database
//	-m string   credentials mode: cookie or bearer
//	-w int      session warning lead (seconds)
//	-i int      expiry drift check interval (seconds, 0 disables)
//	-t int      request timeout (seconds)
//	-l string   landing route navigations go to
//	-v int      revalidate the session after this much idle time (seconds, 0 disables)
//
// # JSON schema
//
// Durations use timex.Duration, so values can be strings like "5m" or
// integer nanoseconds. Fields left out of the file keep their defaults.
//
//	{
//	  "api_base_url": "http://127.0.0.1:8080/api",
//	  "db_path": "blog-client.db",
//	  "credentials_mode": "cookie",
//	  "warning_before": "5m",
//	  "check_interval": "1m",
//	  "request_timeout": "15s",
//	  "landing": "/",
//	  "revalidate_after": "5m"
//	}
package config
