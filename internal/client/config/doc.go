// Package config loads runtime configuration for the recipe book CLI.
//
// Sources & precedence
//
//  1. Built-in defaults (see (*Config).LoadDefaults).
//  2. Optional config file selected with -c or -config. A .yaml or .yml
//     extension selects YAML, anything else is read as JSON.
//  3. Command-line flags (see parseFlags), which override earlier values.
//
// # File schema
//
// Intervals use timex.Duration, so "3s" and integer nanoseconds both work:
//
//	server_base_url: http://127.0.0.1:3000/api
//	online_check_interval: 5s
//	database_path: /var/lib/recipebook/client.db
//	log_level: debug
//	log_backend: zap
//	requests_per_second: 5
//
// Environment variables are not consulted.
package config
