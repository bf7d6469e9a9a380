// Package config handles configuration loading, parsing, and validation
// from a .env file, an optional config.yaml, and TRACKER_ prefixed
// environment variables. It provides type-safe access to the settings the
// store, sweep, notifier and HTTP layers need.
package config
