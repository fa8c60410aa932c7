// Package config loads ttycore settings.
//
// Settings come from three layers, later layers winning:
//
//   - built-in defaults (Default)
//   - a TOML or YAML file, chosen by extension (Load)
//   - TTYCORE_* environment variables (ApplyEnv)
//
// A Watcher reloads the file when it changes on disk.
package config
