// Package config loads, normalizes, and validates shortcast's TOML
// configuration.
package config
