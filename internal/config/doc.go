// Package config loads, normalizes, and validates Cantrip's TOML
// configuration.
//
// Load resolves the config path (flag value, ~/.config/cantrip/config.toml,
// or ./cantrip.toml), applies defaults for anything unset, expands ~ in path
// fields, and rejects unusable values before any component starts. A sample
// file is embedded for `cantrip config init`.
package config
