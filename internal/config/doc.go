// Package config loads, normalizes, and validates dialbridge configuration
// from TOML. Defaults mirror the stock device host's file locations so a
// fresh install works without a config file.
package config
