// Package config loads, validates, and normalizes vigil's TOML
// configuration. Path fields are tilde-expanded and made absolute during
// Load so downstream packages never need to resolve them again.
package config
