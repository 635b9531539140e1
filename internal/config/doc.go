// Package config loads, normalizes, and validates the episplit TOML
// configuration. Validation runs before any detection work so
// misconfiguration is reported up front.
package config
