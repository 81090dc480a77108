// Package config loads, normalizes, and validates gcm configuration data.
//
// Configuration is optional: every field has a default, and a missing file is
// not an error. The file lives next to the daemon socket in the resolved
// user's application directory (<home>/.gcm/config.toml) unless GCM_CONFIG
// points elsewhere, so a client running under sudo reads the invoking user's
// settings rather than root's.
//
// Always obtain settings through this package so the client and daemon agree
// on the daemon executable, the bootstrap grace period, and log formatting.
package config
