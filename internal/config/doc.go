// Package config loads, normalizes, and validates wificam configuration data.
//
// It supplies repository defaults, expands user paths (including tilde
// shortcuts) and reads TOML files. The Config type gathers the frame pool
// shape, the capture source, the stream sink, the frame journal and logging
// in one place.
//
// Always obtain settings through this package so the pipeline receives
// sanitized paths, canonical policy and log format names, and clear
// validation errors.
package config
