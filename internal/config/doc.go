// Package config loads, normalizes, and validates placematch configuration.
//
// It supplies defaults, expands user paths (including tilde shortcuts), reads
// TOML files, and honours environment fallbacks such as GOOGLE_MAPS_API_KEY.
// The Config type carries every knob the matcher, resolver, batch runner, and
// CLI need so callers receive sanitized paths and clear validation errors.
package config
