// Package config loads, normalizes, and validates decart configuration data.
//
// It supplies repository defaults, expands user paths (including tilde
// shortcuts), reads TOML files, and honours environment fallbacks such as
// DECART_LOG_LEVEL and DECART_CACHE_PATH. The Config type centralizes every
// knob the CLI and loader need so the cache location, logging and decode
// policy are discovered in one pass.
//
// Always obtain settings through this package so downstream code receives
// sanitized paths, canonical log formats, and clear validation errors.
package config
