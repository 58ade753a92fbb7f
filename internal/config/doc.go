// Package config loads, normalizes, and validates scenecast configuration data.
//
// It supplies repository defaults, expands user paths (including tilde
// shortcuts), reads TOML files, and honours environment fallbacks such as
// ASSEMBLYAI_API_KEY and OPENROUTER_API_KEY. The Config type centralizes every
// knob the CLI and local server need, so credentials, cache locations and
// polling cadence are discovered in one pass.
//
// Always obtain settings through this package so downstream code receives
// sanitized paths, canonical log formats, and clear validation errors.
package config
