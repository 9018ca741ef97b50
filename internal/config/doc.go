// Package config loads, normalizes, and validates Archivist configuration data.
//
// It supplies repository defaults, expands user paths (including tilde
// shortcuts), reads TOML files, and honours environment overrides such as
// FFMPEG_BIN, FFPROBE_BIN, and ARCHIVIST_SYNC. The Config type centralizes
// every knob the daemon and CLI need, so the media root, toolchain, and worker
// pool are discovered in one pass.
//
// Always obtain settings through this package so downstream code receives
// sanitized paths, canonical log formats, and clear validation errors.
package config
