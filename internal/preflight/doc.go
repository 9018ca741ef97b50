// Package preflight runs the operator toolchain check: binaries on PATH,
// required ffmpeg encoders, the selected encoder tier, and read/write
// access to the data directory, media root, and every storage bucket.
package preflight
