// Package ffprobe provides a typed wrapper around ffprobe output.
//
// Key types:
//   - Result: parsed ffprobe output containing streams, format metadata, and tags
//   - Inspector: runs ffprobe through a services.Runner
//
// Inspect returns the full JSON document; Duration runs the lighter
// duration-only probe used before thumbnail extraction.
package ffprobe
