// Package services defines shared utilities consumed by the pipeline stage
// handlers and the dispatcher.
//
// Key responsibilities:
//   - Context helpers that stamp asset IDs, stage names, worker slots, and
//     correlation identifiers for logging.
//   - Structured error markers plus the Wrap helper that keep failure
//     classification uniform across stages.
//   - The Runner abstraction over external processes, so ffmpeg/ffprobe
//     invocations can be stubbed in tests and their stderr captured for
//     operators.
package services
