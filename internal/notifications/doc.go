// Package notifications publishes workflow events to ntfy.
//
// NewService returns a noop implementation when no topic is configured, so
// callers publish unconditionally.
package notifications
