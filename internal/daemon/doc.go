// Package daemon coordinates the long-running archivist process.
//
// It owns the asset store, error ledger, dispatcher, and reconciler in a
// single lifecycle with flock-based locking to prevent multiple instances.
// On start it dispatches pending assets once and, when a sweep interval
// is configured, keeps releasing stuck assets and dispatching newly
// attached ones. An optional HTTP listener serves Prometheus metrics and
// a health endpoint.
package daemon
