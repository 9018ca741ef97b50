// Package main hosts the archivist CLI.
//
// Most commands translate into IPC calls against a running daemon. The
// presets, check, and config commands work locally without one.
package main
