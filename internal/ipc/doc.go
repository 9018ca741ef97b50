// Package ipc exposes the daemon over JSON-RPC on a Unix socket and ships
// the matching client used by the CLI.
//
// The server maps each request onto workflow, ledger, and reconciler
// operations and converts asset and ledger records into wire DTOs. Calls
// that set Wait block until the submitted job finishes.
package ipc
