// Package logs tails the daemon log file for the CLI.
//
// Reads are offset based so `archivist logs --follow` can poll with bounded
// memory, and a Filter narrows output to one asset or component.
package logs
