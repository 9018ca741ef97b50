// Package daemonctl launches and stops the background daemon for the CLI.
package daemonctl
