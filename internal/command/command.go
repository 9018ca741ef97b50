package command

import (
	"strconv"
	"strings"
)

// Command is an external process invocation.
type Command struct {
	Binary string
	Args   []string
}

// Argv returns the binary followed by its arguments.
func (c Command) Argv() []string {
	return append([]string{c.Binary}, c.Args...)
}

// String renders the command for logs.
func (c Command) String() string {
	return strings.Join(c.Argv(), " ")
}

// FormatSeconds renders a timestamp the way ffmpeg's -ss expects it.
func FormatSeconds(seconds float64) string {
	if seconds < 0 {
		seconds = 0
	}
	return strconv.FormatFloat(seconds, 'f', -1, 64)
}

// ShortID is the asset-id prefix used in artifact filenames.
func ShortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

func binaryOr(binary, fallback string) string {
	if b := strings.TrimSpace(binary); b != "" {
		return b
	}
	return fallback
}
