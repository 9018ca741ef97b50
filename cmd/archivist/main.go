package main

import (
	"context"
	"errors"
	"fmt"
	"os"

	"archivist/internal/services"
)

func main() {
	cmd := newRootCommand()
	err := cmd.Execute()
	if err == nil {
		return
	}
	if !errors.Is(err, context.Canceled) {
		fmt.Fprintln(os.Stderr, "archivist:", err)
	}
	os.Exit(exitStatus(err))
}

// exitStatus maps error markers to distinct codes so scripts can tell bad
// input from a missing asset.
func exitStatus(err error) int {
	switch {
	case errors.Is(err, services.ErrValidation):
		return 2
	case errors.Is(err, services.ErrNotFound):
		return 3
	default:
		return 1
	}
}
