package preflight

import (
	"context"

	"archivist/internal/config"
	"archivist/internal/encoder"
	"archivist/internal/services"
	"archivist/internal/storage"
)

// Result reports the outcome of a single preflight check.
type Result struct {
	Name   string
	Passed bool
	Detail string
}

// RunAll executes the operator checks: encoder list, selected tier,
// and directory access. Binary availability is reported separately by
// CheckSystemDeps.
func RunAll(ctx context.Context, cfg *config.Config, runner services.Runner, report encoder.Report) []Result {
	if cfg == nil {
		return nil
	}

	var results []Result
	results = append(results, CheckEncoders(ctx, runner, cfg.FFmpegBinary()))
	results = append(results, CheckEncoderTier(report))

	results = append(results, CheckDirectoryAccess("Data directory", cfg.Paths.DataDir))
	results = append(results, CheckDirectoryAccess("Media root", cfg.Paths.MediaRoot))
	results = append(results, CheckBuckets(storage.New(cfg.Paths.MediaRoot))...)

	// Source root (when configured)
	if cfg.Paths.SourceRoot != "" {
		results = append(results, CheckDirectoryAccess("Source root", cfg.Paths.SourceRoot))
	}
	return results
}

// Failed counts failing results.
func Failed(results []Result) int {
	n := 0
	for _, r := range results {
		if !r.Passed {
			n++
		}
	}
	return n
}
