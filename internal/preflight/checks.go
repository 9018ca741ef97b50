package preflight

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"golang.org/x/sys/unix"

	"archivist/internal/config"
	"archivist/internal/deps"
	"archivist/internal/encoder"
	"archivist/internal/services"
	"archivist/internal/storage"
)

// RequiredEncoders are the software encoders every tier falls back to.
var RequiredEncoders = []string{"libx264", "libx265", "aac"}

// CheckDirectoryAccess verifies that the directory exists and is readable/writable.
func CheckDirectoryAccess(name, path string) Result {
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return Result{Name: name, Detail: fmt.Sprintf("%s (error: does not exist)", path)}
		}
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: stat: %v)", path, err)}
	}
	if !info.IsDir() {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: is not a directory)", path)}
	}
	if err := unix.Access(path, unix.R_OK|unix.W_OK|unix.X_OK); err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: insufficient permissions: %v)", path, err)}
	}
	return Result{Name: name, Passed: true, Detail: fmt.Sprintf("%s (read/write ok)", path)}
}

// CheckBuckets checks every storage bucket. A bucket that does not exist
// yet passes, since pipelines create buckets on demand.
func CheckBuckets(store *storage.Store) []Result {
	results := make([]Result, 0, len(storage.Buckets()))
	for _, bucket := range storage.Buckets() {
		name := "Bucket " + string(bucket)
		dir := store.BucketDir(bucket)
		if _, err := os.Stat(dir); os.IsNotExist(err) {
			results = append(results, Result{Name: name, Passed: true, Detail: dir + " (created on demand)"})
			continue
		}
		results = append(results, CheckDirectoryAccess(name, dir))
	}
	return results
}

// CheckEncoders verifies that ffmpeg lists the software encoders.
func CheckEncoders(ctx context.Context, runner services.Runner, ffmpeg string) Result {
	const name = "FFmpeg encoders"
	if runner == nil {
		runner = services.ExecRunner{}
	}
	checkCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	out, err := runner.Run(checkCtx, ffmpeg, "-hide_banner", "-encoders")
	if err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("encoder list failed (%s)", services.Diagnostic(err))}
	}
	available := encoder.ParseEncoders(out)
	var missing []string
	for _, enc := range RequiredEncoders {
		if !available[enc] {
			missing = append(missing, enc)
		}
	}
	if len(missing) > 0 {
		return Result{Name: name, Detail: "missing " + strings.Join(missing, ", ")}
	}
	return Result{Name: name, Passed: true, Detail: strings.Join(RequiredEncoders, ", ")}
}

// CheckEncoderTier renders the probe outcome. The software tier always
// passes; skipped hardware tiers are listed with their reasons.
func CheckEncoderTier(report encoder.Report) Result {
	selected := report.Selected
	if selected.Kind == "" {
		return Result{Name: "Encoder tier", Detail: "not probed"}
	}
	detail := fmt.Sprintf("%s (%s", selected.Kind, selected.VideoEncoder)
	if selected.SecondaryEncoder != "" {
		detail += " / " + selected.SecondaryEncoder
	}
	detail += ")"
	var skipped []string
	for _, tier := range report.Tiers {
		if !tier.Available && tier.Reason != "" {
			skipped = append(skipped, fmt.Sprintf("%s: %s", tier.Kind, tier.Reason))
		}
	}
	if len(skipped) > 0 {
		detail += "; skipped " + strings.Join(skipped, "; ")
	}
	return Result{Name: "Encoder tier", Passed: true, Detail: detail}
}

// CheckSystemDeps evaluates the toolchain binaries for the given config.
// Both the daemon and the CLI check command use this to avoid duplicating
// the requirements list.
func CheckSystemDeps(_ context.Context, cfg *config.Config) []deps.Status {
	toolchain := deps.Toolchain{
		FFmpeg:       cfg.FFmpegBinary(),
		FFprobe:      cfg.FFprobeBinary(),
		RawConverter: cfg.RawConverterBinary(),
	}
	return deps.CheckBinaries(toolchain.Requirements())
}
