package deps

import (
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"strings"
)

// Toolchain names the transcoding binaries the pipeline executes.
type Toolchain struct {
	FFmpeg       string
	FFprobe      string
	RawConverter string
}

// Requirements lists the toolchain as checkable requirements. The RAW
// converter is optional: without it camera RAW uploads fail their image stage.
func (t Toolchain) Requirements() []Requirement {
	return []Requirement{
		{Name: "FFmpeg", Command: t.FFmpeg, Description: "Transcoding, thumbnails, and encoder probing"},
		{Name: "FFprobe", Command: t.FFprobe, Description: "Duration and tag inspection"},
		{Name: "RAW converter", Command: t.RawConverter, Description: "Camera RAW demosaic for image assets", Optional: true},
	}
}

// ResolveFFprobe reports the ffprobe binary that accompanies ffmpegCommand.
//
// An explicit ffprobe setting wins. Otherwise a sibling of a resolvable
// ffmpeg binary is preferred so both tools come from the same build, falling
// back to "ffprobe" on PATH.
func ResolveFFprobe(ffmpegCommand, ffprobeCommand string) Status {
	result := Status{
		Name:        "FFprobe",
		Description: "Duration and tag inspection",
	}

	if explicit := strings.TrimSpace(ffprobeCommand); explicit != "" && explicit != "ffprobe" {
		result.Command = explicit
		if resolved, err := exec.LookPath(explicit); err == nil {
			result.Command = resolved
			result.Available = true
			return result
		}
		result.Detail = fmt.Sprintf("binary %q not found", explicit)
		return result
	}

	if ffmpegBinary := strings.TrimSpace(ffmpegCommand); ffmpegBinary != "" {
		if resolved, err := exec.LookPath(ffmpegBinary); err == nil {
			candidate := siblingBinary(resolved, "ffprobe")
			if info, statErr := os.Stat(candidate); statErr == nil && isExecutable(info) {
				result.Command = candidate
				result.Available = true
				return result
			}
		}
	}

	if probePath, err := exec.LookPath("ffprobe"); err == nil {
		result.Command = probePath
		result.Available = true
		return result
	}

	result.Command = "ffprobe"
	result.Detail = fmt.Sprintf("binary %q not found", "ffprobe")
	return result
}

func siblingBinary(path, name string) string {
	if runtime.GOOS == "windows" {
		name += ".exe"
	}
	return filepath.Join(filepath.Dir(path), name)
}

func isExecutable(info os.FileInfo) bool {
	if info == nil {
		return false
	}
	if info.IsDir() {
		return false
	}
	if runtime.GOOS == "windows" {
		return true
	}
	return info.Mode().Perm()&0o111 != 0
}
