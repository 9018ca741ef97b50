package command

import (
	"fmt"
	"strings"
)

// BuildThumbnailCommand extracts a single JPEG frame at seconds, scaled to height.
func BuildThumbnailCommand(ffmpeg, input, output string, seconds float64, height int) Command {
	return Command{
		Binary: binaryOr(ffmpeg, "ffmpeg"),
		Args: []string{
			"-y", "-hide_banner",
			"-ss", FormatSeconds(seconds),
			"-i", input,
			"-vframes", "1",
			"-vf", fmt.Sprintf("scale=-2:%d", height),
			"-q:v", "2",
			output,
		},
	}
}

// BuildDurationProbe asks ffprobe for the container duration only.
func BuildDurationProbe(ffprobe, input string) Command {
	return Command{
		Binary: binaryOr(ffprobe, "ffprobe"),
		Args: []string{
			"-v", "error",
			"-show_entries", "format=duration",
			"-of", "default=noprint_wrappers=1:nokey=1",
			input,
		},
	}
}

// BuildAudioConvertCommand transcodes any audio source to MP3.
func BuildAudioConvertCommand(ffmpeg, input, output, bitrate string) Command {
	if strings.TrimSpace(bitrate) == "" {
		bitrate = "192k"
	}
	return Command{
		Binary: binaryOr(ffmpeg, "ffmpeg"),
		Args: []string{
			"-y", "-hide_banner",
			"-i", input,
			"-vn",
			"-c:a", "libmp3lame",
			"-b:a", bitrate,
			output,
		},
	}
}

// BuildFrameDecodeCommand decodes the first frame of an image container
// ffmpeg understands (HEIC/HEIF) to PNG on stdout.
func BuildFrameDecodeCommand(ffmpeg, input string) Command {
	return Command{
		Binary: binaryOr(ffmpeg, "ffmpeg"),
		Args: []string{
			"-v", "error",
			"-i", input,
			"-frames:v", "1",
			"-f", "image2pipe",
			"-vcodec", "png",
			"-",
		},
	}
}

// BuildRawDecodeCommand demosaics a camera RAW file with camera white
// balance and writes a TIFF to stdout.
func BuildRawDecodeCommand(converter, input string) Command {
	return Command{
		Binary: binaryOr(converter, "dcraw"),
		Args:   []string{"-c", "-w", "-T", input},
	}
}
