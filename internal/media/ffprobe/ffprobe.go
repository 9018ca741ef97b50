package ffprobe

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"

	"archivist/internal/services"
)

// Result represents the parsed output from an ffprobe inspection.
type Result struct {
	Streams []Stream `json:"streams"`
	Format  Format   `json:"format"`
	raw     []byte
}

// Stream describes a single stream in the media container.
type Stream struct {
	Index      int               `json:"index"`
	CodecName  string            `json:"codec_name"`
	CodecType  string            `json:"codec_type"`
	CodecTag   string            `json:"codec_tag_string"`
	Duration   string            `json:"duration"`
	BitRate    string            `json:"bit_rate"`
	Width      int               `json:"width"`
	Height     int               `json:"height"`
	SampleRate string            `json:"sample_rate"`
	Channels   int               `json:"channels"`
	Tags       map[string]string `json:"tags"`
}

// Format captures container-level metadata extracted by ffprobe.
type Format struct {
	Filename   string            `json:"filename"`
	NBStreams  int               `json:"nb_streams"`
	Duration   string            `json:"duration"`
	Size       string            `json:"size"`
	BitRate    string            `json:"bit_rate"`
	FormatName string            `json:"format_name"`
	Tags       map[string]string `json:"tags"`
}

// Inspector runs ffprobe through a services.Runner.
type Inspector struct {
	Binary string
	Runner services.Runner
}

// Inspect executes ffprobe against the provided path and decodes the JSON response.
func Inspect(ctx context.Context, binary string, path string) (Result, error) {
	return Inspector{Binary: binary}.Inspect(ctx, path)
}

// Inspect executes ffprobe against the provided path and decodes the JSON response.
func (i Inspector) Inspect(ctx context.Context, path string) (Result, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return Result{}, errors.New("ffprobe inspect: empty path")
	}
	output, err := i.runner().Run(ctx, i.binary(), "-v", "error", "-hide_banner", "-show_format", "-show_streams", "-of", "json", "--", path)
	if err != nil {
		return Result{}, fmt.Errorf("ffprobe inspect: %w", err)
	}

	var result Result
	if err := json.Unmarshal(output, &result); err != nil {
		return Result{}, fmt.Errorf("ffprobe parse: %w", err)
	}
	result.raw = append([]byte(nil), output...)
	return result, nil
}

// Duration asks ffprobe for the container duration only. The returned
// value is NaN when ffprobe ran but printed something unparsable.
func (i Inspector) Duration(ctx context.Context, path string) (float64, error) {
	output, err := i.runner().Run(ctx, i.binary(),
		"-v", "error",
		"-show_entries", "format=duration",
		"-of", "default=noprint_wrappers=1:nokey=1",
		path,
	)
	if err != nil {
		return math.NaN(), fmt.Errorf("ffprobe duration: %w", err)
	}
	return ParseDuration(output), nil
}

func (i Inspector) binary() string {
	if b := strings.TrimSpace(i.Binary); b != "" {
		return b
	}
	return "ffprobe"
}

func (i Inspector) runner() services.Runner {
	if i.Runner != nil {
		return i.Runner
	}
	return services.ExecRunner{}
}

// ParseDuration parses the single-value output of a duration probe.
// Empty, "N/A", negative, or non-numeric output yields NaN.
func ParseDuration(output []byte) float64 {
	text := strings.TrimSpace(string(output))
	if text == "" {
		return math.NaN()
	}
	if idx := strings.IndexByte(text, '\n'); idx >= 0 {
		text = strings.TrimSpace(text[:idx])
	}
	value, err := strconv.ParseFloat(text, 64)
	if err != nil || value < 0 || math.IsInf(value, 0) {
		return math.NaN()
	}
	return value
}

// RawJSON returns the raw ffprobe JSON payload.
func (r Result) RawJSON() []byte {
	return append([]byte(nil), r.raw...)
}

// VideoStreamCount returns the number of video streams discovered.
func (r Result) VideoStreamCount() int {
	count := 0
	for _, stream := range r.Streams {
		if strings.EqualFold(stream.CodecType, "video") {
			count++
		}
	}
	return count
}

// AudioStreamCount returns the number of audio streams discovered.
func (r Result) AudioStreamCount() int {
	count := 0
	for _, stream := range r.Streams {
		if strings.EqualFold(stream.CodecType, "audio") {
			count++
		}
	}
	return count
}

// FirstStream returns the first stream of codecType.
func (r Result) FirstStream(codecType string) (Stream, bool) {
	for _, stream := range r.Streams {
		if strings.EqualFold(stream.CodecType, codecType) {
			return stream, true
		}
	}
	return Stream{}, false
}

// Tag looks key up case-insensitively in the container tags, then in each
// stream's tags. Audio files often carry ID3 tags on the stream only.
func (r Result) Tag(key string) string {
	if value := lookupTag(r.Format.Tags, key); value != "" {
		return value
	}
	for _, stream := range r.Streams {
		if value := lookupTag(stream.Tags, key); value != "" {
			return value
		}
	}
	return ""
}

func lookupTag(tags map[string]string, key string) string {
	for k, v := range tags {
		if strings.EqualFold(k, key) {
			return strings.TrimSpace(v)
		}
	}
	return ""
}

// DurationSeconds returns the container duration in seconds, 0 when absent,
// or NaN when present but unparsable.
func (r Result) DurationSeconds() float64 {
	return parseFloat(r.Format.Duration)
}

// SizeBytes returns the reported container size in bytes, or 0 when unavailable.
func (r Result) SizeBytes() int64 {
	size := parseFloat(r.Format.Size)
	if math.IsNaN(size) || size < 0 {
		return 0
	}
	return int64(size)
}

// BitRate returns the container bitrate in bits per second, or 0 when unavailable.
func (r Result) BitRate() int64 {
	rate := parseFloat(r.Format.BitRate)
	if math.IsNaN(rate) || rate < 0 {
		return 0
	}
	return int64(rate)
}

func parseFloat(value string) float64 {
	cleaned := strings.TrimSpace(value)
	if cleaned == "" {
		return 0
	}
	if parsed, err := strconv.ParseFloat(cleaned, 64); err == nil {
		return parsed
	}
	return math.NaN()
}
