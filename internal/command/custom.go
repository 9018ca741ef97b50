package command

import (
	"fmt"
	"regexp"
	"slices"
	"strconv"
	"strings"

	"archivist/internal/services"
)

// Settings is a declarative custom encode request. Empty fields take the
// defaults applied by Normalize.
type Settings struct {
	Container    string `json:"container,omitempty"`
	VideoCodec   string `json:"codec,omitempty"`
	Resolution   string `json:"resolution,omitempty"`
	FPS          string `json:"fps,omitempty"`
	CRF          string `json:"crf,omitempty"`
	VideoBitrate string `json:"bitrate_video,omitempty"`
	Preset       string `json:"preset,omitempty"`
	AudioCodec   string `json:"audio_codec,omitempty"`
	AudioBitrate string `json:"audio_bitrate,omitempty"`
	SampleRate   int    `json:"sample_rate,omitempty"`
	Channels     int    `json:"channels,omitempty"`
	Profile      string `json:"profile,omitempty"`
	PixelFormat  string `json:"pixel_format,omitempty"`
	AudioOnly    bool   `json:"audio_only,omitempty"`
}

// Default values for custom encodes.
const (
	DefaultContainer    = "mp4"
	DefaultVideoCodec   = "libx264"
	DefaultResolution   = "1920x1080"
	DefaultFPS          = "30"
	DefaultCRF          = "23"
	DefaultPreset       = "medium"
	DefaultAudioCodec   = "aac"
	DefaultAudioBitrate = "128k"
	DefaultProfile      = "main"
	DefaultPixelFormat  = "yuv420p"
	originalMarker      = "original"
)

var (
	resolutionPattern = regexp.MustCompile(`^(\d{2,5})x(\d{2,5})$`)
	heightPattern     = regexp.MustCompile(`^\d{2,5}$`)
	bitratePattern    = regexp.MustCompile(`^\d+(\.\d+)?[kKmM]?$`)
)

// Merge returns s with every non-zero field of override applied.
func (s Settings) Merge(override Settings) Settings {
	pick := func(base, over string) string {
		if strings.TrimSpace(over) != "" {
			return strings.TrimSpace(over)
		}
		return base
	}
	s.Container = pick(s.Container, override.Container)
	s.VideoCodec = pick(s.VideoCodec, override.VideoCodec)
	s.Resolution = pick(s.Resolution, override.Resolution)
	s.FPS = pick(s.FPS, override.FPS)
	s.CRF = pick(s.CRF, override.CRF)
	s.VideoBitrate = pick(s.VideoBitrate, override.VideoBitrate)
	s.Preset = pick(s.Preset, override.Preset)
	s.AudioCodec = pick(s.AudioCodec, override.AudioCodec)
	s.AudioBitrate = pick(s.AudioBitrate, override.AudioBitrate)
	s.Profile = pick(s.Profile, override.Profile)
	s.PixelFormat = pick(s.PixelFormat, override.PixelFormat)
	if override.SampleRate > 0 {
		s.SampleRate = override.SampleRate
	}
	if override.Channels > 0 {
		s.Channels = override.Channels
	}
	if override.AudioOnly {
		s.AudioOnly = true
	}
	return s
}

// Normalize fills unset fields with defaults. Audio-only settings drop every
// video field.
func (s Settings) Normalize() Settings {
	s.Container = strings.ToLower(strings.TrimPrefix(strings.TrimSpace(s.Container), "."))
	s.VideoCodec = strings.TrimSpace(s.VideoCodec)
	s.AudioCodec = strings.TrimSpace(s.AudioCodec)
	if s.AudioCodec == "" {
		s.AudioCodec = DefaultAudioCodec
	}
	if s.AudioBitrate == "" && !losslessAudio(s.AudioCodec) {
		s.AudioBitrate = DefaultAudioBitrate
	}
	if s.AudioOnly {
		s.VideoCodec, s.Resolution, s.FPS, s.CRF, s.VideoBitrate = "", "", "", "", ""
		s.Preset, s.Profile, s.PixelFormat = "", "", ""
		if s.Container == "" {
			s.Container = defaultAudioContainer(s.AudioCodec)
		}
		return s
	}
	if s.Container == "" {
		s.Container = DefaultContainer
	}
	if s.VideoCodec == "" {
		s.VideoCodec = DefaultVideoCodec
	}
	if s.Resolution == "" {
		s.Resolution = DefaultResolution
	}
	if s.FPS == "" {
		s.FPS = DefaultFPS
	}
	if s.CRF == "" && s.VideoBitrate == "" {
		s.CRF = DefaultCRF
	}
	if s.Preset == "" {
		s.Preset = DefaultPreset
	}
	if s.Profile == "" {
		s.Profile = DefaultProfile
	}
	if s.PixelFormat == "" {
		s.PixelFormat = DefaultPixelFormat
	}
	return s
}

// Validate rejects values ffmpeg cannot interpret. Call after Normalize.
func (s Settings) Validate() error {
	var problems []string
	if s.Container == "" || strings.ContainsAny(s.Container, "/\\ ") {
		problems = append(problems, fmt.Sprintf("invalid container %q", s.Container))
	}
	if !s.AudioOnly {
		if s.Resolution != originalMarker && !resolutionPattern.MatchString(s.Resolution) && !heightPattern.MatchString(s.Resolution) {
			problems = append(problems, fmt.Sprintf("resolution %q must be WxH, a height, or %q", s.Resolution, originalMarker))
		}
		if s.FPS != originalMarker {
			if fps, err := strconv.ParseFloat(s.FPS, 64); err != nil || fps <= 0 || fps > 240 {
				problems = append(problems, fmt.Sprintf("fps %q must be a positive number or %q", s.FPS, originalMarker))
			}
		}
		if s.CRF != "" {
			if crf, err := strconv.Atoi(s.CRF); err != nil || crf < 0 || crf > 63 {
				problems = append(problems, fmt.Sprintf("crf %q must be between 0 and 63", s.CRF))
			}
		}
		if s.VideoBitrate != "" && !bitratePattern.MatchString(s.VideoBitrate) {
			problems = append(problems, fmt.Sprintf("invalid video bitrate %q", s.VideoBitrate))
		}
	}
	if s.AudioBitrate != "" && !bitratePattern.MatchString(s.AudioBitrate) {
		problems = append(problems, fmt.Sprintf("invalid audio bitrate %q", s.AudioBitrate))
	}
	if s.SampleRate < 0 || s.Channels < 0 || s.Channels > 8 {
		problems = append(problems, "sample rate and channels must be positive")
	}
	if len(problems) == 0 {
		return nil
	}
	return services.Wrap(services.ErrValidation, "custom_encode", "validate settings", strings.Join(problems, "; "), nil)
}

// Correction records a container substitution. AudioFrom and AudioTo are
// set when the audio codec had to follow the container.
type Correction struct {
	From      string
	To        string
	Reason    string
	AudioFrom string
	AudioTo   string
}

type containerRule struct {
	matches  func(s Settings) bool
	allowed  []string
	fallback func(s Settings) string
	reason   string
}

func fixed(container string) func(Settings) string {
	return func(Settings) string { return container }
}

var containerRules = []containerRule{
	{
		matches:  func(s Settings) bool { return isPCM(s.AudioCodec) && s.AudioOnly },
		allowed:  []string{"wav", "mov", "mkv"},
		fallback: fixed("wav"),
		reason:   "PCM audio requires an uncompressed-friendly container",
	},
	{
		matches:  func(s Settings) bool { return isPCM(s.AudioCodec) },
		allowed:  []string{"mov", "mkv"},
		fallback: fixed("mov"),
		reason:   "PCM audio cannot be muxed into a compressed delivery container",
	},
	{
		matches:  func(s Settings) bool { return strings.HasPrefix(s.VideoCodec, "prores") || s.VideoCodec == "dnxhd" },
		allowed:  []string{"mov", "mkv"},
		fallback: fixed("mov"),
		reason:   "mezzanine codecs require QuickTime",
	},
	{
		matches: func(s Settings) bool {
			return strings.HasPrefix(s.VideoCodec, "libvpx") || s.AudioCodec == "libopus" || s.AudioCodec == "libvorbis"
		},
		allowed: []string{"webm", "mkv", "ogg", "opus"},
		fallback: func(s Settings) string {
			if s.AudioOnly && s.AudioCodec == "libopus" {
				return "opus"
			}
			return "webm"
		},
		reason: "VP8/VP9/Opus/Vorbis require WebM or Matroska",
	},
	{
		matches:  func(s Settings) bool { return s.AudioOnly && (s.AudioCodec == "libmp3lame" || s.AudioCodec == "mp3") },
		allowed:  []string{"mp3", "mkv"},
		fallback: fixed("mp3"),
		reason:   "MP3 audio is delivered as .mp3",
	},
	{
		matches:  func(s Settings) bool { return s.AudioOnly && s.AudioCodec == "flac" },
		allowed:  []string{"flac", "mkv"},
		fallback: fixed("flac"),
		reason:   "FLAC audio is delivered as .flac",
	},
	{
		matches:  func(s Settings) bool { return s.AudioOnly && s.AudioCodec == "aac" },
		allowed:  []string{"m4a", "mp4", "mov", "aac", "mkv"},
		fallback: fixed("m4a"),
		reason:   "AAC audio requires an MPEG-4 container",
	},
	{
		matches:  func(s Settings) bool { return s.AudioOnly && s.AudioCodec == "ac3" },
		allowed:  []string{"ac3", "mkv", "mov", "mp4"},
		fallback: fixed("ac3"),
		reason:   "AC-3 audio is delivered as .ac3",
	},
}

// CorrectContainer substitutes the recommended container when the declared
// one cannot carry the chosen codecs. The first matching rule wins. WebM
// and Ogg only carry Opus or Vorbis, so other audio is moved to Opus.
func CorrectContainer(s Settings) (Settings, *Correction) {
	var correction *Correction
	for _, rule := range containerRules {
		if !rule.matches(s) {
			continue
		}
		if !slices.Contains(rule.allowed, s.Container) {
			corrected := rule.fallback(s)
			correction = &Correction{From: s.Container, To: corrected, Reason: rule.reason}
			s.Container = corrected
		}
		break
	}
	if (s.Container == "webm" || s.Container == "ogg") && s.AudioCodec != "" && !xiphAudio(s.AudioCodec) {
		if correction == nil {
			correction = &Correction{From: s.Container, To: s.Container}
		}
		correction.AudioFrom = s.AudioCodec
		correction.AudioTo = "libopus"
		correction.Reason = strings.TrimPrefix(correction.Reason+"; "+s.Container+" audio must be Opus or Vorbis", "; ")
		s.AudioCodec = "libopus"
		if s.AudioBitrate == "" {
			s.AudioBitrate = DefaultAudioBitrate
		}
	}
	return s, correction
}

func xiphAudio(codec string) bool {
	return codec == "libopus" || codec == "opus" || codec == "libvorbis" || codec == "vorbis"
}

// OutputName is the encoded variant filename for an asset and preset.
func OutputName(assetID, presetID, container string) string {
	return fmt.Sprintf("%s_%s.%s", ShortID(assetID), presetID, container)
}

// BuildCustomCommand renders normalized, corrected settings into an ffmpeg
// invocation writing output.
func BuildCustomCommand(ffmpeg, input, output string, s Settings) Command {
	args := []string{"-y", "-hide_banner", "-i", input}
	if s.AudioOnly {
		args = append(args, "-vn")
	} else {
		args = append(args, videoArgs(s)...)
	}
	args = append(args, audioArgs(s)...)
	if s.Container == "mp4" || s.Container == "mov" || s.Container == "m4a" {
		args = append(args, "-movflags", "+faststart")
	}
	args = append(args, output)
	return Command{Binary: binaryOr(ffmpeg, "ffmpeg"), Args: args}
}

func videoArgs(s Settings) []string {
	args := []string{"-c:v", s.VideoCodec}
	x26x := s.VideoCodec == "libx264" || s.VideoCodec == "libx265"
	crfMode := s.CRF != "" && (x26x || s.VideoCodec == "libvpx-vp9")
	if x26x && s.Preset != "" {
		args = append(args, "-preset", s.Preset)
	}
	switch {
	case crfMode:
		args = append(args, "-crf", s.CRF)
	case s.VideoBitrate != "":
		args = append(args, "-b:v", s.VideoBitrate)
	}

	var filters []string
	switch {
	case s.Resolution == "" || s.Resolution == originalMarker:
	case resolutionPattern.MatchString(s.Resolution):
		m := resolutionPattern.FindStringSubmatch(s.Resolution)
		filters = append(filters, fmt.Sprintf("scale=%s:%s", m[1], m[2]))
	default:
		filters = append(filters, "scale=-2:"+s.Resolution)
	}
	if len(filters) > 0 {
		args = append(args, "-vf", strings.Join(filters, ","))
	}
	if s.FPS != "" && s.FPS != originalMarker {
		args = append(args, "-r", s.FPS)
	}

	switch {
	case s.VideoCodec == "libx264" && s.Profile != "":
		args = append(args, "-profile:v", s.Profile)
	case s.VideoCodec == "prores_ks":
		args = append(args, "-profile:v", proresProfile(s.Profile))
	}
	if s.PixelFormat != "" {
		args = append(args, "-pix_fmt", s.PixelFormat)
	}
	if s.VideoCodec == "libvpx-vp9" && crfMode {
		args = append(args, "-b:v", "0", "-row-mt", "1")
	}
	return args
}

func audioArgs(s Settings) []string {
	args := []string{"-c:a", s.AudioCodec}
	if s.AudioBitrate != "" && !losslessAudio(s.AudioCodec) {
		args = append(args, "-b:a", s.AudioBitrate)
	}
	if s.SampleRate > 0 {
		args = append(args, "-ar", strconv.Itoa(s.SampleRate))
	}
	if s.Channels > 0 {
		args = append(args, "-ac", strconv.Itoa(s.Channels))
	}
	return args
}

// proresProfile maps named ProRes flavours to prores_ks profile numbers
// (0 proxy, 1 lt, 2 standard, 3 hq, 4 4444, 5 4444xq).
func proresProfile(profile string) string {
	switch strings.ToLower(strings.TrimSpace(profile)) {
	case "0", "proxy":
		return "0"
	case "1", "lt":
		return "1"
	case "3", "hq":
		return "3"
	case "4", "4444":
		return "4"
	case "5", "4444xq", "xq":
		return "5"
	default:
		return "2"
	}
}

func isPCM(codec string) bool {
	return strings.HasPrefix(codec, "pcm_")
}

func losslessAudio(codec string) bool {
	return isPCM(codec) || codec == "flac" || codec == "alac"
}

func defaultAudioContainer(codec string) string {
	switch {
	case isPCM(codec):
		return "wav"
	case codec == "libmp3lame" || codec == "mp3":
		return "mp3"
	case codec == "flac":
		return "flac"
	case codec == "libopus":
		return "opus"
	case codec == "ac3":
		return "ac3"
	default:
		return "m4a"
	}
}
