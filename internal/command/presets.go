package command

import (
	"regexp"
	"strings"

	"archivist/internal/services"
)

// CustomPresetID labels encodes that do not use a catalog preset.
const CustomPresetID = "custom"

// Preset is a named custom encode configuration.
type Preset struct {
	ID          string   `json:"id"`
	Name        string   `json:"name"`
	Description string   `json:"description"`
	Settings    Settings `json:"settings"`
}

var presetIDPattern = regexp.MustCompile(`^[a-z0-9][a-z0-9_-]{0,39}$`)

var catalog = []Preset{
	{ID: "hd1080", Name: "HD 1080p", Description: "Broadcast HD master", Settings: Settings{Resolution: "1920x1080", VideoBitrate: "8000k", AudioBitrate: "192k"}},
	{ID: "hd720", Name: "HD 720p", Description: "HD review copy", Settings: Settings{Resolution: "1280x720", VideoBitrate: "4000k", AudioBitrate: "128k"}},
	{ID: "uhd4k", Name: "UHD 4K", Description: "2160p delivery", Settings: Settings{Resolution: "3840x2160", VideoBitrate: "20000k", AudioBitrate: "320k", Profile: "high"}},
	{ID: "web_hd", Name: "Web HD", Description: "720p web streaming", Settings: Settings{Resolution: "1280x720", VideoBitrate: "2500k", AudioBitrate: "128k"}},
	{ID: "web_sd", Name: "Web SD", Description: "480p web streaming", Settings: Settings{Resolution: "854x480", VideoBitrate: "1000k", AudioBitrate: "96k", FPS: "25"}},
	{ID: "mobile_high", Name: "Mobile high", Description: "720p for phones", Settings: Settings{Resolution: "1280x720", VideoBitrate: "1500k", AudioBitrate: "96k", Profile: "baseline"}},
	{ID: "mobile_low", Name: "Mobile low", Description: "360p for constrained links", Settings: Settings{Resolution: "640x360", VideoBitrate: "500k", AudioBitrate: "64k", Profile: "baseline"}},
	{ID: "prores_hq", Name: "ProRes 422 HQ", Description: "Edit mezzanine", Settings: Settings{Container: "mov", VideoCodec: "prores_ks", Resolution: "original", FPS: "original", Profile: "hq", PixelFormat: "yuv422p10le", AudioCodec: "pcm_s16le"}},
	{ID: "vp9_web", Name: "VP9 web", Description: "WebM for browsers", Settings: Settings{Container: "webm", VideoCodec: "libvpx-vp9", Resolution: "1280x720", CRF: "32", AudioCodec: "libopus", AudioBitrate: "128k"}},
	{ID: "mp3_320", Name: "MP3 320 kbps", Description: "Audio only", Settings: Settings{AudioOnly: true, AudioCodec: "libmp3lame", AudioBitrate: "320k", SampleRate: 44100, Channels: 2}},
	{ID: "aac_256", Name: "AAC 256 kbps", Description: "Audio only (m4a)", Settings: Settings{AudioOnly: true, AudioCodec: "aac", AudioBitrate: "256k", SampleRate: 44100, Channels: 2}},
	{ID: "flac", Name: "FLAC", Description: "Lossless audio", Settings: Settings{AudioOnly: true, AudioCodec: "flac", SampleRate: 48000, Channels: 2}},
	{ID: "wav_pcm", Name: "WAV PCM 16-bit", Description: "Uncompressed audio", Settings: Settings{AudioOnly: true, AudioCodec: "pcm_s16le", SampleRate: 48000, Channels: 2}},
}

// Presets returns the built-in catalog.
func Presets() []Preset {
	out := make([]Preset, len(catalog))
	copy(out, catalog)
	return out
}

// LookupPreset finds a catalog preset by id.
func LookupPreset(id string) (Preset, bool) {
	id = strings.ToLower(strings.TrimSpace(id))
	for _, preset := range catalog {
		if preset.ID == id {
			return preset, true
		}
	}
	return Preset{}, false
}

// Resolved is a ready-to-run custom encode configuration.
type Resolved struct {
	PresetID   string
	Settings   Settings
	Correction *Correction
}

// ResolveSettings combines a preset id with optional explicit settings.
//
// A known preset id yields the catalog settings with overrides applied. An
// unknown id is accepted only with explicit settings, keeping the id as the
// variant label. The result is normalized, validated, and container-corrected.
func ResolveSettings(presetID string, overrides *Settings) (Resolved, error) {
	id := strings.ToLower(strings.TrimSpace(presetID))
	if id == "" {
		id = CustomPresetID
	}
	if !presetIDPattern.MatchString(id) {
		return Resolved{}, services.Wrap(services.ErrValidation, "custom_encode", "resolve preset", "preset id must be lowercase letters, digits, '-' or '_'", nil)
	}

	var base Settings
	if preset, ok := LookupPreset(id); ok {
		base = preset.Settings
	} else if overrides == nil {
		return Resolved{}, services.Wrap(services.ErrValidation, "custom_encode", "resolve preset", "unknown preset "+id+" without explicit settings", nil)
	}
	if overrides != nil {
		base = base.Merge(*overrides)
	}

	settings := base.Normalize()
	if err := settings.Validate(); err != nil {
		return Resolved{}, err
	}
	settings, correction := CorrectContainer(settings)
	return Resolved{PresetID: id, Settings: settings, Correction: correction}, nil
}
