package command

import (
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"

	"archivist/internal/services"
)

func TestNormalizeAppliesDefaults(t *testing.T) {
	got := Settings{}.Normalize()
	want := Settings{
		Container:    "mp4",
		VideoCodec:   "libx264",
		Resolution:   "1920x1080",
		FPS:          "30",
		CRF:          "23",
		Preset:       "medium",
		AudioCodec:   "aac",
		AudioBitrate: "128k",
		Profile:      "main",
		PixelFormat:  "yuv420p",
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("defaults mismatch (-want +got):\n%s", diff)
	}
}

func TestBuildCustomCommandDefaults(t *testing.T) {
	s := Settings{}.Normalize()
	cmd := BuildCustomCommand("ffmpeg", "in.mov", "encoded/0b7c2a51_custom.mp4", s)
	want := []string{
		"-y", "-hide_banner", "-i", "in.mov",
		"-c:v", "libx264", "-preset", "medium", "-crf", "23",
		"-vf", "scale=1920:1080", "-r", "30",
		"-profile:v", "main", "-pix_fmt", "yuv420p",
		"-c:a", "aac", "-b:a", "128k",
		"-movflags", "+faststart",
		"encoded/0b7c2a51_custom.mp4",
	}
	if diff := cmp.Diff(want, cmd.Args); diff != "" {
		t.Fatalf("args mismatch (-want +got):\n%s", diff)
	}
}

func TestBuildCustomCommandVariants(t *testing.T) {
	tests := []struct {
		name     string
		settings Settings
		contains [][]string
		excludes []string
	}{
		{
			name:     "bitrate mode for hardware codec",
			settings: Settings{VideoCodec: "h264_nvenc", VideoBitrate: "6M", CRF: "20"},
			contains: [][]string{{"-b:v", "6M"}},
			excludes: []string{"-crf", "-preset", "-profile:v"},
		},
		{
			name:     "height keeps aspect",
			settings: Settings{Resolution: "720", FPS: "original"},
			contains: [][]string{{"-vf", "scale=-2:720"}},
			excludes: []string{"-r"},
		},
		{
			name:     "original resolution skips scaling",
			settings: Settings{Resolution: "original"},
			excludes: []string{"-vf"},
		},
		{
			name:     "vp9 crf mode",
			settings: Settings{Container: "webm", VideoCodec: "libvpx-vp9", CRF: "31", AudioCodec: "libopus"},
			contains: [][]string{{"-crf", "31"}, {"-b:v", "0", "-row-mt", "1"}},
			excludes: []string{"-movflags", "-preset"},
		},
		{
			name:     "prores profile",
			settings: Settings{Container: "mov", VideoCodec: "prores_ks", Profile: "hq", AudioCodec: "pcm_s16le"},
			contains: [][]string{{"-profile:v", "3"}, {"-c:a", "pcm_s16le"}},
			excludes: []string{"-b:a", "-crf"},
		},
		{
			name:     "audio only",
			settings: Settings{AudioOnly: true, AudioCodec: "libmp3lame", AudioBitrate: "320k", SampleRate: 44100, Channels: 2},
			contains: [][]string{{"-vn"}, {"-c:a", "libmp3lame", "-b:a", "320k", "-ar", "44100", "-ac", "2"}},
			excludes: []string{"-c:v", "-movflags"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, _ := CorrectContainer(tt.settings.Normalize())
			args := BuildCustomCommand("ffmpeg", "in", "out", s).Args
			for _, seq := range tt.contains {
				require.True(t, containsSequence(args, seq), "expected %v in %v", seq, args)
			}
			for _, flag := range tt.excludes {
				require.NotContains(t, args, flag)
			}
		})
	}
}

func TestCorrectContainer(t *testing.T) {
	tests := []struct {
		name     string
		settings Settings
		want     string
		changed  bool
	}{
		{name: "pcm in mp4", settings: Settings{Container: "mp4", AudioCodec: "pcm_s16le"}, want: "mov", changed: true},
		{name: "pcm audio only", settings: Settings{Container: "mp3", AudioCodec: "pcm_s24le", AudioOnly: true}, want: "wav", changed: true},
		{name: "prores in mp4", settings: Settings{Container: "mp4", VideoCodec: "prores_ks"}, want: "mov", changed: true},
		{name: "dnxhd in mov", settings: Settings{Container: "mov", VideoCodec: "dnxhd"}, want: "mov"},
		{name: "vp9 in mp4", settings: Settings{Container: "mp4", VideoCodec: "libvpx-vp9"}, want: "webm", changed: true},
		{name: "opus in mkv", settings: Settings{Container: "mkv", AudioCodec: "libopus"}, want: "mkv"},
		{name: "opus audio only", settings: Settings{Container: "m4a", AudioCodec: "libopus", AudioOnly: true}, want: "opus", changed: true},
		{name: "mp3 audio only", settings: Settings{Container: "wav", AudioCodec: "libmp3lame", AudioOnly: true}, want: "mp3", changed: true},
		{name: "flac audio only", settings: Settings{Container: "m4a", AudioCodec: "flac", AudioOnly: true}, want: "flac", changed: true},
		{name: "aac audio only", settings: Settings{Container: "wav", AudioCodec: "aac", AudioOnly: true}, want: "m4a", changed: true},
		{name: "vp9 with aac into webm", settings: Settings{Container: "mp4", VideoCodec: "libvpx-vp9", AudioCodec: "aac"}, want: "webm", changed: true},
		{name: "vp9 in mkv keeps aac", settings: Settings{Container: "mkv", VideoCodec: "libvpx-vp9", AudioCodec: "aac"}, want: "mkv"},
		{name: "h264 untouched", settings: Settings{Container: "mkv", VideoCodec: "libx264", AudioCodec: "aac"}, want: "mkv"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, correction := CorrectContainer(tt.settings)
			require.Equal(t, tt.want, got.Container)
			if tt.changed {
				require.NotNil(t, correction)
				require.Equal(t, tt.settings.Container, correction.From)
				require.Equal(t, tt.want, correction.To)
				require.NotEmpty(t, correction.Reason)
			} else {
				require.Nil(t, correction)
			}
		})
	}
}

func TestValidateRejectsGarbage(t *testing.T) {
	s := Settings{Resolution: "big", FPS: "-1", CRF: "99", VideoBitrate: "fast"}.Normalize()
	err := s.Validate()
	require.Error(t, err)
	require.True(t, errors.Is(err, services.ErrValidation))
	for _, fragment := range []string{"resolution", "fps", "crf", "video bitrate"} {
		require.Contains(t, err.Error(), fragment)
	}
}

func TestResolveSettings(t *testing.T) {
	t.Run("catalog preset", func(t *testing.T) {
		resolved, err := ResolveSettings("web_sd", nil)
		require.NoError(t, err)
		require.Equal(t, "web_sd", resolved.PresetID)
		require.Equal(t, "854x480", resolved.Settings.Resolution)
		require.Equal(t, "1000k", resolved.Settings.VideoBitrate)
		require.Equal(t, "25", resolved.Settings.FPS)
		require.Empty(t, resolved.Settings.CRF)
	})
	t.Run("override on preset", func(t *testing.T) {
		resolved, err := ResolveSettings("HD720", &Settings{AudioBitrate: "192k"})
		require.NoError(t, err)
		require.Equal(t, "hd720", resolved.PresetID)
		require.Equal(t, "192k", resolved.Settings.AudioBitrate)
		require.Equal(t, "1280x720", resolved.Settings.Resolution)
	})
	t.Run("unknown id with settings is custom", func(t *testing.T) {
		resolved, err := ResolveSettings("client-x", &Settings{Container: "mp4", AudioCodec: "pcm_s16le"})
		require.NoError(t, err)
		require.Equal(t, "client-x", resolved.PresetID)
		require.Equal(t, "mov", resolved.Settings.Container)
		require.NotNil(t, resolved.Correction)
	})
	t.Run("vp9 into mp4 moves audio to opus", func(t *testing.T) {
		resolved, err := ResolveSettings("vp9custom", &Settings{VideoCodec: "libvpx-vp9", Container: "mp4"})
		require.NoError(t, err)
		require.Equal(t, "webm", resolved.Settings.Container)
		require.Equal(t, "libopus", resolved.Settings.AudioCodec)
		require.NotNil(t, resolved.Correction)
		require.Equal(t, "aac", resolved.Correction.AudioFrom)
		require.Equal(t, "libopus", resolved.Correction.AudioTo)
		cmd := BuildCustomCommand("ffmpeg", "in.mov", "out.webm", resolved.Settings)
		require.Contains(t, cmd.String(), "-c:a libopus")
		require.NotContains(t, cmd.String(), "-c:a aac")
	})
	t.Run("declared webm with aac is corrected", func(t *testing.T) {
		resolved, err := ResolveSettings("webm-aac", &Settings{VideoCodec: "libvpx-vp9", Container: "webm", AudioCodec: "aac"})
		require.NoError(t, err)
		require.Equal(t, "webm", resolved.Settings.Container)
		require.Equal(t, "libopus", resolved.Settings.AudioCodec)
		require.NotNil(t, resolved.Correction)
		require.Contains(t, resolved.Correction.Reason, "Opus or Vorbis")
	})
	t.Run("unknown id without settings", func(t *testing.T) {
		_, err := ResolveSettings("nope", nil)
		require.ErrorIs(t, err, services.ErrValidation)
	})
	t.Run("unsafe id", func(t *testing.T) {
		_, err := ResolveSettings("../etc", &Settings{})
		require.ErrorIs(t, err, services.ErrValidation)
	})
	t.Run("empty id defaults to custom", func(t *testing.T) {
		resolved, err := ResolveSettings("", &Settings{})
		require.NoError(t, err)
		require.Equal(t, CustomPresetID, resolved.PresetID)
	})
}

func TestCatalogPresetsResolve(t *testing.T) {
	seen := map[string]bool{}
	for _, preset := range Presets() {
		require.False(t, seen[preset.ID], "duplicate preset %s", preset.ID)
		seen[preset.ID] = true
		resolved, err := ResolveSettings(preset.ID, nil)
		require.NoError(t, err, preset.ID)
		require.Nil(t, resolved.Correction, "catalog preset %s should not need correction", preset.ID)
	}
	require.True(t, seen["mobile_low"])
}

func TestOutputName(t *testing.T) {
	require.Equal(t, "0b7c2a51_hd720.mp4", OutputName("0b7c2a51-5f0e-4f7a-9a43-1b2c3d4e5f60", "hd720", "mp4"))
}

func containsSequence(args, seq []string) bool {
	for i := 0; i+len(seq) <= len(args); i++ {
		if cmp.Equal(args[i:i+len(seq)], seq) {
			return true
		}
	}
	return false
}
