package config_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/pelletier/go-toml/v2"

	"archivist/internal/config"
)

func TestLoadDefaultConfigExpandsPaths(t *testing.T) {
	tempHome := t.TempDir()
	t.Setenv("HOME", tempHome)
	t.Setenv("FFMPEG_BIN", "")
	t.Setenv("FFPROBE_BIN", "")
	t.Setenv("ARCHIVIST_SYNC", "")
	t.Setenv("SYNC_TRANSCODE", "")
	t.Chdir(t.TempDir())

	cfg, resolved, exists, err := config.Load("")
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if resolved == "" {
		t.Fatal("expected resolved path")
	}
	if exists {
		t.Fatal("expected config file to be absent in temp HOME")
	}

	wantMedia := filepath.Join(tempHome, ".local", "share", "archivist", "media")
	if cfg.Paths.MediaRoot != wantMedia {
		t.Fatalf("unexpected media root: got %q want %q", cfg.Paths.MediaRoot, wantMedia)
	}
	if cfg.DatabasePath() != filepath.Join(tempHome, ".local", "share", "archivist", "archivist.db") {
		t.Fatalf("unexpected database path: %q", cfg.DatabasePath())
	}
	if cfg.FFmpegBinary() != "ffmpeg" || cfg.FFprobeBinary() != "ffprobe" {
		t.Fatalf("unexpected tool defaults: %q %q", cfg.FFmpegBinary(), cfg.FFprobeBinary())
	}
	if cfg.Workers.Sync {
		t.Fatal("expected asynchronous dispatch by default")
	}
	if cfg.Workers.Concurrency != config.Default().Workers.Concurrency {
		t.Fatalf("unexpected concurrency: %d", cfg.Workers.Concurrency)
	}
	if cfg.Video.FallbackDurationSeconds != 30 {
		t.Fatalf("unexpected fallback duration: %v", cfg.Video.FallbackDurationSeconds)
	}
	if len(cfg.Reconcile.Extensions) != 6 {
		t.Fatalf("unexpected reconcile extensions: %v", cfg.Reconcile.Extensions)
	}
}

func TestLoadAppliesEnvironmentOverrides(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	t.Setenv("FFMPEG_BIN", "/opt/ffmpeg/bin/ffmpeg")
	t.Setenv("FFPROBE_BIN", "/opt/ffmpeg/bin/ffprobe")
	t.Setenv("ARCHIVIST_SYNC", "")
	t.Setenv("SYNC_TRANSCODE", "1")

	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")
	body := "[tools]\nffmpeg = \"/usr/bin/ffmpeg\"\n"
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, resolved, exists, err := config.Load(path)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if !exists || resolved != path {
		t.Fatalf("expected explicit config to be used, got %q exists=%v", resolved, exists)
	}
	if cfg.FFmpegBinary() != "/opt/ffmpeg/bin/ffmpeg" {
		t.Fatalf("expected env ffmpeg override, got %q", cfg.FFmpegBinary())
	}
	if cfg.FFprobeBinary() != "/opt/ffmpeg/bin/ffprobe" {
		t.Fatalf("expected env ffprobe override, got %q", cfg.FFprobeBinary())
	}
	if !cfg.Workers.Sync {
		t.Fatal("expected SYNC_TRANSCODE to force synchronous dispatch")
	}
}

func TestLoadNormalizesReconcileExtensions(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")
	body := "[reconcile]\nextensions = [\"MOV\", \".mp4\", \".mov\", \" \"]\n"
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	cfg, _, _, err := config.Load(path)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	got := strings.Join(cfg.Reconcile.Extensions, ",")
	if got != ".mov,.mp4" {
		t.Fatalf("unexpected extensions %q", got)
	}
}

func TestLoadRejectsUnknownKeys(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")
	if err := os.WriteFile(path, []byte("[workers]\nthreads = 4\n"), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	if _, _, _, err := config.Load(path); err == nil {
		t.Fatal("expected unknown key to be rejected")
	}
}

func TestValidateRejectsInvalidValues(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*config.Config)
		want   string
	}{
		{"concurrency", func(c *config.Config) { c.Workers.Concurrency = 0 }, "workers.concurrency"},
		{"fallback", func(c *config.Config) { c.Video.FallbackDurationSeconds = 0 }, "fallback_duration_seconds"},
		{"thumbnail", func(c *config.Config) { c.Image.ThumbnailEdge = c.Image.WebMaxEdge + 1 }, "thumbnail_edge"},
		{"format", func(c *config.Config) { c.Logging.Format = "xml" }, "logging.format"},
		{"sweep", func(c *config.Config) { c.Workers.SweepIntervalSeconds = -1 }, "sweep_interval_seconds"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := config.Default()
			cfg.Paths.MediaRoot = "/tmp/media"
			cfg.Paths.DataDir = "/tmp/data"
			tc.mutate(&cfg)
			err := cfg.Validate()
			if err == nil {
				t.Fatal("expected validation error")
			}
			if !strings.Contains(err.Error(), tc.want) {
				t.Fatalf("expected %q in %q", tc.want, err.Error())
			}
		})
	}
}

func TestCreateSampleIsLoadable(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	path := filepath.Join(t.TempDir(), "nested", "config.toml")
	if err := config.CreateSample(path); err != nil {
		t.Fatalf("CreateSample: %v", err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read sample: %v", err)
	}
	var decoded config.Config
	if err := toml.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("sample is not valid toml: %v", err)
	}
	if decoded.Workers.Concurrency != config.Default().Workers.Concurrency {
		t.Fatalf("sample concurrency drifted from defaults: %d", decoded.Workers.Concurrency)
	}
	if _, _, _, err := config.Load(path); err != nil {
		t.Fatalf("Load(sample): %v", err)
	}
}
