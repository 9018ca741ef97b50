package config

import (
	"fmt"
	"os"
	"strings"
)

func (c *Config) normalize() error {
	if err := c.normalizePaths(); err != nil {
		return err
	}
	c.normalizeTools()
	c.normalizeWorkers()
	c.normalizeReconcile()
	c.normalizeLogging()
	c.Audio.Bitrate = strings.TrimSpace(c.Audio.Bitrate)
	if c.Audio.Bitrate == "" {
		c.Audio.Bitrate = defaultAudioBitrate
	}
	c.Metrics.Bind = strings.TrimSpace(c.Metrics.Bind)
	c.Notifications.NtfyTopic = strings.TrimSpace(c.Notifications.NtfyTopic)
	if c.Notifications.RequestTimeoutSeconds <= 0 {
		c.Notifications.RequestTimeoutSeconds = defaultNotifyTimeoutSeconds
	}
	return nil
}

func (c *Config) normalizePaths() error {
	var err error
	if strings.TrimSpace(c.Paths.MediaRoot) == "" {
		c.Paths.MediaRoot = defaultMediaRoot
	}
	if c.Paths.MediaRoot, err = expandPath(c.Paths.MediaRoot); err != nil {
		return fmt.Errorf("paths.media_root: %w", err)
	}
	if strings.TrimSpace(c.Paths.DataDir) == "" {
		c.Paths.DataDir = defaultDataDir
	}
	if c.Paths.DataDir, err = expandPath(c.Paths.DataDir); err != nil {
		return fmt.Errorf("paths.data_dir: %w", err)
	}
	if c.Paths.SourceRoot, err = expandPath(strings.TrimSpace(c.Paths.SourceRoot)); err != nil {
		return fmt.Errorf("paths.source_root: %w", err)
	}
	return nil
}

// normalizeTools applies the FFMPEG_BIN/FFPROBE_BIN overrides. Environment
// values win over the file so operators can point a running setup at a
// different toolchain without editing config.
func (c *Config) normalizeTools() {
	if value, ok := os.LookupEnv("FFMPEG_BIN"); ok && strings.TrimSpace(value) != "" {
		c.Tools.FFmpeg = strings.TrimSpace(value)
	}
	if value, ok := os.LookupEnv("FFPROBE_BIN"); ok && strings.TrimSpace(value) != "" {
		c.Tools.FFprobe = strings.TrimSpace(value)
	}
	c.Tools.FFmpeg = strings.TrimSpace(c.Tools.FFmpeg)
	if c.Tools.FFmpeg == "" {
		c.Tools.FFmpeg = defaultFFmpeg
	}
	c.Tools.FFprobe = strings.TrimSpace(c.Tools.FFprobe)
	if c.Tools.FFprobe == "" {
		c.Tools.FFprobe = defaultFFprobe
	}
	c.Tools.RawConverter = strings.TrimSpace(c.Tools.RawConverter)
}

func (c *Config) normalizeWorkers() {
	if envFlag("ARCHIVIST_SYNC") || envFlag("SYNC_TRANSCODE") {
		c.Workers.Sync = true
	}
}

func (c *Config) normalizeReconcile() {
	seen := make(map[string]struct{}, len(c.Reconcile.Extensions))
	exts := make([]string, 0, len(c.Reconcile.Extensions))
	for _, ext := range c.Reconcile.Extensions {
		ext = strings.ToLower(strings.TrimSpace(ext))
		if ext == "" {
			continue
		}
		if !strings.HasPrefix(ext, ".") {
			ext = "." + ext
		}
		if _, ok := seen[ext]; ok {
			continue
		}
		seen[ext] = struct{}{}
		exts = append(exts, ext)
	}
	if len(exts) == 0 {
		exts = append(exts, defaultReconcileExtensions...)
	}
	c.Reconcile.Extensions = exts
}

func (c *Config) normalizeLogging() {
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	if c.Logging.Format == "" {
		c.Logging.Format = defaultLogFormat
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
}

func envFlag(name string) bool {
	value, ok := os.LookupEnv(name)
	if !ok {
		return false
	}
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "1", "true", "yes", "on":
		return true
	default:
		return false
	}
}
