package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/renameio/v2"
	"github.com/pelletier/go-toml/v2"
)

//go:embed sample_config.toml
var sampleConfig string

// Paths contains directory configuration.
type Paths struct {
	MediaRoot  string `toml:"media_root"`
	DataDir    string `toml:"data_dir"`
	SourceRoot string `toml:"source_root"`
}

// Tools contains external binary locations.
type Tools struct {
	FFmpeg              string `toml:"ffmpeg"`
	FFprobe             string `toml:"ffprobe"`
	RawConverter        string `toml:"raw_converter"`
	ProbeTimeoutSeconds int    `toml:"probe_timeout_seconds"`
}

// Workers contains dispatcher pool settings.
type Workers struct {
	Concurrency          int  `toml:"concurrency"`
	QueueSize            int  `toml:"queue_size"`
	Sync                 bool `toml:"sync"`
	StuckAfterMinutes    int  `toml:"stuck_after_minutes"`
	SweepIntervalSeconds int  `toml:"sweep_interval_seconds"`
}

// Video contains video pipeline knobs.
type Video struct {
	FallbackDurationSeconds float64 `toml:"fallback_duration_seconds"`
	HeroHeight              int     `toml:"hero_height"`
	SlateHeight             int     `toml:"slate_height"`
	PlayableHeight          int     `toml:"playable_height"`
	ProxyHeight             int     `toml:"proxy_height"`
	ProxyEnabled            bool    `toml:"proxy_enabled"`
}

// Image contains image pipeline knobs.
type Image struct {
	WebMaxEdge    int `toml:"web_max_edge"`
	ThumbnailEdge int `toml:"thumbnail_edge"`
}

// Audio contains audio pipeline knobs.
type Audio struct {
	Bitrate string `toml:"bitrate"`
}

// Reconcile contains source-file reconciler settings.
type Reconcile struct {
	Extensions []string `toml:"extensions"`
}

// Metrics contains Prometheus endpoint settings.
type Metrics struct {
	Bind string `toml:"bind"`
}

// Notifications contains ntfy delivery settings.
type Notifications struct {
	NtfyTopic             string `toml:"ntfy_topic"`
	RequestTimeoutSeconds int    `toml:"request_timeout_seconds"`
}

// Logging contains configuration for log output.
type Logging struct {
	Format string `toml:"format"`
	Level  string `toml:"level"`
}

// Config encapsulates all configuration values for Archivist.
//
// Configuration sections by subsystem:
//   - Paths: media root (artifact buckets), data dir (database, socket, lock), source root
//   - Tools: ffmpeg/ffprobe/raw converter binaries and probe timeout
//   - Workers: dispatcher pool size, queue depth, synchronous mode, stuck sweeps
//   - Video, Image, Audio: pipeline output knobs
//   - Reconcile: source extension allow-list
//   - Metrics: Prometheus bind address
//   - Notifications: ntfy topic for failure alerts
//   - Logging: log format and level
type Config struct {
	Paths         Paths         `toml:"paths"`
	Tools         Tools         `toml:"tools"`
	Workers       Workers       `toml:"workers"`
	Video         Video         `toml:"video"`
	Image         Image         `toml:"image"`
	Audio         Audio         `toml:"audio"`
	Reconcile     Reconcile     `toml:"reconcile"`
	Metrics       Metrics       `toml:"metrics"`
	Notifications Notifications `toml:"notifications"`
	Logging       Logging       `toml:"logging"`
}

// DefaultConfigPath returns the absolute path to the default configuration file location.
func DefaultConfigPath() (string, error) {
	return expandPath(defaultConfigPath)
}

// Load locates, parses, and validates a configuration file. The returned config has all
// path fields expanded and normalized.
func Load(path string) (*Config, string, bool, error) {
	cfg := Default()

	resolvedPath, exists, err := resolveConfigPath(path)
	if err != nil {
		return nil, "", false, err
	}

	if exists {
		file, err := os.Open(resolvedPath)
		if err != nil {
			return nil, "", false, fmt.Errorf("open config: %w", err)
		}
		defer file.Close()

		decoder := toml.NewDecoder(file)
		decoder.DisallowUnknownFields()
		if err := decoder.Decode(&cfg); err != nil {
			return nil, "", false, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := cfg.normalize(); err != nil {
		return nil, "", false, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, "", false, err
	}

	return &cfg, resolvedPath, exists, nil
}

func resolveConfigPath(path string) (string, bool, error) {
	if path != "" {
		expanded, err := expandPath(path)
		if err != nil {
			return "", false, err
		}
		_, err = os.Stat(expanded)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return expanded, false, nil
			}
			return "", false, fmt.Errorf("stat config: %w", err)
		}
		return expanded, true, nil
	}

	defaultPath, err := expandPath(defaultConfigPath)
	if err != nil {
		return "", false, err
	}

	projectPath, err := filepath.Abs("archivist.toml")
	if err != nil {
		return "", false, err
	}

	if info, err := os.Stat(defaultPath); err == nil && !info.IsDir() {
		return defaultPath, true, nil
	}
	if info, err := os.Stat(projectPath); err == nil && !info.IsDir() {
		return projectPath, true, nil
	}

	return defaultPath, false, nil
}

// EnsureDirectories creates required directories for daemon operation.
func (c *Config) EnsureDirectories() error {
	for _, dir := range []string{c.Paths.DataDir, c.Paths.MediaRoot} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %q: %w", dir, err)
		}
	}
	return nil
}

// DatabasePath returns the SQLite database location.
func (c *Config) DatabasePath() string {
	return filepath.Join(c.Paths.DataDir, "archivist.db")
}

// SocketPath returns the daemon control socket location.
func (c *Config) SocketPath() string {
	return filepath.Join(c.Paths.DataDir, "archivist.sock")
}

// LockPath returns the daemon single-instance lock file location.
func (c *Config) LockPath() string {
	return filepath.Join(c.Paths.DataDir, "archivistd.lock")
}

// PIDPath returns the file the daemon writes its process id to.
func (c *Config) PIDPath() string {
	return filepath.Join(c.Paths.DataDir, "archivistd.pid")
}

// LogPath returns the daemon log file location.
func (c *Config) LogPath() string {
	return filepath.Join(c.Paths.DataDir, "archivistd.log")
}

// FFmpegBinary returns the ffmpeg executable used for encoding.
func (c *Config) FFmpegBinary() string {
	if bin := strings.TrimSpace(c.Tools.FFmpeg); bin != "" {
		return bin
	}
	return defaultFFmpeg
}

// FFprobeBinary returns the ffprobe executable used for media inspection.
func (c *Config) FFprobeBinary() string {
	if bin := strings.TrimSpace(c.Tools.FFprobe); bin != "" {
		return bin
	}
	return defaultFFprobe
}

func expandPath(pathValue string) (string, error) {
	if pathValue == "" {
		return pathValue, nil
	}
	if strings.HasPrefix(pathValue, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		if pathValue == "~" {
			pathValue = home
		} else if len(pathValue) > 1 && (pathValue[1] == '/' || pathValue[1] == '\\') {
			pathValue = filepath.Join(home, pathValue[2:])
		}
	}
	cleaned := filepath.Clean(pathValue)
	absolute, err := filepath.Abs(cleaned)
	if err != nil {
		return "", fmt.Errorf("resolve absolute path for %q: %w", cleaned, err)
	}
	return absolute, nil
}

// ExpandPath exposes the repository path expansion rules for other packages.
func ExpandPath(pathValue string) (string, error) {
	return expandPath(pathValue)
}

// CreateSample writes a sample configuration file to the specified location.
func CreateSample(path string) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create config directory: %w", err)
		}
	}

	if err := renameio.WriteFile(path, []byte(sampleConfig), 0o644); err != nil {
		return fmt.Errorf("write sample config: %w", err)
	}
	return nil
}

// RawConverterBinary returns the camera RAW demosaic tool.
func (c *Config) RawConverterBinary() string {
	if bin := strings.TrimSpace(c.Tools.RawConverter); bin != "" {
		return bin
	}
	return defaultRawConverter
}
