package config

import (
	"errors"
	"fmt"
	"sort"
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validatePaths(); err != nil {
		return err
	}
	if err := c.validateWorkers(); err != nil {
		return err
	}
	if err := c.validateVideo(); err != nil {
		return err
	}
	if err := c.validateImage(); err != nil {
		return err
	}
	if err := c.validateLogging(); err != nil {
		return err
	}
	return nil
}

func (c *Config) validatePaths() error {
	if c.Paths.MediaRoot == "" {
		return errors.New("paths.media_root must be set")
	}
	if c.Paths.DataDir == "" {
		return errors.New("paths.data_dir must be set")
	}
	return nil
}

func (c *Config) validateWorkers() error {
	if err := ensurePositiveMap(map[string]int{
		"workers.concurrency":         c.Workers.Concurrency,
		"workers.queue_size":          c.Workers.QueueSize,
		"workers.stuck_after_minutes": c.Workers.StuckAfterMinutes,
		"tools.probe_timeout_seconds": c.Tools.ProbeTimeoutSeconds,
	}); err != nil {
		return err
	}
	if c.Workers.SweepIntervalSeconds < 0 {
		return errors.New("workers.sweep_interval_seconds must not be negative")
	}
	return nil
}

func (c *Config) validateVideo() error {
	if c.Video.FallbackDurationSeconds <= 0 {
		return errors.New("video.fallback_duration_seconds must be positive")
	}
	return ensurePositiveMap(map[string]int{
		"video.hero_height":     c.Video.HeroHeight,
		"video.slate_height":    c.Video.SlateHeight,
		"video.playable_height": c.Video.PlayableHeight,
		"video.proxy_height":    c.Video.ProxyHeight,
	})
}

func (c *Config) validateImage() error {
	if err := ensurePositiveMap(map[string]int{
		"image.web_max_edge":   c.Image.WebMaxEdge,
		"image.thumbnail_edge": c.Image.ThumbnailEdge,
	}); err != nil {
		return err
	}
	if c.Image.ThumbnailEdge > c.Image.WebMaxEdge {
		return errors.New("image.thumbnail_edge must not exceed image.web_max_edge")
	}
	return nil
}

func (c *Config) validateLogging() error {
	switch c.Logging.Format {
	case "console", "json":
	default:
		return fmt.Errorf("logging.format: unsupported value %q", c.Logging.Format)
	}
	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("logging.level: unsupported value %q", c.Logging.Level)
	}
	return nil
}

func ensurePositiveMap(values map[string]int) error {
	keys := make([]string, 0, len(values))
	for key := range values {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	for _, key := range keys {
		if values[key] <= 0 {
			return fmt.Errorf("%s must be positive", key)
		}
	}
	return nil
}
