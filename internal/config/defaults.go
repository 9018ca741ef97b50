package config

const (
	defaultConfigPath              = "~/.config/archivist/config.toml"
	defaultMediaRoot               = "~/.local/share/archivist/media"
	defaultDataDir                 = "~/.local/share/archivist"
	defaultFFmpeg                  = "ffmpeg"
	defaultFFprobe                 = "ffprobe"
	defaultRawConverter            = "dcraw"
	defaultProbeTimeoutSeconds     = 5
	defaultWorkerConcurrency       = 2
	defaultWorkerQueueSize         = 64
	defaultStuckAfterMinutes       = 60
	defaultFallbackDurationSeconds = 30.0
	defaultHeroHeight              = 360
	defaultSlateHeight             = 720
	defaultPlayableHeight          = 1080
	defaultProxyHeight             = 720
	defaultWebMaxEdge              = 2048
	defaultThumbnailEdge           = 400
	defaultAudioBitrate            = "192k"
	defaultNotifyTimeoutSeconds    = 10
	defaultLogFormat               = "console"
	defaultLogLevel                = "info"
)

var defaultReconcileExtensions = []string{".mov", ".mp4", ".avi", ".mkv", ".mxf", ".m4v"}

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			MediaRoot: defaultMediaRoot,
			DataDir:   defaultDataDir,
		},
		Tools: Tools{
			FFmpeg:              defaultFFmpeg,
			FFprobe:             defaultFFprobe,
			RawConverter:        defaultRawConverter,
			ProbeTimeoutSeconds: defaultProbeTimeoutSeconds,
		},
		Workers: Workers{
			Concurrency:       defaultWorkerConcurrency,
			QueueSize:         defaultWorkerQueueSize,
			StuckAfterMinutes: defaultStuckAfterMinutes,
		},
		Video: Video{
			FallbackDurationSeconds: defaultFallbackDurationSeconds,
			HeroHeight:              defaultHeroHeight,
			SlateHeight:             defaultSlateHeight,
			PlayableHeight:          defaultPlayableHeight,
			ProxyHeight:             defaultProxyHeight,
			ProxyEnabled:            true,
		},
		Image: Image{
			WebMaxEdge:    defaultWebMaxEdge,
			ThumbnailEdge: defaultThumbnailEdge,
		},
		Audio: Audio{
			Bitrate: defaultAudioBitrate,
		},
		Reconcile: Reconcile{
			Extensions: append([]string(nil), defaultReconcileExtensions...),
		},
		Notifications: Notifications{
			RequestTimeoutSeconds: defaultNotifyTimeoutSeconds,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
	}
}
