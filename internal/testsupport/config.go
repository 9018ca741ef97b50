package testsupport

import (
	"os"
	"path/filepath"
	"testing"

	"archivist/internal/config"
)

// ConfigOption allows callers to customize the generated test configuration.
type ConfigOption func(*configBuilder)

type configBuilder struct {
	t       testing.TB
	baseDir string
	cfg     *config.Config
}

// NewConfig produces a config seeded with unique temp directories per test.
// It defaults common fields and applies any provided options.
func NewConfig(t testing.TB, opts ...ConfigOption) *config.Config {
	t.Helper()

	base := t.TempDir()
	cfgVal := config.Default()
	cfgVal.Paths.MediaRoot = filepath.Join(base, "media")
	cfgVal.Paths.DataDir = filepath.Join(base, "data")
	cfgVal.Paths.SourceRoot = filepath.Join(base, "sources")
	cfgVal.Workers.Concurrency = 2
	cfgVal.Workers.QueueSize = 8
	cfgVal.Metrics.Bind = ""
	cfgVal.Logging.Format = "json"

	builder := &configBuilder{
		t:       t,
		baseDir: base,
		cfg:     &cfgVal,
	}

	for _, opt := range opts {
		opt(builder)
	}

	return builder.cfg
}

// WithSync forces synchronous dispatch.
func WithSync() ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Workers.Sync = true
	}
}

// WithWorkers sets the dispatcher worker count and queue depth.
func WithWorkers(concurrency, queueSize int) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Workers.Concurrency = concurrency
		b.cfg.Workers.QueueSize = queueSize
	}
}

// WithProxy toggles the H.265 support proxy.
func WithProxy(enabled bool) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Video.ProxyEnabled = enabled
	}
}

// WithStubbedBinaries writes stub executables for the provided names and
// prepends them to PATH. If names is empty, ffmpeg and ffprobe are stubbed.
func WithStubbedBinaries(names ...string) ConfigOption {
	return func(b *configBuilder) {
		if len(names) == 0 {
			names = []string{"ffmpeg", "ffprobe"}
		}
		binDir := filepath.Join(b.baseDir, "bin")
		for _, name := range names {
			WriteScript(b.t, filepath.Join(binDir, name), "exit 0")
		}
		b.t.Setenv("PATH", binDir+string(os.PathListSeparator)+os.Getenv("PATH"))
	}
}

// BaseDir returns the root temp directory backing the generated config.
func BaseDir(cfg *config.Config) string {
	return filepath.Dir(cfg.Paths.DataDir)
}
