package encoder

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"os"
	"runtime"
	"slices"
	"strings"
	"sync"
	"time"

	"archivist/internal/logging"
	"archivist/internal/metrics"
	"archivist/internal/services"
)

const defaultProbeTimeout = 5 * time.Second

// TierResult records why a tier was or was not selected.
type TierResult struct {
	Kind      Kind   `json:"kind"`
	Available bool   `json:"available"`
	Tested    bool   `json:"tested"`
	Reason    string `json:"reason,omitempty"`
	Err       error  `json:"-"`
}

// Report is the outcome of a full probe.
type Report struct {
	Selected Capability   `json:"selected"`
	Tiers    []TierResult `json:"tiers"`
	Encoders []string     `json:"encoders,omitempty"`
}

// Prober detects the best encoder the installed ffmpeg can drive.
type Prober struct {
	ffmpeg       string
	runner       services.Runner
	logger       *slog.Logger
	timeout      time.Duration
	goos         string
	renderDevice string
	deviceExists func(string) bool

	once   sync.Once
	report Report
}

// Option customizes a Prober.
type Option func(*Prober)

// WithRunner overrides the process runner.
func WithRunner(r services.Runner) Option {
	return func(p *Prober) {
		if r != nil {
			p.runner = r
		}
	}
}

// WithLogger attaches a logger.
func WithLogger(logger *slog.Logger) Option {
	return func(p *Prober) {
		p.logger = logging.NewComponentLogger(logger, "encoder")
	}
}

// WithTimeout bounds each synthetic test encode.
func WithTimeout(d time.Duration) Option {
	return func(p *Prober) {
		if d > 0 {
			p.timeout = d
		}
	}
}

// WithPlatform overrides the detected operating system and device lookup.
func WithPlatform(goos string, deviceExists func(string) bool) Option {
	return func(p *Prober) {
		if goos != "" {
			p.goos = goos
		}
		if deviceExists != nil {
			p.deviceExists = deviceExists
		}
	}
}

// NewProber constructs a prober for the given ffmpeg binary.
func NewProber(ffmpeg string, opts ...Option) *Prober {
	p := &Prober{
		ffmpeg:       strings.TrimSpace(ffmpeg),
		runner:       services.ExecRunner{},
		logger:       logging.NewComponentLogger(nil, "encoder"),
		timeout:      defaultProbeTimeout,
		goos:         runtime.GOOS,
		renderDevice: DefaultRenderDevice,
		deviceExists: fileExists,
	}
	if p.ffmpeg == "" {
		p.ffmpeg = "ffmpeg"
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Capability probes once and returns the frozen selection.
func (p *Prober) Capability(ctx context.Context) Capability {
	return p.Probe(ctx).Selected
}

// Probe runs the tier chain on first call and memoizes the report. It never
// fails: every hardware failure falls through to the software tier.
func (p *Prober) Probe(ctx context.Context) Report {
	p.once.Do(func() {
		p.report = p.detect(ctx)
		selected := p.report.Selected
		metrics.SetEncoderTier(string(selected.Kind), selected.VideoEncoder)
		p.logger.Info("encoder selected",
			logging.String(logging.FieldEventType, "encoder_selected"),
			logging.String("tier", string(selected.Kind)),
			logging.String("video_encoder", selected.VideoEncoder),
			logging.String("secondary_encoder", selected.SecondaryEncoder),
		)
	})
	return p.report
}

func (p *Prober) detect(ctx context.Context) Report {
	report := Report{}
	listCtx, cancel := context.WithTimeout(ctx, p.timeout)
	out, err := p.runner.Run(listCtx, p.ffmpeg, "-hide_banner", "-encoders")
	cancel()
	if err != nil {
		logging.WarnWithContext(p.logger, "encoder list unavailable", "encoder_list_failed",
			logging.Error(err),
			logging.String(logging.FieldImpact, "hardware tiers skipped; software encoding will be used"),
			logging.String(logging.FieldErrorHint, "verify the ffmpeg binary (FFMPEG_BIN / tools.ffmpeg)"),
		)
		report.Tiers = append(report.Tiers, TierResult{Kind: KindSoftware, Available: true, Reason: "encoder list unavailable"})
		report.Selected = Software()
		p.record(report.Tiers)
		return report
	}
	encoders := ParseEncoders(out)
	report.Encoders = sortedKeys(encoders)

	for _, tier := range []func(context.Context, map[string]bool) (TierResult, Capability){
		p.probeApple,
		p.probeNVIDIA,
		p.probeVAAPI,
		p.probeQuickSync,
	} {
		result, capability := tier(ctx, encoders)
		report.Tiers = append(report.Tiers, result)
		if result.Available {
			report.Selected = capability
			p.record(report.Tiers)
			return report
		}
		p.logger.Debug("encoder tier unavailable",
			logging.String("tier", string(result.Kind)),
			logging.String("reason", result.Reason),
		)
	}

	report.Tiers = append(report.Tiers, TierResult{Kind: KindSoftware, Available: true})
	report.Selected = Software()
	p.record(report.Tiers)
	return report
}

func (p *Prober) record(tiers []TierResult) {
	for _, tier := range tiers {
		result := "unavailable"
		if tier.Available {
			result = "available"
		}
		metrics.EncoderProbes.WithLabelValues(string(tier.Kind), result).Inc()
	}
}

func (p *Prober) probeApple(ctx context.Context, encoders map[string]bool) (TierResult, Capability) {
	capability := ForKind(KindApple)
	result := TierResult{Kind: KindApple}
	if p.goos != "darwin" {
		result.Reason = "not an apple platform"
		return result, capability
	}
	if !encoders[capability.VideoEncoder] {
		result.Reason = fmt.Sprintf("%s not listed", capability.VideoEncoder)
		return result, capability
	}
	return p.syntheticTest(ctx, result, nil, capability.VideoEncoder), capability
}

func (p *Prober) probeNVIDIA(ctx context.Context, encoders map[string]bool) (TierResult, Capability) {
	capability := ForKind(KindNVIDIA)
	result := TierResult{Kind: KindNVIDIA}
	if !encoders[capability.VideoEncoder] {
		result.Reason = fmt.Sprintf("%s not listed", capability.VideoEncoder)
		return result, capability
	}
	return p.syntheticTest(ctx, result, []string{"-hwaccel", "cuda"}, capability.VideoEncoder), capability
}

// probeVAAPI trusts the render node without a test encode.
func (p *Prober) probeVAAPI(_ context.Context, encoders map[string]bool) (TierResult, Capability) {
	capability := ForKind(KindVAAPI)
	capability.AccelerationFlag = p.renderDevice
	result := TierResult{Kind: KindVAAPI}
	switch {
	case p.goos != "linux":
		result.Reason = "not a linux platform"
	case !encoders[capability.VideoEncoder]:
		result.Reason = fmt.Sprintf("%s not listed", capability.VideoEncoder)
	case !p.deviceExists(p.renderDevice):
		result.Reason = fmt.Sprintf("render device %s missing", p.renderDevice)
	default:
		result.Available = true
	}
	return result, capability
}

func (p *Prober) probeQuickSync(_ context.Context, encoders map[string]bool) (TierResult, Capability) {
	capability := ForKind(KindQuickSync)
	result := TierResult{Kind: KindQuickSync}
	if !encoders[capability.VideoEncoder] {
		result.Reason = fmt.Sprintf("%s not listed", capability.VideoEncoder)
		return result, capability
	}
	result.Available = true
	return result, capability
}

func (p *Prober) syntheticTest(ctx context.Context, result TierResult, inputFlags []string, encoderName string) TierResult {
	testCtx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	args := []string{"-hide_banner"}
	args = append(args, inputFlags...)
	args = append(args,
		"-f", "lavfi", "-i", "nullsrc=s=256x256:d=0.1",
		"-c:v", encoderName, "-b:v", "1M",
		"-f", "null", "-",
	)
	result.Tested = true
	if _, err := p.runner.Run(testCtx, p.ffmpeg, args...); err != nil {
		result.Err = err
		if testCtx.Err() != nil {
			result.Reason = fmt.Sprintf("test encode timed out after %s", p.timeout)
		} else {
			result.Reason = "test encode failed: " + services.Diagnostic(err)
		}
		return result
	}
	result.Available = true
	return result
}

// ParseEncoders extracts encoder names from `ffmpeg -encoders` output.
// Rows look like " V....D h264_nvenc   NVIDIA NVENC H.264 encoder".
func ParseEncoders(output []byte) map[string]bool {
	encoders := make(map[string]bool)
	scanner := bufio.NewScanner(bytes.NewReader(output))
	pastHeader := false
	for scanner.Scan() {
		fields := strings.Fields(scanner.Text())
		if len(fields) < 2 {
			continue
		}
		if fields[0] == "------" {
			pastHeader = true
			continue
		}
		if !pastHeader || len(fields[0]) != 6 {
			continue
		}
		encoders[fields[1]] = true
	}
	return encoders
}

func sortedKeys(values map[string]bool) []string {
	keys := make([]string, 0, len(values))
	for key := range values {
		keys = append(keys, key)
	}
	slices.Sort(keys)
	return keys
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}
