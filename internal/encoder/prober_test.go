package encoder

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"archivist/internal/services"
)

const encoderListing = `Encoders:
 V..... = Video
 A..... = Audio
 ------
 V....D libx264              libx264 H.264 / AVC / MPEG-4 AVC (codec h264)
 V....D h264_nvenc           NVIDIA NVENC H.264 encoder (codec h264)
 V....D h264_videotoolbox    VideoToolbox H.264 Encoder (codec h264)
 V....D h264_vaapi           H.264/AVC (VAAPI) (codec h264)
 V....D h264_qsv             H.264 / AVC (Intel Quick Sync Video acceleration) (codec h264)
 A....D aac                  AAC (Advanced Audio Coding)
`

type fakeRunner struct {
	mu       sync.Mutex
	listing  string
	listErr  error
	failTest map[string]bool
	calls    [][]string
}

func (f *fakeRunner) Run(_ context.Context, name string, args ...string) ([]byte, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, append([]string{name}, args...))
	if len(args) > 1 && args[1] == "-encoders" {
		if f.listErr != nil {
			return nil, f.listErr
		}
		return []byte(f.listing), nil
	}
	for i, arg := range args {
		if arg == "-c:v" && i+1 < len(args) && f.failTest[args[i+1]] {
			return nil, &services.ExitError{Binary: name, Code: 1, Stderr: "Cannot load " + args[i+1]}
		}
	}
	return nil, nil
}

func (f *fakeRunner) testEncodes() []string {
	var encoders []string
	for _, call := range f.calls {
		for i, arg := range call {
			if arg == "-c:v" {
				encoders = append(encoders, call[i+1])
			}
		}
	}
	return encoders
}

func TestProbeFallsBackToSoftwareWhenEveryTestFails(t *testing.T) {
	runner := &fakeRunner{
		listing:  strings.ReplaceAll(strings.ReplaceAll(encoderListing, "h264_vaapi", "x"), "h264_qsv", "y"),
		failTest: map[string]bool{"h264_videotoolbox": true, "h264_nvenc": true},
	}
	prober := NewProber("ffmpeg", WithRunner(runner), WithPlatform("darwin", func(string) bool { return false }))

	report := prober.Probe(context.Background())

	require.Equal(t, Software(), report.Selected)
	require.Len(t, report.Tiers, 5)
	for _, tier := range report.Tiers[:4] {
		require.False(t, tier.Available, "tier %s", tier.Kind)
	}
	require.True(t, report.Tiers[0].Tested)
	require.Error(t, report.Tiers[0].Err)
	require.Contains(t, report.Tiers[0].Reason, "Cannot load h264_videotoolbox")
	require.Equal(t, []string{"h264_videotoolbox", "h264_nvenc"}, runner.testEncodes())
}

func TestProbeSelectsFirstWorkingTier(t *testing.T) {
	tests := []struct {
		name     string
		goos     string
		device   bool
		failTest map[string]bool
		want     Kind
	}{
		{name: "apple on darwin", goos: "darwin", want: KindApple},
		{name: "nvidia on linux", goos: "linux", device: true, want: KindNVIDIA},
		{name: "vaapi when nvenc fails", goos: "linux", device: true, failTest: map[string]bool{"h264_nvenc": true}, want: KindVAAPI},
		{name: "quicksync without render node", goos: "linux", failTest: map[string]bool{"h264_nvenc": true}, want: KindQuickSync},
		{name: "vaapi skipped off linux", goos: "windows", device: true, failTest: map[string]bool{"h264_nvenc": true}, want: KindQuickSync},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			runner := &fakeRunner{listing: encoderListing, failTest: tt.failTest}
			prober := NewProber("ffmpeg", WithRunner(runner), WithPlatform(tt.goos, func(string) bool { return tt.device }))
			got := prober.Capability(context.Background())
			require.Equal(t, tt.want, got.Kind)
			require.NotEmpty(t, got.VideoEncoder)
			require.NotEmpty(t, got.SecondaryEncoder)
		})
	}
}

func TestProbeVAAPIAndQuickSyncSkipSyntheticTest(t *testing.T) {
	runner := &fakeRunner{listing: encoderListing, failTest: map[string]bool{"h264_nvenc": true}}
	prober := NewProber("ffmpeg", WithRunner(runner), WithPlatform("linux", func(path string) bool { return path == DefaultRenderDevice }))

	report := prober.Probe(context.Background())

	require.Equal(t, KindVAAPI, report.Selected.Kind)
	require.Equal(t, DefaultRenderDevice, report.Selected.AccelerationFlag)
	require.Equal(t, []string{"h264_nvenc"}, runner.testEncodes())
	require.False(t, report.Tiers[len(report.Tiers)-1].Tested)
}

func TestProbeNVIDIATestUsesCUDAContext(t *testing.T) {
	runner := &fakeRunner{listing: encoderListing}
	prober := NewProber("/opt/ffmpeg/bin/ffmpeg", WithRunner(runner), WithPlatform("linux", nil))
	prober.Probe(context.Background())

	require.Len(t, runner.calls, 2)
	test := runner.calls[1]
	require.Equal(t, "/opt/ffmpeg/bin/ffmpeg", test[0])
	require.Equal(t, []string{"-hide_banner", "-hwaccel", "cuda", "-f", "lavfi", "-i", "nullsrc=s=256x256:d=0.1", "-c:v", "h264_nvenc", "-b:v", "1M", "-f", "null", "-"}, test[1:])
}

func TestProbeListFailureIsNotFatal(t *testing.T) {
	runner := &fakeRunner{listErr: errors.New("exec: \"ffmpeg\": executable file not found in $PATH")}
	prober := NewProber("ffmpeg", WithRunner(runner))
	report := prober.Probe(context.Background())
	require.Equal(t, KindSoftware, report.Selected.Kind)
	require.Len(t, report.Tiers, 1)
}

func TestProbeIsMemoized(t *testing.T) {
	runner := &fakeRunner{listing: encoderListing}
	prober := NewProber("ffmpeg", WithRunner(runner), WithPlatform("linux", nil))
	first := prober.Probe(context.Background())
	runner.listing = ""
	second := prober.Probe(context.Background())
	require.Equal(t, first.Selected, second.Selected)
	require.Len(t, runner.calls, 2)
}

type blockingRunner struct{}

func (blockingRunner) Run(ctx context.Context, name string, args ...string) ([]byte, error) {
	if len(args) > 1 && args[1] == "-encoders" {
		return []byte(encoderListing), nil
	}
	<-ctx.Done()
	return nil, &services.ExitError{Binary: name, Code: -1, Err: ctx.Err()}
}

func TestProbeSyntheticTestTimesOut(t *testing.T) {
	prober := NewProber("ffmpeg",
		WithRunner(blockingRunner{}),
		WithTimeout(20*time.Millisecond),
		WithPlatform("freebsd", nil),
	)
	report := prober.Probe(context.Background())
	require.Equal(t, KindQuickSync, report.Selected.Kind)
	require.Contains(t, report.Tiers[1].Reason, "timed out")
}

func TestParseEncodersIgnoresLegend(t *testing.T) {
	encoders := ParseEncoders([]byte(encoderListing))
	require.True(t, encoders["libx264"])
	require.True(t, encoders["aac"])
	require.False(t, encoders["="])
	require.Len(t, encoders, 6)
}

func TestForKindUnknownIsSoftware(t *testing.T) {
	require.Equal(t, Software(), ForKind("hardware-unknown"))
	require.False(t, Software().Hardware())
	require.True(t, ForKind(KindNVIDIA).Hardware())
}
