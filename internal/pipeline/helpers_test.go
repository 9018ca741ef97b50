package pipeline_test

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"archivist/internal/asset"
	"archivist/internal/config"
	"archivist/internal/encoder"
	"archivist/internal/ledger"
	"archivist/internal/media/ffprobe"
	"archivist/internal/pipeline"
	"archivist/internal/storage"
	"archivist/internal/testsupport"
)

// fakeRunner records invocations and writes a stand-in output file for
// every command whose last argument is an absolute path.
type fakeRunner struct {
	mu     sync.Mutex
	calls  [][]string
	failOn map[string]error
	stdout map[string][]byte
}

func (f *fakeRunner) Run(_ context.Context, name string, args ...string) ([]byte, error) {
	f.mu.Lock()
	f.calls = append(f.calls, append([]string{name}, args...))
	f.mu.Unlock()

	for marker, err := range f.failOn {
		for _, arg := range args {
			if strings.Contains(arg, marker) {
				return nil, err
			}
		}
	}
	if out, ok := f.stdout[name]; ok {
		return out, nil
	}
	if len(args) > 0 {
		last := args[len(args)-1]
		if filepath.IsAbs(last) {
			if err := os.WriteFile(last, []byte("media"), 0o644); err != nil {
				return nil, err
			}
		}
	}
	return nil, nil
}

func (f *fakeRunner) Calls() [][]string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([][]string(nil), f.calls...)
}

// callWith returns the index of the first call containing fragment.
func (f *fakeRunner) callWith(fragment string) int {
	for i, call := range f.Calls() {
		for _, arg := range call {
			if strings.Contains(arg, fragment) {
				return i
			}
		}
	}
	return -1
}

type fakeInspector struct {
	duration float64
	err      error
	result   ffprobe.Result
}

func (f fakeInspector) Inspect(context.Context, string) (ffprobe.Result, error) {
	return f.result, f.err
}

func (f fakeInspector) Duration(context.Context, string) (float64, error) {
	return f.duration, f.err
}

type harness struct {
	cfg     *config.Config
	store   *asset.Store
	ledger  *ledger.Ledger
	storage *storage.Store
	runner  *fakeRunner
	deps    *pipeline.Dependencies
}

func newHarness(t *testing.T, inspector pipeline.MediaInspector, opts ...testsupport.ConfigOption) *harness {
	t.Helper()
	cfg := testsupport.NewConfig(t, opts...)
	store := testsupport.MustOpenStore(t, cfg)
	l := testsupport.MustOpenLedger(t, store)
	runner := &fakeRunner{failOn: map[string]error{}, stdout: map[string][]byte{}}
	st := storage.New(cfg.Paths.MediaRoot)
	return &harness{
		cfg:     cfg,
		store:   store,
		ledger:  l,
		storage: st,
		runner:  runner,
		deps: &pipeline.Dependencies{
			Config:     cfg,
			Assets:     store,
			Ledger:     l,
			Storage:    st,
			Runner:     runner,
			Inspector:  inspector,
			Capability: encoder.Software(),
		},
	}
}

// claimed registers an asset backed by a source file and claims it.
func (h *harness) claimed(t *testing.T, kind asset.Kind, name string, content []byte) *asset.Asset {
	t.Helper()
	src := filepath.Join(h.cfg.Paths.SourceRoot, name)
	require.NoError(t, os.MkdirAll(filepath.Dir(src), 0o755))
	require.NoError(t, os.WriteFile(src, content, 0o644))
	a := testsupport.NewAsset(t, h.store, asset.Registration{Kind: kind, Container: "tests", OriginalName: name, SourcePath: src})
	claimed, err := h.store.Claim(context.Background(), a.ID)
	require.NoError(t, err)
	return claimed
}

func (h *harness) reload(t *testing.T, id string) *asset.Asset {
	t.Helper()
	a, err := h.store.MustGet(context.Background(), id)
	require.NoError(t, err)
	return a
}

func (h *harness) ledgerEntries(t *testing.T, stage ledger.Stage) []ledger.Record {
	t.Helper()
	records, err := h.ledger.List(context.Background(), ledger.Filter{Stage: stage})
	require.NoError(t, err)
	return records
}
