package daemon_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"testing"
	"time"

	"go.uber.org/goleak"

	"archivist/internal/asset"
	"archivist/internal/config"
	"archivist/internal/daemon"
	"archivist/internal/encoder"
	"archivist/internal/stage"
	"archivist/internal/storage"
	"archivist/internal/testsupport"
	"archivist/internal/workflow"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

type noopStage struct {
	store *asset.Store
}

func (noopStage) Prepare(context.Context, *asset.Asset) error { return nil }
func (s noopStage) Execute(ctx context.Context, a *asset.Asset) error {
	return s.store.Complete(ctx, a.ID)
}
func (noopStage) HealthCheck(context.Context) stage.Health {
	return stage.Healthy("noop")
}

func newDaemon(t *testing.T, cfg *config.Config) *daemon.Daemon {
	t.Helper()
	if err := cfg.EnsureDirectories(); err != nil {
		t.Fatalf("EnsureDirectories: %v", err)
	}
	store := testsupport.MustOpenStore(t, cfg)
	l := testsupport.MustOpenLedger(t, store)
	mgr := workflow.NewManager(cfg, workflow.Dependencies{
		Assets:   store,
		Ledger:   l,
		Storage:  storage.New(cfg.Paths.MediaRoot),
		Handlers: map[asset.Kind]stage.Handler{asset.KindFile: noopStage{store: store}},
	}, nil)
	d, err := daemon.New(cfg, daemon.Components{
		Assets:   store,
		Ledger:   l,
		Workflow: mgr,
		Encoder:  encoder.Report{Selected: encoder.Software()},
	}, nil)
	if err != nil {
		t.Fatalf("daemon.New: %v", err)
	}
	t.Cleanup(d.Stop)
	return d
}

func TestDaemonStartStop(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	d := newDaemon(t, cfg)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := d.Start(ctx); err != nil {
		t.Fatalf("Start failed: %v", err)
	}

	status := d.Status(ctx)
	if !status.Running || !status.Workflow.Running {
		t.Fatal("expected daemon to report running")
	}
	if status.Encoder.Selected.Kind != encoder.KindSoftware {
		t.Fatalf("unexpected encoder %+v", status.Encoder.Selected)
	}

	// Second start should fail
	if err := d.Start(ctx); err == nil {
		t.Fatal("expected second start to fail")
	}

	d.Stop()
	status = d.Status(ctx)
	if status.Running {
		t.Fatal("expected daemon to be stopped")
	}
}

func TestSecondInstanceIsLockedOut(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	first := newDaemon(t, cfg)
	if err := first.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}

	other := *cfg
	other.Paths.MediaRoot = cfg.Paths.MediaRoot + "-other"
	second := newDaemon(t, &other)
	if err := second.Start(context.Background()); err == nil {
		t.Fatal("expected lock contention error")
	}
}

func TestLockBeforeStartBlocksSecondInstance(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	first := newDaemon(t, cfg)
	if err := first.Lock(); err != nil {
		t.Fatalf("Lock: %v", err)
	}
	if err := first.Lock(); err != nil {
		t.Fatalf("Lock should be reentrant for the holder: %v", err)
	}

	second := newDaemon(t, cfg)
	if err := second.Lock(); !errors.Is(err, daemon.ErrLocked) {
		t.Fatalf("expected ErrLocked, got %v", err)
	}

	if err := first.Start(context.Background()); err != nil {
		t.Fatalf("Start after Lock: %v", err)
	}
	if err := second.Start(context.Background()); !errors.Is(err, daemon.ErrLocked) {
		t.Fatalf("expected second Start locked out, got %v", err)
	}
	first.Stop()
	if err := second.Lock(); err != nil {
		t.Fatalf("lock should be free after Stop: %v", err)
	}
}

func TestStartDispatchesPendingAssets(t *testing.T) {
	cfg := testsupport.NewConfig(t, testsupport.WithSync())
	d := newDaemon(t, cfg)
	src := testsupport.BaseDir(cfg) + "/uploads/doc.pdf"
	testsupport.WriteFile(t, src, 32)
	a := testsupport.NewAsset(t, d.Assets(), asset.Registration{Kind: asset.KindFile, Container: "box", OriginalName: "doc.pdf", SourcePath: src})

	if err := d.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}

	deadline := time.Now().Add(5 * time.Second)
	for {
		got, err := d.Assets().MustGet(context.Background(), a.ID)
		if err != nil {
			t.Fatalf("MustGet: %v", err)
		}
		if got.Status == asset.StatusCompleted {
			break
		}
		if time.Now().After(deadline) {
			t.Fatalf("expected startup dispatch to complete asset, got %s", got.Status)
		}
		time.Sleep(20 * time.Millisecond)
	}
	d.Stop()
}

func TestHealthEndpoint(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	cfg.Metrics.Bind = "127.0.0.1:0"
	d := newDaemon(t, cfg)
	if err := d.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}

	addr := d.MetricsAddr()
	if addr == "" {
		t.Fatal("expected metrics listener")
	}
	client := &http.Client{Transport: &http.Transport{DisableKeepAlives: true}}

	resp, err := client.Get("http://" + addr + "/healthz")
	if err != nil {
		t.Fatalf("GET /healthz: %v", err)
	}
	var payload map[string]any
	err = json.NewDecoder(resp.Body).Decode(&payload)
	resp.Body.Close()
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.StatusCode != http.StatusOK || payload["running"] != true || payload["encoder"] != "software" {
		t.Fatalf("unexpected health %d %v", resp.StatusCode, payload)
	}

	resp, err = client.Get("http://" + addr + "/metrics")
	if err != nil {
		t.Fatalf("GET /metrics: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("unexpected metrics status %d", resp.StatusCode)
	}
	d.Stop()
}
