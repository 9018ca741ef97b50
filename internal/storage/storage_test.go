package storage

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
)

const assetID = "0b7c2a51-5f0e-4f7a-9a43-1b2c3d4e5f60"

func TestPrepareCreatesBucket(t *testing.T) {
	store := New(t.TempDir())
	abs, rel, err := store.Prepare(Thumbnails, HeroThumbnailName(assetID))
	if err != nil {
		t.Fatalf("Prepare: %v", err)
	}
	if rel != "thumbnails/0b7c2a51_thumb.jpg" {
		t.Fatalf("unexpected relative path %q", rel)
	}
	if info, err := os.Stat(filepath.Dir(abs)); err != nil || !info.IsDir() {
		t.Fatalf("expected bucket dir to exist: %v", err)
	}
	resolved, err := store.Resolve(rel)
	if err != nil || resolved != abs {
		t.Fatalf("Resolve(%q) = %q, %v; want %q", rel, resolved, err, abs)
	}
}

func TestResolveRejectsEscape(t *testing.T) {
	store := New(t.TempDir())
	if _, err := store.Resolve("../outside.mov"); !errors.Is(err, ErrOutsideRoot) {
		t.Fatalf("expected ErrOutsideRoot, got %v", err)
	}
	if _, err := store.Resolve(""); err == nil {
		t.Fatal("expected error for empty path")
	}
	if got, err := store.Resolve("/mnt/archive/clip.mov"); err != nil || got != "/mnt/archive/clip.mov" {
		t.Fatalf("absolute path should pass through, got %q, %v", got, err)
	}
}

func TestRemoveAndExists(t *testing.T) {
	store := New(t.TempDir())
	abs, rel, err := store.Prepare(Playable, PlayableName(assetID))
	if err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(abs, []byte("mp4"), 0o644); err != nil {
		t.Fatal(err)
	}
	if !store.Exists(rel) {
		t.Fatal("expected artifact to exist")
	}
	removed, err := store.Remove(rel)
	if err != nil || !removed {
		t.Fatalf("Remove = %v, %v", removed, err)
	}
	removed, err = store.Remove(rel)
	if err != nil || removed {
		t.Fatalf("second Remove = %v, %v", removed, err)
	}
	if store.Exists(rel) {
		t.Fatal("artifact should be gone")
	}
}

func TestImportOriginal(t *testing.T) {
	store := New(t.TempDir())
	src := filepath.Join(t.TempDir(), "Spot Final.mov")
	if err := os.WriteFile(src, []byte("master"), 0o644); err != nil {
		t.Fatal(err)
	}
	rel, digest, err := store.ImportOriginal(context.Background(), assetID, src)
	if err != nil {
		t.Fatalf("ImportOriginal: %v", err)
	}
	if rel != "sources/0b7c2a51_Spot_Final.mov" {
		t.Fatalf("unexpected path %q", rel)
	}
	if digest.Size != 6 {
		t.Fatalf("unexpected size %d", digest.Size)
	}
	if !store.Exists(rel) {
		t.Fatal("expected imported original to exist")
	}
}

func TestEnsureAllAndNames(t *testing.T) {
	store := New(t.TempDir())
	if err := store.EnsureAll(); err != nil {
		t.Fatal(err)
	}
	for _, bucket := range Buckets() {
		if _, err := os.Stat(store.BucketDir(bucket)); err != nil {
			t.Fatalf("bucket %s missing: %v", bucket, err)
		}
	}
	if got := IconName(assetID, 512); got != "0b7c2a51_icon_512.png" {
		t.Fatalf("unexpected icon name %q", got)
	}
	if got := SupportName(assetID); got != "0b7c2a51_h265.mp4" {
		t.Fatalf("unexpected support name %q", got)
	}
}
