package fileutil

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"os"
	"path/filepath"
	"testing"
)

func TestCopyVerified(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "src.mov")
	dst := filepath.Join(dir, "sources", "nested", "dst.mov")
	content := []byte("broadcast master payload")
	if err := os.WriteFile(src, content, 0o644); err != nil {
		t.Fatal(err)
	}

	digest, err := CopyVerified(context.Background(), src, dst)
	if err != nil {
		t.Fatalf("CopyVerified: %v", err)
	}
	sum := sha256.Sum256(content)
	if digest.SHA256 != hex.EncodeToString(sum[:]) || digest.Size != int64(len(content)) {
		t.Fatalf("unexpected digest: %#v", digest)
	}
	got, err := os.ReadFile(dst)
	if err != nil {
		t.Fatal(err)
	}
	if string(got) != string(content) {
		t.Fatalf("content mismatch: got %q", got)
	}
}

func TestCopyVerified_MissingSource(t *testing.T) {
	dir := t.TempDir()
	dst := filepath.Join(dir, "dst")
	if _, err := CopyVerified(context.Background(), filepath.Join(dir, "nope"), dst); err == nil {
		t.Fatal("expected error for missing source")
	}
	if IsRegularFile(dst) {
		t.Fatal("destination should not exist after failed copy")
	}
}

func TestCopyVerified_Cancelled(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "src")
	if err := os.WriteFile(src, []byte("data"), 0o644); err != nil {
		t.Fatal(err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	dst := filepath.Join(dir, "dst")
	if _, err := CopyVerified(ctx, src, dst); err == nil {
		t.Fatal("expected cancellation error")
	}
	if IsRegularFile(dst) {
		t.Fatal("destination should not exist after cancelled copy")
	}
}

func TestIsRegularFile(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "f")
	if err := os.WriteFile(file, nil, 0o644); err != nil {
		t.Fatal(err)
	}
	if !IsRegularFile(file) {
		t.Fatal("expected file to be regular")
	}
	if IsRegularFile(dir) {
		t.Fatal("directory must not count as a file")
	}
	if IsRegularFile("") || IsRegularFile(filepath.Join(dir, "missing")) {
		t.Fatal("empty and missing paths must not count")
	}
}

func TestRemoveIfExists(t *testing.T) {
	file := filepath.Join(t.TempDir(), "gone.jpg")
	if err := os.WriteFile(file, []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}
	removed, err := RemoveIfExists(file)
	if err != nil || !removed {
		t.Fatalf("first remove = %v, %v", removed, err)
	}
	removed, err = RemoveIfExists(file)
	if err != nil || removed {
		t.Fatalf("second remove = %v, %v", removed, err)
	}
}

func TestSanitizeFileName(t *testing.T) {
	cases := map[string]string{
		"Spot Navidad (v2).mov": "Spot_Navidad__v2_.mov",
		"../../etc/passwd":      "passwd",
		".hidden":               "hidden",
		"":                      "file",
		"Cañón_final.MXF":       "Cañón_final.MXF",
	}
	for input, want := range cases {
		if got := SanitizeFileName(input); got != want {
			t.Fatalf("SanitizeFileName(%q) = %q, want %q", input, got, want)
		}
	}
}
