package testsupport

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"
)

// WriteFile drops a placeholder source file of size bytes at path, creating
// parent directories. Sizes below one are bumped to one so the asset store
// never sees an empty source.
func WriteFile(t testing.TB, path string, size int64) {
	t.Helper()

	mkdirParent(t, path)
	payload := bytes.Repeat([]byte{'A'}, int(max(size, 1)))
	if err := os.WriteFile(path, payload, 0o644); err != nil {
		t.Fatalf("write source %s: %v", path, err)
	}
}

// WriteScript installs an executable /bin/sh script used to stand in for
// ffmpeg, ffprobe and custom command binaries.
func WriteScript(t testing.TB, path, body string) {
	t.Helper()

	mkdirParent(t, path)
	script := "#!/bin/sh\n" + body + "\n"
	if err := os.WriteFile(path, []byte(script), 0o755); err != nil {
		t.Fatalf("write script %s: %v", path, err)
	}
}

func mkdirParent(t testing.TB, path string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir %s: %v", filepath.Dir(path), err)
	}
}
