package fileutil

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"unicode"

	"github.com/google/renameio/v2"
)

// Digest identifies copied content.
type Digest struct {
	SHA256 string
	Size   int64
}

// IsRegularFile reports whether path resolves to an existing regular file.
func IsRegularFile(path string) bool {
	if strings.TrimSpace(path) == "" {
		return false
	}
	info, err := os.Stat(path)
	return err == nil && info.Mode().IsRegular()
}

// CopyVerified streams src to dst with SHA256 + size integrity verification.
// dst only appears once the copy is complete and verified.
func CopyVerified(ctx context.Context, src, dst string) (Digest, error) {
	srcInfo, err := os.Stat(src)
	if err != nil {
		return Digest{}, fmt.Errorf("stat source: %w", err)
	}
	if !srcInfo.Mode().IsRegular() {
		return Digest{}, fmt.Errorf("source %s is not a regular file", src)
	}

	in, err := os.Open(src)
	if err != nil {
		return Digest{}, err
	}
	defer in.Close()

	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return Digest{}, fmt.Errorf("create destination dir: %w", err)
	}
	out, err := renameio.NewPendingFile(dst, renameio.WithPermissions(0o644))
	if err != nil {
		return Digest{}, err
	}
	defer func() {
		_ = out.Cleanup()
	}()

	srcHasher := sha256.New()
	dstHasher := sha256.New()
	tee := io.TeeReader(&contextReader{ctx: ctx, r: in}, srcHasher)
	multi := io.MultiWriter(out, dstHasher)

	written, err := io.Copy(multi, tee)
	if err != nil {
		return Digest{}, err
	}
	if written != srcInfo.Size() {
		return Digest{}, fmt.Errorf("copy size mismatch: source %d bytes, copied %d bytes", srcInfo.Size(), written)
	}
	srcSum := srcHasher.Sum(nil)
	if hex.EncodeToString(srcSum) != hex.EncodeToString(dstHasher.Sum(nil)) {
		return Digest{}, errors.New("copy hash mismatch: file corrupted during copy")
	}
	if err := out.CloseAtomicallyReplace(); err != nil {
		return Digest{}, err
	}
	return Digest{SHA256: hex.EncodeToString(srcSum), Size: written}, nil
}

// RemoveIfExists deletes path, treating an already-missing file as success.
// It reports whether a file was removed.
func RemoveIfExists(path string) (bool, error) {
	if strings.TrimSpace(path) == "" {
		return false, nil
	}
	err := os.Remove(path)
	switch {
	case err == nil:
		return true, nil
	case errors.Is(err, os.ErrNotExist):
		return false, nil
	default:
		return false, err
	}
}

// SanitizeFileName reduces name to a safe single path component, keeping
// letters, digits, '.', '-' and '_'. Everything else becomes '_'.
func SanitizeFileName(name string) string {
	base := filepath.Base(strings.TrimSpace(name))
	if base == "." || base == string(filepath.Separator) {
		return "file"
	}
	var b strings.Builder
	for _, r := range base {
		switch {
		case unicode.IsLetter(r), unicode.IsDigit(r), r == '.', r == '-', r == '_':
			b.WriteRune(r)
		default:
			b.WriteRune('_')
		}
	}
	cleaned := strings.TrimLeft(b.String(), ".")
	if cleaned == "" {
		return "file"
	}
	return cleaned
}

type contextReader struct {
	ctx context.Context
	r   io.Reader
}

func (c *contextReader) Read(p []byte) (int, error) {
	if err := c.ctx.Err(); err != nil {
		return 0, err
	}
	return c.r.Read(p)
}
