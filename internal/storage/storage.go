package storage

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"archivist/internal/command"
	"archivist/internal/fileutil"
)

// Bucket is a logical artifact directory under the media root.
type Bucket string

const (
	Sources    Bucket = "sources"
	Playable   Bucket = "playable"
	Support    Bucket = "support"
	Thumbnails Bucket = "thumbnails"
	Slates     Bucket = "slates"
	Web        Bucket = "web"
	Audio      Bucket = "audio"
	Icons      Bucket = "icons"
	Encoded    Bucket = "encoded"
)

// Buckets lists every bucket in creation order.
func Buckets() []Bucket {
	return []Bucket{Sources, Playable, Support, Thumbnails, Slates, Web, Audio, Icons, Encoded}
}

// ErrOutsideRoot reports a relative path that escapes the media root.
var ErrOutsideRoot = errors.New("path escapes media root")

// Store maps bucket-relative artifact paths onto the media root.
type Store struct {
	root string
}

// New returns a Store rooted at root.
func New(root string) *Store {
	return &Store{root: filepath.Clean(root)}
}

// Root returns the media root.
func (s *Store) Root() string {
	return s.root
}

// BucketDir returns the absolute directory of a bucket.
func (s *Store) BucketDir(bucket Bucket) string {
	return filepath.Join(s.root, string(bucket))
}

// Prepare creates the bucket directory on demand and returns both the
// absolute path for writing and the relative path stored on the asset.
func (s *Store) Prepare(bucket Bucket, name string) (abs string, rel string, err error) {
	dir := s.BucketDir(bucket)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", "", fmt.Errorf("create %s bucket: %w", bucket, err)
	}
	rel = filepath.ToSlash(filepath.Join(string(bucket), name))
	return filepath.Join(dir, name), rel, nil
}

// Resolve turns a stored relative path into an absolute one. Absolute
// inputs are returned unchanged so source paths attached by the reconciler
// keep working.
func (s *Store) Resolve(rel string) (string, error) {
	rel = strings.TrimSpace(rel)
	if rel == "" {
		return "", errors.New("empty artifact path")
	}
	if filepath.IsAbs(rel) {
		return filepath.Clean(rel), nil
	}
	abs := filepath.Join(s.root, filepath.FromSlash(rel))
	if !strings.HasPrefix(abs, s.root+string(filepath.Separator)) {
		return "", fmt.Errorf("%w: %s", ErrOutsideRoot, rel)
	}
	return abs, nil
}

// Exists reports whether a stored path resolves to a regular file.
func (s *Store) Exists(rel string) bool {
	abs, err := s.Resolve(rel)
	if err != nil {
		return false
	}
	return fileutil.IsRegularFile(abs)
}

// Remove deletes a stored artifact. Missing files are not an error; the
// boolean reports whether anything was removed.
func (s *Store) Remove(rel string) (bool, error) {
	abs, err := s.Resolve(rel)
	if err != nil {
		return false, err
	}
	return fileutil.RemoveIfExists(abs)
}

// ImportOriginal copies an upload into the sources bucket under a
// short-id-prefixed name and returns the stored relative path.
func (s *Store) ImportOriginal(ctx context.Context, assetID, srcPath string) (string, fileutil.Digest, error) {
	name := command.ShortID(assetID) + "_" + fileutil.SanitizeFileName(filepath.Base(srcPath))
	abs, rel, err := s.Prepare(Sources, name)
	if err != nil {
		return "", fileutil.Digest{}, err
	}
	digest, err := fileutil.CopyVerified(ctx, srcPath, abs)
	if err != nil {
		return "", fileutil.Digest{}, fmt.Errorf("import original: %w", err)
	}
	return rel, digest, nil
}

// EnsureAll creates every bucket directory.
func (s *Store) EnsureAll() error {
	for _, bucket := range Buckets() {
		if err := os.MkdirAll(s.BucketDir(bucket), 0o755); err != nil {
			return fmt.Errorf("create %s bucket: %w", bucket, err)
		}
	}
	return nil
}
