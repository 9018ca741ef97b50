package reconcile

import (
	"context"
	"io/fs"
	"path/filepath"
	"sort"
	"strings"

	"golang.org/x/text/cases"
)

// file is one indexed candidate with its match keys precomputed.
type file struct {
	abs      string
	rel      string
	name     string
	stem     string
	segments []string
	folded   string
	compact  string
}

// index is the in-memory view of one walk, sorted by relative path so
// ties resolve deterministically.
type index struct {
	files []file
}

var folder = cases.Fold()

func fold(s string) string {
	return folder.String(s)
}

// compact drops everything except letters and digits.
func compact(s string) string {
	var b strings.Builder
	for _, r := range s {
		if ('a' <= r && r <= 'z') || ('0' <= r && r <= '9') || r > 0x7f {
			b.WriteRune(r)
		}
	}
	return b.String()
}

func buildIndex(ctx context.Context, root string, extensions []string) (*index, error) {
	allowed := make(map[string]struct{}, len(extensions))
	for _, ext := range extensions {
		ext = strings.ToLower(strings.TrimSpace(ext))
		if ext == "" {
			continue
		}
		if !strings.HasPrefix(ext, ".") {
			ext = "." + ext
		}
		allowed[ext] = struct{}{}
	}

	idx := &index{}
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		if d.IsDir() {
			if path != root && strings.HasPrefix(d.Name(), ".") {
				return filepath.SkipDir
			}
			return nil
		}
		if !d.Type().IsRegular() {
			return nil
		}
		ext := strings.ToLower(filepath.Ext(d.Name()))
		if len(allowed) > 0 {
			if _, ok := allowed[ext]; !ok {
				return nil
			}
		}
		rel, err := filepath.Rel(root, path)
		if err != nil {
			return err
		}
		rel = filepath.ToSlash(rel)
		folded := fold(rel)
		name := fold(d.Name())
		segments := strings.Split(folded, "/")
		stem := strings.TrimSuffix(name, strings.ToLower(filepath.Ext(name)))
		segments[len(segments)-1] = stem
		idx.files = append(idx.files, file{
			abs:      path,
			rel:      rel,
			name:     name,
			stem:     stem,
			segments: segments,
			folded:   folded,
			compact:  compact(folded),
		})
		return nil
	})
	if err != nil {
		return nil, err
	}
	sort.Slice(idx.files, func(i, j int) bool { return idx.files[i].rel < idx.files[j].rel })
	return idx, nil
}
