package reconcile

import (
	"path/filepath"
	"strings"
)

// Tier is the rule that produced a match.
type Tier string

const (
	TierExactID      Tier = "exact-id"
	TierExactName    Tier = "exact-name"
	TierNameNoExt    Tier = "name-without-extension"
	tierUnmatchedKey      = "unmatched"

	// minSubstring keeps very short variants from matching by containment.
	minSubstring = 3
)

// Variants returns the identifier forms tried against candidate paths:
// the folded identifier, its core suffix after the last '-' or '_', and
// the alphanumeric-compacted form. Duplicates and empties are dropped.
func Variants(identifier string) []string {
	base := strings.TrimSpace(fold(identifier))
	if base == "" {
		return nil
	}
	out := []string{base}
	if i := strings.LastIndexAny(base, "-_"); i >= 0 && i < len(base)-1 {
		out = appendUnique(out, base[i+1:])
	}
	out = appendUnique(out, compact(base))
	return out
}

func appendUnique(list []string, v string) []string {
	if v == "" {
		return list
	}
	for _, existing := range list {
		if existing == v {
			return list
		}
	}
	return append(list, v)
}

// matchIdentifier prefers a path segment equal to a variant over a plain
// substring hit. Within each pass the index order breaks ties.
func (idx *index) matchIdentifier(identifier string) (file, bool) {
	variants := Variants(identifier)
	if len(variants) == 0 {
		return file{}, false
	}
	for _, f := range idx.files {
		for _, v := range variants {
			for _, seg := range f.segments {
				if seg == v || compact(seg) == v {
					return f, true
				}
			}
		}
	}
	for _, f := range idx.files {
		for _, v := range variants {
			if len(v) < minSubstring {
				continue
			}
			if strings.Contains(f.folded, v) || strings.Contains(f.compact, v) {
				return f, true
			}
		}
	}
	return file{}, false
}

func (idx *index) matchName(name string) (file, bool) {
	name = fold(strings.TrimSpace(name))
	if name == "" {
		return file{}, false
	}
	for _, f := range idx.files {
		if f.name == name {
			return f, true
		}
	}
	return file{}, false
}

func (idx *index) matchStem(name string) (file, bool) {
	name = fold(strings.TrimSpace(name))
	stem := strings.TrimSuffix(name, strings.ToLower(filepath.Ext(name)))
	if stem == "" {
		return file{}, false
	}
	for _, f := range idx.files {
		if f.stem == stem {
			return f, true
		}
	}
	return file{}, false
}

// match runs the tiers in order and returns the first hit.
func (idx *index) match(identifier, originalName string) (file, Tier, bool) {
	if f, ok := idx.matchIdentifier(identifier); ok {
		return f, TierExactID, true
	}
	if f, ok := idx.matchName(originalName); ok {
		return f, TierExactName, true
	}
	if f, ok := idx.matchStem(originalName); ok {
		return f, TierNameNoExt, true
	}
	return file{}, "", false
}
