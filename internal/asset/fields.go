package asset

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"archivist/internal/sqlitedb"
)

// SetArtifacts writes only the named artifact columns, so a thumbnail save
// never overwrites a concurrent status flip.
func (s *Store) SetArtifacts(ctx context.Context, id string, artifacts map[Artifact]string) error {
	if len(artifacts) == 0 {
		return nil
	}
	keys := make([]string, 0, len(artifacts))
	for artifact := range artifacts {
		if !artifact.valid() {
			return fmt.Errorf("unknown artifact %q", artifact)
		}
		keys = append(keys, string(artifact))
	}
	sort.Strings(keys)

	sets := make([]string, 0, len(keys)+1)
	args := make([]any, 0, len(keys)+2)
	for _, key := range keys {
		sets = append(sets, key+" = ?")
		args = append(args, sqlitedb.NullableString(artifacts[Artifact(key)]))
	}
	sets = append(sets, "updated_at = ?")
	args = append(args, s.timestamp(), id)

	return s.execOne(ctx, "set artifacts", `UPDATE assets SET `+strings.Join(sets, ", ")+` WHERE id = ?`, id, args...)
}

// SetArtifact writes a single artifact column.
func (s *Store) SetArtifact(ctx context.Context, id string, artifact Artifact, path string) error {
	return s.SetArtifacts(ctx, id, map[Artifact]string{artifact: path})
}

// MergeMetadata merges values into the metadata document with RFC 7396
// semantics (a nil value removes the key).
func (s *Store) MergeMetadata(ctx context.Context, id string, values map[string]any) error {
	if len(values) == 0 {
		return nil
	}
	patch, err := json.Marshal(values)
	if err != nil {
		return fmt.Errorf("marshal metadata patch: %w", err)
	}
	return s.execOne(ctx, "merge metadata",
		`UPDATE assets SET metadata_json = json_patch(metadata_json, ?), updated_at = ? WHERE id = ?`,
		id, string(patch), s.timestamp(), id,
	)
}

// AppendCustomVariant appends one encoded variant to the asset's list.
func (s *Store) AppendCustomVariant(ctx context.Context, id string, variant CustomVariant) error {
	payload, err := json.Marshal(variant)
	if err != nil {
		return fmt.Errorf("marshal variant: %w", err)
	}
	return s.execOne(ctx, "append custom variant",
		`UPDATE assets SET custom_variants_json = json_insert(custom_variants_json, '$[#]', json(?)), updated_at = ? WHERE id = ?`,
		id, string(payload), s.timestamp(), id,
	)
}

// SetSourcePath attaches a source file without touching status.
func (s *Store) SetSourcePath(ctx context.Context, id, path string) error {
	return s.execOne(ctx, "set source path",
		`UPDATE assets SET source_path = ?, updated_at = ? WHERE id = ?`,
		id, sqlitedb.NullableString(path), s.timestamp(), id,
	)
}

func (s *Store) execOne(ctx context.Context, op, query, id string, args ...any) error {
	res, err := sqlitedb.Exec(ctx, s.db, query, args...)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("%s: %w: %s", op, ErrNotFound, id)
	}
	return nil
}
