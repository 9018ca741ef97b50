package asset

import (
	"database/sql"
	"encoding/json"
	"fmt"

	"archivist/internal/sqlitedb"
)

const assetColumns = "id, kind, container, original_name, identifier, source_path, status, last_error, thumbnail, slate_thumbnail, playable_proxy, support_proxy, web_variant, converted_audio, icon_small, icon_large, custom_variants_json, metadata_json, created_at, updated_at, processing_started_at"

func scanAsset(scanner interface{ Scan(dest ...any) error }) (*Asset, error) {
	var (
		id, kind, container, status string
		originalName, identifier    sql.NullString
		sourcePath, lastError       sql.NullString
		thumbnail, slate            sql.NullString
		playable, support           sql.NullString
		web, audio                  sql.NullString
		iconSmall, iconLarge        sql.NullString
		variantsJSON, metadataJSON  string
		createdRaw, updatedRaw      string
		startedRaw                  sql.NullString
	)
	if err := scanner.Scan(
		&id, &kind, &container, &originalName, &identifier, &sourcePath, &status, &lastError,
		&thumbnail, &slate, &playable, &support, &web, &audio, &iconSmall, &iconLarge,
		&variantsJSON, &metadataJSON, &createdRaw, &updatedRaw, &startedRaw,
	); err != nil {
		return nil, err
	}

	a := &Asset{
		ID:           id,
		Kind:         Kind(kind),
		Container:    container,
		OriginalName: originalName.String,
		Identifier:   identifier.String,
		SourcePath:   sourcePath.String,
		Status:       Status(status),
		LastError:    lastError.String,
		Artifacts: DerivedArtifacts{
			Thumbnail:      thumbnail.String,
			SlateThumbnail: slate.String,
			PlayableProxy:  playable.String,
			SupportProxy:   support.String,
			WebVariant:     web.String,
			ConvertedAudio: audio.String,
			IconSmall:      iconSmall.String,
			IconLarge:      iconLarge.String,
		},
		Metadata: map[string]any{},
	}
	if variantsJSON != "" {
		if err := json.Unmarshal([]byte(variantsJSON), &a.Artifacts.CustomVariants); err != nil {
			return nil, fmt.Errorf("decode custom variants for %s: %w", id, err)
		}
	}
	if metadataJSON != "" {
		if err := json.Unmarshal([]byte(metadataJSON), &a.Metadata); err != nil {
			return nil, fmt.Errorf("decode metadata for %s: %w", id, err)
		}
	}
	if created, err := sqlitedb.ParseTime(createdRaw); err == nil {
		a.CreatedAt = created
	}
	if updated, err := sqlitedb.ParseTime(updatedRaw); err == nil {
		a.UpdatedAt = updated
	}
	if startedRaw.Valid {
		if started, err := sqlitedb.ParseTime(startedRaw.String); err == nil {
			a.ProcessingStartedAt = &started
		}
	}
	return a, nil
}
