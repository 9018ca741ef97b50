package asset

import (
	"context"
	"database/sql"
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"archivist/internal/services"
	"archivist/internal/sqlitedb"
)

//go:embed migrations/*.sql
var migrationFS embed.FS

// Store persists assets in SQLite.
type Store struct {
	db    *sql.DB
	owned bool
	now   func() time.Time
}

// Open connects to the database at path and applies asset migrations.
func Open(ctx context.Context, path string) (*Store, error) {
	db, err := sqlitedb.Open(path)
	if err != nil {
		return nil, err
	}
	store, err := New(ctx, db)
	if err != nil {
		_ = db.Close()
		return nil, err
	}
	store.owned = true
	return store, nil
}

// New wraps an existing database handle and applies asset migrations.
// The caller keeps ownership of db.
func New(ctx context.Context, db *sql.DB) (*Store, error) {
	if err := sqlitedb.Migrate(ctx, db, migrationFS, "migrations", "asset_"); err != nil {
		return nil, err
	}
	return &Store{db: db, now: func() time.Time { return time.Now().UTC() }}, nil
}

// DB exposes the handle so the ledger can share the database file.
func (s *Store) DB() *sql.DB {
	return s.db
}

// Close closes the database when the store opened it.
func (s *Store) Close() error {
	if s == nil || s.db == nil || !s.owned {
		return nil
	}
	return s.db.Close()
}

func (s *Store) timestamp() string {
	return sqlitedb.FormatTime(s.now())
}

// Register creates a pending asset. A second asset with the same original
// name in the same container is rejected with ErrDuplicate.
func (s *Store) Register(ctx context.Context, reg Registration) (*Asset, error) {
	if !reg.Kind.Valid() {
		return nil, services.Wrap(services.ErrValidation, "register", "validate", fmt.Sprintf("unknown kind %q", reg.Kind), nil)
	}
	reg.OriginalName = strings.TrimSpace(reg.OriginalName)
	if reg.OriginalName != "" {
		var count int
		if err := s.db.QueryRowContext(ctx,
			`SELECT COUNT(1) FROM assets WHERE container = ? AND original_name = ?`,
			reg.Container, reg.OriginalName,
		).Scan(&count); err != nil {
			return nil, fmt.Errorf("check duplicate: %w", err)
		}
		if count > 0 {
			return nil, fmt.Errorf("%w: %q in container %q", ErrDuplicate, reg.OriginalName, reg.Container)
		}
	}
	metadata := reg.Metadata
	if metadata == nil {
		metadata = map[string]any{}
	}
	metadataJSON, err := json.Marshal(metadata)
	if err != nil {
		return nil, fmt.Errorf("marshal metadata: %w", err)
	}

	id := uuid.NewString()
	ts := s.timestamp()
	_, err = sqlitedb.Exec(ctx, s.db,
		`INSERT INTO assets (
            id, kind, container, original_name, identifier, source_path, status,
            metadata_json, created_at, updated_at
        ) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		id,
		reg.Kind,
		reg.Container,
		sqlitedb.NullableString(reg.OriginalName),
		sqlitedb.NullableString(strings.TrimSpace(reg.Identifier)),
		sqlitedb.NullableString(reg.SourcePath),
		StatusPending,
		string(metadataJSON),
		ts,
		ts,
	)
	if err != nil {
		if sqlitedb.IsUniqueViolation(err) {
			return nil, fmt.Errorf("%w: %q in container %q", ErrDuplicate, reg.OriginalName, reg.Container)
		}
		return nil, fmt.Errorf("insert asset: %w", err)
	}
	return s.GetByID(ctx, id)
}

// GetByID fetches an asset, returning (nil, nil) when it does not exist.
func (s *Store) GetByID(ctx context.Context, id string) (*Asset, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+assetColumns+` FROM assets WHERE id = ?`, id)
	a, err := scanAsset(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get asset: %w", err)
	}
	return a, nil
}

// MustGet fetches an asset, returning ErrNotFound when it does not exist.
func (s *Store) MustGet(ctx context.Context, id string) (*Asset, error) {
	a, err := s.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if a == nil {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return a, nil
}

// List returns assets matching filter ordered by creation time.
func (s *Store) List(ctx context.Context, filter Filter) ([]*Asset, error) {
	var (
		clauses []string
		args    []any
	)
	if filter.Container != "" {
		clauses = append(clauses, "container = ?")
		args = append(args, filter.Container)
	}
	if len(filter.Statuses) > 0 {
		clauses = append(clauses, "status IN ("+sqlitedb.Placeholders(len(filter.Statuses))+")")
		for _, status := range filter.Statuses {
			args = append(args, status)
		}
	}
	if filter.Kind != "" {
		clauses = append(clauses, "kind = ?")
		args = append(args, filter.Kind)
	}
	if filter.MetadataOnly {
		clauses = append(clauses, "(source_path IS NULL OR source_path = '')")
	}

	query := `SELECT ` + assetColumns + ` FROM assets`
	if len(clauses) > 0 {
		query += " WHERE " + strings.Join(clauses, " AND ")
	}
	query += " ORDER BY created_at, id"
	if filter.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, filter.Limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list assets: %w", err)
	}
	defer rows.Close()

	var assets []*Asset
	for rows.Next() {
		a, err := scanAsset(rows)
		if err != nil {
			return nil, fmt.Errorf("scan asset: %w", err)
		}
		assets = append(assets, a)
	}
	return assets, rows.Err()
}

// StatusCounts returns the number of assets per status.
func (s *Store) StatusCounts(ctx context.Context, container string) (map[Status]int, error) {
	query := `SELECT status, COUNT(1) FROM assets`
	var args []any
	if container != "" {
		query += ` WHERE container = ?`
		args = append(args, container)
	}
	query += ` GROUP BY status`
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("count assets: %w", err)
	}
	defer rows.Close()
	counts := make(map[Status]int)
	for rows.Next() {
		var (
			status string
			count  int
		)
		if err := rows.Scan(&status, &count); err != nil {
			return nil, err
		}
		counts[Status(status)] = count
	}
	return counts, rows.Err()
}

// Delete removes the asset row. Artifact files are the caller's concern.
func (s *Store) Delete(ctx context.Context, id string) error {
	res, err := sqlitedb.Exec(ctx, s.db, `DELETE FROM assets WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete asset: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return nil
}
