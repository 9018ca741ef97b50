package ledger

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

// MessageLimit caps the stored message text.
const MessageLimit = 2000

// Stage tags which pipeline step produced a failure.
type Stage string

const (
	StageUpload       Stage = "upload"
	StageTranscode    Stage = "transcode"
	StageCustomEncode Stage = "customEncode"
	StageAudioProcess Stage = "audioProcess"
	StageAudioEncode  Stage = "audioEncode"
	StageImageProcess Stage = "imageProcess"
	StageStorageSave  Stage = "storageSave"
	StageOther        Stage = "other"
)

// Stages lists every stage tag.
func Stages() []Stage {
	return []Stage{
		StageUpload, StageTranscode, StageCustomEncode, StageAudioProcess,
		StageAudioEncode, StageImageProcess, StageStorageSave, StageOther,
	}
}

// ParseStage maps user input to a Stage; unknown values are rejected.
func ParseStage(value string) (Stage, error) {
	for _, stage := range Stages() {
		if strings.EqualFold(string(stage), strings.TrimSpace(value)) {
			return stage, nil
		}
	}
	return "", fmt.Errorf("%w: unknown stage %q", services.ErrValidation, value)
}

// ErrNotFound reports an unknown record id.
var ErrNotFound = fmt.Errorf("error record %w", services.ErrNotFound)

// Entry is the input for a new record.
type Entry struct {
	AssetID   string
	AssetKind string
	Stage     Stage
	FileName  string
	Message   string
	Extra     map[string]any
}

// Record is one persisted failure.
type Record struct {
	ID        string
	AssetID   string
	AssetKind string
	Stage     Stage
	FileName  string
	Message   string
	Extra     map[string]any
	CreatedAt time.Time
	Resolved  bool
}

// Filter scopes List. Zero values match everything.
type Filter struct {
	Stage    Stage
	AssetID  string
	Resolved *bool
	Limit    int
}

// Ledger is an append-only store of stage failures. Only the resolved
// flag is ever updated.
type Ledger struct {
	db  *sql.DB
	now func() time.Time
}

// New applies ledger migrations to db and returns a Ledger sharing it.
func New(ctx context.Context, db *sql.DB) (*Ledger, error) {
	if err := sqlitedb.Migrate(ctx, db, migrationFS, "migrations", "ledger_"); err != nil {
		return nil, err
	}
	return &Ledger{db: db, now: func() time.Time { return time.Now().UTC() }}, nil
}

// FromError fills Message and extra.exit_code from err.
func FromError(entry Entry, err error) Entry {
	if err == nil {
		return entry
	}
	if entry.Message == "" {
		entry.Message = services.Diagnostic(err)
	}
	var exitErr *services.ExitError
	if errors.As(err, &exitErr) {
		extra := make(map[string]any, len(entry.Extra)+1)
		for k, v := range entry.Extra {
			extra[k] = v
		}
		extra["exit_code"] = exitErr.Code
		entry.Extra = extra
	}
	return entry
}

// Record appends a failure.
func (l *Ledger) Record(ctx context.Context, entry Entry) (*Record, error) {
	if entry.Stage == "" {
		entry.Stage = StageOther
	}
	if _, err := ParseStage(string(entry.Stage)); err != nil {
		return nil, err
	}
	extra := entry.Extra
	if extra == nil {
		extra = map[string]any{}
	}
	extraJSON, err := json.Marshal(extra)
	if err != nil {
		return nil, fmt.Errorf("marshal extra: %w", err)
	}

	rec := &Record{
		ID:        uuid.NewString(),
		AssetID:   entry.AssetID,
		AssetKind: entry.AssetKind,
		Stage:     entry.Stage,
		FileName:  entry.FileName,
		Message:   services.Elide(strings.TrimSpace(entry.Message), MessageLimit),
		Extra:     extra,
		CreatedAt: l.now(),
	}
	if rec.Message == "" {
		rec.Message = "unknown error"
	}
	_, err = sqlitedb.Exec(ctx, l.db,
		`INSERT INTO processing_errors (id, asset_id, asset_kind, stage, file_name, message, extra_json, created_at, resolved)
         VALUES (?, ?, ?, ?, ?, ?, ?, ?, 0)`,
		rec.ID,
		sqlitedb.NullableString(rec.AssetID),
		sqlitedb.NullableString(rec.AssetKind),
		rec.Stage,
		rec.FileName,
		rec.Message,
		string(extraJSON),
		sqlitedb.FormatTime(rec.CreatedAt),
	)
	if err != nil {
		return nil, fmt.Errorf("insert error record: %w", err)
	}
	return rec, nil
}

// List returns records newest first.
func (l *Ledger) List(ctx context.Context, filter Filter) ([]Record, error) {
	var (
		clauses []string
		args    []any
	)
	if filter.Stage != "" {
		clauses = append(clauses, "stage = ?")
		args = append(args, filter.Stage)
	}
	if filter.AssetID != "" {
		clauses = append(clauses, "asset_id = ?")
		args = append(args, filter.AssetID)
	}
	if filter.Resolved != nil {
		clauses = append(clauses, "resolved = ?")
		args = append(args, boolToInt(*filter.Resolved))
	}
	query := `SELECT id, asset_id, asset_kind, stage, file_name, message, extra_json, created_at, resolved FROM processing_errors`
	if len(clauses) > 0 {
		query += " WHERE " + strings.Join(clauses, " AND ")
	}
	query += " ORDER BY created_at DESC, id"
	if filter.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, filter.Limit)
	}

	rows, err := l.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list error records: %w", err)
	}
	defer rows.Close()

	var records []Record
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}

// Get returns a single record.
func (l *Ledger) Get(ctx context.Context, id string) (Record, error) {
	row := l.db.QueryRowContext(ctx,
		`SELECT id, asset_id, asset_kind, stage, file_name, message, extra_json, created_at, resolved
         FROM processing_errors WHERE id = ?`, id)
	rec, err := scanRecord(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Record{}, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return rec, err
}

// SetResolved toggles the resolved flag.
func (l *Ledger) SetResolved(ctx context.Context, id string, resolved bool) error {
	res, err := sqlitedb.Exec(ctx, l.db,
		`UPDATE processing_errors SET resolved = ? WHERE id = ?`,
		boolToInt(resolved), id,
	)
	if err != nil {
		return fmt.Errorf("update error record: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return nil
}

// Unresolved counts records not yet marked resolved.
func (l *Ledger) Unresolved(ctx context.Context) (int, error) {
	var count int
	err := l.db.QueryRowContext(ctx, `SELECT COUNT(1) FROM processing_errors WHERE resolved = 0`).Scan(&count)
	return count, err
}

func scanRecord(scanner interface{ Scan(dest ...any) error }) (Record, error) {
	var (
		rec                Record
		assetID, assetKind sql.NullString
		stage, extraJSON   string
		createdRaw         string
		resolved           int
	)
	if err := scanner.Scan(&rec.ID, &assetID, &assetKind, &stage, &rec.FileName, &rec.Message, &extraJSON, &createdRaw, &resolved); err != nil {
		return Record{}, err
	}
	rec.AssetID = assetID.String
	rec.AssetKind = assetKind.String
	rec.Stage = Stage(stage)
	rec.Resolved = resolved != 0
	if err := json.Unmarshal([]byte(extraJSON), &rec.Extra); err != nil {
		return Record{}, fmt.Errorf("decode extra: %w", err)
	}
	created, err := sqlitedb.ParseTime(createdRaw)
	if err != nil {
		return Record{}, fmt.Errorf("parse created_at: %w", err)
	}
	rec.CreatedAt = created
	return rec, nil
}

func boolToInt(v bool) int {
	if v {
		return 1
	}
	return 0
}
