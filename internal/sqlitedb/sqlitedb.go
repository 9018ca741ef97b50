package sqlitedb

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"
)

const (
	sqliteBusyCode          = 5
	busyRetryAttempts       = 5
	busyRetryInitialBackoff = 10 * time.Millisecond
	busyRetryMaxBackoff     = 200 * time.Millisecond
	busyTimeoutMillis       = 5000
	maxOpenConns            = 4
)

// TimeLayout is the on-disk timestamp format. It is fixed width so stored
// values order correctly as text.
const TimeLayout = "2006-01-02T15:04:05.000000000Z07:00"

// Open connects to the SQLite database at path with WAL journaling,
// foreign keys, and a busy timeout.
func Open(path string) (*sql.DB, error) {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create database dir: %w", err)
		}
	}
	// Pragmas go in the DSN so every pooled connection gets them.
	dsn := fmt.Sprintf("file:%s?_pragma=journal_mode(WAL)&_pragma=busy_timeout(%d)&_pragma=synchronous(NORMAL)&_pragma=foreign_keys(ON)",
		path, busyTimeoutMillis)
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}
	db.SetMaxOpenConns(maxOpenConns)
	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping sqlite db: %w", err)
	}
	return db, nil
}

// EnsureContext substitutes context.Background for a nil context.
func EnsureContext(ctx context.Context) context.Context {
	if ctx != nil {
		return ctx
	}
	return context.Background()
}

// IsBusy reports whether err is SQLITE_BUSY.
func IsBusy(err error) bool {
	if err == nil {
		return false
	}
	var coder interface{ Code() int }
	if errors.As(err, &coder) && coder.Code() == sqliteBusyCode {
		return true
	}
	msg := err.Error()
	return strings.Contains(msg, "SQLITE_BUSY") || strings.Contains(msg, "database is locked")
}

// IsUniqueViolation reports whether err is a UNIQUE constraint failure.
func IsUniqueViolation(err error) bool {
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed")
}

// RetryOnBusy runs op until it succeeds, fails with a non-busy error, or
// the attempts run out.
func RetryOnBusy(ctx context.Context, op func() error) error {
	ctx = EnsureContext(ctx)
	delay := busyRetryInitialBackoff
	var lastErr error
	for attempt := 0; attempt < busyRetryAttempts; attempt++ {
		lastErr = op()
		if lastErr == nil {
			return nil
		}
		if !IsBusy(lastErr) || attempt == busyRetryAttempts-1 {
			break
		}
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return ctx.Err()
		}
		if next := delay * 2; next <= busyRetryMaxBackoff {
			delay = next
		}
	}
	return lastErr
}

// Exec runs a statement with busy retry.
func Exec(ctx context.Context, db *sql.DB, query string, args ...any) (sql.Result, error) {
	ctx = EnsureContext(ctx)
	var (
		res     sql.Result
		execErr error
	)
	if err := RetryOnBusy(ctx, func() error {
		res, execErr = db.ExecContext(ctx, query, args...)
		return execErr
	}); err != nil {
		return nil, err
	}
	return res, nil
}

// NullableString maps "" to NULL.
func NullableString(value string) any {
	if value == "" {
		return nil
	}
	return value
}

// NullableTime maps nil to NULL and formats everything else in UTC.
func NullableTime(value *time.Time) any {
	if value == nil {
		return nil
	}
	return value.UTC().Format(TimeLayout)
}

// FormatTime renders t in the on-disk layout.
func FormatTime(t time.Time) string {
	return t.UTC().Format(TimeLayout)
}

// ParseTime accepts the on-disk layout and SQLite's CURRENT_TIMESTAMP format.
func ParseTime(value string) (time.Time, error) {
	if value == "" {
		return time.Time{}, errors.New("empty")
	}
	if t, err := time.Parse(TimeLayout, value); err == nil {
		return t, nil
	}
	return time.Parse("2006-01-02 15:04:05", value)
}

// Placeholders returns "?,?,..." with count entries.
func Placeholders(count int) string {
	if count <= 0 {
		return ""
	}
	placeholders := make([]byte, 0, count*2)
	for i := 0; i < count; i++ {
		if i > 0 {
			placeholders = append(placeholders, ',')
		}
		placeholders = append(placeholders, '?')
	}
	return string(placeholders)
}
