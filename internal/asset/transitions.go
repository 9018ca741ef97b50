package asset

import (
	"context"
	"fmt"
	"strings"
	"time"

	"archivist/internal/services"
	"archivist/internal/sqlitedb"
)

// Claim atomically moves an asset into processing. It is the only guard
// against two dispatchers running the same pipeline: the UPDATE matches
// only when the asset is not already processing. Claiming clears lastError.
func (s *Store) Claim(ctx context.Context, id string) (*Asset, error) {
	ts := s.timestamp()
	res, err := sqlitedb.Exec(ctx, s.db,
		`UPDATE assets
         SET status = ?, last_error = NULL, processing_started_at = ?, updated_at = ?
         WHERE id = ? AND status <> ?`,
		StatusProcessing, ts, ts, id, StatusProcessing,
	)
	if err != nil {
		return nil, fmt.Errorf("claim asset: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		current, getErr := s.GetByID(ctx, id)
		if getErr != nil {
			return nil, getErr
		}
		if current == nil {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
		}
		return nil, fmt.Errorf("%w: %s", ErrAlreadyClaimed, id)
	}
	return s.MustGet(ctx, id)
}

// Complete moves a processing asset to completed. The statement refuses
// when a mandatory artifact for the asset's kind is still empty.
func (s *Store) Complete(ctx context.Context, id string) error {
	current, err := s.MustGet(ctx, id)
	if err != nil {
		return err
	}
	if current.Status != StatusProcessing {
		return fmt.Errorf("%w: %s is %s", ErrNotClaimed, id, current.Status)
	}
	if missing := current.MissingMandatory(); len(missing) > 0 {
		return fmt.Errorf("%w: %s", ErrIncomplete, joinArtifacts(missing))
	}

	guard := mandatoryGuard(current.Kind)
	res, err := sqlitedb.Exec(ctx, s.db,
		`UPDATE assets
         SET status = ?, last_error = NULL, processing_started_at = NULL, updated_at = ?
         WHERE id = ? AND status = ?`+guard,
		StatusCompleted, s.timestamp(), id, StatusProcessing,
	)
	if err != nil {
		return fmt.Errorf("complete asset: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("%w: %s changed during completion", ErrNotClaimed, id)
	}
	return nil
}

// Fail moves a processing asset to error. Long diagnostics lose their
// middle so the stage label and the final stderr line both remain.
// Artifacts already persisted are untouched.
func (s *Store) Fail(ctx context.Context, id, message string) error {
	res, err := sqlitedb.Exec(ctx, s.db,
		`UPDATE assets
         SET status = ?, last_error = ?, processing_started_at = NULL, updated_at = ?
         WHERE id = ? AND status = ?`,
		StatusError, services.Elide(strings.TrimSpace(message), LastErrorLimit), s.timestamp(), id, StatusProcessing,
	)
	if err != nil {
		return fmt.Errorf("fail asset: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		if current, _ := s.GetByID(ctx, id); current == nil {
			return fmt.Errorf("%w: %s", ErrNotFound, id)
		}
		return fmt.Errorf("%w: %s", ErrNotClaimed, id)
	}
	return nil
}

// ClearError empties lastError without changing status.
func (s *Store) ClearError(ctx context.Context, id string) error {
	res, err := sqlitedb.Exec(ctx, s.db,
		`UPDATE assets SET last_error = NULL, updated_at = ? WHERE id = ?`,
		s.timestamp(), id,
	)
	if err != nil {
		return fmt.Errorf("clear error: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return nil
}

// CancelStuck force-fails assets processing for longer than olderThan,
// measured from their claim time. It returns the affected ids.
func (s *Store) CancelStuck(ctx context.Context, olderThan time.Duration) ([]string, error) {
	cutoff := s.now().Add(-olderThan)
	notice := fmt.Sprintf("cancelled: processing exceeded %s without finishing", olderThan)
	return s.cancel(ctx, notice,
		` AND (processing_started_at IS NULL OR processing_started_at < ?)`,
		sqlitedb.FormatTime(cutoff),
	)
}

// CancelAllProcessing force-fails every processing asset.
func (s *Store) CancelAllProcessing(ctx context.Context) ([]string, error) {
	return s.cancel(ctx, "cancelled: all processing jobs were cancelled by an operator", "")
}

func (s *Store) cancel(ctx context.Context, notice, extra string, extraArgs ...any) ([]string, error) {
	args := []any{StatusError, notice, s.timestamp(), StatusProcessing}
	args = append(args, extraArgs...)
	var ids []string
	err := sqlitedb.RetryOnBusy(ctx, func() error {
		ids = ids[:0]
		rows, err := s.db.QueryContext(ctx,
			`UPDATE assets
             SET status = ?, last_error = ?, processing_started_at = NULL, updated_at = ?
             WHERE status = ?`+extra+`
             RETURNING id`,
			args...,
		)
		if err != nil {
			return err
		}
		defer rows.Close()
		for rows.Next() {
			var id string
			if err := rows.Scan(&id); err != nil {
				return err
			}
			ids = append(ids, id)
		}
		return rows.Err()
	})
	if err != nil {
		return nil, fmt.Errorf("cancel processing: %w", err)
	}
	return ids, nil
}

func mandatoryGuard(kind Kind) string {
	var b strings.Builder
	for _, artifact := range MandatoryArtifacts(kind) {
		col := string(artifact)
		b.WriteString(" AND " + col + " IS NOT NULL AND " + col + " <> ''")
	}
	return b.String()
}

func joinArtifacts(artifacts []Artifact) string {
	names := make([]string, len(artifacts))
	for i, a := range artifacts {
		names[i] = string(a)
	}
	return strings.Join(names, ", ")
}
