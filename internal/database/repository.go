package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	apperrors "github.com/ZanzyTHEbar/similar-dev-search/internal/errors"
	"github.com/ZanzyTHEbar/similar-dev-search/internal/resilience"
	"github.com/mattn/go-sqlite3"
)

const (
	defaultListLimit = 20
	maxListLimit     = 100
)

// Repository handles snapshot persistence
type Repository struct {
	db *DB
}

// NewRepository creates a new repository
func NewRepository(db *DB) *Repository {
	return &Repository{db: db}
}

// isContention reports whether a write failed on a busy or locked database
func isContention(err error) bool {
	var sqliteErr sqlite3.Error
	if !errors.As(err, &sqliteErr) {
		return false
	}
	return sqliteErr.Code == sqlite3.ErrBusy || sqliteErr.Code == sqlite3.ErrLocked
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanSnapshot(row rowScanner) (*Snapshot, error) {
	var (
		s        Snapshot
		document string
		sourceIP sql.NullString
	)
	if err := row.Scan(&s.ID, &s.Developers, &s.SizeBytes, &document, &sourceIP, &s.CreatedAt); err != nil {
		return nil, err
	}
	s.Document = []byte(document)
	s.SourceIP = sourceIP.String
	return &s, nil
}

// SaveSnapshot inserts a snapshot
func (r *Repository) SaveSnapshot(ctx context.Context, s *Snapshot) error {
	stmt, err := r.db.GetPreparedStatement("insert_snapshot")
	if err != nil {
		return apperrors.NewStorageError("snapshot store unavailable", err)
	}

	retry := resilience.DefaultRetryConfig()
	retry.RetryableErrors = isContention
	err = resilience.RetryWithConfig(ctx, retry, func() error {
		_, err := stmt.ExecContext(ctx, s.ID, s.Developers, s.SizeBytes, string(s.Document), s.SourceIP, s.CreatedAt)
		return err
	})
	if err != nil {
		return apperrors.NewStorageError("failed to save snapshot", err)
	}

	return nil
}

// GetSnapshot loads a snapshot by ID
func (r *Repository) GetSnapshot(ctx context.Context, id string) (*Snapshot, error) {
	stmt, err := r.db.GetPreparedStatement("get_snapshot")
	if err != nil {
		return nil, apperrors.NewStorageError("snapshot store unavailable", err)
	}

	s, err := scanSnapshot(stmt.QueryRowContext(ctx, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperrors.NewSnapshotNotFoundError(id)
	}
	if err != nil {
		return nil, apperrors.NewStorageError("failed to load snapshot", err)
	}

	return s, nil
}

// LatestSnapshot loads the most recently stored snapshot
func (r *Repository) LatestSnapshot(ctx context.Context) (*Snapshot, error) {
	stmt, err := r.db.GetPreparedStatement("latest_snapshot")
	if err != nil {
		return nil, apperrors.NewStorageError("snapshot store unavailable", err)
	}

	s, err := scanSnapshot(stmt.QueryRowContext(ctx))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperrors.NewSnapshotNotFoundError("")
	}
	if err != nil {
		return nil, apperrors.NewStorageError("failed to load latest snapshot", err)
	}

	return s, nil
}

// ListSnapshots returns snapshot metadata, newest first, without documents
func (r *Repository) ListSnapshots(ctx context.Context, limit int) ([]Snapshot, error) {
	if limit <= 0 {
		limit = defaultListLimit
	}
	if limit > maxListLimit {
		limit = maxListLimit
	}

	stmt, err := r.db.GetPreparedStatement("list_snapshots")
	if err != nil {
		return nil, apperrors.NewStorageError("snapshot store unavailable", err)
	}

	rows, err := stmt.QueryContext(ctx, limit)
	if err != nil {
		return nil, apperrors.NewStorageError("failed to list snapshots", err)
	}
	defer rows.Close()

	snapshots := make([]Snapshot, 0, limit)
	for rows.Next() {
		var s Snapshot
		if err := rows.Scan(&s.ID, &s.Developers, &s.SizeBytes, &s.CreatedAt); err != nil {
			return nil, apperrors.NewStorageError("failed to scan snapshot", err)
		}
		snapshots = append(snapshots, s)
	}
	if err := rows.Err(); err != nil {
		return nil, apperrors.NewStorageError("failed to list snapshots", err)
	}

	return snapshots, nil
}

// DeleteSnapshot removes a snapshot by ID
func (r *Repository) DeleteSnapshot(ctx context.Context, id string) error {
	stmt, err := r.db.GetPreparedStatement("delete_snapshot")
	if err != nil {
		return apperrors.NewStorageError("snapshot store unavailable", err)
	}

	res, err := stmt.ExecContext(ctx, id)
	if err != nil {
		return apperrors.NewStorageError("failed to delete snapshot", err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return apperrors.NewStorageError("failed to delete snapshot", err)
	}
	if n == 0 {
		return apperrors.NewSnapshotNotFoundError(id)
	}

	return nil
}

// CountSnapshots returns the number of stored snapshots
func (r *Repository) CountSnapshots(ctx context.Context) (int, error) {
	stmt, err := r.db.GetPreparedStatement("count_snapshots")
	if err != nil {
		return 0, apperrors.NewStorageError("snapshot store unavailable", err)
	}

	var count int
	if err := stmt.QueryRowContext(ctx).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count snapshots: %w", err)
	}

	return count, nil
}
