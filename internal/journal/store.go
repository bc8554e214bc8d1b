// Package journal persists a record of completed transcription runs backed
// by SQLite. Besides history it serves as an artifact cache: a run over the
// same source with the same policy and shape can reuse the stored transcript
// instead of re-uploading hours of audio.
package journal

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"
)

// Store manages run persistence backed by SQLite.
type Store struct {
	db   *sql.DB
	path string
}

// Entry is one completed run.
type Entry struct {
	ID              int64
	RunID           string
	SourcePath      string
	Fingerprint     string
	Shape           string
	Language        string
	SegmentSeconds  float64
	OverlapSeconds  float64
	DurationSeconds float64
	SegmentCount    int
	OutputPath      string
	Artifact        []byte
	CreatedAt       time.Time
}

// Key identifies the cacheable inputs of a run. Two runs with equal keys
// produce the same transcript.
type Key struct {
	Fingerprint    string
	Shape          string
	Language       string
	SegmentSeconds float64
	OverlapSeconds float64
}

// Open initializes or connects to the journal database and applies migrations.
func Open(path string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("ensure journal directory: %w", err)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA foreign_keys = ON",
		"PRAGMA busy_timeout = 5000",
	}
	for _, pragma := range pragmas {
		if _, execErr := db.Exec(pragma); execErr != nil {
			_ = db.Close()
			return nil, fmt.Errorf("apply pragma %q: %w", pragma, execErr)
		}
	}

	store := &Store{db: db, path: path}
	if err := store.initSchema(context.Background()); err != nil {
		_ = db.Close()
		return nil, err
	}

	return store, nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Path returns the database file path.
func (s *Store) Path() string {
	return s.path
}

// Record inserts a completed run and returns its row id.
func (s *Store) Record(ctx context.Context, entry Entry) (int64, error) {
	createdAt := entry.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}

	res, err := s.db.ExecContext(
		ctx,
		`INSERT INTO runs (
            run_id, source_path, fingerprint, shape, language,
            segment_seconds, overlap_seconds, duration_seconds,
            segment_count, output_path, artifact, created_at
        ) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		entry.RunID,
		entry.SourcePath,
		entry.Fingerprint,
		entry.Shape,
		nullableString(entry.Language),
		entry.SegmentSeconds,
		entry.OverlapSeconds,
		entry.DurationSeconds,
		entry.SegmentCount,
		nullableString(entry.OutputPath),
		entry.Artifact,
		createdAt.Format(time.RFC3339Nano),
	)
	if err != nil {
		return 0, fmt.Errorf("insert run: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("last insert id: %w", err)
	}
	return id, nil
}

// Lookup returns the most recent run matching key, or false when no prior
// run with a stored artifact exists.
func (s *Store) Lookup(ctx context.Context, key Key) (*Entry, bool, error) {
	row := s.db.QueryRowContext(
		ctx,
		`SELECT id, run_id, source_path, fingerprint, shape, language,
            segment_seconds, overlap_seconds, duration_seconds,
            segment_count, output_path, artifact, created_at
        FROM runs
        WHERE fingerprint = ? AND shape = ?
            AND segment_seconds = ? AND overlap_seconds = ?
            AND COALESCE(language, '') = ?
            AND artifact IS NOT NULL
        ORDER BY id DESC
        LIMIT 1`,
		key.Fingerprint,
		key.Shape,
		key.SegmentSeconds,
		key.OverlapSeconds,
		key.Language,
	)
	entry, err := scanEntry(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("lookup run: %w", err)
	}
	return entry, true, nil
}

// List returns the most recent runs, newest first. limit <= 0 means all.
func (s *Store) List(ctx context.Context, limit int) ([]Entry, error) {
	query := `SELECT id, run_id, source_path, fingerprint, shape, language,
            segment_seconds, overlap_seconds, duration_seconds,
            segment_count, output_path, artifact, created_at
        FROM runs ORDER BY id DESC`
	args := []any{}
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		entry, err := scanEntry(rows)
		if err != nil {
			return nil, fmt.Errorf("scan run: %w", err)
		}
		entries = append(entries, *entry)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate runs: %w", err)
	}
	return entries, nil
}

// Clear removes all recorded runs.
func (s *Store) Clear(ctx context.Context) (int64, error) {
	res, err := s.db.ExecContext(ctx, "DELETE FROM runs")
	if err != nil {
		return 0, fmt.Errorf("clear runs: %w", err)
	}
	removed, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("rows affected: %w", err)
	}
	return removed, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanEntry(row rowScanner) (*Entry, error) {
	var entry Entry
	var language, outputPath sql.NullString
	var createdAt string
	err := row.Scan(
		&entry.ID,
		&entry.RunID,
		&entry.SourcePath,
		&entry.Fingerprint,
		&entry.Shape,
		&language,
		&entry.SegmentSeconds,
		&entry.OverlapSeconds,
		&entry.DurationSeconds,
		&entry.SegmentCount,
		&outputPath,
		&entry.Artifact,
		&createdAt,
	)
	if err != nil {
		return nil, err
	}
	entry.Language = language.String
	entry.OutputPath = outputPath.String
	if parsed, parseErr := time.Parse(time.RFC3339Nano, createdAt); parseErr == nil {
		entry.CreatedAt = parsed
	}
	return &entry, nil
}

func nullableString(value string) any {
	if value == "" {
		return nil
	}
	return value
}
