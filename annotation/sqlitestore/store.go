// Package sqlitestore implements annotation.Store on SQLite using the pure
// Go modernc.org/sqlite driver.
package sqlitestore

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/gogpu/spectro/annotation"
	"github.com/gogpu/spectro/geometry"

	_ "modernc.org/sqlite"
)

const schema = `
CREATE TABLE IF NOT EXISTS annotations (
	annotation_id TEXT PRIMARY KEY,
	recording_id  TEXT NOT NULL,
	geometry_json TEXT NOT NULL,
	tags_json     TEXT NOT NULL,
	created_at_ns INTEGER NOT NULL,
	updated_at_ns INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_annotations_recording
	ON annotations (recording_id, created_at_ns);
`

var pragmas = []string{
	"PRAGMA journal_mode=WAL",
	"PRAGMA busy_timeout=5000",
	"PRAGMA synchronous=NORMAL",
	"PRAGMA foreign_keys=ON",
}

// Store is an annotation.Store backed by a SQLite database.
type Store struct {
	db   *sql.DB
	opts annotation.Options
}

var _ annotation.Store = (*Store)(nil)

// Open opens (creating if needed) the database at path.
func Open(path string, opts ...annotation.Option) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("sqlitestore: open %s: %w", path, err)
	}
	for _, p := range pragmas {
		if _, err := db.Exec(p); err != nil {
			db.Close()
			return nil, fmt.Errorf("sqlitestore: %s: %w", p, err)
		}
	}
	s, err := New(db, opts...)
	if err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

// New wraps an open database and ensures the schema exists.
func New(db *sql.DB, opts ...annotation.Option) (*Store, error) {
	if _, err := db.Exec(schema); err != nil {
		return nil, fmt.Errorf("sqlitestore: create schema: %w", err)
	}
	return &Store{db: db, opts: annotation.NewOptions(opts...)}, nil
}

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) Create(ctx context.Context, a *annotation.Annotation) error {
	if err := annotation.PrepareCreate(a, s.now()); err != nil {
		return err
	}
	g, tags, err := encode(a)
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO annotations (
			annotation_id, recording_id, geometry_json, tags_json,
			created_at_ns, updated_at_ns
		) VALUES (?, ?, ?, ?, ?, ?)`,
		a.ID.String(), a.RecordingID, g, tags,
		a.CreatedAt.UnixNano(), a.UpdatedAt.UnixNano(),
	)
	if err != nil {
		return fmt.Errorf("sqlitestore: insert annotation: %w", err)
	}
	return nil
}

func (s *Store) Get(ctx context.Context, id uuid.UUID) (*annotation.Annotation, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT annotation_id, recording_id, geometry_json, tags_json,
		       created_at_ns, updated_at_ns
		FROM annotations
		WHERE annotation_id = ?`, id.String())
	a, err := scan(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", annotation.ErrNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("sqlitestore: get annotation: %w", err)
	}
	return a, nil
}

func (s *Store) Update(ctx context.Context, a *annotation.Annotation) error {
	if err := a.Validate(); err != nil {
		return err
	}
	g, tags, err := encode(a)
	if err != nil {
		return err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("sqlitestore: begin: %w", err)
	}
	defer tx.Rollback()

	var createdNs int64
	err = tx.QueryRowContext(ctx,
		`SELECT created_at_ns FROM annotations WHERE annotation_id = ?`, a.ID.String(),
	).Scan(&createdNs)
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("%w: %s", annotation.ErrNotFound, a.ID)
	}
	if err != nil {
		return fmt.Errorf("sqlitestore: update annotation: %w", err)
	}

	now := s.now()
	if _, err := tx.ExecContext(ctx, `
		UPDATE annotations
		SET recording_id = ?, geometry_json = ?, tags_json = ?, updated_at_ns = ?
		WHERE annotation_id = ?`,
		a.RecordingID, g, tags, now.UnixNano(), a.ID.String(),
	); err != nil {
		return fmt.Errorf("sqlitestore: update annotation: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("sqlitestore: commit: %w", err)
	}
	a.CreatedAt = fromNanos(createdNs)
	a.UpdatedAt = now
	return nil
}

func (s *Store) Delete(ctx context.Context, id uuid.UUID) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM annotations WHERE annotation_id = ?`, id.String())
	if err != nil {
		return fmt.Errorf("sqlitestore: delete annotation: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("sqlitestore: delete annotation: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("%w: %s", annotation.ErrNotFound, id)
	}
	return nil
}

func (s *Store) ListByRecording(ctx context.Context, recordingID string) ([]*annotation.Annotation, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT annotation_id, recording_id, geometry_json, tags_json,
		       created_at_ns, updated_at_ns
		FROM annotations
		WHERE recording_id = ?
		ORDER BY created_at_ns, annotation_id`, recordingID)
	if err != nil {
		return nil, fmt.Errorf("sqlitestore: list annotations: %w", err)
	}
	defer rows.Close()

	var out []*annotation.Annotation
	for rows.Next() {
		a, err := scan(rows)
		if err != nil {
			return nil, fmt.Errorf("sqlitestore: list annotations: %w", err)
		}
		out = append(out, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlitestore: list annotations: %w", err)
	}
	return out, nil
}

func (s *Store) now() time.Time {
	return s.opts.Now().UTC()
}

type scanner interface {
	Scan(dest ...any) error
}

func scan(r scanner) (*annotation.Annotation, error) {
	var (
		id, recordingID, geomJSON, tagsJSON string
		createdNs, updatedNs                int64
	)
	if err := r.Scan(&id, &recordingID, &geomJSON, &tagsJSON, &createdNs, &updatedNs); err != nil {
		return nil, err
	}
	uid, err := uuid.Parse(id)
	if err != nil {
		return nil, fmt.Errorf("parse id %q: %w", id, err)
	}
	g, err := geometry.Unmarshal([]byte(geomJSON))
	if err != nil {
		return nil, err
	}
	var tags []string
	if err := json.Unmarshal([]byte(tagsJSON), &tags); err != nil {
		return nil, fmt.Errorf("decode tags: %w", err)
	}
	if len(tags) == 0 {
		tags = nil
	}
	return &annotation.Annotation{
		ID:          uid,
		RecordingID: recordingID,
		Geometry:    g,
		Tags:        tags,
		CreatedAt:   fromNanos(createdNs),
		UpdatedAt:   fromNanos(updatedNs),
	}, nil
}

func encode(a *annotation.Annotation) (geom, tags string, err error) {
	g, err := geometry.Marshal(a.Geometry)
	if err != nil {
		return "", "", err
	}
	t := a.Tags
	if t == nil {
		t = []string{}
	}
	tb, err := json.Marshal(t)
	if err != nil {
		return "", "", fmt.Errorf("sqlitestore: encode tags: %w", err)
	}
	return string(g), string(tb), nil
}

func fromNanos(ns int64) time.Time {
	return time.Unix(0, ns).UTC()
}
