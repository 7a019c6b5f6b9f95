package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	_ "github.com/glebarez/go-sqlite"
	"github.com/google/uuid"

	"github.com/MikeSquared-Agency/Gridiron/internal/ranking"
)

// SQLiteStore keeps snapshots in a local SQLite file. Timestamps are stored as
// RFC3339Nano text in UTC.
type SQLiteStore struct {
	db *sql.DB
}

func NewSQLiteStore(ctx context.Context, path string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	// a single connection keeps ":memory:" databases shared and serialises writers
	db.SetMaxOpenConns(1)

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping sqlite: %w", err)
	}
	s := &SQLiteStore{db: db}
	if err := s.migrate(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return s, nil
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS gridiron_snapshots (
			snapshot_id  TEXT PRIMARY KEY,
			season       TEXT NOT NULL,
			kind         TEXT NOT NULL,
			grp          TEXT NOT NULL DEFAULT '',
			entities     TEXT NOT NULL DEFAULT '[]',
			entity_count INTEGER NOT NULL DEFAULT 0,
			created_at   TEXT NOT NULL,
			updated_at   TEXT NOT NULL,
			UNIQUE (season, kind, grp)
		)`)
	return err
}

func (s *SQLiteStore) UpsertSnapshot(ctx context.Context, snap *Snapshot) error {
	if snap.Entities == nil {
		snap.Entities = ranking.Population{}
	}
	entitiesJSON, err := json.Marshal(snap.Entities)
	if err != nil {
		return fmt.Errorf("encode entities: %w", err)
	}
	snap.EntityCount = len(snap.Entities)
	now := formatTime(time.Now())

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO gridiron_snapshots (snapshot_id, season, kind, grp, entities, entity_count, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (season, kind, grp) DO UPDATE
			SET entities = excluded.entities,
			    entity_count = excluded.entity_count,
			    updated_at = excluded.updated_at`,
		uuid.New().String(), snap.Season, string(snap.Kind), snap.Group,
		string(entitiesJSON), snap.EntityCount, now, now,
	)
	if err != nil {
		return err
	}

	var id, createdAt, updatedAt string
	err = s.db.QueryRowContext(ctx, `
		SELECT snapshot_id, created_at, updated_at FROM gridiron_snapshots
		WHERE season = ? AND kind = ? AND grp = ?`,
		snap.Season, string(snap.Kind), snap.Group,
	).Scan(&id, &createdAt, &updatedAt)
	if err != nil {
		return err
	}
	if snap.ID, err = uuid.Parse(id); err != nil {
		return fmt.Errorf("parse snapshot id: %w", err)
	}
	snap.CreatedAt = parseTime(createdAt)
	snap.UpdatedAt = parseTime(updatedAt)
	return nil
}

func (s *SQLiteStore) GetSnapshot(ctx context.Context, id uuid.UUID) (*Snapshot, error) {
	return s.getOne(ctx, `SELECT `+snapshotColumns+`, entities FROM gridiron_snapshots WHERE snapshot_id = ?`, id.String())
}

func (s *SQLiteStore) FindSnapshot(ctx context.Context, season string, kind Kind, group string) (*Snapshot, error) {
	return s.getOne(ctx, `SELECT `+snapshotColumns+`, entities FROM gridiron_snapshots
		WHERE season = ? AND kind = ? AND grp = ?`, season, string(kind), group)
}

func (s *SQLiteStore) getOne(ctx context.Context, query string, args ...interface{}) (*Snapshot, error) {
	var entitiesJSON string
	snap, err := scanSnapshot(s.db.QueryRowContext(ctx, query, args...), &entitiesJSON)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal([]byte(entitiesJSON), &snap.Entities); err != nil {
		return nil, fmt.Errorf("decode entities: %w", err)
	}
	return snap, nil
}

func (s *SQLiteStore) ListSnapshots(ctx context.Context, filter SnapshotFilter) ([]*Snapshot, error) {
	query := `SELECT ` + snapshotColumns + ` FROM gridiron_snapshots WHERE 1=1`
	args := []interface{}{}

	if filter.Season != "" {
		query += " AND season = ?"
		args = append(args, filter.Season)
	}
	if filter.Kind != "" {
		query += " AND kind = ?"
		args = append(args, string(filter.Kind))
	}
	query += " ORDER BY season DESC, kind ASC, grp ASC LIMIT ? OFFSET ?"
	args = append(args, listLimit(filter), filter.Offset)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*Snapshot
	for rows.Next() {
		snap, err := scanSnapshot(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, snap)
	}
	return out, rows.Err()
}

func (s *SQLiteStore) DeleteSnapshot(ctx context.Context, id uuid.UUID) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM gridiron_snapshots WHERE snapshot_id = ?`, id.String())
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrSnapshotNotFound
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanSnapshot(row rowScanner, extra ...interface{}) (*Snapshot, error) {
	snap := &Snapshot{}
	var id, kind, createdAt, updatedAt string
	dest := append([]interface{}{&id, &snap.Season, &kind, &snap.Group, &snap.EntityCount, &createdAt, &updatedAt}, extra...)
	if err := row.Scan(dest...); err != nil {
		return nil, err
	}
	parsed, err := uuid.Parse(id)
	if err != nil {
		return nil, fmt.Errorf("parse snapshot id: %w", err)
	}
	snap.ID = parsed
	snap.Kind = Kind(kind)
	snap.CreatedAt = parseTime(createdAt)
	snap.UpdatedAt = parseTime(updatedAt)
	return snap, nil
}

func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

func parseTime(s string) time.Time {
	t, _ := time.Parse(time.RFC3339Nano, s)
	return t
}
