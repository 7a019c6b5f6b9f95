package store

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/MikeSquared-Agency/Gridiron/internal/ranking"
)

type PostgresStore struct {
	pool *pgxpool.Pool
}

func NewPostgresStore(ctx context.Context, databaseURL string) (*PostgresStore, error) {
	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, fmt.Errorf("connect to database: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	s := &PostgresStore{pool: pool}
	if err := s.migrate(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return s, nil
}

func (s *PostgresStore) Close() error {
	s.pool.Close()
	return nil
}

func (s *PostgresStore) migrate(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS gridiron_snapshots (
			snapshot_id  UUID PRIMARY KEY DEFAULT gen_random_uuid(),
			season       TEXT NOT NULL,
			kind         TEXT NOT NULL,
			grp          TEXT NOT NULL DEFAULT '',
			entities     JSONB NOT NULL DEFAULT '[]',
			entity_count INTEGER NOT NULL DEFAULT 0,
			created_at   TIMESTAMPTZ NOT NULL DEFAULT now(),
			updated_at   TIMESTAMPTZ NOT NULL DEFAULT now(),
			UNIQUE (season, kind, grp)
		)`)
	return err
}

const snapshotColumns = `snapshot_id, season, kind, grp, entity_count, created_at, updated_at`

func (s *PostgresStore) UpsertSnapshot(ctx context.Context, snap *Snapshot) error {
	if snap.Entities == nil {
		snap.Entities = ranking.Population{}
	}
	entitiesJSON, err := json.Marshal(snap.Entities)
	if err != nil {
		return fmt.Errorf("encode entities: %w", err)
	}
	snap.EntityCount = len(snap.Entities)

	return s.pool.QueryRow(ctx, `
		INSERT INTO gridiron_snapshots (season, kind, grp, entities, entity_count)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (season, kind, grp) DO UPDATE
			SET entities = EXCLUDED.entities,
			    entity_count = EXCLUDED.entity_count,
			    updated_at = now()
		RETURNING snapshot_id, created_at, updated_at`,
		snap.Season, string(snap.Kind), snap.Group, entitiesJSON, snap.EntityCount,
	).Scan(&snap.ID, &snap.CreatedAt, &snap.UpdatedAt)
}

func (s *PostgresStore) GetSnapshot(ctx context.Context, id uuid.UUID) (*Snapshot, error) {
	return s.getOne(ctx, `SELECT `+snapshotColumns+`, entities FROM gridiron_snapshots WHERE snapshot_id = $1`, id)
}

func (s *PostgresStore) FindSnapshot(ctx context.Context, season string, kind Kind, group string) (*Snapshot, error) {
	return s.getOne(ctx, `SELECT `+snapshotColumns+`, entities FROM gridiron_snapshots
		WHERE season = $1 AND kind = $2 AND grp = $3`, season, string(kind), group)
}

func (s *PostgresStore) getOne(ctx context.Context, query string, args ...interface{}) (*Snapshot, error) {
	snap := &Snapshot{}
	var kind string
	var entitiesJSON []byte
	err := s.pool.QueryRow(ctx, query, args...).Scan(
		&snap.ID, &snap.Season, &kind, &snap.Group, &snap.EntityCount,
		&snap.CreatedAt, &snap.UpdatedAt, &entitiesJSON,
	)
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	snap.Kind = Kind(kind)
	if err := json.Unmarshal(entitiesJSON, &snap.Entities); err != nil {
		return nil, fmt.Errorf("decode entities: %w", err)
	}
	return snap, nil
}

func (s *PostgresStore) ListSnapshots(ctx context.Context, filter SnapshotFilter) ([]*Snapshot, error) {
	query := `SELECT ` + snapshotColumns + ` FROM gridiron_snapshots WHERE 1=1`
	args := []interface{}{}
	n := 0

	if filter.Season != "" {
		n++
		query += fmt.Sprintf(" AND season = $%d", n)
		args = append(args, filter.Season)
	}
	if filter.Kind != "" {
		n++
		query += fmt.Sprintf(" AND kind = $%d", n)
		args = append(args, string(filter.Kind))
	}

	query += " ORDER BY season DESC, kind ASC, grp ASC"

	n++
	query += fmt.Sprintf(" LIMIT $%d", n)
	args = append(args, listLimit(filter))

	if filter.Offset > 0 {
		n++
		query += fmt.Sprintf(" OFFSET $%d", n)
		args = append(args, filter.Offset)
	}

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*Snapshot
	for rows.Next() {
		snap := &Snapshot{}
		var kind string
		if err := rows.Scan(&snap.ID, &snap.Season, &kind, &snap.Group, &snap.EntityCount,
			&snap.CreatedAt, &snap.UpdatedAt); err != nil {
			return nil, err
		}
		snap.Kind = Kind(kind)
		out = append(out, snap)
	}
	return out, rows.Err()
}

func (s *PostgresStore) DeleteSnapshot(ctx context.Context, id uuid.UUID) error {
	tag, err := s.pool.Exec(ctx, `DELETE FROM gridiron_snapshots WHERE snapshot_id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrSnapshotNotFound
	}
	return nil
}
