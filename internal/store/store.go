package store

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/MikeSquared-Agency/Gridiron/internal/ranking"
)

var ErrSnapshotNotFound = errors.New("snapshot not found")

type Kind string

const (
	KindTeams   Kind = "teams"
	KindPlayers Kind = "players"
	KindGames   Kind = "games"
)

// ParseKind validates a kind from a URL or payload.
func ParseKind(s string) (Kind, bool) {
	switch k := Kind(s); k {
	case KindTeams, KindPlayers, KindGames:
		return k, true
	}
	return "", false
}

// Snapshot is a stored population, unique by (season, kind, group).
// Group narrows the population, e.g. a position for players; it may be empty.
type Snapshot struct {
	ID          uuid.UUID          `json:"snapshot_id"`
	Season      string             `json:"season"`
	Kind        Kind               `json:"kind"`
	Group       string             `json:"group,omitempty"`
	Entities    ranking.Population `json:"entities,omitempty"`
	EntityCount int                `json:"entity_count"`
	CreatedAt   time.Time          `json:"created_at"`
	UpdatedAt   time.Time          `json:"updated_at"`
}

type SnapshotFilter struct {
	Season string
	Kind   Kind
	Limit  int
	Offset int
}

type Store interface {
	// UpsertSnapshot inserts or replaces the entities of the snapshot keyed by
	// (season, kind, group) and fills in ID and timestamps.
	UpsertSnapshot(ctx context.Context, snap *Snapshot) error
	// GetSnapshot returns nil, nil when the snapshot does not exist.
	GetSnapshot(ctx context.Context, id uuid.UUID) (*Snapshot, error)
	FindSnapshot(ctx context.Context, season string, kind Kind, group string) (*Snapshot, error)
	// ListSnapshots returns summaries without entities.
	ListSnapshots(ctx context.Context, filter SnapshotFilter) ([]*Snapshot, error)
	DeleteSnapshot(ctx context.Context, id uuid.UUID) error
	Close() error
}

func listLimit(f SnapshotFilter) int {
	if f.Limit <= 0 {
		return 100
	}
	return f.Limit
}
