package events

import (
	"time"

	"github.com/google/uuid"

	"github.com/MikeSquared-Agency/Gridiron/internal/store"
)

type PopulationIngestedEvent struct {
	SnapshotID  string    `json:"snapshot_id"`
	Season      string    `json:"season"`
	Kind        string    `json:"kind"`
	Group       string    `json:"group,omitempty"`
	EntityCount int       `json:"entity_count"`
	IngestedBy  string    `json:"ingested_by,omitempty"`
	Timestamp   time.Time `json:"timestamp"`
}

type PopulationDeletedEvent struct {
	SnapshotID string    `json:"snapshot_id"`
	Timestamp  time.Time `json:"timestamp"`
}

// NewPopulationIngested describes a stored snapshot after an upsert.
func NewPopulationIngested(snap *store.Snapshot, ingestedBy string, at time.Time) PopulationIngestedEvent {
	return PopulationIngestedEvent{
		SnapshotID:  snap.ID.String(),
		Season:      snap.Season,
		Kind:        string(snap.Kind),
		Group:       snap.Group,
		EntityCount: snap.EntityCount,
		IngestedBy:  ingestedBy,
		Timestamp:   at.UTC(),
	}
}

func NewPopulationDeleted(id uuid.UUID, at time.Time) PopulationDeletedEvent {
	return PopulationDeletedEvent{SnapshotID: id.String(), Timestamp: at.UTC()}
}

// ingestedMsgID identifies one version of a snapshot, so a retried publish of
// the same upsert is dropped by the stream while a later re-ingest is not.
func ingestedMsgID(snap *store.Snapshot) string {
	return snap.ID.String() + ":" + snap.UpdatedAt.UTC().Format(time.RFC3339Nano)
}
