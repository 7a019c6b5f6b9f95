package events

import "time"

const (
	SubjectPopulationWildcard = "gridiron.population.>"

	StreamName = "GRIDIRON_EVENTS"
	// StreamMaxAge bounds how long population events are retained.
	StreamMaxAge = 7 * 24 * time.Hour
	// DuplicateWindow is how long JetStream remembers message ids for dedupe.
	DuplicateWindow = 2 * time.Minute
)

func SubjectPopulationIngested(snapshotID string) string {
	return "gridiron.population." + snapshotID + ".ingested"
}

func SubjectPopulationDeleted(snapshotID string) string {
	return "gridiron.population." + snapshotID + ".deleted"
}
