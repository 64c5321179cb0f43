package recordstore

import "errors"

// Sentinel errors for record store operations.
var (
	// ErrMissingID is returned when a record without a string id is inserted.
	ErrMissingID = errors.New("record has no id")

	// ErrDuplicateID is returned when a record id already exists in the table.
	ErrDuplicateID = errors.New("duplicate record id")

	// ErrPersist is returned when a mutation could not be written to disk.
	// The in-memory change has been rolled back.
	ErrPersist = errors.New("failed to persist snapshot")

	// ErrSnapshotNotFound is returned by a Persister that has nothing stored yet.
	ErrSnapshotNotFound = errors.New("snapshot not found")

	// ErrSnapshotCorrupt is returned when a stored snapshot cannot be decoded.
	ErrSnapshotCorrupt = errors.New("snapshot corrupt")

	// ErrNotStarted is returned by module services called before Start.
	ErrNotStarted = errors.New("record store not started")
)
