package domain

import (
	"context"
	"time"
)

// ─── Service Interfaces ─────────────────────────────────────────────────────
// These interfaces define boundaries between layers.
// Infrastructure implements them; application layer depends on them.

// ProgressionRepository persists one serialized ProgressionState per key.
// Implemented by infra/sqlite.DB and infra/filestore.Store.
type ProgressionRepository interface {
	// LoadProgression returns ErrStateNotFound when no record exists and
	// wraps ErrCorruptState when the stored bytes do not decode.
	LoadProgression(ctx context.Context, key string) (*ProgressionState, error)

	// SaveProgression overwrites the record for key.
	SaveProgression(ctx context.Context, key string, state ProgressionState) error

	// BackupProgression copies the raw record aside and returns the name
	// of the copy. Used before a corrupt record is replaced.
	BackupProgression(ctx context.Context, key string) (string, error)

	// DeleteProgression removes the record. Missing records are not an error.
	DeleteProgression(ctx context.Context, key string) error

	// Ping checks the backing storage is reachable.
	Ping(ctx context.Context) error
}

// Clock is the single source of "now" for the progression engine.
type Clock interface {
	Now() time.Time
}

// SystemClock reads the wall clock.
type SystemClock struct{}

// Now returns time.Now().
func (SystemClock) Now() time.Time { return time.Now() }

// EventSink receives store events. Publish must not block.
type EventSink interface {
	Publish(ev Event)
}
