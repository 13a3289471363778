package domain

import "errors"

// ─── Sentinel Errors ────────────────────────────────────────────────────────
// Domain errors are pure, with no infrastructure dependency.
// Insufficient XP and duplicate missions are NOT errors: they are reported
// through boolean returns so callers can show a friendly message.

var (
	// Reference errors (programming bugs: the UI offered something that doesn't exist)
	ErrUnknownMission     = errors.New("unknown daily mission")
	ErrUnknownReward      = errors.New("unknown reward")
	ErrUnknownAchievement = errors.New("unknown achievement")

	// Action errors
	ErrInvalidXPAmount = errors.New("xp amount must be positive")

	// Catalog errors
	ErrInvalidCatalog = errors.New("invalid catalog")

	// Persistence errors
	ErrStateNotFound     = errors.New("progression state not found")
	ErrUnsupportedSchema = errors.New("progression record schema is newer than this build")
	ErrCorruptState      = errors.New("progression record cannot be decoded")
)
