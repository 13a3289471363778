package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/blank-marketing/blank/internal/domain"
)

// ─── Progression Repository ─────────────────────────────────────────────────

// progressionRow mirrors one row of the progression table.
type progressionRow struct {
	Key       string `db:"key"`
	Version   int    `db:"version"`
	Value     string `db:"value"`
	UpdatedAt int64  `db:"updated_at"`
}

// ProgressionInfo is row metadata without the decoded state.
type ProgressionInfo struct {
	Key       string
	Version   int
	UpdatedAt time.Time
}

// LoadProgression decodes the record stored under key.
// Returns domain.ErrStateNotFound if there is none.
func (d *DB) LoadProgression(ctx context.Context, key string) (*domain.ProgressionState, error) {
	var row progressionRow
	err := d.db.GetContext(ctx, &row,
		`SELECT key, version, value, updated_at FROM progression WHERE key = ?`, key,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrStateNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("select progression %q: %w", key, err)
	}

	var st domain.ProgressionState
	if err := json.Unmarshal([]byte(row.Value), &st); err != nil {
		return nil, fmt.Errorf("decode progression %q: %w: %w", key, domain.ErrCorruptState, err)
	}
	return &st, nil
}

// SaveProgression overwrites the record stored under key.
func (d *DB) SaveProgression(ctx context.Context, key string, st domain.ProgressionState) error {
	value, err := json.Marshal(st)
	if err != nil {
		return fmt.Errorf("encode progression: %w", err)
	}

	updated := st.UpdatedAt
	if updated.IsZero() {
		updated = time.Now()
	}

	_, err = d.db.ExecContext(ctx,
		`INSERT INTO progression (key, version, value, updated_at) VALUES (?, ?, ?, ?)
		 ON CONFLICT(key) DO UPDATE SET
			version=excluded.version,
			value=excluded.value,
			updated_at=excluded.updated_at`,
		key, st.Version, string(value), updated.Unix(),
	)
	return err
}

// BackupProgression copies the row for key to "<key>.corrupt-<unix>".
func (d *DB) BackupProgression(ctx context.Context, key string) (string, error) {
	backup := fmt.Sprintf("%s.corrupt-%d", key, time.Now().Unix())
	res, err := d.db.ExecContext(ctx,
		`INSERT OR REPLACE INTO progression (key, version, value, updated_at)
		 SELECT ?, version, value, updated_at FROM progression WHERE key = ?`,
		backup, key,
	)
	if err != nil {
		return "", fmt.Errorf("backup progression %q: %w", key, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return "", domain.ErrStateNotFound
	}
	return backup, nil
}

// DeleteProgression removes the record for key. Missing records are fine.
func (d *DB) DeleteProgression(ctx context.Context, key string) error {
	_, err := d.db.ExecContext(ctx, `DELETE FROM progression WHERE key = ?`, key)
	return err
}

// ListProgressions returns metadata of every stored record, newest first.
func (d *DB) ListProgressions(ctx context.Context) ([]ProgressionInfo, error) {
	var rows []progressionRow
	err := d.db.SelectContext(ctx, &rows,
		`SELECT key, version, '' AS value, updated_at FROM progression ORDER BY updated_at DESC, key`,
	)
	if err != nil {
		return nil, err
	}

	out := make([]ProgressionInfo, 0, len(rows))
	for _, r := range rows {
		out = append(out, ProgressionInfo{
			Key:       r.Key,
			Version:   r.Version,
			UpdatedAt: time.Unix(r.UpdatedAt, 0),
		})
	}
	return out, nil
}
