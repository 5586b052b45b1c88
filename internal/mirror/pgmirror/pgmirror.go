package pgmirror

import (
	"context"
	"database/sql"
	"errors"

	"coderelay/internal/roomstate"
)

const schema = `
CREATE TABLE IF NOT EXISTS room_snapshots (
    room_id    TEXT        PRIMARY KEY,
    code       TEXT        NOT NULL,
    version    BIGINT      NOT NULL,
    updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
)`

// The WHERE clause keeps an older snapshot from overwriting a newer one.
const upsert = `
INSERT INTO room_snapshots (room_id, code, version, updated_at)
     VALUES ($1, $2, $3, now())
ON CONFLICT (room_id) DO UPDATE
        SET code       = EXCLUDED.code,
            version    = EXCLUDED.version,
            updated_at = EXCLUDED.updated_at
      WHERE room_snapshots.version < EXCLUDED.version`

const selectSnapshot = `SELECT code, version FROM room_snapshots WHERE room_id = $1`

const deleteSnapshot = `DELETE FROM room_snapshots WHERE room_id = $1`

type Mirror struct {
	db *sql.DB
}

func New(db *sql.DB) *Mirror { return &Mirror{db: db} }

// EnsureSchema creates the snapshot table if it does not exist.
func (m *Mirror) EnsureSchema(ctx context.Context) error {
	_, err := m.db.ExecContext(ctx, schema)
	return err
}

func (m *Mirror) Save(ctx context.Context, roomID string, snap roomstate.Snapshot) error {
	_, err := m.db.ExecContext(ctx, upsert, roomID, snap.Code, snap.Version)
	return err
}

func (m *Mirror) Load(ctx context.Context, roomID string) (roomstate.Snapshot, bool, error) {
	var snap roomstate.Snapshot
	err := m.db.QueryRowContext(ctx, selectSnapshot, roomID).Scan(&snap.Code, &snap.Version)
	if errors.Is(err, sql.ErrNoRows) {
		return roomstate.Snapshot{}, false, nil
	}
	if err != nil {
		return roomstate.Snapshot{}, false, err
	}
	return snap, true, nil
}

func (m *Mirror) Delete(ctx context.Context, roomID string) error {
	_, err := m.db.ExecContext(ctx, deleteSnapshot, roomID)
	return err
}
