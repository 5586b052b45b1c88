package redismirror

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"coderelay/internal/roomstate"

	"github.com/redis/go-redis/v9"
)

const (
	keyPrefix    = "room:"
	saveFunction = "room_snapshot_save"
)

// Mirror keeps one hash per room: code, version and the unix time of the
// last save. Keys expire after ttl without writes.
type Mirror struct {
	rdb *redis.Client
	ttl time.Duration
	now func() time.Time
}

func New(rdb *redis.Client, ttl time.Duration) *Mirror {
	return &Mirror{rdb: rdb, ttl: ttl, now: time.Now}
}

func Key(roomID string) string { return keyPrefix + roomID }

// Save runs the room_snapshot_save function, which ignores versions that are
// not newer than the stored one.
func (m *Mirror) Save(ctx context.Context, roomID string, snap roomstate.Snapshot) error {
	return m.rdb.FCall(ctx, saveFunction,
		[]string{Key(roomID)},
		snap.Code,
		snap.Version,
		m.now().Unix(),
		int64(m.ttl/time.Second),
	).Err()
}

func (m *Mirror) Load(ctx context.Context, roomID string) (roomstate.Snapshot, bool, error) {
	data, err := m.rdb.HGetAll(ctx, Key(roomID)).Result()
	if err != nil {
		return roomstate.Snapshot{}, false, err
	}
	if len(data) == 0 {
		return roomstate.Snapshot{}, false, nil
	}
	version, err := strconv.ParseInt(data["version"], 10, 64)
	if err != nil {
		return roomstate.Snapshot{}, false, fmt.Errorf("room %s: bad version %q: %w", roomID, data["version"], err)
	}
	return roomstate.Snapshot{Code: data["code"], Version: version}, true, nil
}

func (m *Mirror) Delete(ctx context.Context, roomID string) error {
	return m.rdb.Del(ctx, Key(roomID)).Err()
}
