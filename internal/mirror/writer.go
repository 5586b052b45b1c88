package mirror

import (
	"context"
	"sync"
	"time"

	"coderelay/internal/roomstate"

	"go.uber.org/zap"
)

const opTimeout = 1500 * time.Millisecond

// Backend stores the latest snapshot of a room. Save must ignore snapshots
// older than what is already stored.
type Backend interface {
	Save(ctx context.Context, roomID string, snap roomstate.Snapshot) error
	Load(ctx context.Context, roomID string) (roomstate.Snapshot, bool, error)
	Delete(ctx context.Context, roomID string) error
}

// Writer batches snapshots in memory and writes them to a Backend on a timer.
// Only the newest snapshot of each room is kept between flushes.
type Writer struct {
	backend Backend

	mu      sync.Mutex
	pending map[string]roomstate.Snapshot
	// rooms handed to backend.Save by Flush; true once Forget ran meanwhile
	inflight map[string]bool
}

func NewWriter(b Backend) *Writer {
	return &Writer{
		backend:  b,
		pending:  map[string]roomstate.Snapshot{},
		inflight: map[string]bool{},
	}
}

func (w *Writer) Enqueue(roomID string, snap roomstate.Snapshot) {
	w.mu.Lock()
	if cur, ok := w.pending[roomID]; !ok || snap.Version > cur.Version {
		w.pending[roomID] = snap
	}
	w.mu.Unlock()
}

// Restore returns the newest known snapshot, pending ones first.
func (w *Writer) Restore(ctx context.Context, roomID string) (roomstate.Snapshot, bool, error) {
	w.mu.Lock()
	snap, ok := w.pending[roomID]
	w.mu.Unlock()
	if ok {
		return snap, true, nil
	}
	return w.backend.Load(ctx, roomID)
}

// Forget drops the room everywhere. It is the store's eviction hook.
func (w *Writer) Forget(roomID string) {
	w.mu.Lock()
	delete(w.pending, roomID)
	if _, ok := w.inflight[roomID]; ok {
		w.inflight[roomID] = true
	}
	w.mu.Unlock()

	w.deleteSaved(roomID)
}

func (w *Writer) deleteSaved(roomID string) {
	ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
	defer cancel()
	if err := w.backend.Delete(ctx, roomID); err != nil {
		zap.L().Warn("mirror.delete", zap.String("room", roomID), zap.Error(err))
	}
}

// Run flushes every interval until ctx is done, then once more. The returned
// channel is closed after that last flush.
func (w *Writer) Run(ctx context.Context, interval time.Duration) <-chan struct{} {
	done := make(chan struct{})
	tk := time.NewTicker(interval)
	go func() {
		defer close(done)
		defer tk.Stop()
		for {
			select {
			case <-ctx.Done():
				final, cancel := context.WithTimeout(context.Background(), opTimeout)
				w.Flush(final)
				cancel()
				return
			case <-tk.C:
				w.Flush(ctx)
			}
		}
	}()
	return done
}

// Flush writes all pending snapshots and returns how many were saved. Failed
// rooms are put back unless a newer snapshot arrived meanwhile. A room
// forgotten while its save was running is deleted again and not put back.
func (w *Writer) Flush(ctx context.Context) int {
	w.mu.Lock()
	batch := w.pending
	w.pending = make(map[string]roomstate.Snapshot, len(batch))
	for roomID := range batch {
		w.inflight[roomID] = false
	}
	w.mu.Unlock()

	saved := 0
	for roomID, snap := range batch {
		opCtx, cancel := context.WithTimeout(ctx, opTimeout)
		err := w.backend.Save(opCtx, roomID, snap)
		cancel()

		w.mu.Lock()
		forgotten := w.inflight[roomID]
		delete(w.inflight, roomID)
		w.mu.Unlock()
		if forgotten {
			zap.L().Debug("mirror.forgotten_during_save", zap.String("room", roomID))
			if err == nil {
				w.deleteSaved(roomID)
			}
			continue
		}

		if err != nil {
			zap.L().Error("mirror.save", zap.String("room", roomID), zap.Error(err))
			w.Enqueue(roomID, snap)
			continue
		}
		saved++
	}
	if saved > 0 {
		zap.L().Debug("mirror.flushed", zap.Int("rooms", saved))
	}
	return saved
}
