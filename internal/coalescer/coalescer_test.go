package coalescer

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

type recorder struct {
	mu      sync.Mutex
	flushes []flushed
}

type flushed struct {
	connID string
	edit   Edit
}

func (r *recorder) flush(connID string, e Edit) {
	r.mu.Lock()
	r.flushes = append(r.flushes, flushed{connID, e})
	r.mu.Unlock()
}

func (r *recorder) all() []flushed {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]flushed(nil), r.flushes...)
}

const quiet = 40 * time.Millisecond

func TestCoalescer_BurstFlushesOnceWithLastEdit(t *testing.T) {
	req := require.New(t)
	rec := &recorder{}
	c := New(quiet, rec.flush)
	defer c.Stop()

	// Given three edits inside one quiet period
	c.Submit("A", Edit{RoomID: "R1", Code: "x", Version: 1})
	c.Submit("A", Edit{RoomID: "R1", Code: "x=", Version: 2})
	c.Submit("A", Edit{RoomID: "R1", Code: "x=1", Version: 3})
	req.True(c.Pending("A"))

	// Then only the last one is flushed, once
	req.Eventually(func() bool { return len(rec.all()) == 1 }, time.Second, 5*time.Millisecond)
	time.Sleep(3 * quiet)
	got := rec.all()
	req.Len(got, 1)
	req.Equal("A", got[0].connID)
	req.Equal(Edit{RoomID: "R1", Code: "x=1", Version: 3}, got[0].edit)
	req.False(c.Pending("A"))
}

func TestCoalescer_NothingFlushedBeforeQuietPeriod(t *testing.T) {
	req := require.New(t)
	rec := &recorder{}
	c := New(200*time.Millisecond, rec.flush)
	defer c.Stop()

	c.Submit("A", Edit{RoomID: "R1", Code: "x", Version: 1})
	time.Sleep(50 * time.Millisecond)

	req.Empty(rec.all())
	req.True(c.Pending("A"))
}

func TestCoalescer_ConnectionsAreIndependent(t *testing.T) {
	req := require.New(t)
	rec := &recorder{}
	c := New(quiet, rec.flush)
	defer c.Stop()

	c.Submit("A", Edit{RoomID: "R1", Code: "a", Version: 1})
	c.Submit("B", Edit{RoomID: "R1", Code: "b", Version: 1})

	req.Eventually(func() bool { return len(rec.all()) == 2 }, time.Second, 5*time.Millisecond)
	ids := []string{rec.all()[0].connID, rec.all()[1].connID}
	req.ElementsMatch([]string{"A", "B"}, ids)
}

func TestCoalescer_SeparatedEditsFlushSeparately(t *testing.T) {
	req := require.New(t)
	rec := &recorder{}
	c := New(quiet, rec.flush)
	defer c.Stop()

	c.Submit("A", Edit{RoomID: "R1", Code: "one", Version: 1})
	req.Eventually(func() bool { return len(rec.all()) == 1 }, time.Second, 5*time.Millisecond)

	c.Submit("A", Edit{RoomID: "R1", Code: "two", Version: 2})
	req.Eventually(func() bool { return len(rec.all()) == 2 }, time.Second, 5*time.Millisecond)

	req.Equal("two", rec.all()[1].edit.Code)
}

func TestCoalescer_FlushNow(t *testing.T) {
	req := require.New(t)
	rec := &recorder{}
	c := New(time.Hour, rec.flush)
	defer c.Stop()

	req.False(c.FlushNow("A"))

	c.Submit("A", Edit{RoomID: "R1", Code: "bye", Version: 9})
	req.True(c.FlushNow("A"))
	req.False(c.FlushNow("A"))

	got := rec.all()
	req.Len(got, 1)
	req.Equal(int64(9), got[0].edit.Version)
}

func TestCoalescer_StopDiscardsPending(t *testing.T) {
	req := require.New(t)
	rec := &recorder{}
	c := New(quiet, rec.flush)

	c.Submit("A", Edit{RoomID: "R1", Code: "x", Version: 1})
	c.Stop()
	c.Submit("A", Edit{RoomID: "R1", Code: "y", Version: 2})

	time.Sleep(3 * quiet)
	req.Empty(rec.all())
}

func TestCoalescer_ConcurrentSubmitsFlushOnce(t *testing.T) {
	req := require.New(t)
	rec := &recorder{}
	c := New(100*time.Millisecond, rec.flush)
	defer c.Stop()

	var wg sync.WaitGroup
	for i := 1; i <= 50; i++ {
		wg.Add(1)
		go func(v int64) {
			defer wg.Done()
			c.Submit("A", Edit{RoomID: "R1", Version: v})
		}(int64(i))
	}
	wg.Wait()

	req.Eventually(func() bool { return len(rec.all()) == 1 }, 2*time.Second, 10*time.Millisecond)
	time.Sleep(250 * time.Millisecond)
	req.Len(rec.all(), 1)
}
