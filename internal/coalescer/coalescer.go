// Package coalescer collapses bursts of edits from one connection into a
// single flush once the connection has been quiet for a fixed period.
//
// Each connection is either idle or pending(edit, timer). Submit moves to
// pending and restarts the quiet period with the newest edit; the timer moves
// back to idle and flushes. Intermediate edits are dropped, never queued.
package coalescer

import (
	"sync"
	"time"
)

// Edit is one code-change event as received from a connection.
type Edit struct {
	RoomID  string
	Code    string
	Version int64
}

type FlushFunc func(connID string, e Edit)

type slot struct {
	mu      sync.Mutex
	pending *Edit
	timer   *time.Timer
	gen     uint64
	retired bool // slot left the map; Submit must take a new one
}

type Coalescer struct {
	quiet time.Duration
	flush FlushFunc
	slots sync.Map // connID -> *slot

	closeOnce sync.Once
	closed    chan struct{}
}

func New(quiet time.Duration, flush FlushFunc) *Coalescer {
	return &Coalescer{
		quiet:  quiet,
		flush:  flush,
		closed: make(chan struct{}),
	}
}

func (c *Coalescer) slot(connID string) *slot {
	for {
		v, _ := c.slots.LoadOrStore(connID, &slot{})
		s := v.(*slot)
		s.mu.Lock()
		if !s.retired {
			return s
		}
		s.mu.Unlock()
	}
}

// Submit replaces any pending edit of connID with e and restarts its quiet
// period. After Stop it is a no-op.
func (c *Coalescer) Submit(connID string, e Edit) {
	select {
	case <-c.closed:
		return
	default:
	}

	s := c.slot(connID)
	defer s.mu.Unlock()
	if s.timer != nil {
		s.timer.Stop()
	}
	s.gen++
	gen := s.gen
	s.pending = &e
	s.timer = time.AfterFunc(c.quiet, func() { c.fire(connID, s, gen) })
}

func (c *Coalescer) fire(connID string, s *slot, gen uint64) {
	e, ok := c.take(connID, s, gen)
	if !ok {
		return
	}
	select {
	case <-c.closed:
		return
	default:
	}
	c.flush(connID, e)
}

// take moves s back to idle if gen is still current (gen 0 matches any). The
// idle slot is retired so the map does not grow with every connection seen.
func (c *Coalescer) take(connID string, s *slot, gen uint64) (Edit, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.retired || s.pending == nil || (gen != 0 && s.gen != gen) {
		return Edit{}, false
	}
	e := *s.pending
	s.pending = nil
	if s.timer != nil {
		s.timer.Stop()
		s.timer = nil
	}
	s.retired = true
	c.slots.CompareAndDelete(connID, s)
	return e, true
}

// FlushNow delivers connID's pending edit immediately, if there is one.
func (c *Coalescer) FlushNow(connID string) bool {
	v, ok := c.slots.Load(connID)
	if !ok {
		return false
	}
	e, ok := c.take(connID, v.(*slot), 0)
	if !ok {
		return false
	}
	c.flush(connID, e)
	return true
}

// Pending reports whether connID has an edit waiting for its quiet period.
func (c *Coalescer) Pending(connID string) bool {
	v, ok := c.slots.Load(connID)
	if !ok {
		return false
	}
	s := v.(*slot)
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.pending != nil
}

// Stop cancels every pending flush. Edits still waiting are discarded.
func (c *Coalescer) Stop() {
	c.closeOnce.Do(func() { close(c.closed) })
	c.slots.Range(func(k, v any) bool {
		s := v.(*slot)
		s.mu.Lock()
		if s.timer != nil {
			s.timer.Stop()
		}
		s.pending = nil
		s.retired = true
		c.slots.CompareAndDelete(k, s)
		s.mu.Unlock()
		return true
	})
}
