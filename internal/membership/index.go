package membership

import (
	"sync"

	"github.com/samber/lo"
)

// roster is the ordered member list of one room.
type roster struct {
	mu      sync.Mutex
	order   []string
	removed bool
}

// rooms is the room set of one connection.
type rooms struct {
	mu      sync.Mutex
	set     map[string]struct{}
	removed bool
}

// Index is the room <-> connection relation. Each room and each connection
// has its own lock, so traffic in one room never waits on another room.
type Index struct {
	byRoom sync.Map // roomID -> *roster
	byConn sync.Map // connID -> *rooms
}

func New() *Index { return &Index{} }

func (x *Index) roster(roomID string) *roster {
	for {
		v, _ := x.byRoom.LoadOrStore(roomID, &roster{})
		r := v.(*roster)
		r.mu.Lock()
		if !r.removed {
			return r
		}
		r.mu.Unlock()
	}
}

func (x *Index) rooms(connID string) *rooms {
	for {
		v, _ := x.byConn.LoadOrStore(connID, &rooms{set: map[string]struct{}{}})
		c := v.(*rooms)
		c.mu.Lock()
		if !c.removed {
			return c
		}
		c.mu.Unlock()
	}
}

// Add puts connID in roomID. Adding twice keeps the original position.
func (x *Index) Add(connID, roomID string) {
	r := x.roster(roomID)
	if !lo.Contains(r.order, connID) {
		r.order = append(r.order, connID)
	}
	r.mu.Unlock()

	c := x.rooms(connID)
	c.set[roomID] = struct{}{}
	c.mu.Unlock()
}

// Remove takes connID out of roomID and reports whether it was a member.
func (x *Index) Remove(connID, roomID string) bool {
	if v, ok := x.byConn.Load(connID); ok {
		c := v.(*rooms)
		c.mu.Lock()
		delete(c.set, roomID)
		if len(c.set) == 0 && !c.removed {
			c.removed = true
			x.byConn.CompareAndDelete(connID, c)
		}
		c.mu.Unlock()
	}
	return x.dropFromRoster(connID, roomID)
}

func (x *Index) dropFromRoster(connID, roomID string) bool {
	v, ok := x.byRoom.Load(roomID)
	if !ok {
		return false
	}
	r := v.(*roster)
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.removed {
		return false
	}
	before := len(r.order)
	r.order = lo.Without(r.order, connID)
	if len(r.order) == 0 {
		r.removed = true
		x.byRoom.CompareAndDelete(roomID, r)
	}
	return len(r.order) != before
}

// Members lists the connections in roomID in the order they joined.
func (x *Index) Members(roomID string) []string {
	v, ok := x.byRoom.Load(roomID)
	if !ok {
		return nil
	}
	r := v.(*roster)
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.removed {
		return nil
	}
	return append([]string(nil), r.order...)
}

// RoomsOf lists the rooms connID belongs to.
func (x *Index) RoomsOf(connID string) []string {
	v, ok := x.byConn.Load(connID)
	if !ok {
		return nil
	}
	c := v.(*rooms)
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.removed {
		return nil
	}
	return lo.Keys(c.set)
}

// RemoveConnection drops connID from every room and returns those rooms.
func (x *Index) RemoveConnection(connID string) []string {
	v, ok := x.byConn.LoadAndDelete(connID)
	if !ok {
		return nil
	}
	c := v.(*rooms)
	c.mu.Lock()
	c.removed = true
	left := lo.Keys(c.set)
	c.mu.Unlock()

	for _, roomID := range left {
		x.dropFromRoster(connID, roomID)
	}
	return left
}

// RoomCount is the number of rooms with at least one member.
func (x *Index) RoomCount() int {
	n := 0
	x.byRoom.Range(func(_, _ any) bool {
		n++
		return true
	})
	return n
}
