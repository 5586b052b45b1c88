//go:generate go tool mockgen -source=relay.go -destination=mock_relay_test.go -package=relay

package relay

import (
	"context"
	"time"

	"coderelay/internal/coalescer"
	"coderelay/internal/membership"
	"coderelay/internal/registry"
	"coderelay/internal/roomstate"

	"github.com/samber/lo"
	"go.uber.org/zap"
)

const restoreTimeout = 4 * time.Second

// Transport delivers one named event to one connection. Unknown connections
// are ignored by the implementation.
type Transport interface {
	Send(connID, event string, body any)
}

// Mirror keeps the latest snapshot of each room outside the process.
type Mirror interface {
	Enqueue(roomID string, snap roomstate.Snapshot)
	Restore(ctx context.Context, roomID string) (roomstate.Snapshot, bool, error)
}

// Relay routes join, edit, sync and disconnect events between the members of
// each room.
type Relay struct {
	names     *registry.Registry
	rooms     *roomstate.Store
	members   *membership.Index
	transport Transport
	mirror    Mirror
	edits     *coalescer.Coalescer
}

type Option func(*Relay)

func WithMirror(m Mirror) Option {
	return func(r *Relay) { r.mirror = m }
}

func New(
	names *registry.Registry,
	rooms *roomstate.Store,
	members *membership.Index,
	transport Transport,
	quiet time.Duration,
	opts ...Option,
) *Relay {
	r := &Relay{
		names:     names,
		rooms:     rooms,
		members:   members,
		transport: transport,
	}
	for _, o := range opts {
		o(r)
	}
	r.edits = coalescer.New(quiet, r.flush)
	return r
}

// Join adds connID to roomID and sends the room snapshot, with the member
// list, to everyone in the room including the newcomer.
func (r *Relay) Join(ctx context.Context, connID, roomID, username string) {
	username = r.names.Claim(connID, username)
	r.members.Add(connID, roomID)

	snap, created := r.rooms.Join(roomID)
	if created && r.mirror != nil {
		snap = r.restore(ctx, roomID, snap)
	}

	ids := r.members.Members(roomID)
	msg := Joined{
		Members:      r.memberList(ids),
		Username:     username,
		ConnectionID: connID,
		CurrentCode:  snap.Code,
		Version:      snap.Version,
	}
	for _, id := range ids {
		r.transport.Send(id, EventJoined, msg)
	}
	zap.L().Debug("relay.joined",
		zap.String("room", roomID),
		zap.String("conn", connID),
		zap.Int("members", len(ids)),
		zap.Int64("version", snap.Version),
	)
}

func (r *Relay) restore(ctx context.Context, roomID string, snap roomstate.Snapshot) roomstate.Snapshot {
	ctx, cancel := context.WithTimeout(ctx, restoreTimeout)
	defer cancel()

	saved, ok, err := r.mirror.Restore(ctx, roomID)
	if err != nil {
		zap.L().Warn("relay.restore_failed", zap.String("room", roomID), zap.Error(err))
		return snap
	}
	if !ok {
		return snap
	}
	r.rooms.TryApply(roomID, saved.Code, saved.Version)
	if cur, ok := r.rooms.Snapshot(roomID); ok {
		return cur
	}
	return snap
}

func (r *Relay) memberList(ids []string) []Member {
	return lo.Map(ids, func(id string, _ int) Member {
		return Member{ConnectionID: id, Username: r.names.Name(id)}
	})
}

// Edit hands a code change to the coalescer; it is applied and broadcast once
// the connection has been quiet for the configured period.
func (r *Relay) Edit(connID, roomID, code string, version int64) {
	r.edits.Submit(connID, coalescer.Edit{RoomID: roomID, Code: code, Version: version})
}

func (r *Relay) flush(connID string, e coalescer.Edit) {
	if !r.rooms.TryApply(e.RoomID, e.Code, e.Version) {
		zap.L().Debug("relay.edit_rejected",
			zap.String("room", e.RoomID),
			zap.String("conn", connID),
			zap.Int64("version", e.Version),
		)
		return
	}

	msg := CodeChange{Code: e.Code, Version: e.Version}
	for _, id := range r.members.Members(e.RoomID) {
		if id == connID {
			continue
		}
		r.transport.Send(id, EventCodeChange, msg)
	}
	if r.mirror != nil {
		r.mirror.Enqueue(e.RoomID, roomstate.Snapshot{Code: e.Code, Version: e.Version})
	}
}

// DirectSync pushes code to exactly one other connection. Room state is not
// touched.
func (r *Relay) DirectSync(fromConnID, toConnID, code string, version int64) {
	r.transport.Send(toConnID, EventCodeChange, CodeChange{Code: code, Version: version})
	zap.L().Debug("relay.direct_sync",
		zap.String("from", fromConnID),
		zap.String("to", toConnID),
		zap.Int64("version", version),
	)
}

// Leave takes connID out of a single room and tells the members left behind.
func (r *Relay) Leave(connID, roomID string) {
	if !r.members.Remove(connID, roomID) {
		return
	}
	r.notifyLeft(connID, r.names.Name(connID), roomID)
}

// Disconnect flushes any edit the connection still had pending, tells every
// room it was in that it left, and forgets it.
func (r *Relay) Disconnect(connID string) {
	r.edits.FlushNow(connID)

	username := r.names.Name(connID)
	for _, roomID := range r.members.RoomsOf(connID) {
		r.notifyLeft(connID, username, roomID)
	}
	rooms := r.members.RemoveConnection(connID)
	r.names.Remove(connID)

	zap.L().Debug("relay.disconnected",
		zap.String("conn", connID),
		zap.Strings("rooms", rooms),
	)
}

func (r *Relay) notifyLeft(connID, username, roomID string) {
	msg := Disconnected{ConnectionID: connID, Username: username}
	for _, id := range r.members.Members(roomID) {
		if id == connID {
			continue
		}
		r.transport.Send(id, EventDisconnected, msg)
	}
}

// Stats is a point-in-time view used by the inspection endpoints.
type Stats struct {
	Rooms       int `json:"rooms"`
	ActiveRooms int `json:"activeRooms"`
	Connections int `json:"connections"`
}

func (r *Relay) Stats() Stats {
	return Stats{
		Rooms:       r.rooms.Len(),
		ActiveRooms: r.members.RoomCount(),
		Connections: r.names.Len(),
	}
}

// RoomView is a room's state together with who is in it.
type RoomView struct {
	RoomID       string    `json:"roomId"`
	Code         string    `json:"code"`
	Version      int64     `json:"version"`
	LastActivity time.Time `json:"lastActivity"`
	Members      []Member  `json:"members"`
}

func (r *Relay) Room(roomID string) (RoomView, bool) {
	st, ok := r.rooms.State(roomID)
	if !ok {
		return RoomView{}, false
	}
	return RoomView{
		RoomID:       roomID,
		Code:         st.Code,
		Version:      st.Version,
		LastActivity: st.LastActivity,
		Members:      r.memberList(r.members.Members(roomID)),
	}, true
}

// Close stops pending edit timers. Edits not yet flushed are dropped.
func (r *Relay) Close() {
	r.edits.Stop()
}
