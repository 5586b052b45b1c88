package ws

import (
	"encoding/json"
	"sync"

	"go.uber.org/zap"
)

// Hub keeps the live connections by id and delivers events to them.
type Hub struct {
	conns sync.Map // connID -> *clientConn
}

func NewHub() *Hub { return &Hub{} }

func (h *Hub) add(c *clientConn) { h.conns.Store(c.id, c) }

func (h *Hub) remove(c *clientConn) {
	h.conns.CompareAndDelete(c.id, c)
	c.close()
}

// Send implements relay.Transport. Events for unknown connections are dropped.
func (h *Hub) Send(connID, event string, body any) {
	v, ok := h.conns.Load(connID)
	if !ok {
		zap.L().Debug("ws.send_unknown_conn", zap.String("conn", connID), zap.String("event", event))
		return
	}
	msg, err := encode(event, body)
	if err != nil {
		zap.L().Error("ws.encode", zap.String("event", event), zap.Error(err))
		return
	}
	v.(*clientConn).enqueue(msg)
}

func (h *Hub) Len() int {
	n := 0
	h.conns.Range(func(_, _ any) bool {
		n++
		return true
	})
	return n
}

func encode(event string, body any) ([]byte, error) {
	raw, err := json.Marshal(body)
	if err != nil {
		return nil, err
	}
	return json.Marshal(Envelope{Event: event, Body: raw})
}
