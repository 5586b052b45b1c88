package roomhandler

import (
	"net/http"

	"coderelay/internal/relay"

	"github.com/gin-gonic/gin"
)

// Rooms is the read side of the relay.
type Rooms interface {
	Stats() relay.Stats
	Room(roomID string) (relay.RoomView, bool)
}

type Handler struct {
	rooms Rooms
}

func New(rooms Rooms) *Handler { return &Handler{rooms: rooms} }

func (h *Handler) Register(r gin.IRoutes) {
	r.GET("/healthz", h.health)
	r.GET("/stats", h.stats)
	r.GET("/rooms/:id", h.room)
}

// @Summary		Liveness probe
// @Tags			Ops
// @Success		200	{object}	HealthResponse
// @Router			/healthz [get]
func (h *Handler) health(c *gin.Context) {
	c.JSON(http.StatusOK, HealthResponse{Status: "ok"})
}

// @Summary		Relay statistics
// @Description	Rooms held in memory, rooms with members and live connections.
// @Tags			Ops
// @Success		200	{object}	relay.Stats
// @Router			/stats [get]
func (h *Handler) stats(c *gin.Context) {
	c.JSON(http.StatusOK, h.rooms.Stats())
}

// @Summary		Inspect a room
// @Description	Current code, version, last activity and members of one room.
// @Tags			Rooms
// @Param			id	path		string	true	"Room ID"	default(R1)
// @Success		200	{object}	relay.RoomView
// @Failure		404	{object}	ErrorResponse
// @Router			/rooms/{id} [get]
func (h *Handler) room(c *gin.Context) {
	view, ok := h.rooms.Room(c.Param("id"))
	if !ok {
		c.JSON(http.StatusNotFound, ErrorResponse{Error: "room not found"})
		return
	}
	c.JSON(http.StatusOK, view)
}
