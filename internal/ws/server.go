package ws

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"coderelay/internal/relay"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

// Relay is the room protocol the server feeds decoded frames into.
type Relay interface {
	Join(ctx context.Context, connID, roomID, username string)
	Edit(connID, roomID, code string, version int64)
	DirectSync(fromConnID, toConnID, code string, version int64)
	Leave(connID, roomID string)
	Disconnect(connID string)
}

type Settings struct {
	PingPeriod      time.Duration // must be < PongWait
	PongWait        time.Duration
	MaxMessageBytes int64
}

var upgrader = websocket.Upgrader{
	ReadBufferSize:  4096,
	WriteBufferSize: 4096,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

type WsServer struct {
	hub      *Hub
	router   *Router
	relay    Relay
	settings Settings
}

func NewWsServer(h *Hub, rl Relay, settings Settings) *WsServer {
	srv := &WsServer{
		hub:      h,
		router:   NewRouter(),
		relay:    rl,
		settings: settings,
	}
	srv.registerHandlers() // ← all WS events configured here
	return srv
}

// ---------------------------------------------------------------------------
//  Public: Gin entry‑point
// ---------------------------------------------------------------------------

func (s *WsServer) Handle(ginCtx *gin.Context) {
	rawConn, err := upgrader.Upgrade(ginCtx.Writer, ginCtx.Request, nil)
	if err != nil {
		zap.L().Warn("ws.accept", zap.Error(err))
		return
	}

	conn := newClientConn(uuid.NewString(), rawConn)
	s.hub.add(conn)
	zap.L().Debug("ws.connected", zap.String("conn", conn.id), zap.String("remote", rawConn.RemoteAddr().String()))

	go conn.writePump(s.settings.PingPeriod)
	go s.reader(conn)
}

// ---------------------------------------------------------------------------
//  Private helpers
// ---------------------------------------------------------------------------

func (s *WsServer) registerHandlers() {
	Register(s.router, relay.EventJoin,
		func(ctx context.Context, cc *ConnContext, req JoinRequest) error {
			s.relay.Join(ctx, cc.ConnID, req.RoomID, req.Username)
			return nil
		},
	)
	Register(s.router, relay.EventCodeChange,
		func(_ context.Context, cc *ConnContext, req CodeChangeRequest) error {
			s.relay.Edit(cc.ConnID, req.RoomID, req.Code, req.Version)
			return nil
		},
	)
	Register(s.router, relay.EventSyncCode,
		func(_ context.Context, cc *ConnContext, req SyncCodeRequest) error {
			s.relay.DirectSync(cc.ConnID, req.ConnectionID, req.Code, req.Version)
			return nil
		},
	)
	Register(s.router, relay.EventLeave,
		func(_ context.Context, cc *ConnContext, req LeaveRequest) error {
			s.relay.Leave(cc.ConnID, req.RoomID)
			return nil
		},
	)
}

func (s *WsServer) reader(conn *clientConn) {
	defer func() {
		s.relay.Disconnect(conn.id)
		s.hub.remove(conn)
		zap.L().Debug("ws.disconnected", zap.String("conn", conn.id))
	}()

	raw := conn.rawConn
	raw.SetReadLimit(s.settings.MaxMessageBytes)
	_ = raw.SetReadDeadline(time.Now().Add(s.settings.PongWait))
	raw.SetPongHandler(func(string) error {
		return raw.SetReadDeadline(time.Now().Add(s.settings.PongWait))
	})

	cc := &ConnContext{ConnID: conn.id}

	for {
		_, data, err := raw.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				zap.L().Debug("ws.read", zap.String("conn", conn.id), zap.Error(err))
			}
			return // client closed or errored
		}
		_ = raw.SetReadDeadline(time.Now().Add(s.settings.PongWait))

		var env Envelope
		if err := json.Unmarshal(data, &env); err != nil {
			zap.L().Debug("ws.bad_frame", zap.String("conn", conn.id), zap.Error(err))
			continue
		}

		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		err = s.router.dispatch(ctx, cc, env)
		cancel()

		// protocol errors are logged, never answered
		if err != nil {
			zap.L().Debug("ws.dispatch",
				zap.String("conn", conn.id),
				zap.String("event", env.Event),
				zap.Error(err),
			)
		}
	}
}
