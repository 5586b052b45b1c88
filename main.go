package main

import (
	"coderelay/internal/config"
	"coderelay/internal/database/db_client"
	"coderelay/internal/http/http_server"
	"coderelay/internal/janitor"
	"coderelay/internal/membership"
	"coderelay/internal/mirror"
	"coderelay/internal/mirror/pgmirror"
	"coderelay/internal/mirror/redismirror"
	"coderelay/internal/redis/redis_client"
	"coderelay/internal/redis/redis_functions"
	"coderelay/internal/registry"
	"coderelay/internal/relay"
	"coderelay/internal/roomstate"
	"coderelay/internal/ws"
	"context"
	"io"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"
)

var (
	Log, _ = zap.NewDevelopment()
)

func main() {
	defer Log.Sync()
	zap.ReplaceGlobals(Log)

	// 1. Load configuration
	cfg, err := config.LoadConfig()
	if err != nil {
		Log.Fatal("Failed to load configuration", zap.Error(err))
	}
	Log.Debug("Configuration loaded successfully", zap.Any("config", cfg))

	// 2. Context with signal handling
	ctx, stop := signal.NotifyContext(context.Background(),
		os.Interrupt, syscall.SIGINT, syscall.SIGTERM,
	)
	defer stop()

	// 3. Optional snapshot mirror
	backend, closer, err := openMirror(ctx, cfg)
	if err != nil {
		Log.Fatal("Failed to open snapshot mirror", zap.Error(err))
	}
	if closer != nil {
		defer closer.Close()
	}

	// 4. Room state, with swept rooms also dropped from the mirror
	var storeOpts []roomstate.Option
	var relayOpts []relay.Option
	var mirrorDone <-chan struct{}
	if backend != nil {
		writer := mirror.NewWriter(backend)
		mirrorDone = writer.Run(ctx, cfg.MirrorFlushInterval)
		storeOpts = append(storeOpts, roomstate.WithEvictHook(writer.Forget))
		relayOpts = append(relayOpts, relay.WithMirror(writer))
	}
	rooms := roomstate.New(storeOpts...)

	// 5. Background: stale-room janitor
	janitor.Run(ctx, rooms, cfg.SweepInterval, cfg.RoomRetention)

	// 6. WebSockets hub + relay
	hub := ws.NewHub()
	rl := relay.New(registry.New(), rooms, membership.New(), hub, cfg.CoalesceQuietPeriod, relayOpts...)
	defer rl.Close()

	wsSrv := ws.NewWsServer(hub, rl, ws.Settings{
		PingPeriod:      cfg.WsPingPeriod,
		PongWait:        cfg.WsPongWait,
		MaxMessageBytes: cfg.WsMaxMessageBytes,
	})

	// 7. HTTP + WS server
	httpServer := http_server.NewHttpServer(ctx, cfg.HttpServerPort, wsSrv, rl)
	if err := httpServer.Start(); err != nil {
		Log.Fatal("Failed to start HTTP server", zap.Error(err))
	}
	if backend != nil {
		<-mirrorDone
	}
	Log.Info("Server stopped")
}

func openMirror(ctx context.Context, cfg *config.Config) (mirror.Backend, io.Closer, error) {
	switch cfg.MirrorBackend {
	case config.MirrorRedis:
		rdb, err := redis_client.NewRedisClient(ctx, cfg.RedisHost, int(cfg.RedisPort))
		if err != nil {
			return nil, nil, err
		}
		if err := redis_functions.LoadAll(ctx, rdb); err != nil {
			_ = rdb.Close()
			return nil, nil, err
		}
		Log.Info("Snapshot mirror: redis", zap.String("host", cfg.RedisHost))
		return redismirror.New(rdb, cfg.RoomRetention), rdb, nil

	case config.MirrorPostgres:
		pgDb, err := db_client.Open(ctx, cfg.PostgresHost, cfg.PostgresPort, cfg.PostgresUser, cfg.PostgresPassword, cfg.PostgresDb)
		if err != nil {
			return nil, nil, err
		}
		m := pgmirror.New(pgDb)
		if err := m.EnsureSchema(ctx); err != nil {
			_ = pgDb.Close()
			return nil, nil, err
		}
		Log.Info("Snapshot mirror: postgres", zap.String("host", cfg.PostgresHost))
		return m, pgDb, nil
	}
	return nil, nil, nil
}
