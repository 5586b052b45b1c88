package config

import (
	"errors"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"go.uber.org/zap"
)

const (
	MirrorNone     = "none"
	MirrorRedis    = "redis"
	MirrorPostgres = "postgres"
)

var ErrPingPeriod = errors.New("WS_PING_PERIOD must be shorter than WS_PONG_WAIT")

type Config struct {
	HttpServerPort uint16 `env:"HTTP_SERVER_PORT" envDefault:"5000" validate:"min=1000,max=65535"`

	// Room synchronization.
	CoalesceQuietPeriod time.Duration `env:"COALESCE_QUIET_PERIOD" envDefault:"100ms" validate:"gt=0"`
	SweepInterval       time.Duration `env:"SWEEP_INTERVAL"        envDefault:"1h"    validate:"gt=0"`
	RoomRetention       time.Duration `env:"ROOM_RETENTION"        envDefault:"24h"   validate:"gt=0"`

	// Websocket transport.
	WsPingPeriod      time.Duration `env:"WS_PING_PERIOD"       envDefault:"25s"     validate:"gt=0"`
	WsPongWait        time.Duration `env:"WS_PONG_WAIT"         envDefault:"60s"     validate:"gt=0"`
	WsMaxMessageBytes int64         `env:"WS_MAX_MESSAGE_BYTES" envDefault:"1048576" validate:"min=512"`

	// Snapshot mirror.
	MirrorBackend       string        `env:"MIRROR_BACKEND"        envDefault:"none" validate:"oneof=none redis postgres"`
	MirrorFlushInterval time.Duration `env:"MIRROR_FLUSH_INTERVAL" envDefault:"2s"   validate:"gt=0"`

	RedisHost string `env:"REDIS_HOST" envDefault:"localhost"`
	RedisPort uint16 `env:"REDIS_PORT" envDefault:"6379" validate:"min=1000,max=65535"`

	PostgresHost     string `env:"POSTGRES_HOST"     envDefault:"localhost"`
	PostgresPort     string `env:"POSTGRES_PORT"     envDefault:"5432"`
	PostgresUser     string `env:"POSTGRES_USER"     envDefault:"coderelay"`
	PostgresPassword string `env:"POSTGRES_PASSWORD" envDefault:"coderelay"`
	PostgresDb       string `env:"POSTGRES_DB"       envDefault:"coderelay"`
}

func LoadConfig() (*Config, error) {
	// Load environment variables from .env file
	err := godotenv.Load(".env")
	if err != nil {
		zap.L().Debug(".env file not found", zap.Error(err))
	}

	cfg := &Config{}
	// Parse config from environment variables
	if err = env.Parse(cfg); err != nil {
		zap.L().Error("config_load_failed", zap.Error(err))
		return nil, err
	}

	if err = cfg.Validate(); err != nil {
		zap.L().Error("config_validation_failed", zap.Error(err))
		return nil, err
	}
	return cfg, nil
}

// Validate runs the struct tag rules plus the checks that span fields.
func (c *Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return err
	}
	if c.WsPingPeriod >= c.WsPongWait {
		return ErrPingPeriod
	}
	return nil
}
