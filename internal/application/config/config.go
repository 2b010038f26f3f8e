package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

type Config struct {
	Debug      bool   `env:"DEBUG" envDefault:"false"`
	Port       string `env:"PORT" envDefault:"5000"`
	MetricPort string `env:"METRIC_PORT" envDefault:"9090"`

	// Domain - разрешённый Origin для websocket
	Domain string `env:"DOMAIN" envDefault:"http://localhost:3000"`

	JWTSecret string `env:"JWT_SECRET,required,notEmpty"`
	JWTIssuer string `env:"JWT_ISSUER"`

	ShutdownTimeout time.Duration `env:"SHUTDOWN_TIMEOUT" envDefault:"5s"`

	WS        WebsocketConfig
	Broadcast BroadcastConfig
}

type WebsocketConfig struct {
	SendBuffer     int           `env:"SEND_BUFFER" envDefault:"256"`
	MaxMessageSize int64         `env:"MAX_MESSAGE_SIZE" envDefault:"65536"`
	WriteTimeout   time.Duration `env:"WRITE_TIMEOUT" envDefault:"10s"`
	PongWait       time.Duration `env:"PONG_WAIT" envDefault:"60s"`
	PingPeriod     time.Duration `env:"PING_PERIOD" envDefault:"30s"`
}

type BroadcastConfig struct {
	// ExcludeSender - не отправлять событие обратно инициатору.
	// По умолчанию рассылка идёт всем участникам комнаты, включая отправителя.
	ExcludeSender bool `env:"BROADCAST_EXCLUDE_SENDER" envDefault:"false"`
}

// New читает .env (если он есть) и переменные окружения
func New() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}

	c, err := env.ParseAs[Config]()
	if err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}

	if err = c.validate(); err != nil {
		return nil, err
	}

	return &c, nil
}

func (c *Config) validate() error {
	if c.WS.SendBuffer <= 0 {
		return fmt.Errorf("SEND_BUFFER must be positive, got %d", c.WS.SendBuffer)
	}

	if c.WS.PingPeriod >= c.WS.PongWait {
		return fmt.Errorf("PING_PERIOD (%s) must be less than PONG_WAIT (%s)", c.WS.PingPeriod, c.WS.PongWait)
	}

	return nil
}
