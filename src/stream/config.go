package stream

import (
	"fmt"
	"time"

	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	URL                  string        `envconfig:"STREAM_URL" default:"ws://localhost:8000/api/ws/copy-trades"`
	HeartbeatPeriod      time.Duration `envconfig:"STREAM_HEARTBEAT_PERIOD" default:"25s"`
	HandshakeTimeout     time.Duration `envconfig:"STREAM_HANDSHAKE_TIMEOUT" default:"10s"`
	WriteTimeout         time.Duration `envconfig:"STREAM_WRITE_TIMEOUT" default:"10s"`
	BackoffBase          time.Duration `envconfig:"STREAM_BACKOFF_BASE" default:"1s"`
	BackoffCap           time.Duration `envconfig:"STREAM_BACKOFF_CAP" default:"30s"`
	BackoffJitter        time.Duration `envconfig:"STREAM_BACKOFF_JITTER" default:"1s"`
	MaxReconnectAttempts int           `envconfig:"STREAM_MAX_RECONNECT_ATTEMPTS" default:"10"`
}

func GetConfig() Config {
	var config Config
	if err := envconfig.Process("", &config); err != nil {
		panic(fmt.Errorf("error processing env config: %w", err))
	}
	return config
}
