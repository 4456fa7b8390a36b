package config

import (
	"fmt"
	"net"
	"strconv"
	"time"
)

const (
	EnvServerHost            = "VITALIS_SERVER_HOST"
	EnvServerPort            = "VITALIS_SERVER_PORT"
	EnvServerReadTimeout     = "VITALIS_SERVER_READ_TIMEOUT"
	EnvServerWriteTimeout    = "VITALIS_SERVER_WRITE_TIMEOUT"
	EnvServerShutdownTimeout = "VITALIS_SERVER_SHUTDOWN_TIMEOUT"
)

// ServerConfig configures the HTTP listener. The write timeout covers a
// synchronous upload, so it is sized for the full pipeline.
type ServerConfig struct {
	Host            string `toml:"host"`
	Port            int    `toml:"port"`
	ReadTimeout     string `toml:"read_timeout"`
	WriteTimeout    string `toml:"write_timeout"`
	ShutdownTimeout string `toml:"shutdown_timeout"`
}

func (c *ServerConfig) Addr() string {
	return net.JoinHostPort(c.Host, strconv.Itoa(c.Port))
}

func (c *ServerConfig) ReadTimeoutDuration() time.Duration     { return duration(c.ReadTimeout) }
func (c *ServerConfig) WriteTimeoutDuration() time.Duration    { return duration(c.WriteTimeout) }
func (c *ServerConfig) ShutdownTimeoutDuration() time.Duration { return duration(c.ShutdownTimeout) }

func (c *ServerConfig) Finalize() error {
	fallback(&c.Host, "0.0.0.0")
	fallback(&c.Port, 8080)
	fallback(&c.ReadTimeout, "1m")
	fallback(&c.WriteTimeout, "15m")
	fallback(&c.ShutdownTimeout, "30s")

	fromEnv(&c.Host, EnvServerHost)
	fromEnvInt(&c.Port, EnvServerPort)
	fromEnv(&c.ReadTimeout, EnvServerReadTimeout)
	fromEnv(&c.WriteTimeout, EnvServerWriteTimeout)
	fromEnv(&c.ShutdownTimeout, EnvServerShutdownTimeout)

	if c.Port < 1 || c.Port > 65535 {
		return fmt.Errorf("invalid port: %d", c.Port)
	}
	return checkDurations(map[string]string{
		"read_timeout":     c.ReadTimeout,
		"write_timeout":    c.WriteTimeout,
		"shutdown_timeout": c.ShutdownTimeout,
	})
}

func (c *ServerConfig) Merge(o *ServerConfig) {
	overlay(&c.Host, o.Host)
	overlay(&c.Port, o.Port)
	overlay(&c.ReadTimeout, o.ReadTimeout)
	overlay(&c.WriteTimeout, o.WriteTimeout)
	overlay(&c.ShutdownTimeout, o.ShutdownTimeout)
}
