package server

import (
	"fmt"
	"net"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/lakshaymaurya-felt/winsweep/internal/config"
)

// Environment variables read by ConfigFromEnv.
const (
	EnvBind          = "WINSWEEP_WEB_BIND"
	EnvAllowNonLocal = "WINSWEEP_WEB_ALLOW_NON_LOCAL"
	EnvRunTimeout    = "WINSWEEP_WEB_RUN_TIMEOUT_SECS"
)

const (
	DefaultAddr       = "127.0.0.1:7878"
	DefaultRunTimeout = 600 * time.Second

	// maxBodyBytes bounds POST bodies.
	maxBodyBytes = 32 * 1024
)

// Config holds the front end's listener settings.
type Config struct {
	Addr          string
	AllowNonLocal bool

	// RunTimeout bounds how long a request waits for a run. The run itself
	// continues after the timeout fires.
	RunTimeout time.Duration

	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	IdleTimeout  time.Duration
}

// ConfigFromEnv reads the WINSWEEP_WEB_* variables over the defaults.
func ConfigFromEnv() Config {
	cfg := Config{
		Addr:          os.Getenv(EnvBind),
		AllowNonLocal: config.EnvTruthy(EnvAllowNonLocal),
	}
	if v := strings.TrimSpace(os.Getenv(EnvRunTimeout)); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.RunTimeout = time.Duration(n) * time.Second
		}
	}
	cfg.applyDefaults()
	return cfg
}

func (c *Config) applyDefaults() {
	if c.Addr == "" {
		c.Addr = DefaultAddr
	}
	if c.RunTimeout <= 0 {
		c.RunTimeout = DefaultRunTimeout
	}
	if c.ReadTimeout <= 0 {
		c.ReadTimeout = 10 * time.Second
	}
	// A run may take up to RunTimeout before its response is written.
	if c.WriteTimeout <= 0 {
		c.WriteTimeout = c.RunTimeout + 30*time.Second
	}
	if c.IdleTimeout <= 0 {
		c.IdleTimeout = 60 * time.Second
	}
}

// CheckBind refuses a non-loopback listen address unless allowNonLocal is
// set. A bare port (":7878") binds every interface and is refused too.
func CheckBind(addr string, allowNonLocal bool) error {
	host, _, err := net.SplitHostPort(addr)
	if err != nil {
		return fmt.Errorf("invalid bind address %q: %w", addr, err)
	}
	if isLoopbackHost(host) || allowNonLocal {
		return nil
	}
	return fmt.Errorf("refusing to bind to non-loopback address %s; set %s=1 to override", addr, EnvAllowNonLocal)
}

func isLoopbackHost(host string) bool {
	if strings.EqualFold(host, "localhost") {
		return true
	}
	ip := net.ParseIP(host)
	return ip != nil && ip.IsLoopback()
}
