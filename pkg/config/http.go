package config

import (
	"fmt"
	"time"
)

// HTTPConfig is the public listener of the storefront API.
type HTTPConfig struct {
	Port           int `koanf:"port"`
	MaxHeaderBytes int `koanf:"maxheaderbytes"`
	Timeout        struct {
		Read       time.Duration `koanf:"read"`
		Write      time.Duration `koanf:"write"`
		Idle       time.Duration `koanf:"idle"`
		ReadHeader time.Duration `koanf:"readheader"`
	} `koanf:"timeout"`
}

// Addr returns the listen address for Port on all interfaces.
func (c *HTTPConfig) Addr() string {
	return fmt.Sprintf(":%d", c.Port)
}

func (c *HTTPConfig) String() string {
	return Section("Server",
		"port", c.Port,
		"maxheaderbytes", c.MaxHeaderBytes,
		"timeout.read", c.Timeout.Read,
		"timeout.write", c.Timeout.Write,
		"timeout.idle", c.Timeout.Idle,
		"timeout.readheader", c.Timeout.ReadHeader,
	)
}

func (c *HTTPConfig) Validate() error {
	if c.Port <= 0 || c.Port > 65535 {
		return fmt.Errorf("invalid HTTP server port: %d", c.Port)
	}
	timeouts := []struct {
		name  string
		value time.Duration
	}{
		{"read", c.Timeout.Read},
		{"write", c.Timeout.Write},
		{"idle", c.Timeout.Idle},
		{"read header", c.Timeout.ReadHeader},
	}
	for _, t := range timeouts {
		if t.value <= 0 {
			return fmt.Errorf("invalid HTTP server %s timeout: %v", t.name, t.value)
		}
	}
	return nil
}
