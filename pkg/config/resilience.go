package config

import (
	"fmt"
	"time"
)

type CircuitBreakerConfig struct {
	ConsecutiveFailures uint32        `koanf:"consecutivefailures"`
	OpenTimeout         time.Duration `koanf:"opentimeout"`
}

const defaultConsecutiveFailures = 3
const defaultOpenTimeout = 30 * time.Second

func (c *CircuitBreakerConfig) String() string {
	return Section("Circuit Breaker", "consecutivefailures", c.ConsecutiveFailures, "opentimeout", c.OpenTimeout)
}

// Validate fills in defaults for unset values.
func (c *CircuitBreakerConfig) Validate() error {
	if c.ConsecutiveFailures == 0 {
		c.ConsecutiveFailures = defaultConsecutiveFailures
	}
	if c.OpenTimeout < 0 {
		return fmt.Errorf("circuit_breaker.open_timeout must not be negative")
	}
	if c.OpenTimeout == 0 {
		c.OpenTimeout = defaultOpenTimeout
	}
	return nil
}
