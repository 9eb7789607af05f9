// Package config holds the storefront service configuration.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/mugbeans/storefront/pkg/config"
	"github.com/mugbeans/storefront/pkg/config/configloader"
	"github.com/shopspring/decimal"
)

var _ configloader.Validator = (*Config)(nil)

// Storage drivers.
const (
	DriverMemory   = "memory"
	DriverPostgres = "postgres"
)

type Config struct {
	HTTPServer config.HTTPConfig      `koanf:"server"`
	Log        config.LogConfig       `koanf:"log"`
	PProf      config.PProfConfig     `koanf:"pprof"`
	Shutdown   config.ShutdownConfig  `koanf:"shutdown"`
	Nats       config.NATSConfig      `koanf:"nats"`
	Telemetry  config.TelemetryConfig `koanf:"telemetry"`
	Storage    StorageConfig          `koanf:"storage"`
	Catalog    CatalogConfig          `koanf:"catalog"`
	Storefront StorefrontConfig       `koanf:"storefront"`
}

type StorageConfig struct {
	Driver   string                `koanf:"driver"`
	Database config.DatabaseConfig `koanf:"database"`
}

type CatalogConfig struct {
	Source         string                      `koanf:"source"`
	Timeout        time.Duration               `koanf:"timeout"`
	CircuitBreaker config.CircuitBreakerConfig `koanf:"circuitbreaker"`
}

type StorefrontConfig struct {
	ShippingFee string        `koanf:"shippingfee"`
	Debounce    time.Duration `koanf:"debounce"`
	SessionIdle time.Duration `koanf:"sessionidle"`
}

// Fee returns the parsed shipping fee. Validate guarantees it parses.
func (c *StorefrontConfig) Fee() decimal.Decimal {
	fee, _ := decimal.NewFromString(c.ShippingFee)
	return fee
}

// Defaults returns the values used for keys no other source sets.
func Defaults() map[string]any {
	return map[string]any{
		"server.port":               8080,
		"server.maxheaderbytes":     1 << 20,
		"server.timeout.read":       "5s",
		"server.timeout.write":      "10s",
		"server.timeout.idle":       "60s",
		"server.timeout.readheader": "2s",
		"log.level":                 "info",
		"log.format":                "json",
		"pprof.addr":                ":6060",
		"shutdown.timeout":          "5s",
		"nats.timeout":              "5s",
		"nats.stream":               "STOREFRONT",
		"storage.driver":            DriverMemory,
		"storage.database.timeout":  "10s",
		"catalog.source":            "data/products.json",
		"catalog.timeout":           "5s",
		"storefront.shippingfee":    "5.00",
		"storefront.debounce":       "300ms",
		"storefront.sessionidle":    "30m",
	}
}

func (c *Config) String() string {
	var b strings.Builder

	b.WriteString(c.HTTPServer.String())
	b.WriteString(c.Log.String())
	b.WriteString(c.PProf.String())
	b.WriteString(c.Shutdown.String())
	b.WriteString(c.Nats.String())
	b.WriteString(c.Telemetry.String())

	b.WriteString(config.Section("Storage", "storage.driver", c.Storage.Driver))
	if c.Storage.Driver == DriverPostgres {
		b.WriteString(c.Storage.Database.String())
	}
	b.WriteString(config.Section("Catalog", "catalog.source", c.Catalog.Source, "catalog.timeout", c.Catalog.Timeout))
	b.WriteString(c.Catalog.CircuitBreaker.String())
	b.WriteString(config.Section("Application Behavior",
		"storefront.shippingfee", c.Storefront.ShippingFee,
		"storefront.debounce", c.Storefront.Debounce,
		"storefront.sessionidle", c.Storefront.SessionIdle,
	))

	return b.String()
}

// Validate checks if the configuration values are valid
func (c *Config) Validate() error {
	if err := c.HTTPServer.Validate(); err != nil {
		return err
	}
	if err := c.Log.Validate(); err != nil {
		return err
	}
	if err := c.PProf.Validate(); err != nil {
		return err
	}
	if err := c.Shutdown.Validate(); err != nil {
		return err
	}
	if err := c.Nats.Validate(); err != nil {
		return err
	}
	if err := c.Telemetry.Validate(); err != nil {
		return err
	}

	switch c.Storage.Driver {
	case DriverMemory:
	case DriverPostgres:
		if err := c.Storage.Database.Validate(); err != nil {
			return err
		}
	default:
		return fmt.Errorf("invalid storage driver: %q", c.Storage.Driver)
	}

	if c.Catalog.Source == "" {
		return fmt.Errorf("catalog source is not configured")
	}
	if c.Catalog.Timeout <= 0 {
		return fmt.Errorf("invalid catalog timeout: %v", c.Catalog.Timeout)
	}
	if err := c.Catalog.CircuitBreaker.Validate(); err != nil {
		return err
	}

	fee, err := decimal.NewFromString(c.Storefront.ShippingFee)
	if err != nil {
		return fmt.Errorf("invalid shipping fee %q: %w", c.Storefront.ShippingFee, err)
	}
	if fee.IsNegative() {
		return fmt.Errorf("shipping fee must not be negative: %s", c.Storefront.ShippingFee)
	}
	if c.Storefront.Debounce <= 0 {
		return fmt.Errorf("invalid search debounce: %v", c.Storefront.Debounce)
	}
	if c.Storefront.SessionIdle < 0 {
		return fmt.Errorf("session idle timeout must not be negative: %v", c.Storefront.SessionIdle)
	}
	return nil
}
