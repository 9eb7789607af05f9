package config

import (
	"fmt"
	"time"
)

type TelemetryConfig struct {
	Traces TracesConfig `koanf:"traces"`
}

// TracesConfig enables span export to an OTLP/HTTP collector.
type TracesConfig struct {
	Enabled  bool           `koanf:"enabled"`
	OtlpHttp OtlpHttpConfig `koanf:"otlphttp"`
}

type OtlpHttpConfig struct {
	Endpoint string        `koanf:"endpoint"`
	Insecure bool          `koanf:"insecure"`
	Timeout  time.Duration `koanf:"timeout"`
}

func (c *TelemetryConfig) String() string {
	return Section("Telemetry",
		"traces.enabled", c.Traces.Enabled,
		"traces.otlphttp.endpoint", c.Traces.OtlpHttp.Endpoint,
		"traces.otlphttp.insecure", c.Traces.OtlpHttp.Insecure,
		"traces.otlphttp.timeout", c.Traces.OtlpHttp.Timeout,
	)
}

// Validate checks the exporter settings only when traces are enabled.
func (c *TelemetryConfig) Validate() error {
	if !c.Traces.Enabled {
		return nil
	}
	switch {
	case c.Traces.OtlpHttp.Endpoint == "":
		return fmt.Errorf("OTel endpoint is not configured")
	case c.Traces.OtlpHttp.Timeout <= 0:
		return fmt.Errorf("telemetry timeout must be greater than 0")
	}
	return nil
}
