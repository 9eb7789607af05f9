package config

import "fmt"

// Log output formats.
const (
	LogFormatJSON = "json"
	LogFormatText = "text"
)

type LogConfig struct {
	Level  string `koanf:"level"`
	Format string `koanf:"format"`
}

func (c *LogConfig) String() string {
	return Section("Log", "level", c.Level, "format", c.Format)
}

// Validate rejects unknown levels and formats. Empty values select info and json.
func (c *LogConfig) Validate() error {
	switch c.Level {
	case "", "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("invalid log level: %s", c.Level)
	}
	switch c.Format {
	case "", LogFormatJSON, LogFormatText:
	default:
		return fmt.Errorf("invalid log format: %s", c.Format)
	}
	return nil
}
