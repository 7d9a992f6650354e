package logging

import (
	"fmt"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

const (
	FormatConsole = "console"
	FormatJSON    = "json"
)

type Config struct {
	Level string `koanf:"level"`

	// Format is the log encoding, either "console" or "json".
	Format string `koanf:"format"`

	// File redirects logs into the given file. Logs are written to stderr if empty, except for the live view which
	// discards them.
	File string `koanf:"file"`
}

func (c *Config) SetDefaults() {
	c.Level = "warn"
	c.Format = FormatConsole
}

func (c *Config) Validate() error {
	level := zap.NewAtomicLevel()
	err := level.UnmarshalText([]byte(c.Level))
	if err != nil {
		return fmt.Errorf("failed to parse logger level: %w", err)
	}

	switch c.Format {
	case FormatConsole, FormatJSON:
	default:
		return fmt.Errorf("invalid log format '%v'. Valid formats are '%v' or '%v'", c.Format, FormatConsole, FormatJSON)
	}

	return nil
}

// EnableVerbose lowers the level to info unless a more verbose level has been configured already.
func (c *Config) EnableVerbose() {
	level, err := zapcore.ParseLevel(c.Level)
	if err != nil {
		// Reported by Validate
		return
	}
	if level > zapcore.InfoLevel {
		c.Level = zapcore.InfoLevel.String()
	}
}
