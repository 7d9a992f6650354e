package tui

import (
	"fmt"
	"time"
)

type Config struct {
	// RefreshInterval is the pause between automatic refreshes while watching. 0 disables automatic refreshes in the
	// live view, refreshes can still be triggered by pressing 'r'.
	RefreshInterval time.Duration `koanf:"refreshInterval"`

	// Headless prints a table after every refresh instead of starting the live view.
	Headless bool `koanf:"headless"`
}

func (c *Config) SetDefaults() {
	c.RefreshInterval = 30 * time.Second
}

func (c *Config) Validate() error {
	if c.RefreshInterval < 0 {
		return fmt.Errorf("refresh interval must not be negative, given value was '%v'", c.RefreshInterval)
	}
	if c.Headless && c.RefreshInterval == 0 {
		return fmt.Errorf("headless watch mode requires a refresh interval")
	}
	return nil
}
