package render

import "fmt"

type Config struct {
	// Format is the table format used for one-shot and headless output.
	Format string `koanf:"tablefmt"`
}

func (c *Config) SetDefaults() {
	c.Format = string(FormatPlain)
}

func (c *Config) Validate() error {
	if Format(c.Format).IsUnknown() {
		return fmt.Errorf("invalid table format '%v' specified. Valid formats are: %v", c.Format, SupportedFormats())
	}
	return nil
}
