package kafka

import (
	"fmt"
	"strings"
)

type Config struct {
	// BootstrapServer is passed verbatim to --bootstrap-server on the remote host (e. g. "localhost:9092").
	BootstrapServer string `koanf:"bootstrapServer"`

	// Groups are the consumer groups that shall be described. One command is issued per group.
	Groups []string `koanf:"groups"`

	// CommandBinary is the name or path of the consumer groups tool on the remote host.
	CommandBinary string `koanf:"commandBinary"`

	// Parser selects how the describe output is read, see NewParser.
	Parser string `koanf:"parser"`
}

func (c *Config) SetDefaults() {
	c.CommandBinary = DefaultCommandBinary
	c.Parser = ParserFixedColumns
}

func (c *Config) Validate() error {
	if strings.TrimSpace(c.BootstrapServer) == "" {
		return fmt.Errorf("no bootstrap server specified")
	}
	if len(c.Groups) == 0 {
		return fmt.Errorf("no consumer groups specified, at least one must be configured")
	}
	for i, group := range c.Groups {
		if strings.TrimSpace(group) == "" {
			return fmt.Errorf("consumer group at index %d is empty", i)
		}
	}
	if strings.TrimSpace(c.CommandBinary) == "" {
		return fmt.Errorf("no command binary specified")
	}

	return ValidateParser(c.Parser)
}
