package remote

import (
	"fmt"
	"os"
	"path/filepath"
	"time"
)

const (
	FailurePolicyAllOrNothing string = "allOrNothing"
	FailurePolicyBestEffort   string = "bestEffort"
)

type Config struct {
	// Target is the SSH destination in the format username@host (optionally username@host:port).
	Target string `koanf:"target"`

	// KeyFile is the path to the private key used to authenticate against the target.
	KeyFile       string `koanf:"keyFile"`
	KeyPassphrase string `koanf:"keyPassphrase"`

	// Port is used when the target does not carry an explicit port.
	Port           int           `koanf:"port"`
	ConnectTimeout time.Duration `koanf:"connectTimeout"`

	// KnownHostsFile stores the host keys that have been trusted on first use.
	KnownHostsFile string `koanf:"knownHostsFile"`

	// FailurePolicy decides what happens to a batch once a command writes to stderr.
	FailurePolicy string `koanf:"failurePolicy"`
}

func (c *Config) SetDefaults() {
	c.Port = 22
	c.ConnectTimeout = 10 * time.Second
	c.FailurePolicy = FailurePolicyAllOrNothing

	home, err := os.UserHomeDir()
	if err == nil {
		c.KnownHostsFile = filepath.Join(home, ".ssh", "known_hosts")
	}
}

func (c *Config) Validate() error {
	if c.Target == "" {
		return fmt.Errorf("no remote target specified, expected the format username@host")
	}
	if _, err := ParseTarget(c.Target, c.KeyFile); err != nil {
		return err
	}
	if c.KeyFile == "" {
		return fmt.Errorf("no private key file specified")
	}
	if c.Port <= 0 || c.Port > 65535 {
		return fmt.Errorf("invalid ssh port '%v'", c.Port)
	}
	if c.ConnectTimeout <= 0 {
		return fmt.Errorf("connect timeout must be greater than zero")
	}
	if c.KnownHostsFile == "" {
		return fmt.Errorf("no known hosts file specified and home directory could not be determined")
	}

	switch c.FailurePolicy {
	case FailurePolicyAllOrNothing, FailurePolicyBestEffort:
	default:
		return fmt.Errorf("invalid failure policy '%v' specified. Valid policies are '%v' or '%v'",
			c.FailurePolicy,
			FailurePolicyAllOrNothing,
			FailurePolicyBestEffort)
	}

	return nil
}
