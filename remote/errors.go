package remote

import (
	"errors"
	"fmt"
	"strings"
)

// ErrInvalidRemoteFormat is returned if a target is not of the form username@host.
var ErrInvalidRemoteFormat = errors.New("invalid remote format")

// ConnectionError is returned if the SSH connection could not be established. No command has been run.
type ConnectionError struct {
	Address string
	Err     error
}

func (e *ConnectionError) Error() string {
	return fmt.Sprintf("failed to connect to '%v': %v", e.Address, e.Err)
}

func (e *ConnectionError) Unwrap() error {
	return e.Err
}

// CommandError is returned if a command in the batch wrote to stderr.
type CommandError struct {
	Index   int
	Command string
	Stderr  string
}

func (e *CommandError) Error() string {
	return fmt.Sprintf("remote command %d (%q) failed: %v", e.Index+1, e.Command, strings.TrimSpace(e.Stderr))
}
