package remote

import (
	"fmt"
	"net"
	"strconv"
	"strings"
)

// Target identifies the SSH destination the describe commands are executed on.
type Target struct {
	Username string
	Hostname string
	KeyFile  string
}

// ParseTarget splits a "username@host" string on the first '@'.
func ParseTarget(remote string, keyFile string) (Target, error) {
	username, hostname, found := strings.Cut(remote, "@")
	if !found || username == "" || hostname == "" {
		return Target{}, fmt.Errorf("%w: '%v' should be of the format username@host, example ubuntu@127.0.0.1",
			ErrInvalidRemoteFormat, remote)
	}

	return Target{
		Username: username,
		Hostname: hostname,
		KeyFile:  keyFile,
	}, nil
}

// Address returns host:port. A port that is part of the hostname wins over defaultPort.
func (t Target) Address(defaultPort int) string {
	if _, _, err := net.SplitHostPort(t.Hostname); err == nil {
		return t.Hostname
	}
	return net.JoinHostPort(strings.Trim(t.Hostname, "[]"), strconv.Itoa(defaultPort))
}

func (t Target) String() string {
	return t.Username + "@" + t.Hostname
}
