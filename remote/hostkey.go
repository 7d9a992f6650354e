package remote

import (
	"errors"
	"fmt"
	"net"
	"os"
	"path/filepath"
	"sync"

	"go.uber.org/zap"
	"golang.org/x/crypto/ssh"
	"golang.org/x/crypto/ssh/knownhosts"
)

var knownHostsMutex sync.Mutex

// trustOnFirstUse returns a host key callback that accepts and records keys of hosts that are not yet present in
// the known hosts file. Keys that differ from a recorded key are rejected.
func trustOnFirstUse(knownHostsFile string, logger *zap.Logger) (ssh.HostKeyCallback, error) {
	if err := ensureFile(knownHostsFile); err != nil {
		return nil, fmt.Errorf("failed to prepare known hosts file: %w", err)
	}

	return func(hostname string, remote net.Addr, key ssh.PublicKey) error {
		knownHostsMutex.Lock()
		defer knownHostsMutex.Unlock()

		// The file is re-read on every call so that keys recorded by earlier calls are honored.
		verify, err := knownhosts.New(knownHostsFile)
		if err != nil {
			return fmt.Errorf("failed to read known hosts file: %w", err)
		}

		err = verify(hostname, remote, key)
		if err == nil {
			return nil
		}

		var keyErr *knownhosts.KeyError
		if !errors.As(err, &keyErr) || len(keyErr.Want) > 0 {
			return err
		}

		line := knownhosts.Line([]string{knownhosts.Normalize(hostname)}, key)
		if err := appendLine(knownHostsFile, line); err != nil {
			return fmt.Errorf("failed to record host key: %w", err)
		}
		logger.Warn("permanently added host key to known hosts",
			zap.String("hostname", hostname),
			zap.String("key_type", key.Type()),
			zap.String("fingerprint", ssh.FingerprintSHA256(key)),
			zap.String("known_hosts_file", knownHostsFile))

		return nil
	}, nil
}

func ensureFile(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return err
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_RDONLY, 0o600)
	if err != nil {
		return err
	}
	return f.Close()
}

func appendLine(path string, line string) error {
	f, err := os.OpenFile(path, os.O_APPEND|os.O_WRONLY, 0o600)
	if err != nil {
		return err
	}
	if _, err := f.WriteString(line + "\n"); err != nil {
		_ = f.Close()
		return err
	}
	return f.Close()
}
