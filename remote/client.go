package remote

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net"
	"os"
	"time"

	"go.uber.org/zap"
	"golang.org/x/crypto/ssh"
)

// CommandOutput is the fully drained output of a single remote command.
type CommandOutput struct {
	Stdout     []byte
	Stderr     []byte
	ExitStatus int
}

// Client runs commands on an established connection. It is owned by exactly one Execute call.
type Client interface {
	Run(ctx context.Context, command string) (CommandOutput, error)
	Close() error
}

// Dialer opens the connection a batch runs on.
type Dialer interface {
	Dial(ctx context.Context, target Target) (Client, error)
	// Address returns the host:port the dialer connects to for target.
	Address(target Target) string
}

// SSHDialer authenticates with a private key file and trusts unknown host keys on first use.
type SSHDialer struct {
	cfg    Config
	logger *zap.Logger
}

func NewSSHDialer(cfg Config, logger *zap.Logger) *SSHDialer {
	return &SSHDialer{
		cfg:    cfg,
		logger: logger.Named("ssh"),
	}
}

func (d *SSHDialer) Address(target Target) string {
	return target.Address(d.cfg.Port)
}

func (d *SSHDialer) Dial(ctx context.Context, target Target) (Client, error) {
	address := d.Address(target)
	connErr := func(err error) error {
		return &ConnectionError{Address: address, Err: err}
	}

	signer, err := loadSigner(target.KeyFile, d.cfg.KeyPassphrase)
	if err != nil {
		return nil, connErr(err)
	}
	hostKeyCallback, err := trustOnFirstUse(d.cfg.KnownHostsFile, d.logger)
	if err != nil {
		return nil, connErr(err)
	}

	clientCfg := &ssh.ClientConfig{
		User:            target.Username,
		Auth:            []ssh.AuthMethod{ssh.PublicKeys(signer)},
		HostKeyCallback: hostKeyCallback,
		Timeout:         d.cfg.ConnectTimeout,
	}

	dialer := net.Dialer{Timeout: d.cfg.ConnectTimeout}
	conn, err := dialer.DialContext(ctx, "tcp", address)
	if err != nil {
		return nil, connErr(err)
	}

	// The handshake itself is not context aware, a deadline on the raw connection covers it.
	if deadline, ok := ctx.Deadline(); ok {
		_ = conn.SetDeadline(deadline)
	} else {
		_ = conn.SetDeadline(time.Now().Add(d.cfg.ConnectTimeout))
	}
	sshConn, chans, reqs, err := ssh.NewClientConn(conn, address, clientCfg)
	if err != nil {
		_ = conn.Close()
		return nil, connErr(err)
	}
	_ = conn.SetDeadline(time.Time{})

	d.logger.Info("ssh connection established",
		zap.String("address", address),
		zap.String("username", target.Username),
		zap.String("server_version", string(sshConn.ServerVersion())))

	return &sshClient{client: ssh.NewClient(sshConn, chans, reqs)}, nil
}

func loadSigner(keyFile string, passphrase string) (ssh.Signer, error) {
	pemBytes, err := os.ReadFile(keyFile)
	if err != nil {
		return nil, fmt.Errorf("failed to read private key: %w", err)
	}

	var signer ssh.Signer
	if passphrase != "" {
		signer, err = ssh.ParsePrivateKeyWithPassphrase(pemBytes, []byte(passphrase))
	} else {
		signer, err = ssh.ParsePrivateKey(pemBytes)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to parse private key '%v': %w", keyFile, err)
	}

	return signer, nil
}

type sshClient struct {
	client *ssh.Client
}

// Run opens a new session channel on the shared connection and blocks until stdout and stderr reached EOF.
func (c *sshClient) Run(ctx context.Context, command string) (CommandOutput, error) {
	session, err := c.client.NewSession()
	if err != nil {
		return CommandOutput{}, fmt.Errorf("failed to open ssh session: %w", err)
	}
	defer session.Close()

	var stdout, stderr bytes.Buffer
	session.Stdout = &stdout
	session.Stderr = &stderr

	done := make(chan error, 1)
	go func() {
		done <- session.Run(command)
	}()

	select {
	case <-ctx.Done():
		_ = session.Signal(ssh.SIGKILL)
		_ = session.Close()
		<-done
		return CommandOutput{}, ctx.Err()
	case err = <-done:
	}

	out := CommandOutput{
		Stdout: stdout.Bytes(),
		Stderr: stderr.Bytes(),
	}

	var exitErr *ssh.ExitError
	if errors.As(err, &exitErr) {
		out.ExitStatus = exitErr.ExitStatus()
		return out, nil
	}
	if err != nil {
		return CommandOutput{}, err
	}

	return out, nil
}

func (c *sshClient) Close() error {
	return c.client.Close()
}
