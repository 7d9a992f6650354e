package remote

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"

	"github.com/cloudhut/kafka-lag-monitor/progress"
	"go.uber.org/zap"
)

// maxLineLength is the longest stdout line a command may print.
const maxLineLength = 1024 * 1024

// Result is the outcome of one command of a batch. A result with a non-empty Stderr is a failure.
type Result struct {
	Index      int
	Command    string
	Lines      []string
	Stderr     string
	ExitStatus int
}

func (r Result) Failed() bool {
	return len(r.Stderr) > 0
}

// Err returns a CommandError for failed results and nil otherwise.
func (r Result) Err() error {
	if !r.Failed() {
		return nil
	}
	return &CommandError{Index: r.Index, Command: r.Command, Stderr: r.Stderr}
}

// Executor runs a batch of commands sequentially on a single connection.
type Executor struct {
	dialer Dialer
	policy BatchPolicy
	logger *zap.Logger
}

func NewExecutor(dialer Dialer, policy BatchPolicy, logger *zap.Logger) *Executor {
	return &Executor{
		dialer: dialer,
		policy: policy,
		logger: logger.Named("executor"),
	}
}

// Execute dials the target once, runs the commands in order and hands the collected results to the batch policy.
// The sink is advanced once after each completed command. The connection is closed before Execute returns.
func (e *Executor) Execute(ctx context.Context, target Target, commands []string, sink progress.Sink) ([]Result, error) {
	if sink == nil {
		sink = progress.Nop{}
	}

	client, err := e.dialer.Dial(ctx, target)
	if err != nil {
		var connErr *ConnectionError
		if errors.As(err, &connErr) {
			return nil, err
		}
		return nil, &ConnectionError{Address: e.dialer.Address(target), Err: err}
	}
	defer func() {
		if err := client.Close(); err != nil {
			e.logger.Debug("failed to close remote connection", zap.Error(err))
		}
	}()

	results := make([]Result, 0, len(commands))
	for i, command := range commands {
		if err := ctx.Err(); err != nil {
			return nil, fmt.Errorf("batch aborted before command %d: %w", i+1, err)
		}

		e.logger.Info("running command", zap.Int("index", i), zap.String("command", command))
		out, err := client.Run(ctx, command)
		if err != nil {
			return nil, fmt.Errorf("failed to run command %q: %w", command, err)
		}

		lines, err := splitLines(out.Stdout)
		if err != nil {
			return nil, fmt.Errorf("failed to read output of command %q: %w", command, err)
		}

		result := Result{
			Index:      i,
			Command:    command,
			Lines:      lines,
			Stderr:     string(out.Stderr),
			ExitStatus: out.ExitStatus,
		}
		if result.ExitStatus != 0 && !result.Failed() {
			e.logger.Warn("command exited with non-zero status but wrote nothing to stderr",
				zap.String("command", command),
				zap.Int("exit_status", result.ExitStatus))
		}
		results = append(results, result)
		sink.Advance()

		if e.policy.Abort(result) {
			e.logger.Info("aborting batch", zap.String("command", command), zap.String("stderr", result.Stderr))
			break
		}
	}

	return e.policy.Resolve(results)
}

func splitLines(b []byte) ([]string, error) {
	lines := make([]string, 0, bytes.Count(b, []byte{'\n'})+1)
	scanner := bufio.NewScanner(bytes.NewReader(b))
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineLength)
	for scanner.Scan() {
		lines = append(lines, scanner.Text())
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return lines, nil
}
