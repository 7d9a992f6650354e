package minion

import (
	"context"
	"fmt"
	"io"

	"github.com/cloudhut/kafka-lag-monitor/kafka"
	"github.com/cloudhut/kafka-lag-monitor/progress"
	"github.com/cloudhut/kafka-lag-monitor/remote"
)

// Output is the raw stdout of one describe command. Source names where it came from for error messages.
type Output struct {
	Source string
	Lines  []string
}

// Source produces the raw describe outputs of one pipeline run.
type Source interface {
	Fetch(ctx context.Context, sink progress.Sink) ([]Output, error)
}

// RemoteSource runs the describe commands on a remote host.
type RemoteSource struct {
	executor *remote.Executor
	target   remote.Target
	commands []string
}

func NewRemoteSource(executor *remote.Executor, target remote.Target, commands []string) *RemoteSource {
	return &RemoteSource{
		executor: executor,
		target:   target,
		commands: commands,
	}
}

func (s *RemoteSource) Commands() []string {
	return s.commands
}

func (s *RemoteSource) Fetch(ctx context.Context, sink progress.Sink) ([]Output, error) {
	results, err := s.executor.Execute(ctx, s.target, s.commands, sink)
	if err != nil {
		return nil, err
	}

	outputs := make([]Output, len(results))
	for i, result := range results {
		outputs[i] = Output{Source: fmt.Sprintf("%q", result.Command), Lines: result.Lines}
	}
	return outputs, nil
}

// ReaderSource reads describe output that has been produced elsewhere, e. g. piped into stdin. The stream may hold
// the concatenated output of several describe commands, it is split back into one Output per command. The reader is
// consumed by the first Fetch.
type ReaderSource struct {
	name   string
	reader io.Reader
}

func NewReaderSource(name string, reader io.Reader) *ReaderSource {
	return &ReaderSource{name: name, reader: reader}
}

func (s *ReaderSource) Fetch(_ context.Context, sink progress.Sink) ([]Output, error) {
	lines, err := kafka.ReadLines(s.reader)
	if err != nil {
		return nil, err
	}
	if sink != nil {
		sink.Advance()
	}

	blocks := kafka.SplitOutputs(lines)
	if len(blocks) <= 1 {
		return []Output{{Source: s.name, Lines: lines}}, nil
	}
	outputs := make([]Output, len(blocks))
	for i, block := range blocks {
		outputs[i] = Output{Source: fmt.Sprintf("%v (block %d)", s.name, i+1), Lines: block}
	}
	return outputs, nil
}
