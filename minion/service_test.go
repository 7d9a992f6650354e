package minion

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/cloudhut/kafka-lag-monitor/kafka"
	"github.com/cloudhut/kafka-lag-monitor/progress"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type staticSource struct {
	outputs []Output
	err     error
}

func (s staticSource) Fetch(_ context.Context, sink progress.Sink) ([]Output, error) {
	if s.err != nil {
		return nil, s.err
	}
	for range s.outputs {
		sink.Advance()
	}
	return s.outputs, nil
}

// blockingSource blocks every Fetch until release is closed.
type blockingSource struct {
	started chan struct{}
	release chan struct{}
}

func (s *blockingSource) Fetch(ctx context.Context, _ progress.Sink) ([]Output, error) {
	close(s.started)
	select {
	case <-s.release:
	case <-ctx.Done():
		return nil, ctx.Err()
	}
	return []Output{}, nil
}

func newTestService(t *testing.T, source Source) *Service {
	t.Helper()
	return newTestServiceWithParser(t, source, kafka.NewFixedColumnParser())
}

func newTestServiceWithParser(t *testing.T, source Source, parser kafka.Parser) *Service {
	t.Helper()
	cfg := Config{}
	cfg.SetDefaults()
	svc, err := NewService(cfg, zap.NewNop(), source, parser)
	require.NoError(t, err)
	return svc
}

func describeOutput(rows ...string) []string {
	header := "GROUP           TOPIC           PARTITION  CURRENT-OFFSET  LOG-END-OFFSET  LAG             CONSUMER-ID     HOST            CLIENT-ID"
	return append([]string{"", header}, rows...)
}

func TestServiceCollect(t *testing.T) {
	source := staticSource{outputs: []Output{
		{Source: "g1", Lines: describeOutput(
			"g1 t1 0 100 105 5 consumer-1 /10.0.0.1 client-1",
			"g1 t1 1 100 107 7 consumer-1 /10.0.0.1 client-1",
		)},
		{Source: "g2", Lines: describeOutput(
			"g2 t2 0 0 9 9 - - -",
		)},
	}}
	svc := newTestService(t, source)

	advances := 0
	rows, err := svc.Collect(context.Background(), progress.SinkFunc(func() { advances++ }))
	require.NoError(t, err)

	assert.Equal(t, 2, advances)
	assert.Equal(t, []Row{
		{Group: "g2", Topic: "t2", PartitionCount: 1, LagMean: 9, LagMax: 9, LagSum: 9},
		{Group: "g1", Topic: "t1", PartitionCount: 2, LagMean: 6, LagMax: 7, LagSum: 12},
	}, rows)

	stored := svc.Storage().Rows()
	assert.Len(t, stored, 2)
	assert.False(t, svc.Storage().LastSuccess().IsZero())
	assert.NoError(t, svc.Storage().LastError())
}

func TestServiceCollectConcatenatedOutputs(t *testing.T) {
	input := strings.Join([]string{
		"",
		"GROUP TOPIC PARTITION CURRENT-OFFSET LOG-END-OFFSET LAG CONSUMER-ID HOST CLIENT-ID",
		"g1 t1 0 10 15 5 - - -",
		"",
		"GROUP TOPIC PARTITION CURRENT-OFFSET LOG-END-OFFSET LAG CONSUMER-ID HOST CLIENT-ID",
		"g2 t1 0 10 11 1 - - -",
		"",
	}, "\n")
	svc := newTestService(t, NewReaderSource("stdin", strings.NewReader(input)))

	rows, err := svc.Collect(context.Background(), progress.Nop{})
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, "g1", rows[0].Group)
	assert.Equal(t, "g2", rows[1].Group)
}

func TestServiceCollectInteriorBlankLineKeepsRows(t *testing.T) {
	source := staticSource{outputs: []Output{
		{Source: `"describe g1"`, Lines: []string{"header1", "header2", "g1 t1 0 - - 5", "", "g1 t1 1 - - 7"}},
	}}
	svc := newTestService(t, source)

	rows, err := svc.Collect(context.Background(), progress.Nop{})
	require.NoError(t, err)
	assert.Equal(t, []Row{{Group: "g1", Topic: "t1", PartitionCount: 2, LagMean: 6, LagMax: 7, LagSum: 12}}, rows)
}

func TestServiceCollectMalformedLineAfterBlankLineFails(t *testing.T) {
	source := staticSource{outputs: []Output{
		{Source: `"describe g1"`, Lines: describeOutput("g1 t1 0 1 6 5", "", "Error: describe failed halfway")},
	}}
	svc := newTestService(t, source)

	rows, err := svc.Collect(context.Background(), progress.Nop{})
	require.Error(t, err)
	assert.Nil(t, rows)

	var parseErr *kafka.ParseError
	require.True(t, errors.As(err, &parseErr))
	assert.Equal(t, 5, parseErr.Line)
	assert.Contains(t, err.Error(), `"describe g1"`)
}

func TestServiceCollectGroupWithoutActiveMembers(t *testing.T) {
	lines := []string{
		"",
		"Consumer group 'g1' has no active members.",
		"",
		"GROUP TOPIC PARTITION CURRENT-OFFSET LOG-END-OFFSET LAG CONSUMER-ID HOST CLIENT-ID",
		"g1 t1 0 10 14 4 - - -",
	}
	expected := []Row{{Group: "g1", Topic: "t1", PartitionCount: 1, LagMean: 4, LagMax: 4, LagSum: 4}}

	t.Run("column names parser", func(t *testing.T) {
		svc := newTestServiceWithParser(t, staticSource{outputs: []Output{{Source: "g1", Lines: lines}}}, kafka.ColumnNameParser{})
		rows, err := svc.Collect(context.Background(), progress.Nop{})
		require.NoError(t, err)
		assert.Equal(t, expected, rows)
	})

	t.Run("stdin blocks", func(t *testing.T) {
		svc := newTestService(t, NewReaderSource("stdin", strings.NewReader(strings.Join(lines, "\n"))))
		rows, err := svc.Collect(context.Background(), progress.Nop{})
		require.NoError(t, err)
		assert.Equal(t, expected, rows)
	})
}

func TestReaderSourceSplitsBlocks(t *testing.T) {
	input := "\nGROUP TOPIC\ng1 t1 0 - - 5\n\nGROUP TOPIC\ng2 t1 0 - - 1\n"
	var advances int

	outputs, err := NewReaderSource("stdin", strings.NewReader(input)).Fetch(context.Background(), progress.SinkFunc(func() { advances++ }))
	require.NoError(t, err)

	assert.Equal(t, 1, advances)
	assert.Equal(t, []Output{
		{Source: "stdin (block 1)", Lines: []string{"", "GROUP TOPIC", "g1 t1 0 - - 5"}},
		{Source: "stdin (block 2)", Lines: []string{"", "GROUP TOPIC", "g2 t1 0 - - 1"}},
	}, outputs)
}

func TestServiceCollectParseErrorNamesSource(t *testing.T) {
	source := staticSource{outputs: []Output{
		{Source: `"describe g1"`, Lines: describeOutput("g1 t1 0 - - -")},
	}}
	svc := newTestService(t, source)

	rows, err := svc.Collect(context.Background(), progress.Nop{})
	require.Error(t, err)
	assert.Nil(t, rows)
	assert.Contains(t, err.Error(), `"describe g1"`)

	var parseErr *kafka.ParseError
	require.True(t, errors.As(err, &parseErr))
	assert.Equal(t, 3, parseErr.Line)

	assert.Equal(t, err, svc.Storage().LastError())
	succeeded, failed := svc.Storage().RefreshCounts()
	assert.Equal(t, int64(0), succeeded)
	assert.Equal(t, int64(1), failed)
}

func TestServiceCollectFetchError(t *testing.T) {
	fetchErr := errors.New("connection refused")
	svc := newTestService(t, staticSource{err: fetchErr})

	_, err := svc.Collect(context.Background(), progress.Nop{})
	assert.ErrorIs(t, err, fetchErr)
}

func TestServiceFailedRefreshKeepsPreviousRows(t *testing.T) {
	good := staticSource{outputs: []Output{{Source: "g1", Lines: describeOutput("g1 t1 0 1 2 1 - - -")}}}
	svc := newTestService(t, good)
	_, err := svc.Collect(context.Background(), progress.Nop{})
	require.NoError(t, err)

	svc.source = staticSource{err: errors.New("boom")}
	_, err = svc.Collect(context.Background(), progress.Nop{})
	require.Error(t, err)

	assert.Len(t, svc.Storage().Rows(), 1)
	assert.False(t, svc.Storage().LastFailure().IsZero())
}

func TestServiceRefreshRejectsConcurrentRuns(t *testing.T) {
	source := &blockingSource{started: make(chan struct{}), release: make(chan struct{})}
	svc := newTestService(t, source)

	done := make(chan error, 1)
	go func() {
		_, err := svc.Refresh(context.Background(), progress.Nop{})
		done <- err
	}()

	select {
	case <-source.started:
	case <-time.After(5 * time.Second):
		t.Fatal("refresh did not start")
	}

	assert.True(t, svc.IsRefreshing())
	_, err := svc.Refresh(context.Background(), progress.Nop{})
	assert.ErrorIs(t, err, ErrRefreshInProgress)

	close(source.release)
	require.NoError(t, <-done)
	assert.False(t, svc.IsRefreshing())
}
