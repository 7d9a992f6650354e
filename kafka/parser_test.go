package kafka

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const describeOutput = `
GROUP           TOPIC           PARTITION  CURRENT-OFFSET  LOG-END-OFFSET  LAG             CONSUMER-ID                                     HOST            CLIENT-ID
orders-service  orders          0          1156            1161            5               consumer-1-8f1c2f0e-0a3c-4d6e-9d3b-2f1a3e0b7c11 /10.0.0.12      consumer-1
orders-service  orders          1          1000            1007            7               consumer-1-8f1c2f0e-0a3c-4d6e-9d3b-2f1a3e0b7c11 /10.0.0.12      consumer-1
orders-service  payments        0          20              20              0               -                                               -               -
`

func TestFixedColumnParserSkipsPreamble(t *testing.T) {
	lines := []string{"header1\n", "header2\n", "g1 t1 0 - - 5\n", "g1 t1 1 - - 7\n"}

	records, err := NewFixedColumnParser().Parse(lines)
	require.NoError(t, err)

	assert.Equal(t, []LagRecord{
		{Group: "g1", Topic: "t1", Partition: 0, Lag: 5},
		{Group: "g1", Topic: "t1", Partition: 1, Lag: 7},
	}, records)
}

func TestFixedColumnParserDescribeOutput(t *testing.T) {
	lines, err := ReadLines(stringsReader(describeOutput))
	require.NoError(t, err)

	records, err := NewFixedColumnParser().Parse(lines)
	require.NoError(t, err)

	require.Len(t, records, 3)
	assert.Equal(t, LagRecord{Group: "orders-service", Topic: "payments", Partition: 0, Lag: 0}, records[2])
}

func TestFixedColumnParserErrors(t *testing.T) {
	tt := []struct {
		TestName string
		Lines    []string
		Line     int
		Reason   string
	}{
		{"too few fields", []string{"h1", "h2", "g1 t1 0 - 5"}, 3, "expected at least 6 columns"},
		{"lag is not an integer", []string{"h1", "h2", "g1 t1 0 - - -"}, 3, "lag"},
		{"partition is not an integer", []string{"h1", "h2", "g1 t1 zero - - 5"}, 3, "partition"},
		{"error after a valid line", []string{"h1", "h2", "g1 t1 0 - - 5", "garbage"}, 4, "expected at least 6 columns"},
	}

	for _, test := range tt {
		t.Run(test.TestName, func(t *testing.T) {
			records, err := NewFixedColumnParser().Parse(test.Lines)
			assert.Nil(t, records)

			var parseErr *ParseError
			require.True(t, errors.As(err, &parseErr))
			assert.Equal(t, test.Line, parseErr.Line)
			assert.Contains(t, parseErr.Reason, test.Reason)
		})
	}
}

func TestFixedColumnParserBlankLines(t *testing.T) {
	records, err := NewFixedColumnParser().Parse([]string{"h1", "h2", "g1 t1 0 - - 5", "", "   ", "\n"})
	require.NoError(t, err)
	assert.Len(t, records, 1)

	records, err = NewFixedColumnParser().Parse([]string{"h1"})
	require.NoError(t, err)
	assert.Empty(t, records)
}

func TestColumnNameParser(t *testing.T) {
	lines := []string{
		"",
		"Consumer group 'orders-service' has no active members.",
		"",
		"GROUP TOPIC PARTITION CURRENT-OFFSET LOG-END-OFFSET LAG CONSUMER-ID HOST CLIENT-ID",
		"orders-service orders 0 10 15 5 - - -",
		"",
		"TOPIC GROUP LAG PARTITION",
		"audit billing 3 2",
	}

	records, err := ColumnNameParser{}.Parse(lines)
	require.NoError(t, err)

	assert.Equal(t, []LagRecord{
		{Group: "orders-service", Topic: "orders", Partition: 0, Lag: 5},
		{Group: "billing", Topic: "audit", Partition: 2, Lag: 3},
	}, records)

	_, err = ColumnNameParser{}.Parse([]string{"GROUP TOPIC PARTITION LAG", "g1 t1 0"})
	var parseErr *ParseError
	require.ErrorAs(t, err, &parseErr)
	assert.Equal(t, 2, parseErr.Line)
}

func TestNewParser(t *testing.T) {
	p, err := NewParser(ParserFixedColumns)
	require.NoError(t, err)
	assert.Equal(t, FixedColumnParser{SkipLines: 2}, p)

	p, err = NewParser(ParserColumnNames)
	require.NoError(t, err)
	assert.IsType(t, ColumnNameParser{}, p)

	_, err = NewParser("regex")
	assert.Error(t, err)
}
