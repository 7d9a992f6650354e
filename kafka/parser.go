package kafka

import (
	"fmt"
	"strconv"
	"strings"
)

const (
	ParserFixedColumns string = "fixedColumns"
	ParserColumnNames  string = "columnNames"
)

// Parser turns the stdout lines of one describe command into lag records. A malformed line fails the whole output,
// dropping rows silently would corrupt the aggregation.
type Parser interface {
	Parse(lines []string) ([]LagRecord, error)
}

// ParseError points to the line that did not match the expected describe output.
type ParseError struct {
	// Line is 1-based.
	Line   int
	Text   string
	Reason string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("line %d %q: %v", e.Line, e.Text, e.Reason)
}

func ValidateParser(name string) error {
	switch name {
	case ParserFixedColumns, ParserColumnNames:
		return nil
	default:
		return fmt.Errorf("invalid parser '%v' specified. Valid parsers are '%v' or '%v'",
			name,
			ParserFixedColumns,
			ParserColumnNames)
	}
}

func NewParser(name string) (Parser, error) {
	switch name {
	case ParserFixedColumns, "":
		return NewFixedColumnParser(), nil
	case ParserColumnNames:
		return ColumnNameParser{}, nil
	default:
		return nil, ValidateParser(name)
	}
}

// Column positions of kafka-consumer-groups --describe:
// GROUP TOPIC PARTITION CURRENT-OFFSET LOG-END-OFFSET LAG CONSUMER-ID HOST CLIENT-ID
const (
	groupColumn     = 0
	topicColumn     = 1
	partitionColumn = 2
	lagColumn       = 5
)

// FixedColumnParser skips a fixed number of preamble lines and reads the remaining lines by column position.
type FixedColumnParser struct {
	SkipLines int
}

func NewFixedColumnParser() FixedColumnParser {
	// The tool prints an empty line followed by the header row before the partition rows
	return FixedColumnParser{SkipLines: 2}
}

func (p FixedColumnParser) Parse(lines []string) ([]LagRecord, error) {
	if len(lines) <= p.SkipLines {
		return []LagRecord{}, nil
	}

	columns := columnIndices{group: groupColumn, topic: topicColumn, partition: partitionColumn, lag: lagColumn}
	records := make([]LagRecord, 0, len(lines)-p.SkipLines)
	for i := p.SkipLines; i < len(lines); i++ {
		text := strings.TrimSpace(lines[i])
		if text == "" {
			continue
		}
		record, err := columns.parse(i+1, text)
		if err != nil {
			return nil, err
		}
		records = append(records, record)
	}

	return records, nil
}

// ColumnNameParser finds the header row by its column names instead of relying on a fixed preamble. Lines before the
// first header are ignored and a repeated header row switches to its column indices.
type ColumnNameParser struct{}

func (ColumnNameParser) Parse(lines []string) ([]LagRecord, error) {
	records := make([]LagRecord, 0, len(lines))

	var columns *columnIndices
	for i, line := range lines {
		text := strings.TrimSpace(line)
		if text == "" {
			continue
		}
		if header, isHeader := parseHeader(text); isHeader {
			columns = &header
			continue
		}
		if columns == nil {
			// Banners such as "Consumer group 'x' has no active members."
			continue
		}

		record, err := columns.parse(i+1, text)
		if err != nil {
			return nil, err
		}
		records = append(records, record)
	}

	return records, nil
}

type columnIndices struct {
	group     int
	topic     int
	partition int
	lag       int
}

func (c columnIndices) minFields() int {
	return max(c.group, c.topic, c.partition, c.lag) + 1
}

func (c columnIndices) parse(lineNumber int, text string) (LagRecord, error) {
	fields := strings.Fields(text)
	if len(fields) < c.minFields() {
		return LagRecord{}, &ParseError{
			Line:   lineNumber,
			Text:   text,
			Reason: fmt.Sprintf("expected at least %d columns, got %d", c.minFields(), len(fields)),
		}
	}

	partition, err := strconv.ParseInt(fields[c.partition], 10, 32)
	if err != nil {
		return LagRecord{}, &ParseError{
			Line:   lineNumber,
			Text:   text,
			Reason: fmt.Sprintf("partition %q is not an integer", fields[c.partition]),
		}
	}
	lag, err := strconv.ParseInt(fields[c.lag], 10, 64)
	if err != nil {
		return LagRecord{}, &ParseError{
			Line:   lineNumber,
			Text:   text,
			Reason: fmt.Sprintf("lag %q is not an integer", fields[c.lag]),
		}
	}

	return LagRecord{
		Group:     fields[c.group],
		Topic:     fields[c.topic],
		Partition: int32(partition),
		Lag:       lag,
	}, nil
}

func parseHeader(text string) (columnIndices, bool) {
	indices := map[string]int{}
	for i, field := range strings.Fields(text) {
		indices[strings.ToUpper(field)] = i
	}

	group, hasGroup := indices["GROUP"]
	topic, hasTopic := indices["TOPIC"]
	partition, hasPartition := indices["PARTITION"]
	lag, hasLag := indices["LAG"]
	if !hasGroup || !hasTopic || !hasPartition || !hasLag {
		return columnIndices{}, false
	}

	return columnIndices{group: group, topic: topic, partition: partition, lag: lag}, true
}
