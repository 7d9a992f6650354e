package render

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/cloudhut/kafka-lag-monitor/minion"
	"github.com/mattn/go-runewidth"
	"gopkg.in/yaml.v3"
)

// Format represents the output format of the lag table
type Format string

const (
	FormatPlain  Format = "plain"
	FormatSimple Format = "simple"
	FormatGrid   Format = "grid"
	FormatGithub Format = "github"
	FormatTSV    Format = "tsv"
	FormatCSV    Format = "csv"
	FormatJSON   Format = "json"
	FormatYAML   Format = "yaml"
)

func (f Format) IsUnknown() bool {
	switch f {
	case FormatPlain, FormatSimple, FormatGrid, FormatGithub, FormatTSV, FormatCSV, FormatJSON, FormatYAML:
		return false
	default:
		return true
	}
}

// SupportedFormats returns a list of all supported output formats.
func SupportedFormats() []string {
	return []string{
		string(FormatPlain),
		string(FormatSimple),
		string(FormatGrid),
		string(FormatGithub),
		string(FormatTSV),
		string(FormatCSV),
		string(FormatJSON),
		string(FormatYAML),
	}
}

// Columns are the headers of the lag table in display order.
var Columns = []string{"group", "topic", "partition_count", "lag_mean", "lag_max"}

// numericColumns are right aligned in text tables.
var numericColumns = map[int]bool{2: true, 3: true, 4: true}

// Cells returns the formatted cell values of a row in the order of Columns.
func Cells(row minion.Row) []string {
	return []string{
		row.Group,
		row.Topic,
		strconv.Itoa(row.PartitionCount),
		strconv.FormatFloat(row.LagMean, 'f', 2, 64),
		strconv.FormatInt(row.LagMax, 10),
	}
}

// Write renders the rows in the given format to w. Rows are written in the given order.
func Write(w io.Writer, rows []minion.Row, format Format) error {
	switch format {
	case FormatPlain, FormatSimple, FormatGrid, FormatGithub:
		_, err := io.WriteString(w, renderText(rows, format))
		return err
	case FormatTSV:
		return writeDelimited(w, rows, '\t')
	case FormatCSV:
		return writeDelimited(w, rows, ',')
	case FormatJSON:
		return writeJSON(w, rows)
	case FormatYAML:
		return writeYAML(w, rows)
	default:
		return fmt.Errorf("unsupported format: %s", format)
	}
}

func renderText(rows []minion.Row, format Format) string {
	table := make([][]string, 0, len(rows))
	for _, row := range rows {
		table = append(table, Cells(row))
	}

	widths := make([]int, len(Columns))
	for i, column := range Columns {
		widths[i] = runewidth.StringWidth(column)
	}
	for _, cells := range table {
		for i, cell := range cells {
			widths[i] = max(widths[i], runewidth.StringWidth(cell))
		}
	}

	var sb strings.Builder
	switch format {
	case FormatPlain:
		writeTextRow(&sb, Columns, widths, "", "  ", "")
		for _, cells := range table {
			writeTextRow(&sb, cells, widths, "", "  ", "")
		}
	case FormatSimple:
		writeTextRow(&sb, Columns, widths, "", "  ", "")
		writeRule(&sb, widths, "", "  ", "", '-')
		for _, cells := range table {
			writeTextRow(&sb, cells, widths, "", "  ", "")
		}
	case FormatGrid:
		writeRule(&sb, widths, "+-", "-+-", "-+", '-')
		writeTextRow(&sb, Columns, widths, "| ", " | ", " |")
		writeRule(&sb, widths, "+=", "=+=", "=+", '=')
		for _, cells := range table {
			writeTextRow(&sb, cells, widths, "| ", " | ", " |")
			writeRule(&sb, widths, "+-", "-+-", "-+", '-')
		}
	case FormatGithub:
		writeTextRow(&sb, Columns, widths, "| ", " | ", " |")
		sb.WriteString("|")
		for i, width := range widths {
			if numericColumns[i] {
				sb.WriteString(strings.Repeat("-", width+1) + ":|")
			} else {
				sb.WriteString(":" + strings.Repeat("-", width+1) + "|")
			}
		}
		sb.WriteString("\n")
		for _, cells := range table {
			writeTextRow(&sb, cells, widths, "| ", " | ", " |")
		}
	}

	return sb.String()
}

func writeTextRow(sb *strings.Builder, cells []string, widths []int, left, separator, right string) {
	line := make([]string, len(cells))
	for i, cell := range cells {
		if numericColumns[i] {
			line[i] = runewidth.FillLeft(cell, widths[i])
		} else {
			line[i] = runewidth.FillRight(cell, widths[i])
		}
	}

	text := left + strings.Join(line, separator) + right
	if right == "" {
		text = strings.TrimRight(text, " ")
	}
	sb.WriteString(text)
	sb.WriteString("\n")
}

func writeRule(sb *strings.Builder, widths []int, left, separator, right string, fill rune) {
	parts := make([]string, len(widths))
	for i, width := range widths {
		parts[i] = strings.Repeat(string(fill), width)
	}
	sb.WriteString(left + strings.Join(parts, separator) + right + "\n")
}

func writeDelimited(w io.Writer, rows []minion.Row, comma rune) error {
	writer := csv.NewWriter(w)
	writer.Comma = comma

	if err := writer.Write(Columns); err != nil {
		return fmt.Errorf("failed to write header: %w", err)
	}
	for _, row := range rows {
		if err := writer.Write(Cells(row)); err != nil {
			return fmt.Errorf("failed to write row: %w", err)
		}
	}
	writer.Flush()
	return writer.Error()
}

func writeJSON(w io.Writer, rows []minion.Row) error {
	if rows == nil {
		rows = []minion.Row{}
	}
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(rows); err != nil {
		return fmt.Errorf("failed to serialize to JSON: %w", err)
	}
	return nil
}

func writeYAML(w io.Writer, rows []minion.Row) error {
	if rows == nil {
		rows = []minion.Row{}
	}
	encoder := yaml.NewEncoder(w)
	encoder.SetIndent(2)
	if err := encoder.Encode(rows); err != nil {
		return fmt.Errorf("failed to serialize to YAML: %w", err)
	}
	return encoder.Close()
}
