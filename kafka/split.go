package kafka

import (
	"bufio"
	"fmt"
	"io"
	"strings"
)

// SplitOutputs splits the concatenated output of several describe commands into one slice per command. The tool
// prints an empty line before every header, so a blank line that follows content starts a new output. Consecutive
// blank lines collapse into one.
func SplitOutputs(lines []string) [][]string {
	outputs := make([][]string, 0, 1)
	var current []string
	hasContent := false

	for _, line := range lines {
		isBlank := strings.TrimSpace(line) == ""
		switch {
		case isBlank && hasContent:
			outputs = append(outputs, current)
			current = []string{line}
			hasContent = false
		case isBlank && len(current) > 0:
			continue
		default:
			current = append(current, line)
			hasContent = hasContent || !isBlank
		}
	}

	if hasContent {
		outputs = append(outputs, current)
	}
	return outputs
}

// ReadLines reads all lines of r without their line endings.
func ReadLines(r io.Reader) ([]string, error) {
	lines := make([]string, 0)
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		lines = append(lines, strings.TrimRight(scanner.Text(), "\r"))
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read describe output: %w", err)
	}
	return lines, nil
}
