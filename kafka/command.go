package kafka

import (
	"strings"
)

const DefaultCommandBinary = "kafka-consumer-groups"

// DescribeGroupCommands returns one describe command per consumer group, in the order of the given groups.
func DescribeGroupCommands(binary string, bootstrapServer string, groups []string) []string {
	if binary == "" {
		binary = DefaultCommandBinary
	}

	commands := make([]string, len(groups))
	for i, group := range groups {
		commands[i] = binary + " --bootstrap-server " + shellQuote(bootstrapServer) + " --describe --group " + shellQuote(group)
	}
	return commands
}

// shellQuote leaves shell-safe words untouched and single-quotes everything else.
func shellQuote(s string) string {
	if s != "" && strings.IndexFunc(s, isUnsafeShellRune) == -1 {
		return s
	}
	return "'" + strings.ReplaceAll(s, "'", `'"'"'`) + "'"
}

func isUnsafeShellRune(r rune) bool {
	switch {
	case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
		return false
	}
	return !strings.ContainsRune("-_.,:/@=+%", r)
}
