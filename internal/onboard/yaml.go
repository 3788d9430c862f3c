package onboard

import "strings"

// formatYAMLWithBlankLines separates top-level keys with a blank line.
func formatYAMLWithBlankLines(data []byte) []byte {
	lines := strings.Split(string(data), "\n")
	out := make([]string, 0, len(lines)+8)
	seenTop := false
	for _, line := range lines {
		if isTopLevelKey(line) {
			if seenTop && len(out) > 0 && strings.TrimSpace(out[len(out)-1]) != "" {
				out = append(out, "")
			}
			seenTop = true
		}
		out = append(out, line)
	}
	return []byte(strings.Join(out, "\n"))
}

func isTopLevelKey(line string) bool {
	if line == "" || strings.HasPrefix(line, "#") {
		return false
	}
	if strings.HasPrefix(line, "---") || strings.HasPrefix(line, "...") {
		return false
	}
	switch line[0] {
	case ' ', '\t', '-':
		return false
	}
	return strings.Contains(line, ":")
}
