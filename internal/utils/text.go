package utils

import (
	"fmt"
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/mattn/go-runewidth"
)

// ANSI color code regex pattern
var ansiRegex = regexp.MustCompile(`\x1b\[[0-9;]*m`)

// StripANSI removes ANSI escape sequences from a string
func StripANSI(s string) string {
	return ansiRegex.ReplaceAllString(s, "")
}

// VisibleWidth returns the display width of s, excluding ANSI codes
func VisibleWidth(s string) int {
	return runewidth.StringWidth(StripANSI(s))
}

// Indent prefixes every non-empty line of s.
func Indent(s, prefix string) string {
	lines := strings.Split(s, "\n")
	for i, l := range lines {
		if l != "" {
			lines[i] = prefix + l
		}
	}
	return strings.Join(lines, "\n")
}

// IndentTail indents every line but the first, for continuing a numbered item.
func IndentTail(s, prefix string) string {
	first, rest, ok := strings.Cut(s, "\n")
	if !ok {
		return s
	}
	return first + "\n" + Indent(rest, prefix)
}

// PadLeft right-aligns s within width display columns.
func PadLeft(s string, width int) string {
	return runewidth.FillLeft(s, width)
}

// HexRows formats data as comma separated 0xNN bytes, 16 per row.
func HexRows(data []byte) []string {
	var rows []string
	for start := 0; start < len(data); start += 16 {
		end := min(start+16, len(data))
		cells := make([]string, 0, end-start)
		for _, b := range data[start:end] {
			cells = append(cells, fmt.Sprintf("0x%02X", b))
		}
		rows = append(rows, strings.Join(cells, ", "))
	}
	return rows
}

// Printable returns data as text when it is valid UTF-8 and as hex rows otherwise.
func Printable(data []byte) string {
	if utf8.Valid(data) {
		return string(data)
	}
	return strings.Join(HexRows(data), ",\n")
}

func TruncateWithEllipsis(text string, maxWidth int) string {
	visibleLength := VisibleWidth(text)

	if visibleLength <= maxWidth {
		return text
	}

	if maxWidth <= 3 {
		return "..."
	}

	targetWidth := maxWidth - 3

	// ANSI sequences are copied through without counting toward the width
	var result strings.Builder
	displayWidth := 0
	i := 0

	for i < len(text) && displayWidth < targetWidth {
		if i+1 < len(text) && text[i] == '\x1b' && text[i+1] == '[' {
			j := i + 2
			for j < len(text) && text[j] != 'm' {
				j++
			}
			if j < len(text) {
				j++ // Include the 'm'
			}
			result.WriteString(text[i:j])
			i = j
			continue
		}

		r, size := utf8.DecodeRuneInString(text[i:])
		if r != utf8.RuneError {
			charWidth := runewidth.RuneWidth(r)
			if displayWidth+charWidth > targetWidth {
				break
			}
			result.WriteRune(r)
			displayWidth += charWidth
		}
		i += size
	}

	return result.String() + "..."
}
