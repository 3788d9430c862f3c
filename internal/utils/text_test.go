package utils

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStripANSI(t *testing.T) {
	assert.Equal(t, "red text", StripANSI("\x1b[31mred\x1b[0m text"))
	assert.Equal(t, 8, VisibleWidth("\x1b[1;31mred\x1b[0m text"))
}

func TestIndent_SkipsEmptyLines(t *testing.T) {
	assert.Equal(t, "  a\n\n  b", Indent("a\n\nb", "  "))
}

func TestIndentTail(t *testing.T) {
	assert.Equal(t, "first", IndentTail("first", "    "))
	assert.Equal(t, "first\n    second\n    third", IndentTail("first\nsecond\nthird", "    "))
}

func TestPadLeft(t *testing.T) {
	assert.Equal(t, "   ab", PadLeft("ab", 5))
	assert.Equal(t, "abcdef", PadLeft("abcdef", 3))
}

func TestHexRows(t *testing.T) {
	assert.Empty(t, HexRows(nil))

	data := make([]byte, 18)
	for i := range data {
		data[i] = byte(i)
	}
	rows := HexRows(data)
	require.Len(t, rows, 2)
	assert.True(t, strings.HasPrefix(rows[0], "0x00, 0x01, 0x02"))
	assert.Equal(t, 16, len(strings.Split(rows[0], ", ")))
	assert.Equal(t, "0x10, 0x11", rows[1])
}

func TestPrintable(t *testing.T) {
	assert.Equal(t, "plain", Printable([]byte("plain")))
	assert.Equal(t, "0xFF, 0x00", Printable([]byte{0xff, 0x00}))
}

func TestTruncateWithEllipsis(t *testing.T) {
	tests := []struct {
		name  string
		text  string
		width int
		want  string
	}{
		{"fits", "hello", 10, "hello"},
		{"exact", "hello", 5, "hello"},
		{"truncated", "hello world", 8, "hello..."},
		{"tiny width", "hello", 2, "..."},
		{"wide runes", "日本語テキスト", 9, "日本語..."},
		{"keeps ansi", "\x1b[31mhello world\x1b[0m", 8, "\x1b[31mhello..."},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, TruncateWithEllipsis(tt.text, tt.width))
		})
	}
}

func TestRenderMarkdown_PlainWithoutTerminal(t *testing.T) {
	t.Setenv("NO_COLOR", "1")
	md := "# Scenarios\n\nRun `tusk-harness run`."
	assert.Equal(t, md, RenderMarkdown(md))
}
