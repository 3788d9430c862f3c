package utils

import (
	"os"

	"github.com/atotto/clipboard"
	osc52 "github.com/aymanbagabas/go-osc52/v2"
	"github.com/mattn/go-isatty"
	"golang.org/x/term"
)

const defaultTerminalWidth = 100

func IsTerminal() bool {
	return isatty.IsTerminal(os.Stdout.Fd()) || isatty.IsCygwinTerminal(os.Stdout.Fd())
}

// TerminalWidth returns the width of stdout, or a default when stdout is not a
// terminal.
func TerminalWidth() int {
	if !IsTerminal() {
		return defaultTerminalWidth
	}
	width, _, err := term.GetSize(int(os.Stdout.Fd()))
	if err != nil || width <= 0 {
		return defaultTerminalWidth
	}
	return width
}

// CopyToClipboard copies text to the system clipboard. Terminals get an OSC52
// sequence so remote sessions work too; otherwise the OS clipboard is used.
func CopyToClipboard(text string) error {
	if IsTerminal() {
		_, err := osc52.New(text).WriteTo(os.Stdout)
		return err
	}
	return clipboard.WriteAll(text)
}
