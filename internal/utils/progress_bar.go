package utils

import (
	"fmt"
	"io"
	"strings"
	"sync"
)

const progressBarWidth = 40

// ProgressBar draws scenario progress on a single terminal line.
type ProgressBar struct {
	writer  io.Writer
	message string
	done    int
	failed  int
	total   int
	mu      sync.Mutex
	started bool
}

func NewProgressBar(w io.Writer, message string, total int) *ProgressBar {
	return &ProgressBar{
		writer:  w,
		message: message,
		total:   total,
	}
}

// Start shows the empty bar
func (p *ProgressBar) Start() {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.started {
		return
	}
	p.started = true
	p.render()
}

// Record counts one finished scenario.
func (p *ProgressBar) Record(passed bool) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.done++
	if !passed {
		p.failed++
	}
	p.render()
}

func (p *ProgressBar) line() string {
	var percentage float64
	if p.total > 0 {
		percentage = min(float64(p.done)/float64(p.total), 1.0)
	}
	filledWidth := int(percentage * float64(progressBarWidth))

	bar := make([]rune, progressBarWidth)
	for i := range progressBarWidth {
		switch {
		case i < filledWidth-1:
			bar[i] = '='
		case i == filledWidth-1 && filledWidth > 0:
			bar[i] = '>'
		default:
			bar[i] = '.'
		}
	}

	s := fmt.Sprintf("%s [%s] %d/%d", p.message, string(bar), p.done, p.total)
	if p.failed > 0 {
		s += fmt.Sprintf(" (%d failed)", p.failed)
	}
	return s
}

func (p *ProgressBar) render() {
	if !p.started {
		return
	}
	_, _ = fmt.Fprintf(p.writer, "\r%s", p.line())
}

// Finish clears the bar and prints finalMessage, if any.
func (p *ProgressBar) Finish(finalMessage string) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if !p.started {
		return
	}
	p.started = false

	_, _ = fmt.Fprintf(p.writer, "\r%s\r", strings.Repeat(" ", len(p.line())))
	if finalMessage != "" {
		_, _ = fmt.Fprintln(p.writer, finalMessage)
	}
}
