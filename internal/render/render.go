// Package render prints scenario results for people and for machines.
package render

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/reflow/wordwrap"

	"github.com/Use-Tusk/tusk-harness/internal/diff"
	"github.com/Use-Tusk/tusk-harness/internal/harness"
	"github.com/Use-Tusk/tusk-harness/internal/styles"
	"github.com/Use-Tusk/tusk-harness/internal/utils"
)

// Result is the outcome of one scenario.
type Result struct {
	ID       string          `json:"id"`
	Passed   bool            `json:"passed"`
	Duration int64           `json:"durationMs"`
	Report   *harness.Report `json:"report,omitempty"`
	// Error is set when the scenario could not be built.
	Error string `json:"error,omitempty"`
}

// Summary counts results by outcome.
type Summary struct {
	Total  int `json:"total"`
	Passed int `json:"passed"`
	Failed int `json:"failed"`
}

func Summarize(results []Result) Summary {
	s := Summary{Total: len(results)}
	for _, r := range results {
		if r.Passed {
			s.Passed++
		} else {
			s.Failed++
		}
	}
	return s
}

// Output writes results in format, "json" or "text". It returns an error when
// any scenario failed.
func Output(w io.Writer, results []Result, format string, quiet bool) error {
	switch format {
	case "json":
		if err := JSON(w, results); err != nil {
			return err
		}
	default:
		Text(w, results, quiet, utils.TerminalWidth())
	}

	if s := Summarize(results); s.Failed > 0 {
		return fmt.Errorf("%d of %d scenarios failed", s.Failed, s.Total)
	}
	return nil
}

func JSON(w io.Writer, results []Result) error {
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	return encoder.Encode(struct {
		Summary Summary  `json:"summary"`
		Results []Result `json:"results"`
	}{Summarize(results), results})
}

// Text writes a line per scenario, the full report of every failure, and a
// summary box. Quiet leaves out passing scenarios.
func Text(w io.Writer, results []Result, quiet bool, width int) {
	width = max(width, 40)

	_, _ = fmt.Fprintln(w)
	for _, r := range results {
		line := fmt.Sprintf("%s (%dms)", r.ID, r.Duration)
		if r.Passed {
			if !quiet {
				_, _ = fmt.Fprintln(w, styles.Render(styles.SuccessStyle, utils.TruncateWithEllipsis("✓ PASS - "+line, width)))
			}
			continue
		}

		_, _ = fmt.Fprintln(w, styles.Render(styles.ErrorStyle, utils.TruncateWithEllipsis("✗ FAIL - "+line, width)))
		if r.Error != "" {
			_, _ = fmt.Fprintln(w, utils.Indent(wordwrap.String("Error: "+r.Error, width-2), "  "))
		}
		if r.Report != nil && !r.Report.Passed() {
			_, _ = fmt.Fprintln(w, utils.Indent(Report(r.Report, width-2), "  "))
		}
		_, _ = fmt.Fprintln(w)
	}

	_, _ = fmt.Fprintln(w)
	_, _ = fmt.Fprintln(w, SummaryBox(Summarize(results)))
}

// SummaryBox renders the totals in a bordered box colored by outcome.
func SummaryBox(s Summary) string {
	text := fmt.Sprintf("Scenarios: %d total, %d passed, %d failed", s.Total, s.Passed, s.Failed)
	if styles.NoColor() {
		return text
	}
	box := styles.SuccessBoxStyle
	if s.Failed > 0 {
		box = styles.FailureBoxStyle
	}
	return box.Render(text)
}

// Report renders a failing report wrapped to width, with colored diffs.
func Report(r *harness.Report, width int) string {
	var sb strings.Builder
	sb.WriteString(styles.Render(styles.HeadingStyle, wordwrap.String(r.Title(), width)))
	sb.WriteString("\n")

	for i := range r.Failures {
		f := &r.Failures[i]
		label := fmt.Sprintf("%2d) ", i+1)
		sb.WriteString("\n")
		sb.WriteString(label)
		sb.WriteString(utils.IndentTail(Failure(f, width-lipgloss.Width(label)), "    "))
		sb.WriteString("\n")

		if f.Group == nil {
			continue
		}
		for j := range f.Group.Failures {
			label := fmt.Sprintf("    %2d.%d) ", f.Group.Index, j+1)
			sb.WriteString("\n")
			sb.WriteString(label)
			sb.WriteString(utils.IndentTail(Failure(&f.Group.Failures[j], width-lipgloss.Width(label)), strings.Repeat(" ", lipgloss.Width(label))))
			sb.WriteString("\n")
		}
	}

	if note := r.SuppressedNote(); note != "" {
		sb.WriteString("\n")
		sb.WriteString(styles.Render(styles.DimStyle, wordwrap.String(note, width)))
		sb.WriteString("\n")
	}
	return strings.TrimRight(sb.String(), "\n")
}

// Failure renders a single failure with the same layout as
// harness.FormatFailure.
func Failure(f *harness.Failure, width int) string {
	width = max(width, 20)
	lines := []string{wordwrap.String(f.Message, width)}

	if len(f.Records) > 0 {
		lines = append(lines, "")
		for _, rec := range f.Records {
			lines = append(lines, "    "+record(f.Subject, rec, width-4))
		}
		for _, rec := range f.Records {
			if rec.Diff != "" {
				lines = append(lines, "", utils.Indent(Diff(rec.Diff), "    "))
			}
		}
	}
	if f.Diff != "" {
		lines = append(lines, "", "difference:", "", utils.Indent(Diff(f.Diff), "    "))
	}
	if f.Dump != nil {
		lines = append(lines, "", utils.Indent(styles.Render(styles.DimStyle, harness.FormatDump(f.Dump)), "    "))
	}
	if f.Hint != "" {
		lines = append(lines, "", styles.Render(styles.WarningStyle, wordwrap.String(f.Hint, width)))
	}
	return strings.Join(lines, "\n")
}

func record(subject string, rec diff.Record, width int) string {
	path := subject + rec.Path.String()
	text := wordwrap.String(fmt.Sprintf("- %s: %s", path, rec.Message), width)
	return utils.IndentTail(strings.Replace(text, path, styles.Render(styles.PathStyle, path), 1), "  ")
}

// Diff colors the lines of a unified diff.
func Diff(d string) string {
	lines := strings.Split(strings.TrimRight(d, "\n"), "\n")
	for i, line := range lines {
		switch {
		case strings.HasPrefix(line, "---"), strings.HasPrefix(line, "+++"):
			lines[i] = styles.Render(styles.DimStyle, line)
		case strings.HasPrefix(line, "@@"):
			lines[i] = styles.Render(styles.PathStyle, line)
		case strings.HasPrefix(line, "-"):
			lines[i] = styles.Render(styles.DiffRemovedStyle, line)
		case strings.HasPrefix(line, "+"):
			lines[i] = styles.Render(styles.DiffAddedStyle, line)
		}
	}
	return strings.Join(lines, "\n")
}
