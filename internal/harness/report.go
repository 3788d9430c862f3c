package harness

import (
	"fmt"
	"strings"

	"github.com/hashicorp/go-multierror"

	"github.com/Use-Tusk/tusk-harness/internal/diff"
	"github.com/Use-Tusk/tusk-harness/internal/mock"
	"github.com/Use-Tusk/tusk-harness/internal/utils"
)

type FailureKind int

const (
	KindAPIStartTimeout FailureKind = iota
	KindAPIRequestTimeout
	KindAPIRequestFailed
	KindNoResponseProvided
	KindOutOfOrderFetch
	KindMissingRequest
	KindValidationMismatch
	KindCodec
	KindDump
	KindResponse
)

func (k FailureKind) String() string {
	switch k {
	case KindAPIStartTimeout:
		return "api_start_timeout"
	case KindAPIRequestTimeout:
		return "api_request_timeout"
	case KindAPIRequestFailed:
		return "api_request_failed"
	case KindNoResponseProvided:
		return "no_response_provided"
	case KindOutOfOrderFetch:
		return "out_of_order_fetch"
	case KindMissingRequest:
		return "missing_request"
	case KindValidationMismatch:
		return "validation_mismatch"
	case KindCodec:
		return "codec"
	case KindDump:
		return "dump"
	default:
		return "response"
	}
}

func (k FailureKind) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

// Failure is one reported problem. Message is a complete sentence; the other
// fields carry the details a renderer may show below it.
type Failure struct {
	Kind    FailureKind `json:"kind"`
	Context string      `json:"context,omitempty"`
	Message string      `json:"message"`

	Expected string        `json:"expected,omitempty"`
	Actual   string        `json:"actual,omitempty"`
	Diff     string        `json:"diff,omitempty"`
	Subject  string        `json:"subject,omitempty"`
	Records  []diff.Record `json:"records,omitempty"`
	Dump     *Dump         `json:"dump,omitempty"`
	Hint     string        `json:"hint,omitempty"`

	// Group holds the failures of one canned response when Kind is KindResponse.
	Group *ResponseFailure `json:"group,omitempty"`

	Err error `json:"-"`
}

func (f *Failure) Error() string {
	return f.Message
}

func (f *Failure) Unwrap() error {
	return f.Err
}

// count is the number of errors f stands for; a response group counts each
// of its failures.
func (f *Failure) count() int {
	if f.Group != nil {
		return len(f.Group.Failures)
	}
	return 1
}

// ResponseFailure groups the failures reported for one canned response.
// Index is the number the group is listed under in the report.
type ResponseFailure struct {
	Index    int       `json:"index"`
	Method   string    `json:"method"`
	URL      string    `json:"url"`
	Failures []Failure `json:"failures"`
}

// Dump is the header block and body of a response or captured request.
type Dump struct {
	Header      mock.Header `json:"header"`
	ContentType string      `json:"contentType,omitempty"`
	Body        []byte      `json:"body,omitempty"`
}

// Report is the result of executing one test request. It passed when Failures
// is empty.
type Report struct {
	ID         string    `json:"id"`
	Method     string    `json:"method"`
	URL        string    `json:"url"`
	Failures   []Failure `json:"failures"`
	Suppressed int       `json:"suppressed,omitempty"`
}

func (r *Report) Passed() bool {
	return r == nil || len(r.Failures) == 0
}

// ErrorCount counts every failure, including each failure inside response groups.
func (r *Report) ErrorCount() int {
	if r == nil {
		return 0
	}
	n := 0
	for i := range r.Failures {
		n += r.Failures[i].count()
	}
	return n
}

// Err returns nil for a passing report. Otherwise the error lists every
// failure and formats as the plain text report.
func (r *Report) Err() error {
	if r.Passed() {
		return nil
	}
	var result *multierror.Error
	for i := range r.Failures {
		result = multierror.Append(result, &r.Failures[i])
	}
	result.ErrorFormat = func([]error) string {
		return r.String()
	}
	return result.ErrorOrNil()
}

func (r *Report) Title() string {
	return fmt.Sprintf("Response Failure: %s request to %q returned %d error(s)", r.Method, r.URL, r.ErrorCount())
}

func (r *Report) SuppressedNote() string {
	if r.Suppressed == 0 {
		return ""
	}
	return fmt.Sprintf("Note: Suppressed %d request error(s) that may have resulted from failed response expectations.", r.Suppressed)
}

// String renders the report as plain text. A passing report renders empty.
func (r *Report) String() string {
	if r.Passed() {
		return ""
	}

	var sb strings.Builder
	sb.WriteString(r.Title())
	sb.WriteString("\n")

	for i := range r.Failures {
		f := &r.Failures[i]
		sb.WriteString("\n")
		sb.WriteString(fmt.Sprintf("%2d) ", i+1))
		sb.WriteString(utils.IndentTail(FormatFailure(f), "    "))
		sb.WriteString("\n")

		if f.Group == nil {
			continue
		}
		for j := range f.Group.Failures {
			sb.WriteString("\n")
			sb.WriteString(fmt.Sprintf("    %2d.%d) ", f.Group.Index, j+1))
			sb.WriteString(utils.IndentTail(FormatFailure(&f.Group.Failures[j]), "          "))
			sb.WriteString("\n")
		}
	}

	if note := r.SuppressedNote(); note != "" {
		sb.WriteString("\n")
		sb.WriteString(note)
		sb.WriteString("\n")
	}
	return sb.String()
}

// FormatFailure renders a single failure and its details as plain text.
func FormatFailure(f *Failure) string {
	lines := []string{f.Message}

	if len(f.Records) > 0 {
		lines = append(lines, "", utils.Indent(diff.Format(f.Subject, f.Records), "    "))
		for _, rec := range f.Records {
			if rec.Diff != "" {
				lines = append(lines, "", utils.Indent(strings.TrimRight(rec.Diff, "\n"), "    "))
			}
		}
	}
	if f.Diff != "" {
		lines = append(lines, "", "difference:", "", utils.Indent(strings.TrimRight(f.Diff, "\n"), "    "))
	}
	if f.Dump != nil {
		lines = append(lines, "", utils.Indent(FormatDump(f.Dump), "    "))
	}
	if f.Hint != "" {
		lines = append(lines, "", f.Hint)
	}
	return strings.Join(lines, "\n")
}

// FormatDump renders headers right-aligned by name, then the body.
func FormatDump(d *Dump) string {
	var sb strings.Builder
	width := 0
	for _, h := range d.Header {
		width = max(width, len(h.Name))
	}
	for _, h := range d.Header {
		sb.WriteString(utils.PadLeft(h.Name, width) + ": " + h.Value + "\n")
	}
	if len(d.Body) > 0 {
		sb.WriteString("\n")
		sb.WriteString(utils.Printable(d.Body))
	}
	return strings.TrimRight(sb.String(), "\n")
}
