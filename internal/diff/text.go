package diff

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/pmezard/go-difflib/difflib"
)

// CompareText reports a single value mismatch when the texts differ. Multi-line
// texts also carry a unified diff.
func CompareText(expected, actual string) []Record {
	if expected == actual {
		return nil
	}
	return []Record{textMismatch(nil, "Text", expected, actual)}
}

// CompareRaw compares opaque bytes.
func CompareRaw(expected, actual []byte) []Record {
	if string(expected) == string(actual) {
		return nil
	}
	return []Record{{
		Kind:     ValueMismatch,
		Message:  fmt.Sprintf("Raw data with %d byte(s) does not match the expected %d byte(s)", len(actual), len(expected)),
		Expected: strconv.Itoa(len(expected)),
		Actual:   strconv.Itoa(len(actual)),
	}}
}

func textMismatch(path Path, subject, expected, actual string) Record {
	r := Record{
		Path:     path,
		Kind:     ValueMismatch,
		Message:  fmt.Sprintf("%s value does not match, expected %s but got %s", subject, strconv.Quote(expected), strconv.Quote(actual)),
		Expected: expected,
		Actual:   actual,
	}
	if strings.Contains(expected, "\n") || strings.Contains(actual, "\n") {
		r.Message = subject + " value does not match"
		r.Diff = TextDiff(expected, actual)
	}
	return r
}

// TextDiff returns a unified diff from expected to actual.
func TextDiff(expected, actual string) string {
	ud := difflib.UnifiedDiff{
		A:        difflib.SplitLines(expected),
		B:        difflib.SplitLines(actual),
		FromFile: "Expected",
		ToFile:   "Actual",
		Context:  3,
	}
	out, err := difflib.GetUnifiedDiffString(ud)
	if err != nil {
		return fmt.Sprintf("Expected:\n%s\n\nActual:\n%s", expected, actual)
	}
	return out
}
