// Package diff compares tree-shaped values (JSON documents, form fields and
// decoded bodies) and reports every discrepancy as a path-tagged Record.
package diff

import (
	"fmt"
	"strconv"
	"strings"
)

type Kind int

const (
	TypeMismatch Kind = iota
	ValueMismatch
	LengthMismatch
	MissingKeys
	AdditionalKeys
	Undecodable
)

func (k Kind) String() string {
	switch k {
	case TypeMismatch:
		return "type_mismatch"
	case ValueMismatch:
		return "value_mismatch"
	case LengthMismatch:
		return "length_mismatch"
	case MissingKeys:
		return "missing_keys"
	case AdditionalKeys:
		return "additional_keys"
	default:
		return "undecodable"
	}
}

func (k Kind) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

// Segment is one step of a Path: an object key, or an array index when IsIndex is set.
type Segment struct {
	Key     string
	Index   int
	IsIndex bool
}

func Key(k string) Segment {
	return Segment{Key: k}
}

func Index(i int) Segment {
	return Segment{Index: i, IsIndex: true}
}

func (s Segment) String() string {
	if s.IsIndex {
		return "[" + strconv.Itoa(s.Index) + "]"
	}
	return "." + s.Key
}

// Path locates a record inside the compared value. The root is the empty path.
type Path []Segment

func (p Path) String() string {
	var sb strings.Builder
	for _, s := range p {
		sb.WriteString(s.String())
	}
	return sb.String()
}

func (p Path) MarshalText() ([]byte, error) {
	return []byte(p.String()), nil
}

// With returns a copy of p extended by s.
func (p Path) With(s Segment) Path {
	out := make(Path, len(p), len(p)+1)
	copy(out, p)
	return append(out, s)
}

// Record is a single discrepancy. Expected and Actual hold the rendered leaf
// values for value mismatches, Keys the names for missing or additional keys
// and Diff a unified diff for multi-line text.
type Record struct {
	Path     Path     `json:"path"`
	Kind     Kind     `json:"kind"`
	Message  string   `json:"message"`
	Expected string   `json:"expected,omitempty"`
	Actual   string   `json:"actual,omitempty"`
	Keys     []string `json:"keys,omitempty"`
	Diff     string   `json:"diff,omitempty"`
}

// Format renders records one per line as "- <subject><path>: <message>".
func Format(subject string, records []Record) string {
	lines := make([]string, 0, len(records))
	for _, r := range records {
		lines = append(lines, fmt.Sprintf("- %s%s: %s", subject, r.Path, r.Message))
	}
	return strings.Join(lines, "\n")
}

func prefixed(path Path, records []Record) []Record {
	if len(path) == 0 {
		return records
	}
	for i := range records {
		joined := make(Path, 0, len(path)+len(records[i].Path))
		joined = append(joined, path...)
		records[i].Path = append(joined, records[i].Path...)
	}
	return records
}
