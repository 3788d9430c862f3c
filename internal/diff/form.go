package diff

import (
	"bytes"
	"fmt"
	"sort"
	"strings"

	"github.com/Use-Tusk/tusk-harness/internal/codec"
)

var fieldKinds = []codec.FieldKind{codec.FieldPlain, codec.FieldArray, codec.FieldFile}

// CompareForm compares form fields by name. Missing and additional fields are
// reported at the form root, grouped by field kind. File attachments compare
// filename, media type and their decoded content, which is diffed with
// maxDepth and checkAdditionalKeys when it is JSON or a nested form.
func CompareForm(expected, actual []codec.Field, maxDepth int, checkAdditionalKeys bool) []Record {
	c := formComparer{maxDepth: maxDepth, checkAdditionalKeys: checkAdditionalKeys}
	return c.compare(nil, expected, actual)
}

type formComparer struct {
	maxDepth            int
	checkAdditionalKeys bool
}

func (c formComparer) compare(path Path, expected, actual []codec.Field) []Record {
	if len(expected) == 0 && len(actual) == 0 {
		return nil
	}

	want := sortedFields(expected)
	got := sortedFields(actual)
	used := make([]bool, len(got))

	type pair struct{ expected, actual codec.Field }
	var pairs []pair
	var missing []codec.Field

	for _, e := range want {
		found := false
		for i, a := range got {
			if !used[i] && a.Name == e.Name {
				used[i] = true
				pairs = append(pairs, pair{e, a})
				found = true
				break
			}
		}
		if !found {
			missing = append(missing, e)
		}
	}

	var records []Record
	for _, kind := range fieldKinds {
		if names := namesOfKind(missing, kind); len(names) > 0 {
			records = append(records, Record{
				Path:    path,
				Kind:    MissingKeys,
				Message: fmt.Sprintf("Is missing %d %s(s) (%s)", len(names), kind, strings.Join(names, ", ")),
				Keys:    names,
			})
		}
	}

	if c.checkAdditionalKeys {
		var additional []codec.Field
		for i, a := range got {
			if !used[i] {
				additional = append(additional, a)
			}
		}
		for _, kind := range fieldKinds {
			if names := namesOfKind(additional, kind); len(names) > 0 {
				records = append(records, Record{
					Path:    path,
					Kind:    AdditionalKeys,
					Message: fmt.Sprintf("Has %d additional unexpected %s(s) (%s)", len(names), kind, strings.Join(names, ", ")),
					Keys:    names,
				})
			}
		}
	}

	for _, p := range pairs {
		records = append(records, c.compareField(path.With(Key(p.expected.Name)), p.expected, p.actual)...)
	}
	return records
}

func (c formComparer) compareField(path Path, expected, actual codec.Field) []Record {
	if expected.Kind != actual.Kind {
		return []Record{{
			Path:     path,
			Kind:     TypeMismatch,
			Message:  fmt.Sprintf("Expected a %s but found a %s", expected.Kind, actual.Kind),
			Expected: expected.Kind.String(),
			Actual:   actual.Kind.String(),
		}}
	}

	switch expected.Kind {
	case codec.FieldPlain:
		if expected.Value != actual.Value {
			return []Record{textMismatch(path, "Field", expected.Value, actual.Value)}
		}
		return nil

	case codec.FieldArray:
		var records []Record
		if len(expected.Values) != len(actual.Values) {
			records = append(records, lengthMismatch(path, len(expected.Values), len(actual.Values)))
		}
		for i := 0; i < len(expected.Values) && i < len(actual.Values); i++ {
			if expected.Values[i] != actual.Values[i] {
				records = append(records, textMismatch(path.With(Index(i)), "ArrayItem", expected.Values[i], actual.Values[i]))
			}
		}
		return records

	default:
		return c.compareFile(path, expected.File, actual.File)
	}
}

func (c formComparer) compareFile(path Path, expected, actual *codec.File) []Record {
	switch {
	case expected == nil && actual == nil:
		return nil
	case expected == nil:
		return []Record{{Path: path, Kind: Undecodable, Message: "Expected file field carries no attachment"}}
	case actual == nil:
		return []Record{{Path: path, Kind: Undecodable, Message: "File field carries no attachment"}}
	}

	var records []Record
	if expected.Filename != actual.Filename {
		records = append(records, Record{
			Path:     path,
			Kind:     ValueMismatch,
			Message:  fmt.Sprintf("Filename (%q) does not match expected value (%q)", actual.Filename, expected.Filename),
			Expected: expected.Filename,
			Actual:   actual.Filename,
		})
	}
	if expected.ContentType != actual.ContentType {
		records = append(records, Record{
			Path:     path,
			Kind:     ValueMismatch,
			Message:  fmt.Sprintf("Mimetype (%s) does not match expected value (%s)", actual.ContentType, expected.ContentType),
			Expected: expected.ContentType,
			Actual:   actual.ContentType,
		})
	}

	if bytes.Equal(expected.Data, actual.Data) {
		return records
	}

	_, content, err := CompareBody(
		Payload{ContentType: expected.ContentType, Data: expected.Data},
		Payload{ContentType: actual.ContentType, Data: actual.Data},
		c.maxDepth,
		c.checkAdditionalKeys,
	)
	if err != nil {
		return append(records, Record{
			Path:    path,
			Kind:    Undecodable,
			Message: fmt.Sprintf("File content could not be decoded: %v", err),
		})
	}
	return append(records, prefixed(path, content)...)
}

func sortedFields(fields []codec.Field) []codec.Field {
	out := make([]codec.Field, len(fields))
	copy(out, fields)
	sort.SliceStable(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

func namesOfKind(fields []codec.Field, kind codec.FieldKind) []string {
	var names []string
	for _, f := range fields {
		if f.Kind == kind {
			names = append(names, f.Name)
		}
	}
	return names
}
