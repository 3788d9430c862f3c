package diff

import (
	"encoding/json"
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"
)

const numberEpsilon = 1e-8

type jsonType int

const (
	jsonString jsonType = iota
	jsonNumber
	jsonBoolean
	jsonNull
	jsonObject
	jsonArray
)

func (t jsonType) String() string {
	return [...]string{"String", "Number", "Boolean", "Null", "Object", "Array"}[t]
}

// CompareJSON compares two decoded JSON documents. Depth starts at 1 for the
// root and nothing below maxDepth is inspected, so a maxDepth of 0 never
// reports anything. When checkAdditionalKeys is false, keys present only in
// actual are ignored. A nil result means the documents match.
func CompareJSON(expected, actual any, maxDepth int, checkAdditionalKeys bool) []Record {
	c := jsonComparer{maxDepth: maxDepth, checkAdditionalKeys: checkAdditionalKeys}
	return c.compare(1, nil, expected, actual)
}

type jsonComparer struct {
	maxDepth            int
	checkAdditionalKeys bool
}

func (c jsonComparer) compare(depth int, path Path, expected, actual any) []Record {
	if depth > c.maxDepth {
		return nil
	}

	expectedType, actualType := typeOf(expected), typeOf(actual)
	switch {
	case expectedType == jsonObject && actualType == jsonObject:
		return c.compareObject(depth, path, expected.(map[string]any), actual.(map[string]any))
	case expectedType == jsonArray && actualType == jsonArray:
		return c.compareArray(depth, path, expected.([]any), actual.([]any))
	case expectedType == actualType:
		if r, ok := compareLeaf(path, expectedType, expected, actual); !ok {
			return []Record{r}
		}
		return nil
	default:
		return []Record{typeMismatch(path, expectedType, actualType, actual)}
	}
}

func (c jsonComparer) compareObject(depth int, path Path, expected, actual map[string]any) []Record {
	if len(expected) == 0 && len(actual) == 0 {
		return nil
	}

	var missing, shared []string
	for _, key := range sortedKeys(expected) {
		if _, ok := actual[key]; ok {
			shared = append(shared, key)
		} else {
			missing = append(missing, key)
		}
	}

	var records []Record
	if len(missing) > 0 {
		records = append(records, Record{
			Path:    path,
			Kind:    MissingKeys,
			Message: fmt.Sprintf("Object is missing %d key(s) (%s)", len(missing), strings.Join(missing, ", ")),
			Keys:    missing,
		})
	}

	if c.checkAdditionalKeys {
		var additional []string
		for _, key := range sortedKeys(actual) {
			if _, ok := expected[key]; !ok {
				additional = append(additional, key)
			}
		}
		if len(additional) > 0 {
			records = append(records, Record{
				Path:    path,
				Kind:    AdditionalKeys,
				Message: fmt.Sprintf("Object has %d additional unexpected key(s) (%s)", len(additional), strings.Join(additional, ", ")),
				Keys:    additional,
			})
		}
	}

	for _, key := range shared {
		records = append(records, c.compare(depth+1, path.With(Key(key)), expected[key], actual[key])...)
	}
	return records
}

func (c jsonComparer) compareArray(depth int, path Path, expected, actual []any) []Record {
	if len(expected) == 0 && len(actual) == 0 {
		return nil
	}

	var records []Record
	if len(expected) != len(actual) {
		records = append(records, lengthMismatch(path, len(expected), len(actual)))
		if depth >= c.maxDepth {
			return records
		}
	}

	for i := 0; i < len(expected) && i < len(actual); i++ {
		records = append(records, c.compare(depth+1, path.With(Index(i)), expected[i], actual[i])...)
	}
	return records
}

func lengthMismatch(path Path, expected, actual int) Record {
	return Record{
		Path:     path,
		Kind:     LengthMismatch,
		Message:  fmt.Sprintf("Array with %d item(s) does not match expected length of %d", actual, expected),
		Expected: strconv.Itoa(expected),
		Actual:   strconv.Itoa(actual),
	}
}

func compareLeaf(path Path, t jsonType, expected, actual any) (Record, bool) {
	switch t {
	case jsonString:
		e, a := expected.(string), actual.(string)
		if e == a {
			return Record{}, true
		}
		return valueMismatch(path, t, strconv.Quote(e), strconv.Quote(a)), false

	case jsonNumber:
		e, a := toFloat(expected), toFloat(actual)
		if math.Abs(e-a) < numberEpsilon {
			return Record{}, true
		}
		return valueMismatch(path, t, formatNumber(e), formatNumber(a)), false

	case jsonBoolean:
		e, a := expected.(bool), actual.(bool)
		if e == a {
			return Record{}, true
		}
		return valueMismatch(path, t, strconv.FormatBool(e), strconv.FormatBool(a)), false
	}

	return Record{}, true
}

func valueMismatch(path Path, t jsonType, expected, actual string) Record {
	return Record{
		Path:     path,
		Kind:     ValueMismatch,
		Message:  fmt.Sprintf("%s (%s) does not match expected value (%s)", t, actual, expected),
		Expected: expected,
		Actual:   actual,
	}
}

func typeMismatch(path Path, expected, actual jsonType, value any) Record {
	msg := fmt.Sprintf("Expected a %s but found a %s", expected, actual)
	switch actual {
	case jsonString:
		msg += fmt.Sprintf(" (%s)", strconv.Quote(value.(string)))
	case jsonNumber:
		msg += fmt.Sprintf(" (%s)", formatNumber(toFloat(value)))
	case jsonBoolean:
		msg += fmt.Sprintf(" (%t)", value.(bool))
	case jsonObject:
		msg += fmt.Sprintf(" with %d key(s)", len(value.(map[string]any)))
	case jsonArray:
		msg += fmt.Sprintf(" with %d item(s)", len(value.([]any)))
	}
	return Record{
		Path:     path,
		Kind:     TypeMismatch,
		Message:  msg,
		Expected: expected.String(),
		Actual:   actual.String(),
	}
}

func typeOf(v any) jsonType {
	switch v.(type) {
	case nil:
		return jsonNull
	case string:
		return jsonString
	case bool:
		return jsonBoolean
	case map[string]any:
		return jsonObject
	case []any:
		return jsonArray
	default:
		return jsonNumber
	}
}

func toFloat(v any) float64 {
	switch n := v.(type) {
	case float64:
		return n
	case float32:
		return float64(n)
	case int:
		return float64(n)
	case int64:
		return float64(n)
	case int32:
		return float64(n)
	case uint64:
		return float64(n)
	case uint32:
		return float64(n)
	case json.Number:
		f, _ := n.Float64()
		return f
	}
	return math.NaN()
}

func formatNumber(f float64) string {
	return strconv.FormatFloat(f, 'g', -1, 64)
}

func sortedKeys(m map[string]any) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
