package codec

import "strings"

// Query encodes fields as a query string in declaration order. Array fields
// repeat their name once per value.
func Query(fields ...Field) string {
	return string(encodeURLEncoded(fields))
}

// WithQuery replaces any query string and fragment of path with the encoded
// fields. An empty field list leaves the bare path.
func WithQuery(path string, fields ...Field) string {
	if i := strings.IndexByte(path, '#'); i >= 0 {
		path = path[:i]
	}
	if i := strings.IndexByte(path, '?'); i >= 0 {
		path = path[:i]
	}
	if q := Query(fields...); q != "" {
		return path + "?" + q
	}
	return path
}
