package codec

import (
	"net/url"
	"strings"
)

type FieldKind int

const (
	FieldPlain FieldKind = iota
	FieldArray
	FieldFile
)

func (k FieldKind) String() string {
	switch k {
	case FieldArray:
		return "array"
	case FieldFile:
		return "file attachment"
	default:
		return "plain field"
	}
}

// Field is one named entry of a form body.
type Field struct {
	Name   string
	Kind   FieldKind
	Value  string
	Values []string
	File   *File
}

type File struct {
	Filename    string
	ContentType string
	Data        []byte
}

func Plain(name, value string) Field {
	return Field{Name: name, Kind: FieldPlain, Value: value}
}

// Array builds a repeated field. A single-value array decodes back as a plain
// field since the wire format cannot tell them apart.
func Array(name string, values ...string) Field {
	return Field{Name: name, Kind: FieldArray, Values: values}
}

func Attachment(name, filename, contentType string, data []byte) Field {
	if contentType == "" {
		contentType = ContentTypeOctet
	}
	return Field{
		Name: name,
		Kind: FieldFile,
		File: &File{Filename: filename, ContentType: contentType, Data: data},
	}
}

// entry is a single wire occurrence of a form name.
type entry struct {
	name  string
	value string
	file  *File
}

// normalize groups wire entries into fields: names seen once become plain
// fields, repeated names become one array at the position of their first
// occurrence. File entries are kept as they are.
func normalize(entries []entry) []Field {
	counts := make(map[string]int)
	for _, e := range entries {
		if e.file == nil {
			counts[e.name]++
		}
	}

	positions := make(map[string]int)
	fields := make([]Field, 0, len(entries))
	for _, e := range entries {
		switch {
		case e.file != nil:
			fields = append(fields, Field{Name: e.name, Kind: FieldFile, File: e.file})
		case counts[e.name] == 1:
			fields = append(fields, Plain(e.name, e.value))
		default:
			if i, ok := positions[e.name]; ok {
				fields[i].Values = append(fields[i].Values, e.value)
				continue
			}
			positions[e.name] = len(fields)
			fields = append(fields, Array(e.name, e.value))
		}
	}
	return fields
}

func expand(fields []Field) []entry {
	var entries []entry
	for _, f := range fields {
		switch f.Kind {
		case FieldArray:
			for _, v := range f.Values {
				entries = append(entries, entry{name: f.Name, value: v})
			}
		case FieldFile:
			entries = append(entries, entry{name: f.Name, file: f.File})
		default:
			entries = append(entries, entry{name: f.Name, value: f.Value})
		}
	}
	return entries
}

func decodeURLEncoded(data []byte) []Field {
	var entries []entry
	for _, pair := range strings.Split(string(data), "&") {
		if pair == "" {
			continue
		}
		name, value, _ := strings.Cut(pair, "=")
		entries = append(entries, entry{name: unescape(name), value: unescape(value)})
	}
	return normalize(entries)
}

func unescape(s string) string {
	if v, err := url.QueryUnescape(s); err == nil {
		return v
	}
	return s
}

// encodeURLEncoded keeps field order, unlike url.Values.Encode.
// File fields cannot be represented and are skipped.
func encodeURLEncoded(fields []Field) []byte {
	var sb strings.Builder
	for _, e := range expand(fields) {
		if e.file != nil {
			continue
		}
		if sb.Len() > 0 {
			sb.WriteByte('&')
		}
		sb.WriteString(url.QueryEscape(e.name))
		sb.WriteByte('=')
		sb.WriteString(url.QueryEscape(e.value))
	}
	return []byte(sb.String())
}
