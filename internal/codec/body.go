// Package codec classifies HTTP bodies by their content type and serializes
// typed bodies back into bytes.
package codec

import (
	"encoding/json"
	"errors"
	"fmt"
	"mime"
	"strings"
	"unicode/utf8"
)

// Kind is the interpretation chosen for a body.
type Kind int

const (
	KindRaw Kind = iota
	KindText
	KindJSON
	KindForm
)

func (k Kind) String() string {
	switch k {
	case KindText:
		return "text"
	case KindJSON:
		return "JSON"
	case KindForm:
		return "form"
	default:
		return "raw"
	}
}

const (
	ContentTypeText      = "text/plain; charset=utf-8"
	ContentTypeJSON      = "application/json"
	ContentTypeForm      = "application/x-www-form-urlencoded"
	ContentTypeMultipart = "multipart/form-data"
	ContentTypeOctet     = "application/octet-stream"
)

// Body is a typed HTTP body. Only the fields matching Kind are meaningful.
type Body struct {
	Kind Kind

	Text   string
	Tree   any
	Fields []Field
	Data   []byte

	// ContentType overrides the media type used when encoding text and raw bodies.
	ContentType string

	// Multipart forces multipart encoding for forms without file fields.
	Multipart bool
	Boundary  string
}

func Text(s string) Body {
	return Body{Kind: KindText, Text: s}
}

// JSON wraps any value that encoding/json can marshal.
func JSON(v any) Body {
	return Body{Kind: KindJSON, Tree: v}
}

func Raw(data []byte, contentType string) Body {
	return Body{Kind: KindRaw, Data: data, ContentType: contentType}
}

// Form builds a form body. Forms containing a file attachment are encoded as
// multipart, everything else as urlencoded.
func Form(fields ...Field) Body {
	b := Body{Kind: KindForm, Fields: fields}
	for _, f := range fields {
		if f.Kind == FieldFile {
			b.Multipart = true
			b.Boundary = NewBoundary()
			break
		}
	}
	return b
}

func Multipart(fields ...Field) Body {
	return Body{Kind: KindForm, Fields: fields, Multipart: true, Boundary: NewBoundary()}
}

// Decode interprets data according to contentType.
func Decode(data []byte, contentType string) (Body, error) {
	mediaType, params, err := mime.ParseMediaType(contentType)
	if err != nil {
		return Raw(data, contentType), nil
	}

	switch {
	case strings.HasPrefix(mediaType, "text/"):
		if offset := invalidUTF8Offset(data); offset >= 0 {
			return Body{}, &DecodeError{Kind: ErrInvalidUTF8, Offset: int64(offset)}
		}
		return Body{Kind: KindText, Text: string(data), ContentType: contentType}, nil

	case mediaType == ContentTypeJSON || strings.HasSuffix(mediaType, "+json"):
		var tree any
		if err := json.Unmarshal(data, &tree); err != nil {
			decodeErr := &DecodeError{Kind: ErrInvalidJSON, Err: err}
			var syntaxErr *json.SyntaxError
			if errors.As(err, &syntaxErr) {
				decodeErr.Offset = syntaxErr.Offset
			}
			return Body{}, decodeErr
		}
		return Body{Kind: KindJSON, Tree: tree}, nil

	case mediaType == ContentTypeForm:
		return Body{Kind: KindForm, Fields: decodeURLEncoded(data)}, nil

	case mediaType == ContentTypeMultipart || mediaType == "application/form-data":
		fields, err := decodeMultipart(data, params["boundary"])
		if err != nil {
			return Body{}, err
		}
		return Body{Kind: KindForm, Fields: fields, Multipart: true, Boundary: params["boundary"]}, nil
	}

	return Raw(data, contentType), nil
}

// Encode serializes b and returns the content type it should be sent with.
// Raw bodies without a content type return an empty content type.
func Encode(b Body) (string, []byte, error) {
	switch b.Kind {
	case KindText:
		contentType := b.ContentType
		if contentType == "" {
			contentType = ContentTypeText
		}
		return contentType, []byte(b.Text), nil

	case KindJSON:
		if raw, ok := b.Tree.(json.RawMessage); ok {
			return ContentTypeJSON, raw, nil
		}
		data, err := json.Marshal(b.Tree)
		if err != nil {
			return "", nil, fmt.Errorf("failed to encode JSON body: %w", err)
		}
		return ContentTypeJSON, data, nil

	case KindForm:
		if !b.Multipart {
			return ContentTypeForm, encodeURLEncoded(b.Fields), nil
		}
		boundary := b.Boundary
		if boundary == "" {
			boundary = NewBoundary()
		}
		contentType := mime.FormatMediaType(ContentTypeMultipart, map[string]string{"boundary": boundary})
		return contentType, encodeMultipart(b.Fields, boundary), nil
	}

	return b.ContentType, b.Data, nil
}

// invalidUTF8Offset returns the offset of the first invalid sequence, or -1.
func invalidUTF8Offset(data []byte) int {
	for i := 0; i < len(data); {
		r, size := utf8.DecodeRune(data[i:])
		if r == utf8.RuneError && size <= 1 {
			return i
		}
		i += size
	}
	return -1
}
