package codec

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"math/rand/v2"
	"mime"
	"mime/multipart"
	"strings"
)

var quoteEscaper = strings.NewReplacer("\\", "\\\\", `"`, "\\\"")

// NewBoundary returns a random boundary of the form boundary<u64><u64>.
func NewBoundary() string {
	return fmt.Sprintf("boundary%d%d", rand.Uint64(), rand.Uint64())
}

func encodeMultipart(fields []Field, boundary string) []byte {
	var buf bytes.Buffer
	for _, e := range expand(fields) {
		fmt.Fprintf(&buf, "\r\n--%s\r\nContent-Disposition: form-data; name=\"%s\"", boundary, quoteEscaper.Replace(e.name))
		if e.file != nil {
			contentType := e.file.ContentType
			if contentType == "" {
				contentType = ContentTypeOctet
			}
			fmt.Fprintf(&buf, "; filename=\"%s\"\r\nContent-Type: %s", quoteEscaper.Replace(e.file.Filename), contentType)
		}
		buf.WriteString("\r\n\r\n")
		if e.file != nil {
			buf.Write(e.file.Data)
		} else {
			buf.WriteString(e.value)
		}
	}
	fmt.Fprintf(&buf, "\r\n--%s--\r\n", boundary)
	return buf.Bytes()
}

func decodeMultipart(data []byte, boundary string) ([]Field, error) {
	if boundary == "" {
		return nil, &DecodeError{Kind: ErrMalformedHeader, Err: errors.New("content type has no boundary parameter")}
	}

	reader := multipart.NewReader(bytes.NewReader(data), boundary)

	var entries []entry
	for index := 1; ; index++ {
		part, err := reader.NextRawPart()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, &DecodeError{Kind: ErrMalformedHeader, Err: fmt.Errorf("part %d: %w", index, err)}
		}

		disposition := part.Header.Get("Content-Disposition")
		if disposition == "" {
			return nil, &DecodeError{Kind: ErrMissingDisposition, Err: fmt.Errorf("part %d", index)}
		}
		_, params, err := mime.ParseMediaType(disposition)
		if err != nil {
			return nil, &DecodeError{Kind: ErrMalformedHeader, Err: fmt.Errorf("part %d: %w", index, err)}
		}

		content, err := io.ReadAll(part)
		if err != nil {
			return nil, &DecodeError{Kind: ErrMalformedHeader, Err: fmt.Errorf("part %d: %w", index, err)}
		}

		filename, isFile := params["filename"]
		if !isFile {
			entries = append(entries, entry{name: params["name"], value: string(content)})
			continue
		}

		contentType := part.Header.Get("Content-Type")
		if contentType == "" {
			contentType = ContentTypeOctet
		}
		entries = append(entries, entry{
			name: params["name"],
			file: &File{Filename: filename, ContentType: contentType, Data: content},
		})
	}

	return normalize(entries), nil
}
