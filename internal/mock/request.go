// Package mock intercepts outbound HTTP calls made by a service under test and
// answers them from canned responses registered on a TestContext.
package mock

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httputil"
	"net/textproto"
	"sort"
	"strings"
)

var ErrMalformedRequest = errors.New("malformed request")

type HeaderField struct {
	Name  string
	Value string
}

// Header keeps fields in the order they appeared on the wire.
type Header []HeaderField

// Get returns the first value for name, compared case-insensitively.
func (h Header) Get(name string) string {
	for _, f := range h {
		if strings.EqualFold(f.Name, name) {
			return f.Value
		}
	}
	return ""
}

func (h Header) Has(name string) bool {
	for _, f := range h {
		if strings.EqualFold(f.Name, name) {
			return true
		}
	}
	return false
}

func (h Header) Values(name string) []string {
	var values []string
	for _, f := range h {
		if strings.EqualFold(f.Name, name) {
			values = append(values, f.Value)
		}
	}
	return values
}

// HeaderFrom flattens h in sorted name order.
func HeaderFrom(h http.Header) Header {
	names := make([]string, 0, len(h))
	for name := range h {
		names = append(names, name)
	}
	sort.Strings(names)

	var out Header
	for _, name := range names {
		for _, v := range h[name] {
			out = append(out, HeaderField{Name: name, Value: v})
		}
	}
	return out
}

func (h Header) HTTP() http.Header {
	out := make(http.Header, len(h))
	for _, f := range h {
		out.Add(f.Name, f.Value)
	}
	return out
}

// Sorted returns a copy ordered by canonical name, keeping the relative order
// of repeated fields.
func (h Header) Sorted() Header {
	out := make(Header, len(h))
	copy(out, h)
	sort.SliceStable(out, func(i, j int) bool {
		return textproto.CanonicalMIMEHeaderKey(out[i].Name) < textproto.CanonicalMIMEHeaderKey(out[j].Name)
	})
	return out
}

// CapturedRequest is an outbound request as the interceptor saw it on the wire.
// Path is the request target, including any query string.
type CapturedRequest struct {
	Hostname string
	Port     int
	Method   string
	Path     string
	Header   Header
	Body     []byte
}

func (r *CapturedRequest) Endpoint() Endpoint {
	return Endpoint{Hostname: r.Hostname, Port: r.Port}
}

func (r *CapturedRequest) URL() string {
	return r.Endpoint().URL() + r.Path
}

func (r *CapturedRequest) ContentType() string {
	return r.Header.Get("Content-Type")
}

func (r *CapturedRequest) String() string {
	return r.Method + " " + r.URL()
}

// ParseRequest parses raw HTTP/1.1 request bytes sent to hostname:port. The body
// is everything after the header block, de-chunked when the request used
// chunked transfer encoding.
func ParseRequest(hostname string, port int, raw []byte) (*CapturedRequest, error) {
	head, body, ok := bytes.Cut(raw, []byte("\r\n\r\n"))
	if !ok {
		return nil, fmt.Errorf("%w: header block is not terminated", ErrMalformedRequest)
	}

	lines := strings.Split(string(head), "\r\n")
	parts := strings.Fields(lines[0])
	if len(parts) != 3 || !strings.HasPrefix(parts[2], "HTTP/") {
		return nil, fmt.Errorf("%w: invalid request line %q", ErrMalformedRequest, lines[0])
	}

	req := &CapturedRequest{
		Hostname: hostname,
		Port:     port,
		Method:   parts[0],
		Path:     parts[1],
	}

	for _, line := range lines[1:] {
		name, value, ok := strings.Cut(line, ":")
		if !ok || strings.TrimSpace(name) == "" {
			return nil, fmt.Errorf("%w: invalid header line %q", ErrMalformedRequest, line)
		}
		req.Header = append(req.Header, HeaderField{Name: strings.TrimSpace(name), Value: strings.TrimSpace(value)})
	}

	if strings.EqualFold(req.Header.Get("Transfer-Encoding"), "chunked") {
		decoded, err := io.ReadAll(httputil.NewChunkedReader(bufio.NewReader(bytes.NewReader(body))))
		if err != nil {
			return nil, fmt.Errorf("%w: invalid chunked body: %v", ErrMalformedRequest, err)
		}
		body = decoded
	}
	req.Body = body

	return req, nil
}
