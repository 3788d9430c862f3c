package mock

import (
	"bytes"
	"fmt"
	"io"
	"net"
	"net/http"
	"strconv"

	"github.com/Use-Tusk/tusk-harness/internal/codec"
)

// Endpoint identifies an external host the service under test talks to.
type Endpoint struct {
	Hostname string `json:"hostname" yaml:"hostname"`
	Port     int    `json:"port" yaml:"port"`
}

func (e Endpoint) Host() string {
	return net.JoinHostPort(e.Hostname, strconv.Itoa(e.Port))
}

// URL returns the base URL, leaving out the default ports. Port 443 is https.
func (e Endpoint) URL() string {
	switch e.Port {
	case 443:
		return "https://" + e.Hostname
	case 80:
		return "http://" + e.Hostname
	default:
		return "http://" + e.Host()
	}
}

func (e Endpoint) Get(path string) *CannedResponse     { return Respond(e, http.MethodGet, path) }
func (e Endpoint) Post(path string) *CannedResponse    { return Respond(e, http.MethodPost, path) }
func (e Endpoint) Put(path string) *CannedResponse     { return Respond(e, http.MethodPut, path) }
func (e Endpoint) Patch(path string) *CannedResponse   { return Respond(e, http.MethodPatch, path) }
func (e Endpoint) Delete(path string) *CannedResponse  { return Respond(e, http.MethodDelete, path) }
func (e Endpoint) Head(path string) *CannedResponse    { return Respond(e, http.MethodHead, path) }
func (e Endpoint) Options(path string) *CannedResponse { return Respond(e, http.MethodOptions, path) }

// CannedResponse answers the first captured request with the same endpoint,
// method and path. It also carries the expectations for that request, checked
// after the test request completes.
type CannedResponse struct {
	Endpoint Endpoint
	Method   string
	Path     string

	Status int
	Header http.Header
	Body   *codec.Body
	Err    error

	ExpectedHeader    http.Header
	UnexpectedHeaders []string
	ExpectedBody      *codec.Body
	ExactBody         bool

	// JSONCompareDepth overrides the harness option when non-zero.
	JSONCompareDepth int
	DumpRequest      bool
}

func Respond(endpoint Endpoint, method, path string) *CannedResponse {
	return &CannedResponse{
		Endpoint:       endpoint,
		Method:         method,
		Path:           path,
		Header:         make(http.Header),
		ExpectedHeader: make(http.Header),
	}
}

func (r *CannedResponse) WithStatus(status int) *CannedResponse {
	r.Status = status
	return r
}

func (r *CannedResponse) WithHeader(name, value string) *CannedResponse {
	r.Header.Set(name, value)
	return r
}

// WithQuery replaces the query string of the matched path.
func (r *CannedResponse) WithQuery(fields ...codec.Field) *CannedResponse {
	r.Path = codec.WithQuery(r.Path, fields...)
	return r
}

// WithBody sets the body. Its content type is sent unless a Content-Type
// header was set explicitly.
func (r *CannedResponse) WithBody(body codec.Body) *CannedResponse {
	r.Body = &body
	return r
}

// WithError makes the transport fail with err instead of responding.
func (r *CannedResponse) WithError(err error) *CannedResponse {
	r.Err = err
	return r
}

func (r *CannedResponse) ExpectHeader(name, value string) *CannedResponse {
	r.ExpectedHeader.Set(name, value)
	return r
}

func (r *CannedResponse) ExpectNoHeader(name string) *CannedResponse {
	r.UnexpectedHeaders = append(r.UnexpectedHeaders, name)
	return r
}

// ExpectBody sets the body the captured request should carry. Additional JSON
// keys and form fields on the request are ignored.
func (r *CannedResponse) ExpectBody(body codec.Body) *CannedResponse {
	r.ExpectedBody = &body
	r.ExactBody = false
	return r
}

// ExpectExactBody is ExpectBody, but additional keys and fields fail the test.
func (r *CannedResponse) ExpectExactBody(body codec.Body) *CannedResponse {
	r.ExpectedBody = &body
	r.ExactBody = true
	return r
}

func (r *CannedResponse) WithCompareDepth(depth int) *CannedResponse {
	r.JSONCompareDepth = depth
	return r
}

// Dump reports the captured request's headers and body. The test always fails.
func (r *CannedResponse) Dump() *CannedResponse {
	r.DumpRequest = true
	return r
}

func (r *CannedResponse) Matches(req *CapturedRequest) bool {
	return r.Method == req.Method &&
		r.Endpoint.Hostname == req.Hostname &&
		r.Endpoint.Port == req.Port &&
		r.Path == req.Path
}

func (r *CannedResponse) URL() string {
	return r.Endpoint.URL() + r.Path
}

func (r *CannedResponse) String() string {
	return r.Method + " " + r.URL()
}

// Encode serializes the response as HTTP/1.1 bytes. The status defaults to
// 200 OK.
func (r *CannedResponse) Encode() ([]byte, error) {
	status := r.Status
	if status == 0 {
		status = http.StatusOK
	}

	header := r.Header.Clone()
	if header == nil {
		header = make(http.Header)
	}

	var data []byte
	if r.Body != nil {
		contentType, encoded, err := codec.Encode(*r.Body)
		if err != nil {
			return nil, fmt.Errorf("failed to encode body for %s: %w", r, err)
		}
		if contentType != "" && header.Get("Content-Type") == "" {
			header.Set("Content-Type", contentType)
		}
		data = encoded
	}

	res := &http.Response{
		Status:        fmt.Sprintf("%d %s", status, http.StatusText(status)),
		StatusCode:    status,
		Proto:         "HTTP/1.1",
		ProtoMajor:    1,
		ProtoMinor:    1,
		Header:        header,
		ContentLength: int64(len(data)),
		Body:          io.NopCloser(bytes.NewReader(data)),
	}

	var buf bytes.Buffer
	if err := res.Write(&buf); err != nil {
		return nil, fmt.Errorf("failed to write response for %s: %w", r, err)
	}
	return buf.Bytes(), nil
}
