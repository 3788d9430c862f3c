package harness

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"

	"github.com/google/uuid"

	"github.com/Use-Tusk/tusk-harness/internal/codec"
	"github.com/Use-Tusk/tusk-harness/internal/mock"
)

// TestingT is the subset of testing.TB used by Finish.
type TestingT interface {
	Helper()
	Fatal(args ...any)
}

// TB is the subset of testing.TB used by Bind.
type TB interface {
	TestingT
	Errorf(format string, args ...any)
	Cleanup(func())
}

// Request is one test request against an API. Build it with the With, Expect
// and Provide methods, then execute it exactly once with Collect, Finish or
// MustFinish.
type Request struct {
	h   *Harness
	api API
	id  string

	method  string
	path    string
	options Options
	header  http.Header
	body    *codec.Body

	expectedStatus    int
	expectedHeader    http.Header
	unexpectedHeaders []string
	expectedBody      *codec.Body
	exactBody         bool
	jsonPaths         []jsonPathExpectation

	responses []*mock.CannedResponse
	providers []mock.Provider
	dump      bool
	done      bool
}

func (h *Harness) Request(api API, method, path string) *Request {
	return &Request{
		h:              h,
		api:            api,
		id:             uuid.NewString(),
		method:         method,
		path:           path,
		options:        h.Options,
		header:         make(http.Header),
		expectedHeader: make(http.Header),
	}
}

func (r *Request) WithHeader(name, value string) *Request {
	r.header.Set(name, value)
	return r
}

func (r *Request) WithHeaders(header http.Header) *Request {
	for name, values := range header {
		for _, v := range values {
			r.header.Add(name, v)
		}
	}
	return r
}

// WithQuery replaces the query string of the request path.
func (r *Request) WithQuery(fields ...codec.Field) *Request {
	r.path = codec.WithQuery(r.path, fields...)
	return r
}

// WithBody sets the request body. Its content type is sent unless a
// Content-Type header was set explicitly.
func (r *Request) WithBody(body codec.Body) *Request {
	r.body = &body
	return r
}

func (r *Request) WithOptions(opts Options) *Request {
	r.options = opts
	return r
}

func (r *Request) ExpectStatus(status int) *Request {
	r.expectedStatus = status
	return r
}

func (r *Request) ExpectHeader(name, value string) *Request {
	r.expectedHeader.Set(name, value)
	return r
}

func (r *Request) ExpectNoHeader(name string) *Request {
	r.unexpectedHeaders = append(r.unexpectedHeaders, name)
	return r
}

func (r *Request) ExpectHeaders(header http.Header) *Request {
	for name := range header {
		r.expectedHeader.Set(name, header.Get(name))
	}
	return r
}

// ExpectBody compares the response body against body, ignoring additional
// JSON keys and form fields in the response.
func (r *Request) ExpectBody(body codec.Body) *Request {
	r.expectedBody = &body
	r.exactBody = false
	return r
}

func (r *Request) ExpectExactBody(body codec.Body) *Request {
	r.expectedBody = &body
	r.exactBody = true
	return r
}

// ExpectJSONPath expects the JSONPath expression path to select value from the
// response body.
func (r *Request) ExpectJSONPath(path string, value any) *Request {
	r.jsonPaths = append(r.jsonPaths, jsonPathExpectation{path: path, value: value})
	return r
}

// Provide registers canned responses for the outbound calls the API makes
// while serving this request, in the order they are expected to be fetched.
func (r *Request) Provide(responses ...*mock.CannedResponse) *Request {
	r.responses = append(r.responses, responses...)
	return r
}

// Mocks registers providers set up before the request is sent and torn down
// after it was validated.
func (r *Request) Mocks(providers ...mock.Provider) *Request {
	r.providers = append(r.providers, providers...)
	return r
}

// Dump reports the response headers and body. The test always fails.
func (r *Request) Dump() *Request {
	r.dump = true
	return r
}

func (r *Request) URL() string {
	return URL(r.api) + r.path
}

// Bind ties the request to t. If it is still pending when t finishes, t fails
// and the request is executed so its report is shown as well.
func (r *Request) Bind(t TB) *Request {
	t.Helper()
	t.Cleanup(func() {
		if !r.Pending() {
			return
		}
		t.Errorf("%s request to %q was never finished", r.method, r.URL())
		if _, err := r.Collect(); err != nil {
			t.Errorf("%s", err.Error())
		}
	})
	return r
}

// Pending reports whether the request was never executed.
func (r *Request) Pending() bool {
	return !r.done
}

// Collect executes the request and returns its report. The error is nil when
// the report passed and otherwise renders as the full report.
func (r *Request) Collect() (*Report, error) {
	if r.done {
		return nil, ErrAlreadyCollected
	}
	r.done = true

	report := r.execute()
	return report, report.Err()
}

// Finish executes the request and fails t with the rendered report.
func (r *Request) Finish(t TestingT) {
	t.Helper()
	if _, err := r.Collect(); err != nil {
		t.Fatal(err.Error())
	}
}

// MustFinish executes the request and panics with the rendered report.
func (r *Request) MustFinish() {
	if _, err := r.Collect(); err != nil {
		panic(err.Error())
	}
}

func (r *Request) execute() *Report {
	report := &Report{ID: r.id, Method: r.method, URL: r.URL()}
	log := slog.With("request", r.id)

	if err := r.h.Coordinator.Ensure(r.api); err != nil {
		report.Failures = append(report.Failures, Failure{
			Kind:    KindAPIStartTimeout,
			Message: fmt.Sprintf("API Failure: Server for %q did not respond within %dms.", URL(r.api), r.h.Coordinator.TimeoutFor(r.api).Milliseconds()),
			Err:     err,
		})
		return report
	}

	testLock.Lock()
	defer testLock.Unlock()

	tc := r.h.Context
	tc.Activate()
	defer tc.Deactivate()
	defer tc.Reset()

	tc.Provide(r.responses...)
	for _, p := range r.providers {
		p.Setup()
	}
	defer func() {
		for i := len(r.providers) - 1; i >= 0; i-- {
			r.providers[i].Teardown()
		}
	}()

	log.Debug("Sending test request", "method", r.method, "url", report.URL, "responses", len(r.responses))
	res, body, err := r.send()
	if err != nil {
		log.Debug("Test request failed", "error", err)
		report.Failures = append(report.Failures, r.sendFailure(err))
		return report
	}

	contentType := res.Header.Get("Content-Type")
	header := mock.HeaderFrom(res.Header)

	var responseFailures []Failure
	if r.dump {
		responseFailures = append(responseFailures, dumpFailure(contextResponse, header, contentType, body))
	}
	responseFailures = append(responseFailures, validateStatus(r.expectedStatus, res.StatusCode)...)
	responseFailures = append(responseFailures, validateHeaders(contextResponse, r.expectedHeader, r.unexpectedHeaders, header)...)
	responseFailures = append(responseFailures, validateBody(contextResponse, r.expectedBody, r.exactBody, r.options.JSONCompareDepth, contentType, body)...)
	responseFailures = append(responseFailures, validateJSONPaths(r.jsonPaths, r.options.JSONCompareDepth, contentType, body)...)

	provided, unmatched := tc.Drain()
	var requestFailures []Failure
	for _, p := range provided {
		if failures := validateProvided(p, r.options.JSONCompareDepth); len(failures) > 0 {
			requestFailures = append(requestFailures, responseGroup(p, failures))
		}
	}
	for _, req := range unmatched {
		requestFailures = append(requestFailures, unmatchedFailure(req, mock.Closest(provided, req)))
	}

	if r.options.ErrorSuppressCascading && hasErrors(requestFailures) {
		var kept []Failure
		for _, f := range responseFailures {
			if f.Kind == KindDump {
				kept = append(kept, f)
				continue
			}
			report.Suppressed += f.count()
		}
		responseFailures = kept
	}

	report.Failures = append(responseFailures, requestFailures...)
	for i := range report.Failures {
		if g := report.Failures[i].Group; g != nil {
			g.Index = i + 1
		}
	}

	log.Debug("Test request validated", "errors", report.ErrorCount(), "suppressed", report.Suppressed)
	return report
}

// send issues the request and reads the full body within the request timeout.
func (r *Request) send() (*http.Response, []byte, error) {
	ctx, cancel := context.WithTimeout(context.Background(), r.options.APIRequestTimeout)
	defer cancel()

	var payload io.Reader
	var contentType string
	if r.body != nil {
		ct, data, err := codec.Encode(*r.body)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to encode request body: %w", err)
		}
		payload = bytes.NewReader(data)
		contentType = ct
	}

	req, err := http.NewRequestWithContext(ctx, r.method, r.URL(), payload)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header = r.header.Clone()
	if contentType != "" && req.Header.Get("Content-Type") == "" {
		req.Header.Set("Content-Type", contentType)
	}

	res, err := r.h.Client.Do(req)
	if err != nil {
		return nil, nil, err
	}
	defer func() { _ = res.Body.Close() }()

	body, err := io.ReadAll(res.Body)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to read response body: %w", err)
	}
	return res, body, nil
}

func (r *Request) sendFailure(err error) Failure {
	var netErr net.Error
	if errors.Is(err, context.DeadlineExceeded) || (errors.As(err, &netErr) && netErr.Timeout()) {
		return Failure{
			Kind:    KindAPIRequestTimeout,
			Message: fmt.Sprintf("API Failure: No response within %dms.", r.options.APIRequestTimeout.Milliseconds()),
			Err:     errors.Join(ErrAPIRequestTimeout, err),
		}
	}
	return Failure{
		Kind:    KindAPIRequestFailed,
		Message: fmt.Sprintf("API Failure: Request to %q failed: %v", r.URL(), err),
		Err:     errors.Join(ErrAPIRequestFailed, err),
	}
}

// hasErrors reports whether failures contain anything besides dumps.
func hasErrors(failures []Failure) bool {
	for _, f := range failures {
		if f.Group == nil {
			if f.Kind != KindDump {
				return true
			}
			continue
		}
		if hasErrors(f.Group.Failures) {
			return true
		}
	}
	return false
}
