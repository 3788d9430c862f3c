// Package harness drives black-box tests against an HTTP API. A test request
// provides canned responses for the API's outbound calls, sends one request to
// the API, and validates both the API's response and every outbound request
// the API made while serving it.
package harness

import (
	"net/http"
	"sync"

	"github.com/Use-Tusk/tusk-harness/internal/mock"
)

// Harness ties the response registry seen by the service under test to the
// client that calls it. Client must not route through the mock transport.
type Harness struct {
	Context     *mock.TestContext
	Client      *http.Client
	Coordinator *Coordinator
	Options     Options
}

func New() *Harness {
	return &Harness{
		Context:     mock.NewTestContext(),
		Client:      &http.Client{},
		Coordinator: NewCoordinator(),
		Options:     DefaultOptions(),
	}
}

// Default is the process-wide harness used by the package-level helpers.
var Default = sync.OnceValue(New)

// Transport returns the round tripper the service under test must use for its
// outbound calls.
func (h *Harness) Transport() *mock.Transport {
	return mock.NewTransport(h.Context)
}

// HTTPClient returns a client for the service under test's outbound calls.
func (h *Harness) HTTPClient() *http.Client {
	return mock.NewClient(h.Context)
}

func Get(api API, path string) *Request    { return Default().Request(api, http.MethodGet, path) }
func Post(api API, path string) *Request   { return Default().Request(api, http.MethodPost, path) }
func Put(api API, path string) *Request    { return Default().Request(api, http.MethodPut, path) }
func Patch(api API, path string) *Request  { return Default().Request(api, http.MethodPatch, path) }
func Delete(api API, path string) *Request { return Default().Request(api, http.MethodDelete, path) }
func Head(api API, path string) *Request   { return Default().Request(api, http.MethodHead, path) }
