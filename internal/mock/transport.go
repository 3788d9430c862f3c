package mock

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"strconv"
)

// Transport answers requests from its TestContext while the context is
// active. Otherwise every request goes to Base, or http.DefaultTransport when
// Base is nil.
type Transport struct {
	Context *TestContext
	Base    http.RoundTripper
}

func NewTransport(ctx *TestContext) *Transport {
	return &Transport{Context: ctx}
}

// NewClient returns a client for services under test. It behaves like a plain
// http.Client whenever ctx is inactive.
func NewClient(ctx *TestContext) *http.Client {
	return &http.Client{Transport: NewTransport(ctx)}
}

func (t *Transport) RoundTrip(req *http.Request) (*http.Response, error) {
	if t.Context == nil || !t.Context.Active() {
		return t.base().RoundTrip(req)
	}

	var buf bytes.Buffer
	if err := req.Write(&buf); err != nil {
		return nil, fmt.Errorf("failed to capture request: %w", err)
	}

	hostname, port := target(req.URL)
	captured, err := ParseRequest(hostname, port, buf.Bytes())
	if err != nil {
		// net/http always writes well-formed requests
		panic(fmt.Sprintf("mock: captured request for %s could not be parsed: %v", req.URL, err))
	}

	data, err := t.Context.Resolve(captured)
	if err != nil {
		if errors.Is(err, ErrNoResponseProvided) {
			return nil, &net.OpError{Op: "dial", Net: "tcp", Err: err}
		}
		return nil, err
	}

	res, err := http.ReadResponse(bufio.NewReader(bytes.NewReader(data)), req)
	if err != nil {
		return nil, fmt.Errorf("failed to read canned response for %s: %w", captured, err)
	}
	return res, nil
}

func (t *Transport) base() http.RoundTripper {
	if t.Base != nil {
		return t.Base
	}
	return http.DefaultTransport
}

func target(u *url.URL) (string, int) {
	if p := u.Port(); p != "" {
		if port, err := strconv.Atoi(p); err == nil {
			return u.Hostname(), port
		}
	}
	if u.Scheme == "https" {
		return u.Hostname(), 443
	}
	return u.Hostname(), 80
}
