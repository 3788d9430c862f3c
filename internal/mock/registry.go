package mock

import (
	"errors"
	"log/slog"
	"sync"

	"github.com/agnivade/levenshtein"
)

var ErrNoResponseProvided = errors.New("no response provided in test")

// Provided is a canned response paired with its position in the provision
// order and, once fetched, the request that consumed it.
type Provided struct {
	Response       *CannedResponse
	ProvisionIndex int
	FetchIndex     int
	Request        *CapturedRequest
	// EncodeErr is set when the response matched but could not be encoded.
	EncodeErr error
}

func (p Provided) Fetched() bool {
	return p.Request != nil
}

// OutOfOrder reports whether the response was consumed by a different request
// position than the one it was provided for.
func (p Provided) OutOfOrder() bool {
	return p.Fetched() && p.ProvisionIndex != p.FetchIndex
}

// TestContext is the response registry for the test currently executing. Every
// operation is safe for concurrent use; tests sharing one context must still be
// serialized by the caller.
type TestContext struct {
	mu         sync.Mutex
	active     bool
	provided   []Provided
	unmatched  []*CapturedRequest
	fetchIndex int
}

func NewTestContext() *TestContext {
	return &TestContext{}
}

func (c *TestContext) Activate() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.active = true
}

func (c *TestContext) Deactivate() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.active = false
}

func (c *TestContext) Active() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.active
}

// Provide appends responses in order. It may be called again while a request
// is in flight.
func (c *TestContext) Provide(responses ...*CannedResponse) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, r := range responses {
		c.provided = append(c.provided, Provided{Response: r, ProvisionIndex: len(c.provided)})
		slog.Debug("Provided canned response", "response", r.String(), "index", len(c.provided)-1)
	}
}

// Resolve answers req with the first unconsumed matching response. Every call
// takes the next fetch index, whether it matches or not. A request nothing
// matches is recorded and ErrNoResponseProvided returned.
func (c *TestContext) Resolve(req *CapturedRequest) ([]byte, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	index := c.fetchIndex
	c.fetchIndex++

	for i := range c.provided {
		p := &c.provided[i]
		if p.Fetched() || !p.Response.Matches(req) {
			continue
		}
		p.Request = req
		p.FetchIndex = index
		slog.Debug("Resolved captured request", "request", req.String(), "provisionIndex", p.ProvisionIndex, "fetchIndex", index)

		if p.Response.Err != nil {
			return nil, p.Response.Err
		}
		data, err := p.Response.Encode()
		if err != nil {
			p.EncodeErr = err
			slog.Debug("Failed to encode canned response", "response", p.Response.String(), "error", err)
		}
		return data, err
	}

	c.unmatched = append(c.unmatched, req)
	slog.Debug("No canned response for captured request", "request", req.String(), "fetchIndex", index)
	return nil, ErrNoResponseProvided
}

// Drain returns the provided responses in provision order and the requests no
// response matched, leaving the context empty.
func (c *TestContext) Drain() ([]Provided, []*CapturedRequest) {
	c.mu.Lock()
	defer c.mu.Unlock()
	provided, unmatched := c.provided, c.unmatched
	c.provided, c.unmatched, c.fetchIndex = nil, nil, 0
	return provided, unmatched
}

// Reset clears all responses, captured requests and counters. The active flag
// is left as it is.
func (c *TestContext) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.provided, c.unmatched, c.fetchIndex = nil, nil, 0
}

// Pending returns the number of provided responses not consumed yet.
func (c *TestContext) Pending() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	n := 0
	for _, p := range c.provided {
		if !p.Fetched() {
			n++
		}
	}
	return n
}

// Suggest returns the unconsumed response closest to req, comparing method and
// URL by edit distance. It returns nil when every response was consumed.
func (c *TestContext) Suggest(req *CapturedRequest) *CannedResponse {
	c.mu.Lock()
	defer c.mu.Unlock()
	return Closest(c.provided, req)
}

func Closest(provided []Provided, req *CapturedRequest) *CannedResponse {
	var best *CannedResponse
	bestDistance := -1
	target := req.String()
	for _, p := range provided {
		if p.Fetched() {
			continue
		}
		d := levenshtein.ComputeDistance(target, p.Response.String())
		if bestDistance < 0 || d < bestDistance {
			best, bestDistance = p.Response, d
		}
	}
	return best
}
