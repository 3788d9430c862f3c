package mock

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"net/http/httputil"
	"strconv"
	"sync"
	"time"
)

// Server answers requests from services running out of process with the
// canned responses of a TestContext. Services are pointed at the server in
// place of the real external endpoint.
type Server struct {
	ctx      *TestContext
	addr     string
	listener net.Listener
	httpSrv  *http.Server

	mu                 sync.RWMutex
	mockNotFoundEvents []MockNotFoundEvent
}

type MockNotFoundEvent struct {
	Method     string    `json:"method"`
	URL        string    `json:"url"`
	Timestamp  time.Time `json:"timestamp"`
	Error      string    `json:"error"`
	Suggestion string    `json:"suggestion,omitempty"`
}

// NewServer creates a server for ctx listening on addr once started.
func NewServer(ctx *TestContext, addr string) *Server {
	return &Server{ctx: ctx, addr: addr}
}

// Start begins listening
func (ms *Server) Start() error {
	listener, err := net.Listen("tcp", ms.addr)
	if err != nil {
		return fmt.Errorf("failed to create TCP listener: %w", err)
	}
	ms.listener = listener
	ms.httpSrv = &http.Server{
		Handler:           ms,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		if err := ms.httpSrv.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("Mock server stopped unexpectedly", "address", ms.Addr(), "error", err)
		}
	}()

	slog.Debug("Mock server started", "address", ms.Addr())
	return nil
}

// Stop shuts down the mock server
func (ms *Server) Stop() error {
	if ms.httpSrv == nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := ms.httpSrv.Shutdown(ctx); err != nil {
		return fmt.Errorf("failed to stop mock server: %w", err)
	}
	slog.Debug("Mock server stopped", "address", ms.Addr())
	return nil
}

// Addr returns the bound address, which differs from the configured one when
// listening on port 0.
func (ms *Server) Addr() string {
	if ms.listener != nil {
		return ms.listener.Addr().String()
	}
	return ms.addr
}

func (ms *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if !ms.ctx.Active() {
		http.Error(w, "mock server has no test running", http.StatusServiceUnavailable)
		return
	}

	// Proxied requests carry the absolute target in the request line
	if r.URL.IsAbs() {
		r = r.Clone(r.Context())
		r.RequestURI = r.URL.RequestURI()
	}

	raw, err := httputil.DumpRequest(r, true)
	if err != nil {
		http.Error(w, fmt.Sprintf("failed to read request: %v", err), http.StatusBadRequest)
		return
	}

	hostname, port := splitHost(r.Host)
	captured, err := ParseRequest(hostname, port, raw)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	data, err := ms.ctx.Resolve(captured)
	switch {
	case errors.Is(err, ErrNoResponseProvided):
		ev := MockNotFoundEvent{
			Method:    captured.Method,
			URL:       captured.URL(),
			Timestamp: time.Now(),
			Error:     err.Error(),
		}
		if closest := ms.ctx.Suggest(captured); closest != nil {
			ev.Suggestion = closest.String()
		}
		ms.recordMockNotFoundEvent(ev)
		http.Error(w, err.Error(), http.StatusBadGateway)
		return

	case err != nil:
		// Synthetic transport failure: drop the connection without a response.
		if hj, ok := w.(http.Hijacker); ok {
			if conn, _, hjErr := hj.Hijack(); hjErr == nil {
				_ = conn.Close()
				return
			}
		}
		http.Error(w, err.Error(), http.StatusBadGateway)
		return
	}

	res, err := http.ReadResponse(bufio.NewReader(bytes.NewReader(data)), r)
	if err != nil {
		http.Error(w, fmt.Sprintf("failed to read canned response: %v", err), http.StatusInternalServerError)
		return
	}
	defer res.Body.Close()

	for name, values := range res.Header {
		for _, v := range values {
			w.Header().Add(name, v)
		}
	}
	w.WriteHeader(res.StatusCode)
	if _, err := io.Copy(w, res.Body); err != nil {
		slog.Debug("Failed to write canned response", "request", captured.String(), "error", err)
	}
}

func (ms *Server) recordMockNotFoundEvent(ev MockNotFoundEvent) {
	ms.mu.Lock()
	defer ms.mu.Unlock()
	ms.mockNotFoundEvents = append(ms.mockNotFoundEvents, ev)
}

func (ms *Server) GetMockNotFoundEvents() []MockNotFoundEvent {
	ms.mu.RLock()
	defer ms.mu.RUnlock()
	out := make([]MockNotFoundEvent, len(ms.mockNotFoundEvents))
	copy(out, ms.mockNotFoundEvents)
	return out
}

func (ms *Server) HasMockNotFoundEvents() bool {
	ms.mu.RLock()
	defer ms.mu.RUnlock()
	return len(ms.mockNotFoundEvents) > 0
}

func (ms *Server) ClearMockNotFoundEvents() {
	ms.mu.Lock()
	defer ms.mu.Unlock()
	ms.mockNotFoundEvents = nil
}

func splitHost(hostport string) (string, int) {
	host, p, err := net.SplitHostPort(hostport)
	if err != nil {
		return hostport, 80
	}
	port, err := strconv.Atoi(p)
	if err != nil {
		return host, 80
	}
	return host, port
}
