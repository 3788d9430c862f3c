package harness

import (
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"
)

const startupProbeTimeout = 50 * time.Millisecond

// Coordinator starts every API once per host:port and waits until it answers.
type Coordinator struct {
	// Timeout is the default startup window when an API does not set its own.
	Timeout time.Duration
	// Interval is the pause between startup probes.
	Interval time.Duration

	mu      sync.Mutex
	started map[string]*startup
	probe   *http.Client
}

type startup struct {
	done chan struct{}
	err  error
}

func NewCoordinator() *Coordinator {
	return &Coordinator{
		Timeout:  DefaultStartupTimeout,
		Interval: DefaultStartupInterval,
		started:  make(map[string]*startup),
		probe:    &http.Client{Timeout: startupProbeTimeout},
	}
}

// Ensure starts api in the background on first use for its host and polls it
// with HEAD requests until any response arrives. Callers for a host that is
// already starting wait for that attempt and share its result. No lock is held
// while polling.
func (c *Coordinator) Ensure(api API) error {
	host := Host(api)

	c.mu.Lock()
	s, ok := c.started[host]
	if !ok {
		s = &startup{done: make(chan struct{})}
		c.started[host] = s
	}
	c.mu.Unlock()

	if ok {
		<-s.done
		return s.err
	}

	timeout := c.TimeoutFor(api)
	slog.Debug("Starting API", "host", host, "timeout", timeout)
	go api.Start()

	s.err = c.poll(URL(api), timeout)
	close(s.done)
	if s.err != nil {
		slog.Debug("API failed to start", "host", host, "error", s.err)
	}
	return s.err
}

// TimeoutFor returns the startup window used for api.
func (c *Coordinator) TimeoutFor(api API) time.Duration {
	if t, ok := api.(StartupTimeouter); ok && t.StartupTimeout() > 0 {
		return t.StartupTimeout()
	}
	return c.Timeout
}

// Started reports whether api already answered a startup probe.
func (c *Coordinator) Started(api API) bool {
	c.mu.Lock()
	s, ok := c.started[Host(api)]
	c.mu.Unlock()
	if !ok {
		return false
	}
	select {
	case <-s.done:
		return s.err == nil
	default:
		return false
	}
}

func (c *Coordinator) poll(url string, timeout time.Duration) error {
	deadline := time.NewTimer(timeout)
	defer deadline.Stop()
	ticker := time.NewTicker(c.Interval)
	defer ticker.Stop()

	for {
		if res, err := c.probe.Head(url); err == nil {
			_ = res.Body.Close()
			return nil
		}
		select {
		case <-deadline.C:
			return fmt.Errorf("%w: %s did not respond within %v", ErrAPIStartTimeout, url, timeout)
		case <-ticker.C:
		}
	}
}
