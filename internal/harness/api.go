package harness

import (
	"net"
	"strconv"
	"time"
)

// API is a service under test. Start runs the service and may block for as
// long as it serves; it is called at most once per process for each host.
type API interface {
	Hostname() string
	Port() int
	Start()
}

// StartupTimeouter lets an API override how long startup polling waits.
type StartupTimeouter interface {
	StartupTimeout() time.Duration
}

func Host(api API) string {
	return net.JoinHostPort(api.Hostname(), strconv.Itoa(api.Port()))
}

// URL returns the base URL of api, leaving out default ports.
func URL(api API) string {
	switch api.Port() {
	case 443:
		return "https://" + api.Hostname()
	case 80:
		return "http://" + api.Hostname()
	default:
		return "http://" + Host(api)
	}
}

// External is an API that is already running, or is started by someone else.
type External struct {
	hostname string
	port     int
}

func NewExternal(hostname string, port int) External {
	return External{hostname: hostname, port: port}
}

func (e External) Hostname() string { return e.hostname }
func (e External) Port() int        { return e.port }
func (e External) Start()           {}

// Func is an API started by calling run in the background.
type Func struct {
	External
	run func()
}

func NewFunc(hostname string, port int, run func()) Func {
	return Func{External: NewExternal(hostname, port), run: run}
}

func (f Func) Start() {
	if f.run != nil {
		f.run()
	}
}
