//go:build darwin || linux || freebsd

package service

import (
	"bytes"
	"net"
	"net/http/httptest"
	"net/url"
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/launchdarkly/go-test-helpers/v2/httphelpers"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

func TestService_ExportsProxy(t *testing.T) {
	out := &syncBuffer{}
	s := New(Config{
		Command:  `echo "proxy=$HTTP_PROXY mode=$HARNESS_MODE"`,
		ProxyURL: "http://127.0.0.1:9080",
		Env:      []string{"HARNESS_MODE=test"},
		Output:   out,
	})

	s.Start()
	select {
	case <-s.Exited():
	case <-time.After(5 * time.Second):
		t.Fatal("service did not exit")
	}

	assert.Equal(t, "proxy=http://127.0.0.1:9080 mode=test\n", out.String())
	assert.EqualError(t, s.Err(), "service exited")
}

func TestService_ReportsExitStatus(t *testing.T) {
	s := New(Config{Command: "exit 3"})
	assert.ErrorIs(t, s.Err(), ErrNotStarted)

	s.Start()
	<-s.Exited()
	require.Error(t, s.Err())
	assert.Contains(t, s.Err().Error(), "exit status 3")
	assert.NoError(t, s.Stop())
}

func TestService_StopTerminatesProcessGroup(t *testing.T) {
	s := New(Config{Command: "sleep 30 & sleep 30"})
	s.Start()
	require.NoError(t, s.Err())

	start := time.Now()
	require.NoError(t, s.Stop())
	assert.Less(t, time.Since(start), stopTimeout)

	select {
	case <-s.Exited():
	default:
		t.Fatal("service still running after Stop")
	}
}

func TestService_StopBeforeStart(t *testing.T) {
	assert.NoError(t, New(Config{Command: "true"}).Stop())
}

func TestPortInUse(t *testing.T) {
	srv := httptest.NewServer(httphelpers.HandlerWithStatus(200))
	u, err := url.Parse(srv.URL)
	require.NoError(t, err)
	host, portStr, err := net.SplitHostPort(u.Host)
	require.NoError(t, err)
	port, err := strconv.Atoi(portStr)
	require.NoError(t, err)

	assert.True(t, PortInUse(host, port))
	srv.Close()
	assert.False(t, PortInUse(host, port))
}

func TestProxyEnv(t *testing.T) {
	assert.Equal(t, []string{
		"HTTP_PROXY=http://localhost:9080",
		"http_proxy=http://localhost:9080",
		"NO_PROXY=",
		"no_proxy=",
	}, ProxyEnv("http://localhost:9080"))
}
