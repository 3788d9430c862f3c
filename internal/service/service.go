// Package service runs the service under test as a child process whose
// outbound HTTP calls are routed through the mock server.
package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"os"
	"os/exec"
	"strconv"
	"sync"
	"time"
)

const stopTimeout = 3 * time.Second

var ErrNotStarted = errors.New("service was not started")

type Config struct {
	Hostname string
	Port     int
	// Command is run through the system shell.
	Command string
	// ProxyURL is exported as HTTP_PROXY so outbound calls reach the mock server.
	ProxyURL string
	Env      []string
	// StartupTimeout bounds how long the harness waits for the first response.
	StartupTimeout time.Duration
	// Output receives stdout and stderr of the process.
	Output io.Writer
}

// Service is a harness API backed by a shell command.
type Service struct {
	cfg Config

	mu     sync.Mutex
	cmd    *exec.Cmd
	exited chan struct{}
	err    error
}

func New(cfg Config) *Service {
	if cfg.Output == nil {
		cfg.Output = io.Discard
	}
	return &Service{cfg: cfg}
}

func (s *Service) Hostname() string { return s.cfg.Hostname }
func (s *Service) Port() int        { return s.cfg.Port }

func (s *Service) StartupTimeout() time.Duration { return s.cfg.StartupTimeout }

// Environment returns the variables the process is started with.
func (s *Service) Environment() []string {
	env := append(os.Environ(), s.cfg.Env...)
	if s.cfg.ProxyURL != "" {
		env = append(env, ProxyEnv(s.cfg.ProxyURL)...)
	}
	return env
}

// ProxyEnv routes plain HTTP calls through proxyURL. NO_PROXY is cleared so a
// value inherited from the shell cannot bypass the mock server.
func ProxyEnv(proxyURL string) []string {
	return []string{
		"HTTP_PROXY=" + proxyURL,
		"http_proxy=" + proxyURL,
		"NO_PROXY=",
		"no_proxy=",
	}
}

// Start launches the process and returns once it is running. Failures are
// kept for Err since the harness only watches the port.
func (s *Service) Start() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.cmd != nil {
		return
	}

	cmd := shellCommand(context.Background(), s.cfg.Command)
	setupProcessGroup(cmd)
	cmd.Env = s.Environment()
	cmd.Stdout = s.cfg.Output
	cmd.Stderr = s.cfg.Output

	slog.Debug("Starting service", "command", s.cfg.Command, "proxy", s.cfg.ProxyURL)
	if err := cmd.Start(); err != nil {
		s.err = fmt.Errorf("failed to start service: %w", err)
		slog.Debug("Service failed to start", "error", err)
		return
	}

	s.cmd = cmd
	s.exited = make(chan struct{})
	go func() {
		err := cmd.Wait()
		s.mu.Lock()
		if err != nil {
			s.err = fmt.Errorf("service exited: %w", err)
		} else {
			s.err = errors.New("service exited")
		}
		s.mu.Unlock()
		slog.Debug("Service exited", "error", err)
		close(s.exited)
	}()
}

// Err reports why the service is not running, or nil while it runs.
func (s *Service) Err() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cmd == nil && s.err == nil {
		return ErrNotStarted
	}
	return s.err
}

// Exited is closed once the process has exited. It is nil before Start.
func (s *Service) Exited() <-chan struct{} {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.exited
}

// Stop terminates the process group, force killing it after a grace period.
func (s *Service) Stop() error {
	s.mu.Lock()
	cmd, exited := s.cmd, s.exited
	s.mu.Unlock()

	if cmd == nil {
		return nil
	}
	select {
	case <-exited:
		return nil
	default:
	}
	return killProcessGroup(cmd, exited, stopTimeout)
}

// PortInUse reports whether something already accepts connections on
// hostname:port.
func PortInUse(hostname string, port int) bool {
	addr := net.JoinHostPort(hostname, strconv.Itoa(port))
	conn, err := net.DialTimeout("tcp", addr, 500*time.Millisecond)
	if err != nil {
		slog.Debug("Port appears to be available", "addr", addr, "error", err)
		return false
	}
	_ = conn.Close()
	return true
}
