// Package log provides centralized logging for the harness CLI.
package log

import (
	"bytes"
	"io"
	"log/slog"
	"os"
	"sync"
	"sync/atomic"
)

// OutputMode determines where user-facing output is written
type OutputMode int

const (
	// ModeText prints user output to stdout
	ModeText OutputMode = iota
	// ModeJSON keeps stdout for machine-readable results; user output goes to stderr
	ModeJSON
)

// serviceTailSize is the number of service output lines kept for diagnostics.
const serviceTailSize = 50

type Logger struct {
	mode        atomic.Int32
	showService atomic.Bool
	logChan     chan string
	stopChan    chan struct{}
	wg          sync.WaitGroup
	level       slog.Level

	mu     sync.Mutex
	stdout io.Writer
	stderr io.Writer
	tail   []string
}

var (
	instance *Logger
	once     sync.Once
)

// Get returns the singleton logger instance
func Get() *Logger {
	once.Do(func() {
		instance = &Logger{
			logChan:  make(chan string, 1000),
			stopChan: make(chan struct{}),
			level:    slog.LevelInfo,
			stdout:   os.Stdout,
			stderr:   os.Stderr,
		}
		instance.mode.Store(int32(ModeText))
		instance.wg.Add(1)
		go instance.process()
	})
	return instance
}

func (l *Logger) process() {
	defer l.wg.Done()
	for {
		select {
		case line := <-l.logChan:
			l.handleServiceLine(line)
		case <-l.stopChan:
			// Drain remaining lines
			for {
				select {
				case line := <-l.logChan:
					l.handleServiceLine(line)
				default:
					return
				}
			}
		}
	}
}

func (l *Logger) handleServiceLine(line string) {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.tail = append(l.tail, line)
	if len(l.tail) > serviceTailSize {
		l.tail = l.tail[len(l.tail)-serviceTailSize:]
	}
	if l.showService.Load() {
		_, _ = io.WriteString(l.stderr, renderDim("[service] "+line)+"\n")
	}
}

// Setup configures the singleton logger (call once at startup)
func Setup(debug bool, mode OutputMode) {
	l := Get()
	l.mode.Store(int32(mode))

	if debug {
		l.level = slog.LevelDebug
	} else {
		l.level = slog.LevelInfo
	}

	handler := NewHandler(l.stderrWriter(), &slog.HandlerOptions{
		Level: l.level,
	})
	slog.SetDefault(slog.New(handler))
}

// SetOutput replaces the writers used for user output and service logs.
func SetOutput(stdout, stderr io.Writer) {
	l := Get()
	l.mu.Lock()
	defer l.mu.Unlock()
	l.stdout = stdout
	l.stderr = stderr
}

// ShowServiceLogs echoes service output to stderr as it arrives.
func ShowServiceLogs(show bool) {
	Get().showService.Store(show)
}

// SetMode changes the output mode
func SetMode(mode OutputMode) {
	Get().mode.Store(int32(mode))
}

// GetMode returns the current output mode
func GetMode() OutputMode {
	return OutputMode(Get().mode.Load())
}

// Shutdown gracefully stops the logger, draining pending messages
func Shutdown() {
	l := Get()
	close(l.stopChan)
	l.wg.Wait()
}

func (l *Logger) stderrWriter() io.Writer {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.stderr
}

// --- Developer Logging (wraps slog) ---

// Debug logs a debug-level message
func Debug(msg string, args ...any) {
	slog.Debug(msg, args...)
}

// Info logs an info-level message
func Info(msg string, args ...any) {
	slog.Info(msg, args...)
}

// Warn logs a warning-level message
func Warn(msg string, args ...any) {
	slog.Warn(msg, args...)
}

// Error logs an error-level message
func Error(msg string, args ...any) {
	slog.Error(msg, args...)
}

// --- User-Facing Output (styled, mode-aware) ---

// UserError prints a styled error message to the user
func UserError(msg string) {
	printStyled(renderError(msg))
}

// UserWarn prints a styled warning message to the user
func UserWarn(msg string) {
	printStyled(renderWarning(msg))
}

// UserSuccess prints a styled success message to the user
func UserSuccess(msg string) {
	printStyled(renderSuccess(msg))
}

// UserInfo prints an informational message to the user
func UserInfo(msg string) {
	printStyled(msg)
}

// UserProgress prints a progress/dim message to the user
func UserProgress(msg string) {
	printStyled(renderDim(msg))
}

// Stderrln prints a message to stderr with newline
func Stderrln(msg string) {
	l := Get()
	l.mu.Lock()
	defer l.mu.Unlock()
	_, _ = io.WriteString(l.stderr, msg+"\n")
}

func printStyled(msg string) {
	l := Get()
	l.mu.Lock()
	defer l.mu.Unlock()
	w := l.stdout
	if GetMode() == ModeJSON {
		w = l.stderr
	}
	_, _ = io.WriteString(w, msg+"\n")
}

// ServiceLog records a line of output from the service under test.
// Non-blocking: returns immediately, the line is queued for processing
func ServiceLog(line string) {
	l := Get()
	select {
	case l.logChan <- line:
	default:
		slog.Debug("Service log queue full, dropping line", "line", line)
	}
}

// ServiceTail returns the most recent service output lines.
func ServiceTail() []string {
	l := Get()
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]string, len(l.tail))
	copy(out, l.tail)
	return out
}

// ServiceWriter returns a writer that splits its input into lines and records
// each through ServiceLog.
func ServiceWriter() io.Writer {
	return &lineWriter{}
}

type lineWriter struct {
	mu  sync.Mutex
	buf []byte
}

func (w *lineWriter) Write(p []byte) (int, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.buf = append(w.buf, p...)
	for {
		i := bytes.IndexByte(w.buf, '\n')
		if i < 0 {
			break
		}
		line := string(w.buf[:i])
		if n := len(line); n > 0 && line[n-1] == '\r' {
			line = line[:n-1]
		}
		ServiceLog(line)
		w.buf = w.buf[i+1:]
	}
	return len(p), nil
}
