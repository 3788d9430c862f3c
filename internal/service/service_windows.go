//go:build windows

package service

import (
	"context"
	"errors"
	"log/slog"
	"os/exec"
	"strconv"
	"syscall"
	"time"
)

// shellCommand runs command through cmd.exe.
func shellCommand(ctx context.Context, command string) *exec.Cmd {
	return exec.CommandContext(ctx, "cmd.exe", "/c", command) // #nosec G204
}

// setupProcessGroup starts the service in a new process group so taskkill /T
// reaches its children.
func setupProcessGroup(cmd *exec.Cmd) {
	cmd.SysProcAttr = &syscall.SysProcAttr{
		CreationFlags: syscall.CREATE_NEW_PROCESS_GROUP,
	}
}

// killProcessGroup asks the process tree to exit and force kills it once
// timeout passes. exited is closed when the process has been waited for.
func killProcessGroup(cmd *exec.Cmd, exited <-chan struct{}, timeout time.Duration) error {
	if cmd == nil || cmd.Process == nil {
		return nil
	}

	pid := strconv.Itoa(cmd.Process.Pid)
	slog.Debug("Stopping service", "pid", pid)

	if err := exec.Command("taskkill", "/T", "/PID", pid).Run(); err != nil {
		slog.Debug("Failed to gracefully terminate process tree", "pid", pid, "error", err)
	}

	select {
	case <-exited:
		slog.Debug("Service stopped gracefully")
		return nil
	case <-time.After(timeout):
		slog.Debug("Service didn't stop gracefully, force killing")
		if err := exec.Command("taskkill", "/F", "/T", "/PID", pid).Run(); err != nil {
			slog.Debug("Failed to force kill process tree", "pid", pid, "error", err)
			_ = cmd.Process.Kill()
		}
		<-exited
		return errors.New("service was force killed after timeout")
	}
}
