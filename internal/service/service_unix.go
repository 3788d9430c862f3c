//go:build darwin || linux || freebsd

package service

import (
	"context"
	"errors"
	"log/slog"
	"os/exec"
	"syscall"
	"time"
)

// shellCommand runs command through the system shell.
func shellCommand(ctx context.Context, command string) *exec.Cmd {
	return exec.CommandContext(ctx, "/bin/sh", "-c", command) // #nosec G204
}

// setupProcessGroup runs the service in its own process group so children
// are stopped with it.
func setupProcessGroup(cmd *exec.Cmd) {
	cmd.SysProcAttr = &syscall.SysProcAttr{
		Setpgid: true,
	}
}

// killProcessGroup sends SIGTERM to the group and SIGKILL once timeout
// passes. exited is closed when the process has been waited for.
func killProcessGroup(cmd *exec.Cmd, exited <-chan struct{}, timeout time.Duration) error {
	if cmd == nil || cmd.Process == nil {
		return nil
	}

	pid := cmd.Process.Pid
	slog.Debug("Stopping service", "pid", pid)

	pgid, err := syscall.Getpgid(pid)
	if err == nil {
		slog.Debug("Terminating process group", "pgid", pgid)
		if err := syscall.Kill(-pgid, syscall.SIGTERM); err != nil {
			slog.Debug("Failed to send SIGTERM to process group", "pgid", pgid, "error", err)
			_ = cmd.Process.Signal(syscall.SIGINT)
		}
	} else {
		slog.Debug("Failed to get process group", "pid", pid, "error", err)
		_ = cmd.Process.Signal(syscall.SIGINT)
	}

	select {
	case <-exited:
		slog.Debug("Service stopped gracefully")
		return nil
	case <-time.After(timeout):
		slog.Debug("Service didn't stop gracefully, force killing")
		if pgid, err := syscall.Getpgid(pid); err == nil {
			if err := syscall.Kill(-pgid, syscall.SIGKILL); err != nil {
				_ = cmd.Process.Kill()
			}
		} else {
			_ = cmd.Process.Kill()
		}
		<-exited
		return errors.New("service was force killed after timeout")
	}
}
