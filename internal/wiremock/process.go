package wiremock

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"time"

	"github.com/shirou/gopsutil/v3/process"
)

// pollInterval is how often an adopted process is checked for exit
const pollInterval = 100 * time.Millisecond

// Process is a handle to a mock server process. It is either a child started
// by the controller or an existing process adopted by PID.
type Process struct {
	pid        int
	proc       *os.Process
	createTime int64

	// done is closed once a child process has been reaped. nil for adopted processes.
	done    chan struct{}
	exitErr error
}

// Errors returned by FindProcess
var (
	ErrProcessNotFound = errors.New("process not found")
	// ErrProcessMismatch means the PID is alive but its start time differs
	// from the recorded one, so the OS has handed it to another process.
	ErrProcessMismatch = errors.New("process start time does not match")
)

// startProcess launches cmd and reaps it in the background
func startProcess(cmd *exec.Cmd) (*Process, error) {
	if err := cmd.Start(); err != nil {
		return nil, err
	}

	p := &Process{
		pid:  cmd.Process.Pid,
		proc: cmd.Process,
		done: make(chan struct{}),
	}
	// Read before reaping: an exited child stays inspectable until Wait
	p.createTime, _ = processCreateTime(p.pid)

	go func() {
		p.exitErr = cmd.Wait()
		close(p.done)
	}()

	return p, nil
}

// FindProcess returns a handle to a running process that this program did not
// start, typically a server launched by an earlier invocation. createTime is
// the start time recorded when it was launched (see Process.CreateTime); the
// PID is only trusted when the live process has the same start time.
func FindProcess(pid int, createTime int64) (*Process, error) {
	exists, err := process.PidExists(int32(pid))
	if err != nil {
		return nil, fmt.Errorf("failed to look up process %d: %w", pid, err)
	}
	if !exists {
		return nil, fmt.Errorf("%w: %d", ErrProcessNotFound, pid)
	}

	actual, err := processCreateTime(pid)
	if err != nil {
		return nil, fmt.Errorf("%w: %d: %v", ErrProcessNotFound, pid, err)
	}
	if createTime == 0 || actual != createTime {
		return nil, fmt.Errorf("%w: pid %d started at %d, recorded %d", ErrProcessMismatch, pid, actual, createTime)
	}

	proc, err := os.FindProcess(pid)
	if err != nil {
		return nil, fmt.Errorf("failed to look up process %d: %w", pid, err)
	}

	return &Process{pid: pid, proc: proc, createTime: actual}, nil
}

func processCreateTime(pid int) (int64, error) {
	p, err := process.NewProcess(int32(pid))
	if err != nil {
		return 0, err
	}
	return p.CreateTime()
}

// PID returns the operating system process ID
func (p *Process) PID() int {
	return p.pid
}

// CreateTime returns the process start time in ms since the epoch, or 0 if
// it could not be read
func (p *Process) CreateTime() int64 {
	return p.createTime
}

// Running reports whether the process is still alive
func (p *Process) Running() bool {
	if p.done != nil {
		select {
		case <-p.done:
			return false
		default:
			return true
		}
	}

	// A reused PID counts as exited
	ct, err := processCreateTime(p.pid)
	return err == nil && ct == p.createTime
}

// ExitErr returns the error reported when a child process exited.
// It is always nil for adopted processes and for children still running.
func (p *Process) ExitErr() error {
	if p.done == nil {
		return nil
	}
	select {
	case <-p.done:
		return p.exitErr
	default:
		return nil
	}
}

// Wait blocks until the process exits or ctx is done
func (p *Process) Wait(ctx context.Context) error {
	if p.done != nil {
		select {
		case <-p.done:
			return nil
		case <-ctx.Done():
			return ctx.Err()
		}
	}

	ticker := time.NewTicker(pollInterval)
	defer ticker.Stop()

	for {
		if !p.Running() {
			return nil
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

// Kill terminates the process immediately. Killing a process that already
// exited is not an error.
func (p *Process) Kill() error {
	if !p.Running() {
		return nil
	}

	if err := p.proc.Kill(); err != nil && !errors.Is(err, os.ErrProcessDone) {
		return fmt.Errorf("failed to kill process %d: %w", p.pid, err)
	}

	if p.done != nil {
		<-p.done
	}
	return nil
}
