package supervisor

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os/exec"
	"path/filepath"
	"sync"
	"time"

	"fernspiel/internal/environment"
	"fernspiel/internal/failure"
	"fernspiel/internal/platform"
	"fernspiel/pkg/logging"

	"golang.org/x/sync/errgroup"
)

const (
	subsystem        = "Supervisor"
	runtimeSubsystem = "Runtime"
	stage            = "supervisor"

	// DefaultShutdownGrace is how long Terminate waits before killing.
	DefaultShutdownGrace = 5 * time.Second

	tailLines = 20
)

// execCommand is a variable to allow mocking in tests
var execCommand = exec.Command

// DefaultArgs starts the runtime as a verbose server.
func DefaultArgs() []string {
	return []string{"-vvvv", "-s"}
}

// Stream identifies the output stream a line was read from.
type Stream string

const (
	Stdout Stream = "stdout"
	Stderr Stream = "stderr"
)

// Spec describes the runtime process to start.
type Spec struct {
	Path           string
	FromSearchPath bool
	Args           []string // DefaultArgs when nil

	// Env is the complete child environment. The launcher's own
	// environment is inherited when nil.
	Env environment.Env

	// OnLine receives every line of runtime output. It is called from the
	// output pump goroutines and must not block.
	OnLine func(stream Stream, line string)
}

// Supervisor starts runtime processes.
type Supervisor struct {
	ShutdownGrace time.Duration
}

// New creates a supervisor. A non-positive grace selects DefaultShutdownGrace.
func New(shutdownGrace time.Duration) *Supervisor {
	if shutdownGrace <= 0 {
		shutdownGrace = DefaultShutdownGrace
	}
	return &Supervisor{ShutdownGrace: shutdownGrace}
}

// Start spawns the runtime described by spec. The process is not tied to ctx
// once started; use Process.Terminate to stop it.
func (s *Supervisor) Start(ctx context.Context, spec Spec) (*Process, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	args := spec.Args
	if args == nil {
		args = DefaultArgs()
	}

	cmd := execCommand(spec.Path, args...)
	if !spec.FromSearchPath && filepath.IsAbs(spec.Path) {
		cmd.Dir = filepath.Dir(spec.Path)
	}
	if spec.Env != nil {
		cmd.Env = spec.Env.List()
	}
	platform.ConfigureProcAttr(cmd)

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, failure.New(failure.SpawnFailed, stage, err)
	}
	stderr, err := cmd.StderrPipe()
	if err != nil {
		return nil, failure.New(failure.SpawnFailed, stage, err)
	}

	logging.Debug(subsystem, "Starting %s %v (dir %q)", spec.Path, args, cmd.Dir)
	if err := cmd.Start(); err != nil {
		return nil, failure.New(failure.SpawnFailed, stage, fmt.Errorf("failed to start %s: %w", spec.Path, err))
	}

	grace := s.ShutdownGrace
	if grace <= 0 {
		grace = DefaultShutdownGrace
	}
	p := &Process{
		cmd:      cmd,
		pid:      cmd.Process.Pid,
		grace:    grace,
		exitCode: -1,
		settled:  make(chan struct{}),
		done:     make(chan struct{}),
	}
	logging.Info(subsystem, "Started runtime with PID %d", p.pid)

	var pumps errgroup.Group
	pumps.Go(func() error { return p.pump(stdout, Stdout, spec.OnLine) })
	pumps.Go(func() error { return p.pump(stderr, Stderr, spec.OnLine) })

	go p.watch(&pumps)
	return p, nil
}

// Process is a running (or terminated) runtime.
type Process struct {
	cmd   *exec.Cmd
	pid   int
	grace time.Duration

	mu       sync.Mutex
	state    State
	err      error
	exitCode int
	tail     []string

	settled chan struct{}
	done    chan struct{}
}

// Pid returns the operating system process id.
func (p *Process) Pid() int {
	return p.pid
}

// State returns the current lifecycle state.
func (p *Process) State() State {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.state
}

// Err returns the startup failure once the process has left Starting as
// Failed, nil otherwise.
func (p *Process) Err() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.err
}

// ExitCode returns the exit code, or -1 while the process is running or when
// it was terminated by a signal.
func (p *Process) ExitCode() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.exitCode
}

// Tail returns the most recent output lines.
func (p *Process) Tail() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]string(nil), p.tail...)
}

// Done is closed when the process has exited and its output is drained.
func (p *Process) Done() <-chan struct{} {
	return p.done
}

// Settled is closed when the startup outcome has been decided.
func (p *Process) Settled() <-chan struct{} {
	return p.settled
}

// MarkReady records a successful startup. It reports whether this call
// decided the outcome.
func (p *Process) MarkReady() bool {
	return p.settle(Ready, nil)
}

// Fail records a failed startup. It reports whether this call decided the
// outcome.
func (p *Process) Fail(err error) bool {
	return p.settle(Failed, err)
}

// settle moves the process out of Starting. Only the first call has an
// effect.
func (p *Process) settle(to State, err error) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.state != Starting {
		return false
	}
	p.state = to
	p.err = err
	close(p.settled)
	return true
}

func (p *Process) pump(r io.Reader, stream Stream, onLine func(Stream, string)) error {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := scanner.Text()
		logging.Info(runtimeSubsystem, "[%s] %s", stream, line)

		p.mu.Lock()
		p.tail = append(p.tail, line)
		if len(p.tail) > tailLines {
			p.tail = p.tail[len(p.tail)-tailLines:]
		}
		p.mu.Unlock()

		if onLine != nil {
			onLine(stream, line)
		}
	}
	if err := scanner.Err(); err != nil && !errors.Is(err, io.EOF) {
		return fmt.Errorf("reading runtime %s: %w", stream, err)
	}
	return nil
}

// watch drains the output pumps, reaps the process and records the exit.
func (p *Process) watch(pumps *errgroup.Group) {
	if err := pumps.Wait(); err != nil {
		logging.Warn(subsystem, "Runtime output incomplete: %v", err)
	}
	waitErr := p.cmd.Wait()

	code := -1
	if p.cmd.ProcessState != nil {
		code = p.cmd.ProcessState.ExitCode()
	}

	p.mu.Lock()
	p.exitCode = code
	switch p.state {
	case Starting:
		p.state = Failed
		p.err = failure.Exited(stage, code, waitErr)
		close(p.settled)
		logging.Warn(subsystem, "Runtime exited during startup with code %d", code)
	case Ready:
		p.state = Exited
		logging.Info(subsystem, "Runtime exited with code %d", code)
	default:
		logging.Debug(subsystem, "Runtime exited with code %d after failed startup", code)
	}
	p.mu.Unlock()

	close(p.done)
}

// Terminate asks the runtime to shut down and kills it when it has not
// exited within the grace period or when ctx ends first. It returns once the
// process has exited.
func (p *Process) Terminate(ctx context.Context) error {
	select {
	case <-p.done:
		return nil
	default:
	}

	logging.Info(subsystem, "Stopping runtime (PID %d)", p.pid)
	if err := platform.Interrupt(p.pid); err != nil {
		logging.Warn(subsystem, "Failed to interrupt runtime: %v", err)
	}

	timer := time.NewTimer(p.grace)
	defer timer.Stop()

	select {
	case <-p.done:
		return nil
	case <-timer.C:
		logging.Warn(subsystem, "Runtime did not exit within %s, killing it", p.grace)
	case <-ctx.Done():
		logging.Warn(subsystem, "Shutdown interrupted, killing runtime")
	}

	if err := platform.Kill(p.pid); err != nil {
		select {
		case <-p.done:
			return nil
		default:
		}
		return fmt.Errorf("failed to kill runtime (PID %d): %w", p.pid, err)
	}
	<-p.done
	return nil
}
