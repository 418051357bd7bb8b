package launch

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"fernspiel/internal/environment"
	"fernspiel/internal/failure"
	"fernspiel/internal/installer"
	"fernspiel/internal/metrics"
	"fernspiel/internal/platform"
	"fernspiel/internal/probe"
	"fernspiel/internal/resolver"
	"fernspiel/internal/supervisor"
	"fernspiel/pkg/logging"

	"github.com/google/uuid"
)

const subsystem = "Launch"

// BinaryResolver locates a runtime executable.
type BinaryResolver interface {
	Resolve(ctx context.Context) (resolver.Binary, error)
}

// RuntimeInstaller installs the runtime when none can be resolved.
type RuntimeInstaller interface {
	Install(ctx context.Context) (installer.Installation, error)
}

// Launcher runs the launch sequence: resolve or install the runtime, start
// it with the media engine environment and wait until its control port
// answers.
type Launcher struct {
	Platform   platform.Descriptor
	Resolver   BinaryResolver
	Installer  RuntimeInstaller
	Supervisor *supervisor.Supervisor

	// Ambient is the environment the runtime environment is derived from.
	// Defaults to the launcher's own environment.
	Ambient environment.Env
	Args    []string

	// ProbeAddress is dialled to detect readiness; URL is handed to clients.
	ProbeAddress  string
	URL           string
	ProbeInterval time.Duration
	ProbeTimeout  time.Duration

	Metrics metrics.Recorder
	OnLine  func(stream supervisor.Stream, line string)
}

// Launch starts the runtime and returns once it accepts connections.
//
// When ctx ends or startup fails, a spawned runtime is terminated before
// Launch returns.
func (l *Launcher) Launch(ctx context.Context) (*Handle, error) {
	id := uuid.NewString()
	start := time.Now()

	h, err := l.launch(ctx, id)
	l.recorder().LaunchCompleted(err, time.Since(start))
	if err != nil {
		logging.Error(subsystem, err, "Launch %s failed after %s", id, time.Since(start).Round(time.Millisecond))
		return nil, err
	}
	logging.Info(subsystem, "Launch %s ready at %s after %s", id, h.URL, time.Since(start).Round(time.Millisecond))
	return h, nil
}

func (l *Launcher) launch(ctx context.Context, id string) (*Handle, error) {
	bin, version, err := l.resolveOrInstall(ctx)
	if err != nil {
		return nil, err
	}

	ambient := l.Ambient
	if ambient == nil {
		ambient = environment.FromOS()
	}
	env := environment.Resolve(ambient, l.Platform)
	for key, value := range environment.Overlay(ambient, env) {
		logging.Info(subsystem, "Setting %s=%s for the runtime", key, value)
	}

	sup := l.Supervisor
	if sup == nil {
		sup = supervisor.New(0)
	}
	proc, err := sup.Start(ctx, supervisor.Spec{
		Path:           bin.Path,
		FromSearchPath: bin.FromSearchPath,
		Args:           l.Args,
		Env:            env,
		OnLine:         l.OnLine,
	})
	if err != nil {
		return nil, err
	}

	recorder := l.recorder()
	go func() {
		<-proc.Done()
		recorder.RuntimeExited(proc.ExitCode())
	}()

	if err := l.awaitReady(ctx, proc); err != nil {
		if tail := proc.Tail(); len(tail) > 0 {
			logging.Warn(subsystem, "Last runtime output:\n%s", strings.Join(tail, "\n"))
		}
		l.stop(proc)
		return nil, err
	}

	return &Handle{
		ID:      id,
		URL:     l.URL,
		Binary:  bin,
		Version: version,
		Process: proc,
	}, nil
}

// resolveOrInstall returns the binary to run. The installer runs at most
// once, and only when nothing usable was resolved.
func (l *Launcher) resolveOrInstall(ctx context.Context) (resolver.Binary, string, error) {
	bin, err := l.Resolver.Resolve(ctx)
	if err == nil {
		version := ""
		if bin.Version != nil {
			version = bin.Version.Number
		}
		return bin, version, nil
	}
	if ctxErr := ctx.Err(); ctxErr != nil {
		return resolver.Binary{}, "", ctxErr
	}
	if !errors.Is(err, failure.NotFound) {
		return resolver.Binary{}, "", err
	}

	logging.Info(subsystem, "No usable runtime found, installing the latest release")
	logging.Debug(subsystem, "Resolution failed: %v", err)

	start := time.Now()
	inst, err := l.Installer.Install(ctx)
	l.recorder().InstallCompleted(err, time.Since(start))
	if err != nil {
		return resolver.Binary{}, "", err
	}
	return resolver.Binary{Path: inst.Path}, inst.Version, nil
}

// awaitReady races the readiness probe against the process exiting. The
// process decides the outcome: whichever of MarkReady, Fail or the exit
// watcher settles it first wins.
func (l *Launcher) awaitReady(ctx context.Context, proc *supervisor.Process) error {
	probeCtx, cancelProbe := context.WithCancel(ctx)
	defer cancelProbe()

	go func() {
		select {
		case <-proc.Done():
			cancelProbe()
		case <-probeCtx.Done():
		}
	}()

	probed := make(chan struct{})
	go func() {
		defer close(probed)
		p := &probe.Prober{Address: l.ProbeAddress, Interval: l.ProbeInterval, Timeout: l.ProbeTimeout}
		err := p.Wait(probeCtx)
		switch {
		case err == nil:
			proc.MarkReady()
		case errors.Is(err, failure.ProbeTimeout):
			proc.Fail(err)
		case ctx.Err() != nil:
			proc.Fail(fmt.Errorf("launch cancelled: %w", ctx.Err()))
		}
		// Otherwise the process exited and has settled itself.
	}()

	<-proc.Settled()
	cancelProbe()
	<-probed
	return proc.Err()
}

func (l *Launcher) stop(proc *supervisor.Process) {
	// The caller's context may already be done; termination needs its own.
	if err := proc.Terminate(context.Background()); err != nil {
		logging.Warn(subsystem, "Failed to stop runtime: %v", err)
	}
}

func (l *Launcher) recorder() metrics.Recorder {
	if l.Metrics == nil {
		return metrics.Nop{}
	}
	return l.Metrics
}
