package failure

import (
	"context"
	"errors"
	"fmt"

	"github.com/containerd/errdefs"
)

// Kind classifies why a launch stage failed. Kinds are errors themselves so
// callers can write errors.Is(err, failure.ProbeTimeout).
type Kind string

const (
	// NotFound means no usable local or system binary exists.
	NotFound Kind = "runtime not found"
	// VersionUnparseable means the version query did not answer "<name> <version>".
	VersionUnparseable Kind = "version unparseable"
	// DownloadFailed covers release lookup, transport and integrity failures.
	DownloadFailed Kind = "download failed"
	// ExtractFailed covers corrupt archives and archives without the executable.
	ExtractFailed Kind = "extraction failed"
	// SpawnFailed means the child process could not be created at all.
	SpawnFailed Kind = "spawn failed"
	// PrematureExit means the child exited before it became ready.
	PrematureExit Kind = "exited during startup"
	// ProbeTimeout means the control port never accepted a connection in time.
	ProbeTimeout Kind = "server not available in time"
)

func (k Kind) Error() string {
	return string(k)
}

// class maps a kind onto the errdefs error classes.
func (k Kind) class() error {
	switch k {
	case NotFound:
		return errdefs.ErrNotFound
	case VersionUnparseable:
		return errdefs.ErrInvalidArgument
	case DownloadFailed:
		return errdefs.ErrUnavailable
	case ExtractFailed:
		return errdefs.ErrDataLoss
	case SpawnFailed:
		return errdefs.ErrFailedPrecondition
	case PrematureExit:
		return errdefs.ErrAborted
	case ProbeTimeout:
		return errdefs.ErrUnavailable
	default:
		return errdefs.ErrUnknown
	}
}

// Error is a failure of one launch stage.
type Error struct {
	Kind  Kind
	Stage string // resolver, installer, supervisor, probe, ...
	Err   error  // underlying cause, may be nil

	// ExitCode is set for PrematureExit.
	ExitCode int
}

// New creates a stage failure of the given kind.
func New(kind Kind, stage string, err error) *Error {
	return &Error{Kind: kind, Stage: stage, Err: err}
}

// Newf creates a stage failure with a formatted cause.
func Newf(kind Kind, stage string, format string, args ...interface{}) *Error {
	return &Error{Kind: kind, Stage: stage, Err: fmt.Errorf(format, args...)}
}

// Exited creates a PrematureExit failure carrying the exit code.
func Exited(stage string, code int, err error) *Error {
	return &Error{Kind: PrematureExit, Stage: stage, Err: err, ExitCode: code}
}

func (e *Error) Error() string {
	msg := e.Stage + ": " + string(e.Kind)
	if e.Kind == PrematureExit {
		msg += fmt.Sprintf(" with code %d", e.ExitCode)
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

// Unwrap exposes the cause, the kind and its errdefs class to errors.Is/As.
func (e *Error) Unwrap() []error {
	errs := []error{e.Kind, e.Kind.class()}
	if e.Kind == ProbeTimeout {
		errs = append(errs, context.DeadlineExceeded)
	}
	if e.Err != nil {
		errs = append(errs, e.Err)
	}
	return errs
}

// KindOf returns the kind of the outermost stage failure in err's chain.
func KindOf(err error) (Kind, bool) {
	var f *Error
	if errors.As(err, &f) {
		return f.Kind, true
	}
	return "", false
}

// ExitCode returns the exit code carried by a PrematureExit failure.
func ExitCode(err error) (int, bool) {
	var f *Error
	if errors.As(err, &f) && f.Kind == PrematureExit {
		return f.ExitCode, true
	}
	return 0, false
}
