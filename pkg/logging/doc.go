// Package logging provides the structured logger used throughout fernspiel.
//
// It is a thin layer over Go's slog package. Every entry carries a subsystem
// attribute so output from the launcher stages and from the supervised
// runtime can be told apart:
//
//   - Resolver: locating an installed or system-provided runtime
//   - Installer: release lookup, download and extraction
//   - Environment: library and plugin path overlays
//   - Supervisor: process lifecycle of the runtime
//   - Runtime: lines the runtime writes to stdout and stderr
//   - Probe: readiness polling of the control port
//   - Launch: the overall launch sequence
//   - Console: interactive sessions on the control endpoint
//
// # Usage
//
//	logging.InitForCLI(logging.LevelInfo, os.Stderr)
//
//	logging.Info("Launch", "Runtime ready at %s", url)
//	logging.Error("Installer", err, "Failed to install runtime")
//
// JSON output can be selected with Init:
//
//	logging.Init(logging.Options{Level: logging.LevelDebug, Format: logging.FormatJSON})
//
// Until Init or InitForCLI has been called only errors are written, to stderr.
//
// Libraries that expect a Print/Printf logger (go-selfupdate) can be routed
// into the package logger with SelfUpdateLogger; their messages are logged at
// debug level.
package logging
