// Package supervisor starts the runtime server and tracks its lifecycle.
//
// A Process begins in Starting and leaves it exactly once: MarkReady when the
// control port answers, Fail when the launcher gives up, or automatically
// with a PrematureExit failure when the child exits first. Output is pumped
// line by line into the Runtime log subsystem.
package supervisor
