// Package environment computes the process environment of the runtime.
//
// The runtime links against the VLC media engine. On Windows and macOS the
// engine usually lives in a well-known application directory that the dynamic
// loader does not search, so Resolve appends that directory to the library
// search variable unless an entry already mentions the engine, and sets the
// plugin directory variable if it is unset. Resolve is a pure function over
// an Env value; the ambient process environment is never modified.
package environment
