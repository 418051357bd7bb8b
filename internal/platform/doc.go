// Package platform consolidates every host-dependent decision of the launcher
// into a single Descriptor value: executable naming, permission checks,
// environment variable names and defaults of the media engine, and the
// release target. Process group handling lives here as well, split by build
// tags.
package platform
