// Package installer downloads runtime releases and unpacks the runtime
// executable into the install directory.
//
// Releases are discovered with go-selfupdate against GitHub. The archive for
// the host's target triple is streamed into a temporary file, optionally
// checked against a checksum asset, and then scanned for an entry named
// fernspielapparat or fernspielapparat.exe. Only that entry is written, under
// the platform's canonical executable name.
package installer
