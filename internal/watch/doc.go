// Package watch notices when the installed runtime executable is replaced,
// so a long-running launch can restart onto the new version.
package watch
