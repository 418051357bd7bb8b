// Package paths resolves the per-user directories fernspiel uses, following
// the XDG base directory specification on every platform.
package paths
