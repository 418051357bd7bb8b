// Package failure defines the error taxonomy of the launch sequence.
//
// Every stage reports failures as *Error carrying a Kind. Kinds are matched
// with errors.Is and additionally map onto the containerd errdefs classes, so
// errdefs.IsNotFound(err) holds for a NotFound failure.
package failure
