// Package console provides an interactive line-based session on the control
// endpoint of a running runtime.
//
// Every line typed at the prompt is sent as a text frame. Frames received
// from the runtime are printed above the prompt as they arrive. The session
// ends on "exit", Ctrl+D, context cancellation, or when the runtime closes
// the connection.
package console
