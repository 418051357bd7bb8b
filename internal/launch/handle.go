package launch

import (
	"context"
	"fmt"

	"fernspiel/internal/resolver"
	"fernspiel/internal/supervisor"

	"github.com/gorilla/websocket"
)

// Handle is a running runtime that accepted connections on its control port.
type Handle struct {
	// ID identifies the launch in logs and metrics.
	ID string
	// URL is the control endpoint clients connect to.
	URL string

	Binary  resolver.Binary
	Version string // empty when unknown

	Process *supervisor.Process
}

// Done is closed when the runtime exits.
func (h *Handle) Done() <-chan struct{} {
	return h.Process.Done()
}

// Terminate stops the runtime gracefully, killing it when ctx ends or the
// grace period expires.
func (h *Handle) Terminate(ctx context.Context) error {
	return h.Process.Terminate(ctx)
}

// Dial opens a websocket connection to the control endpoint.
func (h *Handle) Dial(ctx context.Context) (*websocket.Conn, error) {
	return DialURL(ctx, h.URL)
}

// DialURL opens a websocket connection to a control endpoint that may have
// been started by another process.
func DialURL(ctx context.Context, url string) (*websocket.Conn, error) {
	conn, resp, err := websocket.DefaultDialer.DialContext(ctx, url, nil)
	if resp != nil && resp.Body != nil {
		resp.Body.Close()
	}
	if err != nil {
		return nil, fmt.Errorf("failed to connect to %s: %w", url, err)
	}
	return conn, nil
}
