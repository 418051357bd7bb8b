package probe

import (
	"context"
	"fmt"
	"net"
	"time"

	"fernspiel/internal/failure"
	"fernspiel/pkg/logging"
)

const (
	subsystem = "Probe"
	stage     = "probe"

	DefaultInterval = 150 * time.Millisecond
	DefaultTimeout  = 5 * time.Second

	attemptTimeout = time.Second
)

// Prober waits for a TCP port to accept connections.
type Prober struct {
	Address  string
	Interval time.Duration
	Timeout  time.Duration
}

// New creates a prober for address with the default interval and timeout.
func New(address string) *Prober {
	return &Prober{Address: address, Interval: DefaultInterval, Timeout: DefaultTimeout}
}

// Wait dials Address immediately and then once per Interval until a
// connection succeeds. It returns a ProbeTimeout failure when Timeout
// elapses first and ctx.Err() when ctx is cancelled.
func (p *Prober) Wait(ctx context.Context) error {
	interval := p.Interval
	if interval <= 0 {
		interval = DefaultInterval
	}
	timeout := p.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}

	deadlineCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	start := time.Now()
	attempts := 0
	for {
		attempts++
		err := p.dial(deadlineCtx)
		if err == nil {
			logging.Debug(subsystem, "%s accepted a connection after %d attempts (%s)", p.Address, attempts, time.Since(start).Round(time.Millisecond))
			return nil
		}
		logging.Debug(subsystem, "%s not ready yet: %v", p.Address, err)

		select {
		case <-deadlineCtx.Done():
			if ctx.Err() != nil {
				return ctx.Err()
			}
			return failure.New(failure.ProbeTimeout, stage,
				fmt.Errorf("%s did not accept connections within %s (%d attempts): %w", p.Address, timeout, attempts, err))
		case <-ticker.C:
		}
	}
}

func (p *Prober) dial(ctx context.Context) error {
	attemptCtx, cancel := context.WithTimeout(ctx, attemptTimeout)
	defer cancel()

	var d net.Dialer
	conn, err := d.DialContext(attemptCtx, "tcp", p.Address)
	if err != nil {
		return err
	}
	return conn.Close()
}
