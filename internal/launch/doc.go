// Package launch ties resolution, installation, environment setup, process
// supervision and readiness probing into a single launch sequence.
//
// A launch succeeds when the runtime's control port accepts a TCP connection
// before the probe timeout. It fails with a PrematureExit failure when the
// runtime exits first and with a ProbeTimeout failure when it stays silent.
// In both cases no process is left running.
//
//	l := launch.FromConfig(cfg, metrics.Nop{})
//	h, err := l.Launch(ctx)
//	if err != nil {
//		return err
//	}
//	defer h.Terminate(context.Background())
//	fmt.Println(h.URL) // ws://127.0.0.1:38397
package launch
