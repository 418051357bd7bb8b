package supervisor

// State is the lifecycle state of a supervised runtime process.
type State int

const (
	// Starting is the initial state until the startup outcome is decided.
	Starting State = iota
	// Ready means the runtime accepted connections on its control port.
	Ready
	// Failed means startup failed. The failure is available from Process.Err.
	Failed
	// Exited means a ready runtime has since terminated.
	Exited
)

func (s State) String() string {
	switch s {
	case Starting:
		return "starting"
	case Ready:
		return "ready"
	case Failed:
		return "failed"
	case Exited:
		return "exited"
	default:
		return "unknown"
	}
}
