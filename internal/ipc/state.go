package ipc

// State tracks where a client or session is in the exchange.
type State int

const (
	StateIdle State = iota
	StateConnecting
	StateBootstrapping
	StateConnected
	StateStreaming
	StateDraining
	StateClosed
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateConnecting:
		return "connecting"
	case StateBootstrapping:
		return "bootstrapping"
	case StateConnected:
		return "connected"
	case StateStreaming:
		return "streaming"
	case StateDraining:
		return "draining"
	case StateClosed:
		return "closed"
	default:
		return "unknown"
	}
}
