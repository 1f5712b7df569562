package runner

import "sync/atomic"

// State is a step in the run lifecycle. Runs move strictly forward through
// Configured, Running, Draining and Completed.
type State int32

const (
	StateConfigured State = iota
	StateRunning
	StateDraining
	StateCompleted
)

func (s State) String() string {
	switch s {
	case StateConfigured:
		return "configured"
	case StateRunning:
		return "running"
	case StateDraining:
		return "draining"
	case StateCompleted:
		return "completed"
	default:
		return "unknown"
	}
}

type stateMachine struct {
	current atomic.Int32
	notify  func(from, to State)
}

func (m *stateMachine) load() State {
	return State(m.current.Load())
}

// advance moves from one state to the next. It returns false when the
// machine is not in from, which lets concurrent workers race to mark the
// queue drained with exactly one winner.
func (m *stateMachine) advance(from, to State) bool {
	if !m.current.CompareAndSwap(int32(from), int32(to)) {
		return false
	}
	if m.notify != nil {
		m.notify(from, to)
	}
	return true
}
