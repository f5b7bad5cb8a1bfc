package domain

// State enumerates the controller's lifecycle states.
type State int

const (
	StateIdle State = iota
	StateConfiguring
	StateRunning
	StatePaused
	StateTransitioning
	StateCommitFailed
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateConfiguring:
		return "configuring"
	case StateRunning:
		return "running"
	case StatePaused:
		return "paused"
	case StateTransitioning:
		return "transitioning"
	case StateCommitFailed:
		return "commit_failed"
	default:
		return "unknown"
	}
}

// Active reports whether a session is in progress and would need an implicit stop.
func (s State) Active() bool {
	return s == StateRunning || s == StatePaused
}
