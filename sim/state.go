package sim

// State is the lifecycle phase of a session's execution attempt. Idle and
// Stopped are equivalent rest states; both accept a new Run.
type State int

const (
	Idle State = iota
	Running
	Paused
	Stopped
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Running:
		return "running"
	case Paused:
		return "paused"
	case Stopped:
		return "stopped"
	}
	return "unknown"
}
