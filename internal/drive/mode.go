package drive

// Mode is the active behavior of the controller's state machine.
// Exactly one mode is active at a time; the controller owns transitions.
type Mode int

const (
	// ModeForward drives nose-first toward the current target.
	ModeForward Mode = iota
	// ModeReverse backs toward the current target.
	ModeReverse
	// ModeStopToSwitch brakes to a standstill before committing to the
	// opposite driving direction.
	ModeStopToSwitch
	// ModeArriveHold brakes to a full stop at the destination and parks.
	// Terminal for the current destination.
	ModeArriveHold
)

// String returns the mode name.
func (m Mode) String() string {
	switch m {
	case ModeForward:
		return "forward"
	case ModeReverse:
		return "reverse"
	case ModeStopToSwitch:
		return "stop_to_switch"
	case ModeArriveHold:
		return "arrive_hold"
	default:
		return "unknown"
	}
}
