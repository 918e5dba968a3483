package relogs

// LifecycleState is the client's position in its Active → Draining → Ended lifecycle.
type LifecycleState int32

const (
	// Active clients flush on a timer and accept events.
	Active LifecycleState = iota
	// Draining clients have stopped the timer and are waiting for quiescence.
	// Events tracked while draining are still flushed.
	Draining
	// Ended is terminal. Events tracked after this point are dropped.
	Ended
)

func (s LifecycleState) String() string {
	switch s {
	case Active:
		return "active"
	case Draining:
		return "draining"
	case Ended:
		return "ended"
	default:
		return "unknown"
	}
}
