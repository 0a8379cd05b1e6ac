package supervisor

// Notifier is an edge-triggered, single-waiter notification: redundant
// Notify calls before the waiter observes one are coalesced into a single
// wakeup.
type Notifier struct {
	ch chan struct{}
}

// NewNotifier returns a ready-to-use Notifier.
func NewNotifier() *Notifier {
	return &Notifier{ch: make(chan struct{}, 1)}
}

// Notify wakes the waiter. It never blocks.
func (n *Notifier) Notify() {
	select {
	case n.ch <- struct{}{}:
	default:
	}
}

// C returns the channel to select on.
func (n *Notifier) C() <-chan struct{} {
	return n.ch
}
