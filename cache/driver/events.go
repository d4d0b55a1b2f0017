package driver

import "sync"

// Event is an edge-triggered connection health signal. Consumers must treat
// it as a hint to swap references, not as a guarantee about in-flight state.
type Event uint8

const (
	// EventConnect fires when a transport connection is established.
	EventConnect Event = iota
	// EventReady fires when the driver considers the store usable.
	EventReady
	// EventError fires when the driver observed a fatal connection error.
	EventError
)

func (e Event) String() string {
	switch e {
	case EventConnect:
		return "connect"
	case EventReady:
		return "ready"
	case EventError:
		return "error"
	default:
		return "unknown"
	}
}

// Listener receives health events. err is non-nil only for EventError.
type Listener func(e Event, err error)

// Notifier fans events out to subscribed listeners. The zero value is ready
// to use; drivers embed it to satisfy Subscribe.
type Notifier struct {
	mu        sync.RWMutex
	listeners []Listener
}

func (n *Notifier) Subscribe(l Listener) {
	if l == nil {
		return
	}
	n.mu.Lock()
	n.listeners = append(n.listeners, l)
	n.mu.Unlock()
}

// Emit delivers e to every listener, in subscription order, on the calling
// goroutine.
func (n *Notifier) Emit(e Event, err error) {
	n.mu.RLock()
	ls := n.listeners
	n.mu.RUnlock()
	for _, l := range ls {
		l(e, err)
	}
}
