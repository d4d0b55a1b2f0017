package driver

import "sync"

// AsyncListener decouples event delivery from the connection path that
// produced it. Remote drivers emit from dial/command hooks; a slow listener
// there would stall every store call. Events are handed to a single worker
// through a bounded queue and dropped when the queue is full -- health edges
// are advisory, losing one under pressure is fine.
type AsyncListener struct {
	inner Listener
	q     chan event
	wg    sync.WaitGroup
	once  sync.Once
}

type event struct {
	e   Event
	err error
}

// NewAsyncListener wraps inner. qlen <= 0 defaults to 64.
func NewAsyncListener(inner Listener, qlen int) *AsyncListener {
	if qlen <= 0 {
		qlen = 64
	}
	a := &AsyncListener{inner: inner, q: make(chan event, qlen)}
	a.wg.Add(1)
	go func() {
		defer a.wg.Done()
		for ev := range a.q {
			a.inner(ev.e, ev.err)
		}
	}()
	return a
}

// Listen is the Listener to pass to Subscribe.
func (a *AsyncListener) Listen(e Event, err error) {
	select {
	case a.q <- event{e: e, err: err}:
	default:
	}
}

// Close drains the queue and stops the worker.
func (a *AsyncListener) Close() {
	a.once.Do(func() { close(a.q) })
	a.wg.Wait()
}
