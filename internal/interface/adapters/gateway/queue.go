package gateway

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var eventsDropped = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "guardbot_gateway_events_dropped",
	Help: "Number of bridge events dropped because the dispatch queue was full",
}, []string{"event"})

// eventQueue is the FIFO between the socket reader and the dispatcher. push
// never blocks, so the reader always gets back to resolving responses.
type eventQueue struct {
	limit int

	mu     sync.Mutex
	items  []frame
	closed bool
	ready  chan struct{}
}

func newEventQueue(limit int) *eventQueue {
	return &eventQueue{limit: limit, ready: make(chan struct{}, 1)}
}

// push appends f. Unless force is set, a full queue rejects it.
func (q *eventQueue) push(f frame, force bool) bool {
	q.mu.Lock()
	if q.closed || (!force && len(q.items) >= q.limit) {
		q.mu.Unlock()
		return false
	}
	q.items = append(q.items, f)
	q.mu.Unlock()

	select {
	case q.ready <- struct{}{}:
	default:
	}
	return true
}

// close lets drain return once the remaining items are handled.
func (q *eventQueue) close() {
	q.mu.Lock()
	q.closed = true
	q.mu.Unlock()
	select {
	case q.ready <- struct{}{}:
	default:
	}
}

func (q *eventQueue) drain(handle func(frame)) {
	for {
		q.mu.Lock()
		if len(q.items) > 0 {
			f := q.items[0]
			q.items[0] = frame{}
			q.items = q.items[1:]
			q.mu.Unlock()
			handle(f)
			continue
		}
		if q.closed {
			q.mu.Unlock()
			return
		}
		q.mu.Unlock()
		<-q.ready
	}
}
