package server

import (
	"log/slog"
	"sync"

	"github.com/vincentbai/pageview-bridge/internal/metrics"
)

const defaultQueueSize = 1024

// dispatcher decouples request handling from delivery. Handlers enqueue
// without blocking; one goroutine drains the queue in arrival order.
// When the queue is full the event is dropped.
type dispatcher struct {
	events  chan string
	emit    func(page string)
	metrics *metrics.Ingress

	mu     sync.RWMutex
	closed bool
	done   chan struct{}
	once   sync.Once
}

func newDispatcher(size int, emit func(page string), m *metrics.Ingress) *dispatcher {
	if size <= 0 {
		size = defaultQueueSize
	}
	d := &dispatcher{
		events:  make(chan string, size),
		emit:    emit,
		metrics: m,
		done:    make(chan struct{}),
	}
	go d.run()
	return d
}

func (d *dispatcher) run() {
	defer close(d.done)
	for page := range d.events {
		d.emit(page)
	}
}

// enqueue reports false when the event was dropped.
func (d *dispatcher) enqueue(page string) bool {
	d.mu.RLock()
	defer d.mu.RUnlock()
	if d.closed {
		slog.Warn("delivery queue closed, page event dropped", "page", page)
		d.metrics.Dropped()
		return false
	}
	select {
	case d.events <- page:
		d.metrics.Queued()
		return true
	default:
		slog.Warn("delivery queue full, page event dropped", "page", page, "capacity", cap(d.events))
		d.metrics.Dropped()
		return false
	}
}

// close stops accepting events and waits until the queued ones are delivered.
func (d *dispatcher) close() {
	d.once.Do(func() {
		d.mu.Lock()
		d.closed = true
		close(d.events)
		d.mu.Unlock()
	})
	<-d.done
}
