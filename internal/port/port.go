// Package port implements named one-directional channels through which the
// application notifies its host of events.
package port

import (
	"errors"
	"sync"
)

var (
	ErrAlreadySubscribed = errors.New("port already has a subscriber")
	ErrNilHandler        = errors.New("nil handler")
)

// Port delivers values of type T to a single subscriber. Sends are
// serialized, so the handler sees values in the order Send was called and
// never runs concurrently with itself.
type Port[T any] struct {
	name string

	mu      sync.Mutex
	handler func(T)
}

func New[T any](name string) *Port[T] {
	return &Port[T]{name: name}
}

func (p *Port[T]) Name() string {
	return p.name
}

// Subscribe registers handler for the lifetime of the port.
func (p *Port[T]) Subscribe(handler func(T)) error {
	if handler == nil {
		return ErrNilHandler
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.handler != nil {
		return ErrAlreadySubscribed
	}
	p.handler = handler
	return nil
}

// Send hands v to the subscriber and returns once the handler has finished.
// It reports false when nobody is subscribed; the value is dropped.
func (p *Port[T]) Send(v T) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.handler == nil {
		return false
	}
	p.handler(v)
	return true
}
