package lifecycle

import (
	"fmt"
	"sync"
)

// State is the foreground state of the app process.
type State string

const (
	StateActive     State = "active"
	StateBackground State = "background"
)

// ParseState validates a state name received from a client.
func ParseState(s string) (State, error) {
	switch State(s) {
	case StateActive, StateBackground:
		return State(s), nil
	}
	return "", fmt.Errorf("unknown lifecycle state %q", s)
}

// Observer delivers foreground/background transitions. Callbacks may fire
// at any time, from any goroutine.
type Observer interface {
	Subscribe(cb func(State)) (unsubscribe func())
}

// Hub fans lifecycle transitions out to subscribers.
type Hub struct {
	mu      sync.Mutex
	current State
	next    int
	subs    map[int]func(State)
}

// NewHub returns a Hub that starts in the active state.
func NewHub() *Hub {
	return &Hub{current: StateActive, subs: make(map[int]func(State))}
}

// Subscribe registers cb and returns a func that removes it. The returned
// func may be called more than once.
func (h *Hub) Subscribe(cb func(State)) func() {
	h.mu.Lock()
	id := h.next
	h.next++
	h.subs[id] = cb
	h.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			h.mu.Lock()
			delete(h.subs, id)
			h.mu.Unlock()
		})
	}
}

// Publish records state and calls every subscriber on the caller's goroutine.
func (h *Hub) Publish(state State) {
	h.mu.Lock()
	h.current = state
	subs := make([]func(State), 0, len(h.subs))
	for _, cb := range h.subs {
		subs = append(subs, cb)
	}
	h.mu.Unlock()

	for _, cb := range subs {
		cb(state)
	}
}

// Current returns the last published state.
func (h *Hub) Current() State {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.current
}
