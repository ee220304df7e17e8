package gpio

import (
	"sync"
	"time"
)

// Edge is one scripted transition: the level after the edge and when it
// happened.
type Edge struct {
	Level bool
	At    time.Duration
}

// FakeSource is a test double that delivers scripted edges on demand.
type FakeSource struct {
	// Edges is replayed by Play.
	Edges []Edge

	// StartError, if set, is returned by Start.
	StartError error

	mu      sync.Mutex
	handler EdgeHandler
	closed  bool
}

// NewFakeSource creates a FakeSource with the given script.
func NewFakeSource(edges []Edge) *FakeSource {
	return &FakeSource{Edges: edges}
}

// Start records the handler.
func (f *FakeSource) Start(h EdgeHandler) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.StartError != nil {
		return f.StartError
	}
	if f.handler != nil {
		return ErrStarted
	}
	f.handler = h
	f.closed = false
	return nil
}

// Emit delivers one edge. It is a no-op before Start or after Close.
func (f *FakeSource) Emit(level bool, at time.Duration) {
	f.mu.Lock()
	h := f.handler
	f.mu.Unlock()
	if h != nil {
		h(level, at)
	}
}

// Play delivers every scripted edge in order.
func (f *FakeSource) Play() {
	for _, e := range f.Edges {
		f.Emit(e.Level, e.At)
	}
}

// Close detaches the handler.
func (f *FakeSource) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.handler = nil
	f.closed = true
	return nil
}

// Closed reports whether Close was called since the last Start.
func (f *FakeSource) Closed() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.closed
}
