package events

import (
	"sync"

	"nftstake/core/types"
)

// Event represents a structured state change emitted by the ledger.
type Event interface {
	EventType() string
}

// Payload is implemented by events that can be rendered for receipts and RPC.
type Payload interface {
	Event
	Event() *types.Event
}

// Emitter broadcasts events to downstream subscribers (e.g. RPC, indexers).
type Emitter interface {
	Emit(Event)
}

// NoopEmitter is a helper that satisfies the Emitter interface while discarding
// all events. It is useful when a component wants to optionally expose events.
type NoopEmitter struct{}

// Emit implements the Emitter interface.
func (NoopEmitter) Emit(Event) {}

// Recorder buffers events until the caller decides whether the enclosing
// transaction is kept. Flush forwards the buffer; Reset drops it.
type Recorder struct {
	mu     sync.Mutex
	events []Event
}

// Emit implements the Emitter interface.
func (r *Recorder) Emit(evt Event) {
	if r == nil || evt == nil {
		return
	}
	r.mu.Lock()
	r.events = append(r.events, evt)
	r.mu.Unlock()
}

// Events returns a copy of the buffered events.
func (r *Recorder) Events() []Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Event(nil), r.events...)
}

// Payloads renders every buffered event that carries a payload.
func (r *Recorder) Payloads() []types.Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]types.Event, 0, len(r.events))
	for _, evt := range r.events {
		p, ok := evt.(Payload)
		if !ok {
			continue
		}
		if rendered := p.Event(); rendered != nil {
			out = append(out, *rendered)
		}
	}
	return out
}

// Flush forwards all buffered events to dst and clears the buffer.
func (r *Recorder) Flush(dst Emitter) {
	r.mu.Lock()
	buffered := r.events
	r.events = nil
	r.mu.Unlock()
	if dst == nil {
		return
	}
	for _, evt := range buffered {
		dst.Emit(evt)
	}
}

// Reset discards all buffered events.
func (r *Recorder) Reset() {
	r.mu.Lock()
	r.events = nil
	r.mu.Unlock()
}
