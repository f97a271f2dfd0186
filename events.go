package http2

import "sync"

// EventHandler receives the positional arguments an Emitter passes to
// Emit for a given event name.
type EventHandler func(args ...any)

// Emitter is the subscribe/emit host service required by spec.md §6. Each
// Stream owns one and uses it to surface lifecycle events (:active,
// :reserved, :close) and payload events (:data, :headers, :priority) to
// the connection layer.
//
// Grounded on connection.go's ad hoc fmt.Printf event logging
// (handleGoAwayFrame, handleRstStreamFrame, StartReading), generalized
// into a real subscribe/emit mechanism instead of print statements.
type Emitter struct {
	mu       sync.Mutex
	handlers map[string][]EventHandler
}

// NewEmitter returns a ready-to-use Emitter.
func NewEmitter() *Emitter {
	return &Emitter{handlers: make(map[string][]EventHandler)}
}

// On subscribes handler to the named event.
func (e *Emitter) On(name string, handler EventHandler) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.handlers[name] = append(e.handlers[name], handler)
}

// Emit invokes every handler subscribed to name, in subscription order.
func (e *Emitter) Emit(name string, args ...any) {
	e.mu.Lock()
	handlers := append([]EventHandler(nil), e.handlers[name]...)
	e.mu.Unlock()

	for _, h := range handlers {
		h(args...)
	}
}
