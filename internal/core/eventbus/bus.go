package eventbus

import (
	"sync"

	"github.com/rs/zerolog"
)

// Handler receives every published event with its payload.
type Handler func(Event, any)

// Bus is a synchronous publisher of store lifecycle events. A nil *Bus is
// valid and publishes nothing, so stores can run without observability
// wiring.
type Bus struct {
	mu       sync.RWMutex
	handlers []Handler
	log      zerolog.Logger
}

// New creates an event bus that logs swallowed handler failures to the
// given logger.
func New(log zerolog.Logger) *Bus {
	return &Bus{log: log}
}

// Subscribe registers a handler for all events.
func (b *Bus) Subscribe(fn Handler) {
	b.mu.Lock()
	b.handlers = append(b.handlers, fn)
	b.mu.Unlock()
}

// Publish invokes every handler with the event. Handlers run on the
// caller's goroutine; a panicking handler is recovered and logged, and
// the remaining handlers still run.
func (b *Bus) Publish(event Event, payload any) {
	if b == nil {
		return
	}

	b.mu.RLock()
	handlers := make([]Handler, len(b.handlers))
	copy(handlers, b.handlers)
	b.mu.RUnlock()

	for _, fn := range handlers {
		b.invoke(event, payload, fn)
	}
}

func (b *Bus) invoke(event Event, payload any, fn Handler) {
	defer func() {
		if r := recover(); r != nil {
			b.log.Error().
				Str("event", string(event)).
				Any("panic", r).
				Msg("event handler panicked")
		}
	}()

	fn(event, payload)
}
