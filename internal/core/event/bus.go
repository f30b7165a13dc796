package event

import (
	"reflect"
	"sync"
)

// Bus is a double-buffered event bus. Events emitted while a tick runs pile up
// in the back buffer; Flush swaps buffers and delivers them in emit order per
// type. Emit and Flush belong to the game loop goroutine. Subscribe may be
// called from anywhere.
type Bus struct {
	mu       sync.Mutex // guards handlers
	front    map[reflect.Type][]any
	back     map[reflect.Type][]any
	order    []reflect.Type // first-emit order of types in back
	handlers map[reflect.Type][]func(any)
}

func NewBus() *Bus {
	return &Bus{
		front:    make(map[reflect.Type][]any),
		back:     make(map[reflect.Type][]any),
		handlers: make(map[reflect.Type][]func(any)),
	}
}

func typeOf[T any]() reflect.Type {
	return reflect.TypeOf((*T)(nil)).Elem()
}

// Emit queues an event for the next Flush.
func Emit[T any](b *Bus, ev T) {
	t := typeOf[T]()
	if len(b.back[t]) == 0 {
		b.order = append(b.order, t)
	}
	b.back[t] = append(b.back[t], ev)
}

// Subscribe registers a typed handler for events of type T.
func Subscribe[T any](b *Bus, fn func(T)) {
	b.mu.Lock()
	defer b.mu.Unlock()
	t := typeOf[T]()
	b.handlers[t] = append(b.handlers[t], func(ev any) { fn(ev.(T)) })
}

// Pending reports how many events wait for the next Flush.
func (b *Bus) Pending() int {
	n := 0
	for _, evs := range b.back {
		n += len(evs)
	}
	return n
}

// Flush swaps buffers and dispatches everything emitted since the last call.
// Handlers may Emit; those events wait for the following Flush.
func (b *Bus) Flush() {
	b.front, b.back = b.back, b.front
	order := b.order
	b.order = nil

	b.mu.Lock()
	handlers := make(map[reflect.Type][]func(any), len(order))
	for _, t := range order {
		handlers[t] = b.handlers[t]
	}
	b.mu.Unlock()

	for _, t := range order {
		for _, ev := range b.front[t] {
			for _, h := range handlers[t] {
				h(ev)
			}
		}
		b.front[t] = b.front[t][:0]
	}
}
