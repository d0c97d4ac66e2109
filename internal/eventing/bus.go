package eventing

import (
	"context"
	"errors"
	"reflect"
	"sync"

	"github.com/hashicorp/go-multierror"
)

// ErrNilEvent is returned when a nil event is published.
var ErrNilEvent = errors.New("eventing: nil event")

// Handler receives every event published on a bus.
type Handler func(ctx context.Context, event any) error

// Publisher is the producer side of a bus.
type Publisher interface {
	Publish(ctx context.Context, event any) error
}

// Bus is a synchronous in-process bus. Typed handlers receive events whose
// dynamic type is exactly their type parameter; catch-all handlers receive
// everything. Handlers run in subscription order and all of them run even
// when one fails.
type Bus struct {
	mu    sync.RWMutex
	typed map[reflect.Type][]Handler
	all   []Handler
}

// NewBus constructs an empty bus.
func NewBus() *Bus {
	return &Bus{typed: make(map[reflect.Type][]Handler)}
}

// Subscribe registers fn for events of type T.
func Subscribe[T any](b *Bus, fn func(ctx context.Context, event T) error) {
	if b == nil || fn == nil {
		return
	}
	key := reflect.TypeOf((*T)(nil)).Elem()
	b.mu.Lock()
	defer b.mu.Unlock()
	b.typed[key] = append(b.typed[key], func(ctx context.Context, event any) error {
		return fn(ctx, event.(T))
	})
}

// SubscribeAll registers h for every event.
func (b *Bus) SubscribeAll(h Handler) {
	if b == nil || h == nil {
		return
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	b.all = append(b.all, h)
}

// Publish delivers event and returns the combined handler errors.
func (b *Bus) Publish(ctx context.Context, event any) error {
	if event == nil {
		return ErrNilEvent
	}
	b.mu.RLock()
	handlers := make([]Handler, 0, len(b.all)+len(b.typed[reflect.TypeOf(event)]))
	handlers = append(handlers, b.typed[reflect.TypeOf(event)]...)
	handlers = append(handlers, b.all...)
	b.mu.RUnlock()

	var errs *multierror.Error
	for _, h := range handlers {
		if err := h(ctx, event); err != nil {
			errs = multierror.Append(errs, err)
		}
	}
	return errs.ErrorOrNil()
}

// TypeName names the dynamic type of event, dereferencing pointers.
func TypeName(event any) string {
	if event == nil {
		return ""
	}
	t := reflect.TypeOf(event)
	for t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	return t.String()
}
