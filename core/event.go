// Package core provides the fundamental building blocks of the golem ORM.
// This file defines the event bus that lets listeners subscribe to named
// notifications emitted around persistence operations.
package core

import (
	"context"
	"sync"
)

// EventHandler defines the callback signature for event listeners.
// The payload type depends on the event being emitted.
type EventHandler func(ctx context.Context, payload any) error

// Emitter is anything that can deliver a named event.
type Emitter interface {
	Emit(ctx context.Context, event string, payload any) error
}

// EventDispatcher manages a list of event handlers and dispatches them
// when the corresponding events are emitted.
type EventDispatcher struct {
	mutex       sync.RWMutex
	handlerList map[string][]EventHandler
}

var _ Emitter = (*EventDispatcher)(nil)

// NewEventDispatcher creates an empty dispatcher.
func NewEventDispatcher() *EventDispatcher {
	return &EventDispatcher{handlerList: make(map[string][]EventHandler)}
}

// On registers an EventHandler for a specific event name.
func (d *EventDispatcher) On(event string, handler EventHandler) {
	d.mutex.Lock()
	defer d.mutex.Unlock()
	d.handlerList[event] = append(d.handlerList[event], handler)
}

// Emit runs all handlers registered for the event, sequentially and in
// registration order. The first failing handler stops the emission.
func (d *EventDispatcher) Emit(ctx context.Context, event string, payload any) error {
	d.mutex.RLock()
	hs := append([]EventHandler(nil), d.handlerList[event]...)
	d.mutex.RUnlock()

	for _, h := range hs {
		if err := h(ctx, payload); err != nil {
			return err
		}
	}
	return nil
}

// globalDispatcher is the shared event dispatcher used by the ORM.
//
// It provides a global subscription and emission mechanism for events.
var globalDispatcher = NewEventDispatcher()

// DefaultEmitter returns the shared dispatcher used by On and Emit.
func DefaultEmitter() *EventDispatcher { return globalDispatcher }

// On registers an EventHandler on the shared dispatcher.
//
// Example:
//
//	core.On("observer:afterCreate", func(ctx context.Context, payload any) error {
//	    log.Printf("created: %+v", payload)
//	    return nil
//	})
func On(event string, handler EventHandler) {
	globalDispatcher.On(event, handler)
}

// Emit triggers all handlers registered on the shared dispatcher.
func Emit(ctx context.Context, event string, payload any) error {
	return globalDispatcher.Emit(ctx, event, payload)
}

// MultiEmitter fans an event out to several emitters.
type MultiEmitter struct {
	emitterList []Emitter
}

// NewMultiEmitter creates a MultiEmitter forwarding to all non-nil emitters.
func NewMultiEmitter(emitters ...Emitter) *MultiEmitter {
	filtered := make([]Emitter, 0, len(emitters))
	for _, e := range emitters {
		if e != nil {
			filtered = append(filtered, e)
		}
	}
	return &MultiEmitter{emitterList: filtered}
}

// Emit forwards the event to every emitter, stopping at the first error.
func (m *MultiEmitter) Emit(ctx context.Context, event string, payload any) error {
	for _, e := range m.emitterList {
		if err := e.Emit(ctx, event, payload); err != nil {
			return err
		}
	}
	return nil
}
