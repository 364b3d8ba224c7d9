// Package events dispatches graph lifecycle events to registered callbacks.
package events

import (
	"io"
	"sync/atomic"

	"github.com/tul/emission"
)

// Emitter dispatches events synchronously.
// Registrations return an io.Closer so that callers can defer their removal.
type Emitter struct {
	inner   *emission.Emitter
	emitted atomic.Uint64
}

// NewEmitter creates an Emitter.
func NewEmitter() *Emitter {
	return &Emitter{inner: emission.NewEmitter()}
}

// On registers a listener that is invoked on every occurrence of event.
func (e *Emitter) On(event, listener any) io.Closer {
	e.inner.On(event, listener)
	return registration{e.inner, event, listener}
}

// Once registers a listener that is invoked on the next occurrence of event only.
func (e *Emitter) Once(event, listener any) io.Closer {
	e.inner.Once(event, listener)
	return registration{e.inner, event, listener}
}

// Emit invokes listeners of event with args.
func (e *Emitter) Emit(event any, args ...any) {
	e.emitted.Add(1)
	e.inner.Emit(event, args...)
}

// Emitted returns the number of Emit calls so far.
func (e *Emitter) Emitted() uint64 {
	return e.emitted.Load()
}

type registration struct {
	emitter  *emission.Emitter
	event    any
	listener any
}

func (r registration) Close() error {
	r.emitter.Off(r.event, r.listener)
	return nil
}
