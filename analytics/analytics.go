// Package analytics carries survey instrumentation events. Emitting an event
// never blocks and never fails the operation it describes.
package analytics

import (
	"sync"

	"github.com/sirupsen/logrus"
	"go.uber.org/atomic"
)

type Attrs map[string]any

type Sink interface {
	Emit(name string, attrs Attrs)
}

type Noop struct{}

func (Noop) Emit(string, Attrs) {}

// LogSink writes every event as an info line with its attributes as fields.
type LogSink struct {
	Logger *logrus.Logger
}

func (s LogSink) Emit(name string, attrs Attrs) {
	s.Logger.WithFields(logrus.Fields(attrs)).WithField("event", name).Info("analytics")
}

type event struct {
	name  string
	attrs Attrs
}

// Async forwards events to another sink from a single goroutine. When the
// buffer is full the event is dropped and counted.
type Async struct {
	sink    Sink
	events  chan event
	done    chan struct{}
	dropped *atomic.Int64

	mu     sync.RWMutex
	closed bool
}

func NewAsync(sink Sink, buffer int) *Async {
	a := &Async{
		sink:    sink,
		events:  make(chan event, buffer),
		done:    make(chan struct{}),
		dropped: atomic.NewInt64(0),
	}
	go a.loop()
	return a
}

func (a *Async) Emit(name string, attrs Attrs) {
	a.mu.RLock()
	defer a.mu.RUnlock()
	if a.closed {
		a.dropped.Inc()
		return
	}
	select {
	case a.events <- event{name, attrs}:
	default:
		a.dropped.Inc()
	}
}

func (a *Async) Dropped() int64 {
	return a.dropped.Load()
}

// Close stops accepting events and waits until the buffered ones are delivered.
func (a *Async) Close() {
	a.mu.Lock()
	if !a.closed {
		a.closed = true
		close(a.events)
	}
	a.mu.Unlock()
	<-a.done
}

func (a *Async) loop() {
	defer close(a.done)
	for ev := range a.events {
		a.deliver(ev)
	}
}

func (a *Async) deliver(ev event) {
	defer func() {
		if r := recover(); r != nil {
			a.dropped.Inc()
		}
	}()
	a.sink.Emit(ev.name, ev.attrs)
}
