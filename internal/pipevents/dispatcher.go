// Package pipevents publishes per-stage pipeline progress so an operator
// or test can observe a run without polling workspace state. It offers a
// plain Subscribe/Publish shape narrowed to the one event this pipeline
// emits.
package pipevents

import (
	"context"
	"fmt"
	"sync"
	"time"
)

// StageCompletedEvent reports that one pipeline stage finished.
type StageCompletedEvent struct {
	Stage    string
	Counts   map[string]int
	Duration time.Duration
	Err      error // set when the stage ended in a recoverable-error report
}

// Type satisfies the handler dispatch key; all pipeline events share one
// type since the pipeline only ever publishes this one event shape.
func (StageCompletedEvent) Type() string { return "stage_completed" }

// Handler processes a published event. Handlers run concurrently with
// each other; a handler that needs ordering should serialize internally.
type Handler func(ctx context.Context, event StageCompletedEvent) error

// Dispatcher manages subscription and publishing of StageCompletedEvents.
type Dispatcher struct {
	mu       sync.RWMutex
	handlers []Handler
}

// NewDispatcher creates an empty dispatcher.
func NewDispatcher() *Dispatcher {
	return &Dispatcher{}
}

// Subscribe registers a handler invoked on every future Publish.
func (d *Dispatcher) Subscribe(h Handler) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.handlers = append(d.handlers, h)
}

// Publish fans the event out to every subscribed handler concurrently and
// waits for all of them, using a WaitGroup plus a buffered error channel so
// a slow or failing handler never blocks the others.
func (d *Dispatcher) Publish(ctx context.Context, event StageCompletedEvent) error {
	d.mu.RLock()
	handlers := make([]Handler, len(d.handlers))
	copy(handlers, d.handlers)
	d.mu.RUnlock()

	if len(handlers) == 0 {
		return nil
	}

	var wg sync.WaitGroup
	errCh := make(chan error, len(handlers))
	for _, h := range handlers {
		wg.Add(1)
		go func(handle Handler) {
			defer wg.Done()
			if err := handle(ctx, event); err != nil {
				errCh <- fmt.Errorf("pipevents: handler error for stage %s: %w", event.Stage, err)
			}
		}(h)
	}
	wg.Wait()
	close(errCh)

	var errs []error
	for err := range errCh {
		errs = append(errs, err)
	}
	if len(errs) > 0 {
		return fmt.Errorf("pipevents: %d handler(s) failed: %v", len(errs), errs)
	}
	return nil
}
