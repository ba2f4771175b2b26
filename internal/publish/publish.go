// Package publish emits gameplay events to external subscribers.
package publish

import (
	"sync"
	"time"
)

// Event kinds.
const (
	KindPlace      = "place"
	KindReset      = "reset"
	KindRoundEnd   = "round_end"
	KindCalibrated = "calibrated"
	KindDifficulty = "difficulty"
)

// Event is a single gameplay occurrence.
type Event struct {
	Kind string    `json:"kind"`
	At   time.Time `json:"at"`
	Data any       `json:"data,omitempty"`
}

// Publisher delivers events and the latest session status. Implementations
// must not block the caller for long; the frame loop publishes inline.
type Publisher interface {
	Publish(e Event) error
	Status(v any) error
	Close() error
}

// Nop discards everything. It is used when no broker is configured.
type Nop struct{}

// Publish discards e.
func (Nop) Publish(Event) error { return nil }

// Status discards the status.
func (Nop) Status(any) error { return nil }

// Close does nothing.
func (Nop) Close() error { return nil }

// Recorder keeps events in memory. It is safe for concurrent use.
type Recorder struct {
	mu     sync.Mutex
	events []Event
	status any
}

// Publish appends e to the recorded events.
func (r *Recorder) Publish(e Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, e)
	return nil
}

// Status keeps v as the latest status.
func (r *Recorder) Status(v any) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.status = v
	return nil
}

// Close does nothing; recorded events stay readable.
func (r *Recorder) Close() error { return nil }

// Events returns a copy of the recorded events.
func (r *Recorder) Events() []Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Event(nil), r.events...)
}

// Kinds returns the kinds of the recorded events in order.
func (r *Recorder) Kinds() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, len(r.events))
	for i, e := range r.events {
		out[i] = e.Kind
	}
	return out
}

// LastStatus returns the most recent status value.
func (r *Recorder) LastStatus() any {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.status
}
